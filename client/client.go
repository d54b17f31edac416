// Package client is the session-aware REST client of the iStock API.
//
// Every request carries the stored bearer token. Any 401 response clears
// the token and fires the OnUnauthorized hook; there are no retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"istock.com/dto"
	"istock.com/types"
)

const (
	DefaultBaseURL = "http://localhost:8000/api/v1"
	DefaultTimeout = 10 * time.Second
)

// BaseURLFromEnv reads ISTOCK_API_URL, falling back to DefaultBaseURL.
func BaseURLFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("ISTOCK_API_URL")); v != "" {
		return v
	}
	return DefaultBaseURL
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Store      TokenStore
	Logger     *zap.Logger
	HTTPClient *http.Client
	// OnUnauthorized runs after a 401 cleared the token.
	OnUnauthorized func()
}

type Client struct {
	baseURL        string
	http           *http.Client
	store          TokenStore
	logger         *zap.Logger
	onUnauthorized func()
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore("")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	// copied so a shared client is never written to
	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		*httpClient = *cfg.HTTPClient
	}
	httpClient.Timeout = cfg.Timeout

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           httpClient,
		store:          cfg.Store,
		logger:         cfg.Logger.With(zap.String("caller", "istock.Client")),
		onUnauthorized: cfg.OnUnauthorized,
	}
}

// SetOnUnauthorized replaces the 401 hook.
func (c *Client) SetOnUnauthorized(fn func()) { c.onUnauthorized = fn }

func (c *Client) Store() TokenStore { return c.store }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// raw responses are decoded as-is instead of from the envelope
	raw bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	logger := c.logger.With(zap.String("method", r.method), zap.String("path", r.path))

	target, err := url.Parse(c.baseURL + r.path)
	if err != nil || target.Scheme == "" || target.Host == "" {
		if err == nil {
			err = fmt.Errorf("invalid base url %q", c.baseURL)
		}
		logger.Error("request configuration error", zap.Error(err))
		return &APIError{Kind: ErrConfig, Err: err}
	}
	if len(r.query) > 0 {
		target.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			logger.Error("request configuration error", zap.Error(err))
			return &APIError{Kind: ErrConfig, Err: fmt.Errorf("marshal request body: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target.String(), body)
	if err != nil {
		logger.Error("request configuration error", zap.Error(err))
		return &APIError{Kind: ErrConfig, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.store.Token(); token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Error("network error, check your connection", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return &APIError{Kind: ErrNetwork, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("read response", zap.Error(err))
		return &APIError{Kind: ErrNetwork, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(logger, resp.StatusCode, payload)
	}

	if out == nil {
		return nil
	}
	if r.raw {
		if err := json.Unmarshal(payload, out); err != nil {
			return &APIError{Kind: ErrConfig, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return &APIError{Kind: ErrConfig, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &APIError{Kind: ErrConfig, Status: resp.StatusCode, Err: fmt.Errorf("decode response data: %w", err)}
	}
	return nil
}

func (c *Client) fail(logger *zap.Logger, status int, payload []byte) error {
	var env envelope
	_ = json.Unmarshal(payload, &env)
	apiErr := &APIError{Kind: kindFor(status), Status: status, Detail: env.Error}

	switch apiErr.Kind {
	case ErrUnauthorized:
		logger.Warn("unauthorized, clearing token", zap.String("detail", env.Error))
		if err := c.store.Clear(); err != nil {
			logger.Error("clear token", zap.Error(err))
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	case ErrForbidden:
		logger.Warn("permission denied", zap.String("detail", env.Error))
	case ErrNotFound:
		logger.Warn("resource does not exist", zap.String("detail", env.Error))
	case ErrServer:
		logger.Error("internal server error", zap.Int("status", status), zap.String("detail", env.Error))
	default:
		logger.Warn("request failed", zap.Int("status", status), zap.String("detail", env.Error))
	}
	return apiErr
}

// SetAuthToken stores token, or clears the store when token is empty.
func (c *Client) SetAuthToken(token string) error {
	if token == "" {
		return c.store.Clear()
	}
	return c.store.SetToken(token)
}

func (c *Client) ClearAuth() error { return c.store.Clear() }

func (c *Client) IsAuthenticated() bool { return c.store.Token() != "" }

// Users

func (c *Client) Register(ctx context.Context, req dto.RegisterRequest) (*types.User, error) {
	var user types.User
	if err := c.do(ctx, request{method: http.MethodPost, path: "/users/register", body: req}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login stores the returned access token before returning.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.TokenResponse, error) {
	var tok dto.TokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/users/login",
		body:   dto.LoginRequest{Username: username, Password: password},
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &APIError{Kind: ErrConfig, Err: errors.New("login response carried no token")}
	}
	if err := c.SetAuthToken(tok.AccessToken); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*types.User, error) {
	var user types.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, req dto.UpdateUserRequest) (*types.User, error) {
	var user types.User
	if err := c.do(ctx, request{method: http.MethodPut, path: "/users/me", body: req}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Stocks

type StockQuery struct {
	Skip     int
	Limit    int
	Market   string
	Industry string
	Search   string
}

func (q StockQuery) values() url.Values {
	v := url.Values{}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	setIf(v, "market", q.Market)
	setIf(v, "industry", q.Industry)
	setIf(v, "search", q.Search)
	return v
}

// SeriesQuery filters daily bars and indicators. Dates are YYYY-MM-DD.
type SeriesQuery struct {
	StartDate string
	EndDate   string
	Limit     int
}

func (q SeriesQuery) values() url.Values {
	v := url.Values{}
	setIf(v, "start_date", q.StartDate)
	setIf(v, "end_date", q.EndDate)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func (c *Client) Stocks(ctx context.Context, q StockQuery) (*dto.StockList, error) {
	var list dto.StockList
	if err := c.do(ctx, request{method: http.MethodGet, path: "/stocks", query: q.values()}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) Stock(ctx context.Context, id uint) (*types.Stock, error) {
	var stock types.Stock
	if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/stocks/%d", id)}, &stock); err != nil {
		return nil, err
	}
	return &stock, nil
}

func (c *Client) SearchStocks(ctx context.Context, query string) ([]types.Stock, error) {
	var stocks []types.Stock
	if err := c.do(ctx, request{method: http.MethodGet, path: "/stocks/search/" + url.PathEscape(query)}, &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}

func (c *Client) StockDaily(ctx context.Context, id uint, q SeriesQuery) ([]types.StockDaily, error) {
	var bars []types.StockDaily
	if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/stocks/%d/daily", id), query: q.values()}, &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func (c *Client) StockIndicators(ctx context.Context, id uint, q SeriesQuery) ([]types.TechnicalIndicator, error) {
	var rows []types.TechnicalIndicator
	if err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/stocks/%d/indicators", id), query: q.values()}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) MarketOverview(ctx context.Context) (*dto.MarketOverview, error) {
	var ov dto.MarketOverview
	if err := c.do(ctx, request{method: http.MethodGet, path: "/stocks/market/overview"}, &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

func (c *Client) RealtimeQuote(ctx context.Context, symbol string) (*dto.Quote, error) {
	var q dto.Quote
	if err := c.do(ctx, request{method: http.MethodGet, path: "/stocks/quote/" + url.PathEscape(symbol)}, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Portfolio

func portfolioPath(userID, suffix string) string {
	return "/portfolio/" + url.PathEscape(userID) + suffix
}

func (c *Client) PortfolioItems(ctx context.Context, userID string) ([]types.PortfolioItem, error) {
	var items []types.PortfolioItem
	if err := c.do(ctx, request{method: http.MethodGet, path: portfolioPath(userID, "/items")}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) PortfolioSummary(ctx context.Context, userID string) (*dto.PortfolioSummary, error) {
	var summary dto.PortfolioSummary
	if err := c.do(ctx, request{method: http.MethodGet, path: portfolioPath(userID, "/summary")}, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) PortfolioDetails(ctx context.Context, userID string) ([]dto.PortfolioDetail, error) {
	var details []dto.PortfolioDetail
	if err := c.do(ctx, request{method: http.MethodGet, path: portfolioPath(userID, "/details")}, &details); err != nil {
		return nil, err
	}
	return details, nil
}

func (c *Client) AddPortfolioItem(ctx context.Context, userID string, req dto.CreatePortfolioItemRequest) (*types.PortfolioItem, error) {
	var item types.PortfolioItem
	if err := c.do(ctx, request{method: http.MethodPost, path: portfolioPath(userID, "/items"), body: req}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdatePortfolioItem(ctx context.Context, userID string, stockID uint, req dto.UpdatePortfolioItemRequest) (*types.PortfolioItem, error) {
	var item types.PortfolioItem
	path := portfolioPath(userID, fmt.Sprintf("/items/%d", stockID))
	if err := c.do(ctx, request{method: http.MethodPut, path: path, body: req}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeletePortfolioItem(ctx context.Context, userID string, stockID uint) error {
	return c.do(ctx, request{method: http.MethodDelete, path: portfolioPath(userID, fmt.Sprintf("/items/%d", stockID))}, nil)
}

func (c *Client) PortfolioItem(ctx context.Context, userID string, stockID uint) (*types.PortfolioItem, error) {
	var item types.PortfolioItem
	if err := c.do(ctx, request{method: http.MethodGet, path: portfolioPath(userID, fmt.Sprintf("/items/%d", stockID))}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ClearPortfolio removes every holding and returns how many were deleted.
func (c *Client) ClearPortfolio(ctx context.Context, userID string) (int64, error) {
	var out dto.ClearPortfolioResponse
	r := request{method: http.MethodDelete, path: portfolioPath(userID, "/clear"), query: url.Values{"confirm": {"true"}}}
	if err := c.do(ctx, r, &out); err != nil {
		return 0, err
	}
	return out.DeletedItems, nil
}

func (c *Client) PortfolioReport(ctx context.Context, userID string) (*dto.PortfolioReport, error) {
	var rep dto.PortfolioReport
	if err := c.do(ctx, request{method: http.MethodGet, path: portfolioPath(userID, "/report")}, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// RefreshPortfolio reprices the holdings and returns how many changed.
func (c *Client) RefreshPortfolio(ctx context.Context, userID string) (int, error) {
	var out struct {
		Updated int `json:"updated"`
	}
	if err := c.do(ctx, request{method: http.MethodPost, path: portfolioPath(userID, "/refresh")}, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// Data

func (c *Client) DataSources(ctx context.Context) ([]types.DataSource, error) {
	var sources []types.DataSource
	if err := c.do(ctx, request{method: http.MethodGet, path: "/data/sources"}, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (c *Client) TestDataSource(ctx context.Context, id uint) (*dto.SourceTestResult, error) {
	var res dto.SourceTestResult
	if err := c.do(ctx, request{method: http.MethodPost, path: fmt.Sprintf("/data/sources/%d/test", id)}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CheckEmail(ctx context.Context, email string) (bool, error) {
	var out dto.EmailAvailability
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/check/email/" + url.PathEscape(email)}, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

func (c *Client) TriggerSync(ctx context.Context, req dto.SyncRequest) (*dto.SyncResponse, error) {
	var resp dto.SyncResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/data/sync", body: req}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type SyncLogQuery struct {
	DataSourceID uint
	SyncType     string
	Status       string
	Limit        int
}

func (c *Client) SyncLogs(ctx context.Context, q SyncLogQuery) ([]types.DataSyncLog, error) {
	v := url.Values{}
	if q.DataSourceID != 0 {
		v.Set("data_source_id", strconv.FormatUint(uint64(q.DataSourceID), 10))
	}
	setIf(v, "sync_type", q.SyncType)
	setIf(v, "status", q.Status)
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	var logs []types.DataSyncLog
	if err := c.do(ctx, request{method: http.MethodGet, path: "/data/sync/logs", query: v}, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *Client) SyncStatus(ctx context.Context, taskID string) (*types.DataSyncLog, error) {
	var entry types.DataSyncLog
	if err := c.do(ctx, request{method: http.MethodGet, path: "/data/sync/status/" + url.PathEscape(taskID)}, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) DataStats(ctx context.Context) (*dto.StatsOverview, error) {
	var ov dto.StatsOverview
	if err := c.do(ctx, request{method: http.MethodGet, path: "/data/stats/overview"}, &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

// System

func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	var h dto.HealthResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/health", raw: true}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) SystemStatus(ctx context.Context) (*dto.SystemStatus, error) {
	var st dto.SystemStatus
	if err := c.do(ctx, request{method: http.MethodGet, path: "/system/status"}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
