package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/valyala/fasthttp"

	"istock.com/dto"
	"istock.com/oauth"
	"istock.com/shared"
)

const pingSymbol = "AAPL"

type JSONConfig struct {
	Name       string
	Endpoint   string // may contain {symbol}
	APIKey     string
	PricePath  string
	ChangePath string
	VolumePath string
	Auth       *oauth.Client
	Timeout    time.Duration
}

// JSON reads quotes from any HTTP endpoint that returns JSON, picking the
// values out with JSONPath expressions.
type JSON struct {
	cfg JSONConfig
}

func NewJSON(cfg JSONConfig) *JSON {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &JSON{cfg: cfg}
}

func (j *JSON) Name() string { return j.cfg.Name }

func (j *JSON) url(symbol string) string {
	return strings.ReplaceAll(j.cfg.Endpoint, "{symbol}", url.QueryEscape(symbol))
}

func (j *JSON) Quote(ctx context.Context, symbol string) (*dto.Quote, error) {
	var authHeader string
	if j.cfg.Auth != nil {
		h, err := j.cfg.Auth.AuthorizationHeader(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", j.cfg.Name, err)
		}
		authHeader = h
	}

	agent := shared.FiberAgent(j.url(symbol), j.timeout(ctx))
	agent.Set("Accept", "application/json")
	if j.cfg.APIKey != "" {
		agent.Set("X-API-Key", j.cfg.APIKey)
	}
	if authHeader != "" {
		agent.Set("Authorization", authHeader)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s quote %s: %w", j.cfg.Name, symbol, errors.Join(errs...))
	}
	if code == fasthttp.StatusUnauthorized && j.cfg.Auth != nil {
		j.cfg.Auth.Invalidate()
	}
	if code != fasthttp.StatusOK {
		return nil, fmt.Errorf("%s quote %s: unexpected status %d", j.cfg.Name, symbol, code)
	}

	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return nil, fmt.Errorf("%s quote %s: %w", j.cfg.Name, symbol, err)
	}
	return j.parse(symbol, jobj)
}

func (j *JSON) parse(symbol string, jobj any) (*dto.Quote, error) {
	price, err := extractFloat(jobj, j.cfg.PricePath)
	if err != nil {
		return nil, fmt.Errorf("%s price of %s: %w", j.cfg.Name, symbol, err)
	}
	q := &dto.Quote{Symbol: symbol, Price: price, Timestamp: time.Now()}

	if j.cfg.ChangePath != "" {
		if change, err := extractFloat(jobj, j.cfg.ChangePath); err == nil {
			q.Change = change
			if prev := price - change; prev != 0 {
				q.PreClose = prev
				q.ChangePercent = change / prev * 100
			}
		}
	}
	if j.cfg.VolumePath != "" {
		if vol, err := extractFloat(jobj, j.cfg.VolumePath); err == nil {
			q.Volume = int64(vol)
		}
	}
	return q, nil
}

func (j *JSON) Daily(context.Context, string, time.Time, time.Time) ([]Bar, error) {
	return nil, ErrNotSupported
}

// Ping only checks that the endpoint answers without a server error.
func (j *JSON) Ping(ctx context.Context) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(j.url(pingSymbol))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(shared.UserAgent)

	if err := fasthttp.DoTimeout(req, resp, j.timeout(ctx)); err != nil {
		return fmt.Errorf("%s ping: %w", j.cfg.Name, err)
	}
	if resp.StatusCode() >= fasthttp.StatusInternalServerError {
		return fmt.Errorf("%s ping: status %d", j.cfg.Name, resp.StatusCode())
	}
	return nil
}

func (j *JSON) timeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < j.cfg.Timeout {
			return max(left, time.Millisecond)
		}
	}
	return j.cfg.Timeout
}

// extractFloat evaluates path and accepts a number, a numeric string or a
// list whose first element is one of those.
func extractFloat(jobj any, path string) (float64, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("path %q: %w", path, err)
	}
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return 0, fmt.Errorf("path %q: %w", path, ErrNoData)
		}
		jval = jlist[0]
	}

	switch v := jval.(type) {
	case float64:
		return v, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("path %q: invalid number %q", path, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("path %q: not a number: %v", path, jval)
	}
}
