package report

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"istock.com/client"
	"istock.com/dto"
	"istock.com/types"
)

const stockPageSize = 1000

// Loader fetches view data through the API client. Any failure other than
// a 401 is logged and replaced with placeholder data; a 401 is returned so
// the caller can send the user back to login.
type Loader struct {
	Client *client.Client
	Logger *zap.Logger
	Now    func() time.Time

	me *types.User
}

func NewLoader(c *client.Client, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Client: c, Logger: logger, Now: time.Now}
}

func (l *Loader) now() time.Time {
	if l.Now == nil {
		return time.Now()
	}
	return l.Now()
}

// Unauthorized reports whether err means the stored token was rejected.
func Unauthorized(err error) bool {
	return errors.Is(err, client.ErrUnauthorized)
}

// Notice turns a load failure into the line shown above demo data.
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, client.ErrNetwork):
		return "Cannot reach the iStock API"
	}
	if d := strings.TrimSpace(client.Detail(err)); d != "" {
		return d
	}
	return "Failed to load data"
}

func (l *Loader) User(ctx context.Context) (*types.User, error) {
	if l.me != nil {
		return l.me, nil
	}
	u, err := l.Client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	l.me = u
	return u, nil
}

func (l *Loader) Dashboard(ctx context.Context) (Dashboard, error) {
	d := Dashboard{GeneratedAt: l.now()}
	var failed error
	var summary *dto.PortfolioSummary

	user, err := l.User(ctx)
	if Unauthorized(err) {
		return d, err
	}
	if err != nil {
		failed = err
	} else {
		d.User = user.Username
		summary, err = l.Client.PortfolioSummary(ctx, user.ID)
		if Unauthorized(err) {
			return d, err
		}
		if err != nil {
			failed = err
		}
	}

	market, err := l.Client.MarketOverview(ctx)
	if Unauthorized(err) {
		return d, err
	}
	if err != nil && failed == nil {
		failed = err
	}

	if summary == nil {
		summary = PlaceholderSummary(d.GeneratedAt)
	}
	if market == nil {
		market = PlaceholderMarket(d.GeneratedAt)
	}
	d.Summary = *summary
	d.Market = *market
	if failed != nil {
		l.Logger.Warn("dashboard fell back to demo data", zap.Error(failed))
		d.Demo = true
		d.Notice = Notice(failed)
	}
	return d, nil
}

// Stocks loads the full list and applies the filter locally so market and
// industry options reflect every stock.
func (l *Loader) Stocks(ctx context.Context, f Filter, selected string) (StockList, []types.Stock, error) {
	var out StockList
	all := []types.Stock(nil)

	list, err := l.Client.Stocks(ctx, client.StockQuery{Limit: stockPageSize})
	switch {
	case Unauthorized(err):
		return out, nil, err
	case err != nil:
		l.Logger.Warn("stock list fell back to demo data", zap.Error(err))
		all = PlaceholderStocks(l.now())
		out.Demo = true
		out.Notice = Notice(err)
	default:
		all = list.Items
	}

	out.Filter = f
	out.Stocks = FilterStocks(all, f)
	out.Total = len(all)
	if selected = strings.TrimSpace(selected); selected != "" {
		for i := range all {
			if strings.EqualFold(all[i].Symbol, selected) {
				s := all[i]
				out.Selected = &s
				break
			}
		}
	}
	return out, all, nil
}

func (l *Loader) Portfolio(ctx context.Context) (Portfolio, error) {
	var p Portfolio
	user, err := l.User(ctx)
	if Unauthorized(err) {
		return p, err
	}

	var summary *dto.PortfolioSummary
	var details []dto.PortfolioDetail
	if err == nil {
		summary, err = l.Client.PortfolioSummary(ctx, user.ID)
		if err == nil {
			details, err = l.Client.PortfolioDetails(ctx, user.ID)
		}
	}
	if Unauthorized(err) {
		return p, err
	}
	if err != nil {
		l.Logger.Warn("portfolio fell back to demo data", zap.Error(err))
		p.Demo = true
		p.Notice = Notice(err)
		p.Summary = *PlaceholderSummary(l.now())
		return p, nil
	}
	p.Summary = *summary
	p.Details = details
	return p, nil
}

func (l *Loader) Full(ctx context.Context) (Full, error) {
	f := Full{GeneratedAt: l.now()}
	var err error
	if f.Dashboard, err = l.Dashboard(ctx); err != nil {
		return f, err
	}
	if f.Portfolio, err = l.Portfolio(ctx); err != nil {
		return f, err
	}
	if f.Stocks, _, err = l.Stocks(ctx, Filter{}, ""); err != nil {
		return f, err
	}
	return f, nil
}

// CachedUser returns the user fetched by an earlier call, if any.
func (l *Loader) CachedUser() *types.User { return l.me }
