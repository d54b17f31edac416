package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"

	"istock.com/dto"
	"istock.com/shared"
)

type Finnhub struct {
	name string
	api  *finnhub.DefaultApiService
}

// NewFinnhub talks to the public API unless endpoint overrides the server.
func NewFinnhub(name, endpoint, apiKey string) *Finnhub {
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	cfg.UserAgent = shared.UserAgent
	cfg.HTTPClient = shared.HttpClient(DefaultTimeout)
	if endpoint != "" {
		cfg.Servers = finnhub.ServerConfigurations{{URL: endpoint}}
	}
	return &Finnhub{name: name, api: finnhub.NewAPIClient(cfg).DefaultApi}
}

func (f *Finnhub) Name() string { return f.name }

func (f *Finnhub) Quote(ctx context.Context, symbol string) (*dto.Quote, error) {
	q, resp, err := f.api.Quote(ctx).Symbol(symbol).Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub quote %s: %w", symbol, statusError(resp, err))
	}
	if q.GetC() == 0 && q.GetPc() == 0 {
		return nil, fmt.Errorf("finnhub quote %s: %w", symbol, ErrNoData)
	}

	return &dto.Quote{
		Symbol:        symbol,
		Price:         float64(q.GetC()),
		Change:        float64(q.GetD()),
		ChangePercent: float64(q.GetDp()),
		Open:          float64(q.GetO()),
		High:          float64(q.GetH()),
		Low:           float64(q.GetL()),
		PreClose:      float64(q.GetPc()),
		Timestamp:     time.Now(),
	}, nil
}

func (f *Finnhub) Daily(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	c, resp, err := f.api.StockCandles(ctx).Symbol(symbol).Resolution("D").From(from.Unix()).To(to.Unix()).Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub candles %s: %w", symbol, statusError(resp, err))
	}
	if c.GetS() != "ok" {
		return nil, fmt.Errorf("finnhub candles %s: %w", symbol, ErrNoData)
	}

	ts, opens, highs, lows, closes, vols := c.GetT(), c.GetO(), c.GetH(), c.GetL(), c.GetC(), c.GetV()
	n := min(len(ts), len(opens), len(highs), len(lows), len(closes), len(vols))
	bars := make([]Bar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, Bar{
			Date:   time.Unix(ts[i], 0).UTC().Truncate(24 * time.Hour),
			Open:   float64(opens[i]),
			High:   float64(highs[i]),
			Low:    float64(lows[i]),
			Close:  float64(closes[i]),
			Volume: int64(vols[i]),
		})
	}
	return bars, nil
}

func (f *Finnhub) Ping(ctx context.Context) error {
	_, resp, err := f.api.Quote(ctx).Symbol("AAPL").Execute()
	if err != nil {
		return fmt.Errorf("finnhub ping: %w", statusError(resp, err))
	}
	return nil
}

func statusError(resp *http.Response, err error) error {
	if resp == nil {
		return err
	}
	return fmt.Errorf("status %d: %w", resp.StatusCode, err)
}
