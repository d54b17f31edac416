package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"istock.com/dto"
	"istock.com/oauth"
	"istock.com/types"
)

var (
	ErrNotSupported = errors.New("operation not supported by provider")
	ErrNoData       = errors.New("provider returned no data")
)

// Bar is one daily OHLCV candle.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*dto.Quote, error)
	Daily(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
	Ping(ctx context.Context) error
}

const DefaultTimeout = 10 * time.Second

// New builds the provider that serves a configured data source.
func New(src *types.DataSource, auth *oauth.Client) (QuoteProvider, error) {
	switch strings.ToLower(src.SourceType) {
	case types.SourceFinnhub:
		return NewFinnhub(src.Name, src.Endpoint, src.APIKey), nil
	case types.SourceJSON:
		if src.Endpoint == "" || src.PricePath == "" {
			return nil, fmt.Errorf("json source %s needs endpoint and price_path", src.Name)
		}
		return NewJSON(JSONConfig{
			Name:       src.Name,
			Endpoint:   src.Endpoint,
			APIKey:     src.APIKey,
			PricePath:  src.PricePath,
			ChangePath: src.ChangePath,
			VolumePath: src.VolumePath,
			Auth:       auth,
		}), nil
	case types.SourceSimulated:
		return NewSimulated(src.Name), nil
	default:
		return nil, fmt.Errorf("unknown source type %q", src.SourceType)
	}
}
