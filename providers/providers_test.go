package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istock.com/oauth"
	"istock.com/types"
)

func TestNew_SelectsImplementation(t *testing.T) {
	p, err := New(&types.DataSource{Name: "sim", SourceType: types.SourceSimulated}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Simulated{}, p)

	p, err = New(&types.DataSource{Name: "fh", SourceType: types.SourceFinnhub, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Finnhub{}, p)

	_, err = New(&types.DataSource{Name: "j", SourceType: types.SourceJSON}, nil)
	assert.Error(t, err)

	_, err = New(&types.DataSource{Name: "x", SourceType: "ftp"}, nil)
	assert.Error(t, err)
}

func TestSimulated_QuoteIsStableWithinAMinute(t *testing.T) {
	s := NewSimulated("")
	fixed := time.Date(2024, 3, 1, 10, 0, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	q1, err := s.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	q2, _ := s.Quote(context.Background(), "aapl")

	assert.Equal(t, q1.Price, q2.Price)
	assert.Equal(t, "AAPL", q1.Symbol)
	// 'A' is 65, so the base is 165 and a move stays within 1%
	assert.InDelta(t, 165, q1.Price, 1.66)
	assert.Equal(t, 165.0, q1.PreClose)
}

func TestSimulated_DailySkipsWeekends(t *testing.T) {
	s := NewSimulated("sim")
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) // Friday
	to := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)   // Tuesday

	bars, err := s.Daily(context.Background(), "MSFT", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	for _, b := range bars {
		assert.NotEqual(t, time.Saturday, b.Date.Weekday())
		assert.NotEqual(t, time.Sunday, b.Date.Weekday())
		assert.GreaterOrEqual(t, b.High, b.Low)
	}

	again, _ := s.Daily(context.Background(), "MSFT", from, to)
	assert.Equal(t, bars, again)
}

func TestSimulated_IgnoresSymbolCase(t *testing.T) {
	assert.Equal(t, BasePrice("AAPL"), BasePrice("aapl"))

	s := NewSimulated("sim")
	from := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	upper, err := s.Daily(context.Background(), "AAPL", from, to)
	require.NoError(t, err)
	lower, err := s.Daily(context.Background(), "aapl", from, to)
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestSimulated_DailyBarDoesNotDependOnRange(t *testing.T) {
	s := NewSimulated("sim")
	ctx := context.Background()
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	long, err := s.Daily(ctx, "NVDA", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), end)
	require.NoError(t, err)
	short, err := s.Daily(ctx, "NVDA", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), end)
	require.NoError(t, err)

	require.NotEmpty(t, short)
	assert.Equal(t, long[len(long)-len(short):], short)

	// each bar opens where the previous weekday closed
	for i := 1; i < len(long); i++ {
		assert.Equal(t, long[i-1].Close, long[i].Open)
	}
}

func TestExtractFloat(t *testing.T) {
	doc := map[string]any{
		"data": map[string]any{
			"price":  12.5,
			"volume": "1,200",
			"series": []any{3.0, 4.0},
			"name":   true,
		},
	}

	v, err := extractFloat(doc, "$.data.price")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	v, err = extractFloat(doc, "$.data.volume")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, v)

	v, err = extractFloat(doc, "$.data.series[-1:]")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	_, err = extractFloat(doc, "$.data.name")
	assert.Error(t, err)

	_, err = extractFloat(doc, "$.data.missing")
	assert.Error(t, err)
}

func TestJSON_QuoteWithOAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"abc","token_type":"Bearer","expires_in":3600}`))
		case "/quote/TSLA":
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"result":{"last":210.0,"diff":10.0,"vol":5000}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	auth := oauth.NewOAuthClient(oauth.ClientConfig{TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "s"})
	p := NewJSON(JSONConfig{
		Name:       "test",
		Endpoint:   srv.URL + "/quote/{symbol}",
		PricePath:  "$.result.last",
		ChangePath: "$.result.diff",
		VolumePath: "$.result.vol",
		Auth:       auth,
	})

	q, err := p.Quote(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, 210.0, q.Price)
	assert.Equal(t, 10.0, q.Change)
	assert.Equal(t, 200.0, q.PreClose)
	assert.InDelta(t, 5.0, q.ChangePercent, 1e-9)
	assert.Equal(t, int64(5000), q.Volume)

	assert.NoError(t, p.Ping(context.Background()))

	_, err = p.Daily(context.Background(), "TSLA", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestJSON_QuoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewJSON(JSONConfig{Name: "bad", Endpoint: srv.URL + "/{symbol}", PricePath: "$.p"})
	_, err := p.Quote(context.Background(), "X")
	assert.Error(t, err)
	assert.Error(t, p.Ping(context.Background()))
}

func TestFinnhub_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-Finnhub-Token"))
		assert.Equal(t, "NVDA", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"c":120.5,"d":1.5,"dp":1.26,"h":121,"l":118,"o":119,"pc":119}`))
	}))
	defer srv.Close()

	p := NewFinnhub("finnhub", srv.URL, "key")
	q, err := p.Quote(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.InDelta(t, 120.5, q.Price, 1e-4)
	assert.InDelta(t, 1.5, q.Change, 1e-4)
	assert.InDelta(t, 119, q.PreClose, 1e-4)
}
