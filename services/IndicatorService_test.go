package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istock.com/db"
	"istock.com/types"
)

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.Nil(t, out[0])
	assert.Nil(t, out[1])
	assert.InDelta(t, 2.0, *out[2], 1e-9)
	assert.InDelta(t, 3.0, *out[3], 1e-9)
	assert.InDelta(t, 4.0, *out[4], 1e-9)
}

func TestEMA(t *testing.T) {
	// alpha = 2/(3+1) = 0.5
	out := EMA([]float64{10, 20, 30}, 3)
	assert.Equal(t, []float64{10, 15, 22.5}, out)
	assert.Empty(t, EMA(nil, 3))
}

func TestRSI(t *testing.T) {
	closes := []float64{10, 11, 10, 12}
	out := RSI(closes, 3)
	require.Nil(t, out[2])
	// gains 1+2 = 3, losses 1, rs = 3, rsi = 75
	assert.InDelta(t, 75.0, *out[3], 1e-9)

	up := RSI([]float64{1, 2, 3}, 2)
	assert.Equal(t, 100.0, *up[2])

	flat := RSI([]float64{5, 5, 5}, 2)
	assert.Equal(t, 50.0, *flat[2])
}

func TestKDJ(t *testing.T) {
	highs := []float64{10, 12}
	lows := []float64{8, 9}
	closes := []float64{9, 11}
	k, d, j := KDJ(highs, lows, closes, 9)

	// day 1: rsv 50, so K = D = 50
	assert.InDelta(t, 50.0, k[0], 1e-9)
	assert.InDelta(t, 50.0, d[0], 1e-9)
	assert.InDelta(t, 50.0, j[0], 1e-9)

	// day 2: hh 12, ll 8, rsv 75, K = 2/3*50 + 1/3*75
	assert.InDelta(t, 175.0/3, k[1], 1e-9)
	assert.InDelta(t, 2.0/3*50+1.0/3*(175.0/3), d[1], 1e-9)
	assert.InDelta(t, 3*k[1]-2*d[1], j[1], 1e-9)
}

func TestBollinger(t *testing.T) {
	upper, middle, lower := Bollinger([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8, 2)
	require.NotNil(t, middle[7])
	// mean 5, population sd 2
	assert.InDelta(t, 5.0, *middle[7], 1e-9)
	assert.InDelta(t, 9.0, *upper[7], 1e-9)
	assert.InDelta(t, 1.0, *lower[7], 1e-9)
	assert.Nil(t, upper[6])
}

func TestMACD_CrossProducesSignals(t *testing.T) {
	var bars []types.StockDaily
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < 60; i++ {
		switch {
		case i < 30:
			price -= 1
		default:
			price += 2
		}
		bars = append(bars, types.StockDaily{ID: uint(i + 1), StockID: 1, Date: day.AddDate(0, 0, i), Close: price, High: price + 1, Low: price - 1, Volume: 1000})
	}

	rows := ComputeIndicators(bars)
	require.Len(t, rows, 60)

	var buys, sells int
	for _, r := range rows {
		if r.BuySignal {
			buys++
			assert.GreaterOrEqual(t, r.SignalStrength, 1)
			assert.LessOrEqual(t, r.SignalStrength, 5)
		}
		if r.SellSignal {
			sells++
		}
		if !r.BuySignal && !r.SellSignal {
			assert.Equal(t, 0, r.SignalStrength)
		}
	}
	assert.Equal(t, 1, buys)
	assert.Equal(t, 0, sells)
	assert.NotNil(t, rows[59].MA60)
	assert.Nil(t, rows[58].MA60)
	assert.Equal(t, int64(1000), *rows[9].VolumeMA10)
}

func TestRecomputeIndicators_Upserts(t *testing.T) {
	setupTestDB(t)
	s := seedStock(t, "AAPL", "NASDAQ", "Technology", 100)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		db.DB.Create(&types.StockDaily{StockID: s.ID, Date: day.AddDate(0, 0, i), Open: 10, Close: float64(10 + i), High: float64(11 + i), Low: 9, Volume: 100})
	}

	n, err := RecomputeIndicators(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = RecomputeIndicators(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	var count int64
	db.DB.Model(&types.TechnicalIndicator{}).Count(&count)
	assert.Equal(t, int64(10), count)

	rows, err := Indicators(s.ID, DateRange{Limit: 1})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 17.0, *rows[0].MA5, 1e-9)
}
