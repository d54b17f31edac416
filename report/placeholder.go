package report

import (
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"istock.com/dto"
	"istock.com/types"
)

// DemoNotice is shown whenever a view falls back to placeholder data.
const DemoNotice = "Showing demo data"

func PlaceholderMarket(now time.Time) *dto.MarketOverview {
	return &dto.MarketOverview{
		Markets: map[string]dto.MarketIndex{
			"shanghai": {Change: 1.2, Status: "up"},
			"shenzhen": {Change: 0.8, Status: "up"},
			"nasdaq":   {Change: -0.5, Status: "down"},
			"sp500":    {Change: 0.3, Status: "up"},
		},
		Statistics: dto.MarketStatistics{TotalStocks: 4, Up: 3, Down: 1},
		UpdatedAt:  now,
	}
}

func PlaceholderSummary(now time.Time) *dto.PortfolioSummary {
	return &dto.PortfolioSummary{
		TotalValue:             125000.50,
		TotalCost:              100000.00,
		TotalProfitLoss:        25000.50,
		TotalProfitLossPercent: 25.0,
		ItemCount:              8,
		LastUpdated:            now,
		IndustryDistribution:   map[string]float64{},
		MarketDistribution:     map[string]float64{},
	}
}

var placeholderStocks = []struct{ symbol, name string }{
	{"AAPL", "Apple"}, {"GOOGL", "Alphabet"}, {"MSFT", "Microsoft"}, {"AMZN", "Amazon"},
	{"TSLA", "Tesla"}, {"NVDA", "NVIDIA"}, {"META", "Meta"}, {"NFLX", "Netflix"},
	{"BABA", "Alibaba"}, {"JD", "JD.com"},
}

var (
	placeholderMarkets    = []string{"NASDAQ", "NYSE", "SH", "SZ"}
	placeholderIndustries = []string{"Technology", "E-commerce", "Automotive", "Entertainment", "Finance", "Healthcare"}
)

// PlaceholderStocks is a stable list for a given day.
func PlaceholderStocks(now time.Time) []types.Stock {
	h := fnv.New64a()
	h.Write([]byte(now.Format(time.DateOnly)))
	rng := rand.New(rand.NewPCG(h.Sum64(), 0x15f0c4))

	out := make([]types.Stock, len(placeholderStocks))
	for i, s := range placeholderStocks {
		out[i] = types.Stock{
			ID:            uint(i + 1),
			Symbol:        s.symbol,
			Name:          s.name,
			Market:        placeholderMarkets[i%len(placeholderMarkets)],
			Industry:      placeholderIndustries[i%len(placeholderIndustries)],
			Sector:        "Information Technology",
			Status:        "active",
			Price:         round2(100 + rng.Float64()*900),
			Change:        round2((rng.Float64() - 0.5) * 20),
			ChangePercent: round2((rng.Float64() - 0.5) * 10),
			Volume:        rng.Int64N(10_000_000),
			MarketCap:     float64(rng.Int64N(1_000_000_000_000)),
			QuotedAt:      now,
		}
	}
	return out
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
