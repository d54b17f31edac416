package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"istock.com/db"
	"istock.com/dto"
	"istock.com/types"
)

const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	volatilityWindow     = 60
	tradingDaysPerYear   = 252
	mediumRiskVolatility = 20.0
	highRiskVolatility   = 35.0
	concentratedWeight   = 30.0
	maxHighRiskItems     = 5
)

// PortfolioReport analyses risk, diversification and performance of the
// user's holdings and derives recommendations from them.
func PortfolioReport(userID string) (*dto.PortfolioReport, error) {
	var items []types.PortfolioItem
	if err := db.DB.Preload("Stock").Where("user_id = ?", userID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}

	vols := make(map[uint]float64, len(items))
	for _, it := range items {
		v, err := Volatility(it.StockID)
		if err != nil {
			return nil, fmt.Errorf("volatility of %s: %w", it.Stock.Symbol, err)
		}
		vols[it.StockID] = v
	}

	summary := Summarize(items)
	rep := &dto.PortfolioReport{
		ReportID:        uuid.NewString(),
		UserID:          userID,
		GeneratedAt:     now(),
		Summary:         *summary,
		Risk:            analyzeRisk(items, vols),
		Diversification: analyzeDiversification(items, summary),
		Performance:     analyzePerformance(items, summary),
	}
	rep.Recommendations = recommend(rep)
	return rep, nil
}

// Volatility is the annualized standard deviation of the stock's daily
// change percent over its most recent bars, 0 with fewer than two bars.
func Volatility(stockID uint) (float64, error) {
	var changes []float64
	err := db.DB.Model(&types.StockDaily{}).
		Where("stock_id = ?", stockID).
		Order("date desc").
		Limit(volatilityWindow).
		Pluck("change_percent", &changes).Error
	if err != nil {
		return 0, err
	}
	if len(changes) < 2 {
		return 0, nil
	}

	mean := 0.0
	for _, c := range changes {
		mean += c
	}
	mean /= float64(len(changes))
	variance := 0.0
	for _, c := range changes {
		variance += (c - mean) * (c - mean)
	}
	variance /= float64(len(changes) - 1)
	return roundTo(math.Sqrt(variance)*math.Sqrt(tradingDaysPerYear), 2), nil
}

func RiskLevel(volatility float64) string {
	switch {
	case volatility >= highRiskVolatility:
		return RiskHigh
	case volatility >= mediumRiskVolatility:
		return RiskMedium
	default:
		return RiskLow
	}
}

func analyzeRisk(items []types.PortfolioItem, vols map[uint]float64) dto.RiskAnalysis {
	out := dto.RiskAnalysis{RiskLevel: RiskLow, HighRiskItems: []dto.RiskItem{}}
	weighted, total := 0.0, 0.0
	for _, it := range items {
		v := vols[it.StockID]
		weighted += v * it.MarketValue
		total += it.MarketValue
		if v >= highRiskVolatility {
			out.HighRiskItems = append(out.HighRiskItems, dto.RiskItem{
				Symbol:      it.Stock.Symbol,
				Name:        it.Stock.Name,
				Volatility:  v,
				MarketValue: it.MarketValue,
			})
		}
	}
	if total > 0 {
		out.AverageVolatility = roundTo(weighted/total, 2)
	}
	out.RiskLevel = RiskLevel(out.AverageVolatility)

	sort.SliceStable(out.HighRiskItems, func(i, j int) bool {
		return out.HighRiskItems[i].Volatility > out.HighRiskItems[j].Volatility
	})
	if len(out.HighRiskItems) > maxHighRiskItems {
		out.HighRiskItems = out.HighRiskItems[:maxHighRiskItems]
	}
	return out
}

func analyzeDiversification(items []types.PortfolioItem, summary *dto.PortfolioSummary) dto.DiversificationAnalysis {
	out := dto.DiversificationAnalysis{
		IndustryCount:        len(summary.IndustryDistribution),
		MarketCount:          len(summary.MarketDistribution),
		IndustryDistribution: summary.IndustryDistribution,
		MarketDistribution:   summary.MarketDistribution,
		Concentrated:         []dto.PositionWeight{},
	}

	total := decimal.NewFromFloat(summary.TotalValue)
	if total.IsZero() {
		return out
	}
	hhi := decimal.Zero
	for _, it := range items {
		share := decimal.NewFromFloat(it.MarketValue).Div(total)
		hhi = hhi.Add(share.Mul(share))

		w := dto.PositionWeight{Symbol: it.Stock.Symbol, Weight: share.Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()}
		if out.LargestPosition == nil || w.Weight > out.LargestPosition.Weight {
			largest := w
			out.LargestPosition = &largest
		}
		if w.Weight > concentratedWeight {
			out.Concentrated = append(out.Concentrated, w)
		}
	}
	out.ConcentrationIndex = hhi.Round(4).InexactFloat64()
	out.DiversificationScore = decimal.NewFromInt(1).Sub(hhi).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	return out
}

func analyzePerformance(items []types.PortfolioItem, summary *dto.PortfolioSummary) dto.PerformanceAnalysis {
	out := dto.PerformanceAnalysis{
		TotalReturnPercent: summary.TotalProfitLossPercent,
		BestPerformers:     summary.BestPerformers,
		WorstPerformers:    summary.WorstPerformers,
		AtTarget:           []string{},
		BelowStopLoss:      []string{},
	}
	for _, it := range items {
		switch {
		case it.ProfitLoss > 0:
			out.Winners++
		case it.ProfitLoss < 0:
			out.Losers++
		}
		if it.TargetPrice != nil && it.CurrentPrice >= *it.TargetPrice {
			out.AtTarget = append(out.AtTarget, it.Stock.Symbol)
		}
		if it.StopLossPrice != nil && it.CurrentPrice > 0 && it.CurrentPrice <= *it.StopLossPrice {
			out.BelowStopLoss = append(out.BelowStopLoss, it.Stock.Symbol)
		}
	}
	if len(items) > 0 {
		out.WinRate = roundTo(float64(out.Winners)/float64(len(items))*100, 2)
	}
	return out
}

func recommend(rep *dto.PortfolioReport) []string {
	if rep.Summary.ItemCount == 0 {
		return []string{"Add holdings to start building a portfolio."}
	}

	var out []string
	if rep.Diversification.IndustryCount < 3 {
		out = append(out, "Spread holdings across at least three industries.")
	}
	for _, w := range rep.Diversification.Concentrated {
		out = append(out, fmt.Sprintf("%s is %.1f%% of the portfolio, consider trimming it.", w.Symbol, w.Weight))
	}
	if rep.Risk.RiskLevel == RiskHigh {
		out = append(out, "Volatility is high, consider adding lower-volatility holdings.")
	}
	for _, s := range rep.Performance.BelowStopLoss {
		out = append(out, fmt.Sprintf("%s is at or below its stop-loss price.", s))
	}
	for _, s := range rep.Performance.AtTarget {
		out = append(out, fmt.Sprintf("%s has reached its target price.", s))
	}
	if rep.Performance.TotalReturnPercent <= -10 {
		out = append(out, fmt.Sprintf("The portfolio is down %.1f%%, review the losing positions.", -rep.Performance.TotalReturnPercent))
	}
	if len(out) == 0 {
		out = append(out, "The portfolio looks balanced.")
	}
	return out
}
