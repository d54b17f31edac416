package dto

import (
	"time"

	"istock.com/types"
)

type CreatePortfolioItemRequest struct {
	StockID       uint       `json:"stock_id" validate:"required"`
	Quantity      int        `json:"quantity" validate:"required,gt=0"`
	AvgCost       float64    `json:"avg_cost" validate:"required,gt=0"`
	TargetPrice   *float64   `json:"target_price" validate:"omitempty,gt=0"`
	StopLossPrice *float64   `json:"stop_loss_price" validate:"omitempty,gt=0"`
	FirstBuyDate  *time.Time `json:"first_buy_date"`
}

type UpdatePortfolioItemRequest struct {
	Quantity      *int     `json:"quantity" validate:"omitempty,gt=0"`
	AvgCost       *float64 `json:"avg_cost" validate:"omitempty,gt=0"`
	CurrentPrice  *float64 `json:"current_price" validate:"omitempty,gte=0"`
	TargetPrice   *float64 `json:"target_price" validate:"omitempty,gt=0"`
	StopLossPrice *float64 `json:"stop_loss_price" validate:"omitempty,gt=0"`
}

type Performer struct {
	StockID           uint    `json:"stock_id"`
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	ProfitLoss        float64 `json:"profit_loss"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`
}

type PortfolioSummary struct {
	TotalValue             float64            `json:"total_value"`
	TotalCost              float64            `json:"total_cost"`
	TotalProfitLoss        float64            `json:"total_profit_loss"`
	TotalProfitLossPercent float64            `json:"total_profit_loss_percent"`
	ItemCount              int                `json:"item_count"`
	LastUpdated            time.Time          `json:"last_updated"`
	IndustryDistribution   map[string]float64 `json:"industry_distribution"`
	MarketDistribution     map[string]float64 `json:"market_distribution"`
	BestPerformers         []Performer        `json:"best_performers"`
	WorstPerformers        []Performer        `json:"worst_performers"`
}

type PortfolioDetail struct {
	types.PortfolioItem
	Stock types.Stock `json:"stock"`
}

type RiskItem struct {
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Volatility  float64 `json:"volatility"`
	MarketValue float64 `json:"market_value"`
}

// RiskAnalysis volatilities are annualized percentages.
type RiskAnalysis struct {
	AverageVolatility float64    `json:"average_volatility"`
	RiskLevel         string     `json:"risk_level"`
	HighRiskItems     []RiskItem `json:"high_risk_items"`
}

type PositionWeight struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
}

type DiversificationAnalysis struct {
	IndustryCount        int                `json:"industry_count"`
	MarketCount          int                `json:"market_count"`
	IndustryDistribution map[string]float64 `json:"industry_distribution"`
	MarketDistribution   map[string]float64 `json:"market_distribution"`
	ConcentrationIndex   float64            `json:"concentration_index"`
	DiversificationScore float64            `json:"diversification_score"`
	LargestPosition      *PositionWeight    `json:"largest_position,omitempty"`
	Concentrated         []PositionWeight   `json:"concentrated"`
}

type PerformanceAnalysis struct {
	TotalReturnPercent float64     `json:"total_return_percent"`
	Winners            int         `json:"winners"`
	Losers             int         `json:"losers"`
	WinRate            float64     `json:"win_rate"`
	BestPerformers     []Performer `json:"best_performers"`
	WorstPerformers    []Performer `json:"worst_performers"`
	AtTarget           []string    `json:"at_target"`
	BelowStopLoss      []string    `json:"below_stop_loss"`
}

type PortfolioReport struct {
	ReportID        string                  `json:"report_id"`
	UserID          string                  `json:"user_id"`
	GeneratedAt     time.Time               `json:"generated_at"`
	Summary         PortfolioSummary        `json:"summary"`
	Risk            RiskAnalysis            `json:"risk_analysis"`
	Diversification DiversificationAnalysis `json:"diversification_analysis"`
	Performance     PerformanceAnalysis     `json:"performance_analysis"`
	Recommendations []string                `json:"recommendations"`
}

type ClearPortfolioResponse struct {
	Message      string `json:"message"`
	DeletedItems int64  `json:"deleted_items"`
}
