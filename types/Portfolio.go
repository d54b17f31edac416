package types

import "time"

type PortfolioItem struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            string     `gorm:"size:36;not null;uniqueIndex:idx_portfolio_user_stock" json:"user_id"`
	StockID           uint       `gorm:"not null;uniqueIndex:idx_portfolio_user_stock" json:"stock_id"`
	Stock             Stock      `gorm:"foreignKey:StockID" json:"-"`
	Quantity          int        `gorm:"not null;default:0" json:"quantity"`
	AvgCost           float64    `gorm:"not null" json:"avg_cost"`
	CurrentPrice      float64    `json:"current_price"`
	MarketValue       float64    `json:"market_value"`
	ProfitLoss        float64    `json:"profit_loss"`
	ProfitLossPercent float64    `json:"profit_loss_percent"`
	TargetPrice       *float64   `json:"target_price,omitempty"`
	StopLossPrice     *float64   `json:"stop_loss_price,omitempty"`
	FirstBuyDate      time.Time  `json:"first_buy_date"`
	LastUpdate        *time.Time `json:"last_update,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PortfolioItem) TableName() string {
	return "user_portfolios"
}
