package dto

import (
	"time"

	"istock.com/types"
)

type MarketIndex struct {
	Change float64 `json:"change"`
	Status string  `json:"status"`
}

type MarketStatistics struct {
	TotalStocks int64 `json:"total_stocks"`
	Up          int64 `json:"up"`
	Down        int64 `json:"down"`
	Flat        int64 `json:"flat"`
}

type MarketOverview struct {
	Markets    map[string]MarketIndex `json:"markets"`
	Statistics MarketStatistics       `json:"statistics"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreClose      float64   `json:"pre_close"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

type IndicatorDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Periods     []int  `json:"periods,omitempty"`
}

type StockList struct {
	Items []types.Stock `json:"items"`
	Total int64         `json:"total"`
	Skip  int           `json:"skip"`
	Limit int           `json:"limit"`
}
