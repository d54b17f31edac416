package types

import "time"

type Stock struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Symbol        string    `gorm:"size:16;uniqueIndex;not null" json:"symbol"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Market        string    `gorm:"size:20;index" json:"market"`
	Industry      string    `gorm:"size:50;index" json:"industry"`
	Sector        string    `gorm:"size:50" json:"sector"`
	FullName      string    `gorm:"size:200" json:"full_name,omitempty"`
	Status        string    `gorm:"size:20;default:active" json:"status"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	MarketCap     float64   `json:"market_cap"`
	QuotedAt      time.Time `json:"quoted_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Stock) TableName() string {
	return "stocks"
}

type StockDaily struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	StockID       uint      `gorm:"not null;uniqueIndex:idx_daily_stock_date" json:"stock_id"`
	Date          time.Time `gorm:"not null;uniqueIndex:idx_daily_stock_date" json:"date"`
	Open          float64   `json:"open"`
	Close         float64   `json:"close"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreClose      float64   `json:"pre_close"`
	Volume        int64     `json:"volume"`
	Amount        float64   `json:"amount"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Amplitude     float64   `json:"amplitude"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (StockDaily) TableName() string {
	return "stock_daily"
}

type TechnicalIndicator struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	StockID        uint      `gorm:"not null;index" json:"stock_id"`
	DailyID        uint      `gorm:"not null;uniqueIndex" json:"daily_id"`
	Date           time.Time `gorm:"not null;index" json:"date"`
	MA5            *float64  `json:"ma5"`
	MA10           *float64  `json:"ma10"`
	MA20           *float64  `json:"ma20"`
	MA30           *float64  `json:"ma30"`
	MA60           *float64  `json:"ma60"`
	MACD           *float64  `json:"macd"`
	MACDSignal     *float64  `json:"macd_signal"`
	MACDHistogram  *float64  `json:"macd_histogram"`
	K              *float64  `json:"k"`
	D              *float64  `json:"d"`
	J              *float64  `json:"j"`
	RSI6           *float64  `json:"rsi6"`
	RSI12          *float64  `json:"rsi12"`
	RSI24          *float64  `json:"rsi24"`
	BollUpper      *float64  `json:"boll_upper"`
	BollMiddle     *float64  `json:"boll_middle"`
	BollLower      *float64  `json:"boll_lower"`
	VolumeMA5      *int64    `json:"volume_ma5"`
	VolumeMA10     *int64    `json:"volume_ma10"`
	BuySignal      bool      `json:"buy_signal"`
	SellSignal     bool      `json:"sell_signal"`
	SignalStrength int       `json:"signal_strength"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TechnicalIndicator) TableName() string {
	return "technical_indicators"
}
