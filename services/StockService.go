package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"istock.com/cache"
	"istock.com/db"
	"istock.com/dto"
	"istock.com/types"
)

const (
	marketOverviewKey = "istock:market:overview"
	marketOverviewTTL = time.Minute
)

type StockFilter struct {
	Skip     int
	Limit    int
	Market   string
	Industry string
	Search   string
}

type DateRange struct {
	Start *time.Time
	End   *time.Time
	Limit int
}

func ListStocks(f StockFilter) ([]types.Stock, int64, error) {
	q := db.DB.Model(&types.Stock{})
	if f.Market != "" {
		q = q.Where("market = ?", f.Market)
	}
	if f.Industry != "" {
		q = q.Where("industry = ?", f.Industry)
	}
	if f.Search != "" {
		like := containsPattern(f.Search)
		q = q.Where(`LOWER(symbol) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\'`, like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var stocks []types.Stock
	err := q.Order("symbol asc").Offset(f.Skip).Limit(f.Limit).Find(&stocks).Error
	return stocks, total, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// containsPattern is a LIKE pattern matching s literally anywhere, lowercased.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func GetStock(id uint) (*types.Stock, error) {
	var stock types.Stock
	if err := db.DB.First(&stock, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStockNotFound
		}
		return nil, err
	}
	return &stock, nil
}

func GetStockBySymbol(symbol string) (*types.Stock, error) {
	var stock types.Stock
	if err := db.DB.Where("symbol = ?", strings.ToUpper(symbol)).First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStockNotFound
		}
		return nil, err
	}
	return &stock, nil
}

func SearchStocks(query string, limit int) ([]types.Stock, error) {
	if limit <= 0 || limit > 20 {
		limit = 20
	}
	like := containsPattern(query)
	var stocks []types.Stock
	err := db.DB.Where(`LOWER(symbol) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\'`, like, like).
		Order("symbol asc").Limit(limit).Find(&stocks).Error
	return stocks, err
}

func applyRange(q *gorm.DB, r DateRange) *gorm.DB {
	if r.Start != nil {
		q = q.Where("date >= ?", *r.Start)
	}
	if r.End != nil {
		q = q.Where("date <= ?", *r.End)
	}
	limit := r.Limit
	if limit <= 0 {
		limit = 100
	}
	return q.Order("date desc").Limit(limit)
}

func DailyData(stockID uint, r DateRange) ([]types.StockDaily, error) {
	var rows []types.StockDaily
	err := applyRange(db.DB.Where("stock_id = ?", stockID), r).Find(&rows).Error
	return rows, err
}

func Indicators(stockID uint, r DateRange) ([]types.TechnicalIndicator, error) {
	var rows []types.TechnicalIndicator
	err := applyRange(db.DB.Where("stock_id = ?", stockID), r).Find(&rows).Error
	return rows, err
}

type StockStatistics struct {
	StockID       uint               `json:"stock_id"`
	DataPoints    int                `json:"data_points"`
	Latest        *types.StockDaily  `json:"latest_data,omitempty"`
	AverageClose  float64            `json:"average_close"`
	AverageVolume float64            `json:"average_volume"`
	MaxClose      float64            `json:"max_close"`
	MinClose      float64            `json:"min_close"`
	MaxVolume     int64              `json:"max_volume"`
	MinVolume     int64              `json:"min_volume"`
	PriceChanges  []types.StockDaily `json:"price_changes"`
	CalculatedAt  time.Time          `json:"calculated_at"`
}

// Statistics summarises the latest 100 daily bars.
func Statistics(stockID uint) (*StockStatistics, error) {
	rows, err := DailyData(stockID, DateRange{Limit: 100})
	if err != nil {
		return nil, err
	}
	st := &StockStatistics{StockID: stockID, DataPoints: len(rows), CalculatedAt: now()}
	if len(rows) == 0 {
		return st, nil
	}

	st.Latest = &rows[0]
	st.MaxClose, st.MinClose = rows[0].Close, rows[0].Close
	st.MaxVolume, st.MinVolume = rows[0].Volume, rows[0].Volume
	var sumClose, sumVolume float64
	for _, r := range rows {
		sumClose += r.Close
		sumVolume += float64(r.Volume)
		st.MaxClose = max(st.MaxClose, r.Close)
		st.MinClose = min(st.MinClose, r.Close)
		st.MaxVolume = max(st.MaxVolume, r.Volume)
		st.MinVolume = min(st.MinVolume, r.Volume)
	}
	st.AverageClose = sumClose / float64(len(rows))
	st.AverageVolume = sumVolume / float64(len(rows))
	st.PriceChanges = rows[:min(10, len(rows))]
	return st, nil
}

// MarketOverview averages change_percent per market. Results are cached.
func MarketOverview(ctx context.Context) (*dto.MarketOverview, error) {
	if b, err := cache.Default.Get(ctx, marketOverviewKey); err == nil {
		var cached dto.MarketOverview
		if json.Unmarshal(b, &cached) == nil {
			return &cached, nil
		}
	}

	var rows []struct {
		Market string
		Avg    float64
		Total  int64
		Up     int64
		Down   int64
	}
	err := db.DB.Model(&types.Stock{}).
		Select("market, AVG(change_percent) AS avg, COUNT(*) AS total, " +
			"SUM(CASE WHEN change_percent > 0 THEN 1 ELSE 0 END) AS up, " +
			"SUM(CASE WHEN change_percent < 0 THEN 1 ELSE 0 END) AS down").
		Where("status = ?", "active").
		Group("market").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ov := &dto.MarketOverview{Markets: map[string]dto.MarketIndex{}, UpdatedAt: now()}
	for _, r := range rows {
		name := r.Market
		if name == "" {
			name = "OTHER"
		}
		status := "flat"
		switch {
		case r.Avg > 0:
			status = "up"
		case r.Avg < 0:
			status = "down"
		}
		ov.Markets[name] = dto.MarketIndex{Change: roundTo(r.Avg, 2), Status: status}
		ov.Statistics.TotalStocks += r.Total
		ov.Statistics.Up += r.Up
		ov.Statistics.Down += r.Down
	}
	ov.Statistics.Flat = ov.Statistics.TotalStocks - ov.Statistics.Up - ov.Statistics.Down

	if b, err := json.Marshal(ov); err == nil {
		if err := cache.Default.Set(ctx, marketOverviewKey, b, marketOverviewTTL); err != nil {
			log.Warnf("Failed to cache market overview: %v", err)
		}
	}
	return ov, nil
}

func InvalidateMarketOverview(ctx context.Context) {
	if err := cache.Default.Delete(ctx, marketOverviewKey); err != nil {
		log.Warnf("Failed to invalidate market overview: %v", err)
	}
}
