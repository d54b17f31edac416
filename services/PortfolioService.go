package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"istock.com/db"
	"istock.com/dto"
	"istock.com/types"
)

var (
	ErrStockNotFound     = errors.New("stock not found")
	ErrItemNotFound      = errors.New("portfolio item not found")
	ErrDuplicateHolding  = errors.New("stock already in portfolio")
	ErrInvalidQuantities = errors.New("quantity and average cost must be positive")
)

// Recalculate fills the derived money fields from price, quantity and cost.
func Recalculate(item *types.PortfolioItem) {
	price := decimal.NewFromFloat(item.CurrentPrice)
	qty := decimal.NewFromInt(int64(item.Quantity))
	cost := qty.Mul(decimal.NewFromFloat(item.AvgCost))

	value := price.Mul(qty)
	pl := value.Sub(cost)
	pct := decimal.Zero
	if !cost.IsZero() {
		pct = pl.Div(cost).Mul(decimal.NewFromInt(100))
	}

	item.MarketValue = value.Round(4).InexactFloat64()
	item.ProfitLoss = pl.Round(4).InexactFloat64()
	item.ProfitLossPercent = pct.Round(4).InexactFloat64()
	t := now()
	item.LastUpdate = &t
}

func ListItems(userID string) ([]types.PortfolioItem, error) {
	var items []types.PortfolioItem
	err := db.DB.Where("user_id = ?", userID).Order("id asc").Find(&items).Error
	return items, err
}

func findItem(userID string, stockID uint) (*types.PortfolioItem, error) {
	var item types.PortfolioItem
	if err := db.DB.Where("user_id = ? AND stock_id = ?", userID, stockID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetItem returns one holding; the stock must exist.
func GetItem(userID string, stockID uint) (*types.PortfolioItem, error) {
	if _, err := GetStock(stockID); err != nil {
		return nil, err
	}
	return findItem(userID, stockID)
}

func AddItem(userID string, req *dto.CreatePortfolioItemRequest) (*types.PortfolioItem, error) {
	if req.Quantity <= 0 || req.AvgCost <= 0 {
		return nil, ErrInvalidQuantities
	}

	var stock types.Stock
	if err := db.DB.First(&stock, req.StockID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStockNotFound
		}
		return nil, err
	}

	if _, err := findItem(userID, req.StockID); err == nil {
		return nil, ErrDuplicateHolding
	} else if !errors.Is(err, ErrItemNotFound) {
		return nil, err
	}

	item := types.PortfolioItem{
		UserID:        userID,
		StockID:       stock.ID,
		Quantity:      req.Quantity,
		AvgCost:       req.AvgCost,
		CurrentPrice:  stock.Price,
		TargetPrice:   req.TargetPrice,
		StopLossPrice: req.StopLossPrice,
		FirstBuyDate:  now(),
	}
	if item.CurrentPrice == 0 {
		item.CurrentPrice = req.AvgCost
	}
	if req.FirstBuyDate != nil {
		item.FirstBuyDate = *req.FirstBuyDate
	}
	Recalculate(&item)

	if err := db.DB.Omit("Stock").Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create portfolio item: %w", err)
	}
	return &item, nil
}

func UpdateItem(userID string, stockID uint, req *dto.UpdatePortfolioItemRequest) (*types.PortfolioItem, error) {
	item, err := findItem(userID, stockID)
	if err != nil {
		return nil, err
	}

	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.AvgCost != nil {
		item.AvgCost = *req.AvgCost
	}
	if req.CurrentPrice != nil {
		item.CurrentPrice = *req.CurrentPrice
	}
	if req.TargetPrice != nil {
		item.TargetPrice = req.TargetPrice
	}
	if req.StopLossPrice != nil {
		item.StopLossPrice = req.StopLossPrice
	}
	Recalculate(item)

	if err := db.DB.Omit("Stock").Save(item).Error; err != nil {
		return nil, fmt.Errorf("update portfolio item: %w", err)
	}
	return item, nil
}

func RemoveItem(userID string, stockID uint) error {
	res := db.DB.Where("user_id = ? AND stock_id = ?", userID, stockID).Delete(&types.PortfolioItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ClearItems deletes every holding of the user.
func ClearItems(userID string) (int64, error) {
	res := db.DB.Where("user_id = ?", userID).Delete(&types.PortfolioItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear portfolio: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RefreshPrices reprices every holding from the stocks table.
func RefreshPrices(userID string) (int, error) {
	var items []types.PortfolioItem
	if err := db.DB.Preload("Stock").Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return 0, err
	}

	updated := 0
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		for i := range items {
			item := &items[i]
			if item.Stock.Price <= 0 {
				continue
			}
			item.CurrentPrice = item.Stock.Price
			Recalculate(item)
			if err := tx.Omit("Stock").Save(item).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	return updated, err
}

func Details(userID string) ([]dto.PortfolioDetail, error) {
	var items []types.PortfolioItem
	if err := db.DB.Preload("Stock").Where("user_id = ?", userID).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	out := make([]dto.PortfolioDetail, 0, len(items))
	for _, it := range items {
		out = append(out, dto.PortfolioDetail{PortfolioItem: it, Stock: it.Stock})
	}
	return out, nil
}

func Summary(userID string) (*dto.PortfolioSummary, error) {
	var items []types.PortfolioItem
	if err := db.DB.Preload("Stock").Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, err
	}
	return Summarize(items), nil
}

// Summarize aggregates holdings; Stock must be preloaded for the distributions.
func Summarize(items []types.PortfolioItem) *dto.PortfolioSummary {
	totalValue, totalCost := decimal.Zero, decimal.Zero
	industry := map[string]decimal.Decimal{}
	market := map[string]decimal.Decimal{}
	performers := make([]dto.Performer, 0, len(items))
	var last time.Time

	for _, it := range items {
		value := decimal.NewFromFloat(it.MarketValue)
		totalValue = totalValue.Add(value)
		totalCost = totalCost.Add(decimal.NewFromInt(int64(it.Quantity)).Mul(decimal.NewFromFloat(it.AvgCost)))

		ind := it.Stock.Industry
		if ind == "" {
			ind = "Unknown"
		}
		mkt := it.Stock.Market
		if mkt == "" {
			mkt = "Unknown"
		}
		industry[ind] = industry[ind].Add(value)
		market[mkt] = market[mkt].Add(value)

		performers = append(performers, dto.Performer{
			StockID:           it.StockID,
			Symbol:            it.Stock.Symbol,
			Name:              it.Stock.Name,
			ProfitLoss:        it.ProfitLoss,
			ProfitLossPercent: it.ProfitLossPercent,
		})
		if it.LastUpdate != nil && it.LastUpdate.After(last) {
			last = *it.LastUpdate
		}
	}

	pl := totalValue.Sub(totalCost)
	pct := decimal.Zero
	if !totalCost.IsZero() {
		pct = pl.Div(totalCost).Mul(decimal.NewFromInt(100))
	}
	if last.IsZero() {
		last = now()
	}

	sort.SliceStable(performers, func(i, j int) bool {
		return performers[i].ProfitLossPercent > performers[j].ProfitLossPercent
	})
	best := performers[:min(3, len(performers))]
	worst := make([]dto.Performer, 0, 3)
	for i := len(performers) - 1; i >= 0 && len(worst) < 3; i-- {
		worst = append(worst, performers[i])
	}

	return &dto.PortfolioSummary{
		TotalValue:             totalValue.Round(2).InexactFloat64(),
		TotalCost:              totalCost.Round(2).InexactFloat64(),
		TotalProfitLoss:        pl.Round(2).InexactFloat64(),
		TotalProfitLossPercent: pct.Round(2).InexactFloat64(),
		ItemCount:              len(items),
		LastUpdated:            last,
		IndustryDistribution:   percentages(industry, totalValue),
		MarketDistribution:     percentages(market, totalValue),
		BestPerformers:         best,
		WorstPerformers:        worst,
	}
}

func percentages(groups map[string]decimal.Decimal, total decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(groups))
	for k, v := range groups {
		if total.IsZero() {
			out[k] = 0
			continue
		}
		out[k] = v.Div(total).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}
	return out
}
