package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istock.com/db"
	"istock.com/dto"
	"istock.com/types"
)

func TestRecalculate(t *testing.T) {
	item := &types.PortfolioItem{Quantity: 100, AvgCost: 150, CurrentPrice: 175.5}
	Recalculate(item)

	assert.Equal(t, 17550.0, item.MarketValue)
	assert.Equal(t, 2550.0, item.ProfitLoss)
	assert.Equal(t, 17.0, item.ProfitLossPercent)
	assert.NotNil(t, item.LastUpdate)

	// 0.1 * 3 is exact in decimal
	item = &types.PortfolioItem{Quantity: 3, AvgCost: 0.1, CurrentPrice: 0.1}
	Recalculate(item)
	assert.Equal(t, 0.3, item.MarketValue)
	assert.Equal(t, 0.0, item.ProfitLoss)

	item = &types.PortfolioItem{Quantity: 0, AvgCost: 10, CurrentPrice: 12}
	Recalculate(item)
	assert.Equal(t, 0.0, item.ProfitLossPercent)
}

func TestAddItem(t *testing.T) {
	setupTestDB(t)
	s := seedStock(t, "AAPL", "NASDAQ", "Technology", 200)

	item, err := AddItem("u1", &dto.CreatePortfolioItemRequest{StockID: s.ID, Quantity: 10, AvgCost: 150})
	require.NoError(t, err)
	assert.Equal(t, 200.0, item.CurrentPrice)
	assert.Equal(t, 2000.0, item.MarketValue)
	assert.Equal(t, 500.0, item.ProfitLoss)

	_, err = AddItem("u1", &dto.CreatePortfolioItemRequest{StockID: s.ID, Quantity: 1, AvgCost: 1})
	assert.ErrorIs(t, err, ErrDuplicateHolding)

	_, err = AddItem("u1", &dto.CreatePortfolioItemRequest{StockID: 999, Quantity: 1, AvgCost: 1})
	assert.ErrorIs(t, err, ErrStockNotFound)

	// another user can hold the same stock
	_, err = AddItem("u2", &dto.CreatePortfolioItemRequest{StockID: s.ID, Quantity: 1, AvgCost: 1})
	assert.NoError(t, err)

	var stocks int64
	db.DB.Model(&types.Stock{}).Count(&stocks)
	assert.Equal(t, int64(1), stocks)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	setupTestDB(t)
	s := seedStock(t, "MSFT", "NASDAQ", "Technology", 300)
	_, err := AddItem("u1", &dto.CreatePortfolioItemRequest{StockID: s.ID, Quantity: 10, AvgCost: 250})
	require.NoError(t, err)

	qty, price := 20, 275.0
	item, err := UpdateItem("u1", s.ID, &dto.UpdatePortfolioItemRequest{Quantity: &qty, CurrentPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, 20, item.Quantity)
	assert.Equal(t, 5500.0, item.MarketValue)
	assert.Equal(t, 500.0, item.ProfitLoss)
	assert.Equal(t, 10.0, item.ProfitLossPercent)

	_, err = UpdateItem("u2", s.ID, &dto.UpdatePortfolioItemRequest{})
	assert.ErrorIs(t, err, ErrItemNotFound)

	require.NoError(t, RemoveItem("u1", s.ID))
	assert.ErrorIs(t, RemoveItem("u1", s.ID), ErrItemNotFound)
}

func TestRefreshPrices(t *testing.T) {
	setupTestDB(t)
	s := seedStock(t, "TSLA", "NASDAQ", "Automotive", 100)
	_, err := AddItem("u1", &dto.CreatePortfolioItemRequest{StockID: s.ID, Quantity: 5, AvgCost: 100})
	require.NoError(t, err)

	db.DB.Model(&types.Stock{}).Where("id = ?", s.ID).Update("price", 120)

	n, err := RefreshPrices("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	items, _ := ListItems("u1")
	require.Len(t, items, 1)
	assert.Equal(t, 120.0, items[0].CurrentPrice)
	assert.Equal(t, 100.0, items[0].ProfitLoss)
}

func TestSummary(t *testing.T) {
	setupTestDB(t)
	a := seedStock(t, "AAPL", "NASDAQ", "Technology", 110)
	b := seedStock(t, "JPM", "NYSE", "Finance", 90)
	c := seedStock(t, "NVDA", "NASDAQ", "Technology", 150)
	for _, req := range []dto.CreatePortfolioItemRequest{
		{StockID: a.ID, Quantity: 10, AvgCost: 100},
		{StockID: b.ID, Quantity: 10, AvgCost: 100},
		{StockID: c.ID, Quantity: 10, AvgCost: 100},
	} {
		_, err := AddItem("u1", &req)
		require.NoError(t, err)
	}

	sum, err := Summary("u1")
	require.NoError(t, err)
	assert.Equal(t, 3, sum.ItemCount)
	assert.Equal(t, 3500.0, sum.TotalValue)
	assert.Equal(t, 3000.0, sum.TotalCost)
	assert.Equal(t, 500.0, sum.TotalProfitLoss)
	assert.Equal(t, 16.67, sum.TotalProfitLossPercent)

	assert.Equal(t, 74.29, sum.IndustryDistribution["Technology"])
	assert.Equal(t, 25.71, sum.IndustryDistribution["Finance"])
	assert.Equal(t, 74.29, sum.MarketDistribution["NASDAQ"])

	require.Len(t, sum.BestPerformers, 3)
	assert.Equal(t, "NVDA", sum.BestPerformers[0].Symbol)
	assert.Equal(t, "JPM", sum.WorstPerformers[0].Symbol)
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil)
	assert.Equal(t, 0, sum.ItemCount)
	assert.Equal(t, 0.0, sum.TotalProfitLossPercent)
	assert.Empty(t, sum.BestPerformers)
	assert.Empty(t, sum.WorstPerformers)
}

func TestDetails(t *testing.T) {
	setupTestDB(t)
	s := seedStock(t, "AMZN", "NASDAQ", "E-commerce", 180)
	_, err := AddItem("u1", &dto.CreatePortfolioItemRequest{StockID: s.ID, Quantity: 2, AvgCost: 150})
	require.NoError(t, err)

	details, err := Details("u1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "AMZN", details[0].Stock.Symbol)
	assert.Equal(t, 360.0, details[0].MarketValue)
}
