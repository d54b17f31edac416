package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istock.com/db"
	"istock.com/dto"
	"istock.com/types"
)

func newPortfolioApp() *fiber.App {
	app := fiber.New()
	InitPortfolioRoutes(app)
	return app
}

func TestPortfolio_CRUD(t *testing.T) {
	setupTestDB(t)
	setSecret(t)
	app := newPortfolioApp()
	user := &types.User{ID: "user-1", Username: "alice"}
	token := tokenFor(t, user)
	stock := createStock(t, "AAPL", "NASDAQ", "Technology", 120)
	base := "/portfolio/" + user.ID

	resp, body := doJSON(t, app, http.MethodPost, base+"/items", token, fiber.Map{
		"stock_id": stock.ID, "quantity": 10, "avg_cost": 100,
	})
	require.Equal(t, 201, resp.StatusCode, body.Error)
	var item types.PortfolioItem
	decodeData(t, body, &item)
	assert.Equal(t, 120.0, item.CurrentPrice)
	assert.InDelta(t, 1200, item.MarketValue, 1e-9)
	assert.InDelta(t, 200, item.ProfitLoss, 1e-9)
	assert.InDelta(t, 20, item.ProfitLossPercent, 1e-9)

	resp, _ = doJSON(t, app, http.MethodPost, base+"/items", token, fiber.Map{
		"stock_id": stock.ID, "quantity": 5, "avg_cost": 90,
	})
	assert.Equal(t, 400, resp.StatusCode, "duplicate holding")

	resp, _ = doJSON(t, app, http.MethodPost, base+"/items", token, fiber.Map{
		"stock_id": 9999, "quantity": 5, "avg_cost": 90,
	})
	assert.Equal(t, 404, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPut, fmt.Sprintf("%s/items/%d", base, stock.ID), token, fiber.Map{"quantity": 20})
	require.Equal(t, 200, resp.StatusCode, body.Error)
	decodeData(t, body, &item)
	assert.Equal(t, 20, item.Quantity)
	assert.InDelta(t, 2400, item.MarketValue, 1e-9)

	_, body = doJSON(t, app, http.MethodGet, base+"/items", token, nil)
	var items []types.PortfolioItem
	decodeData(t, body, &items)
	assert.Len(t, items, 1)

	resp, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("%s/items/%d", base, stock.ID), token, nil)
	assert.Equal(t, 200, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodDelete, fmt.Sprintf("%s/items/%d", base, stock.ID), token, nil)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestPortfolio_OtherUserForbidden(t *testing.T) {
	setupTestDB(t)
	setSecret(t)
	app := newPortfolioApp()
	token := tokenFor(t, &types.User{ID: "user-1", Username: "alice"})

	resp, body := doJSON(t, app, http.MethodGet, "/portfolio/user-2/items", token, nil)
	assert.Equal(t, 403, resp.StatusCode)
	assert.False(t, body.Success)

	admin := tokenFor(t, &types.User{ID: "root", Username: "root", IsSuperuser: true})
	resp, _ = doJSON(t, app, http.MethodGet, "/portfolio/user-2/items", admin, nil)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestPortfolio_RequiresToken(t *testing.T) {
	setupTestDB(t)
	setSecret(t)
	app := newPortfolioApp()

	resp, _ := doJSON(t, app, http.MethodGet, "/portfolio/user-1/summary", "", nil)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestPortfolio_SummaryDetailsRefresh(t *testing.T) {
	setupTestDB(t)
	setSecret(t)
	app := newPortfolioApp()
	user := &types.User{ID: "user-3", Username: "carol"}
	token := tokenFor(t, user)
	base := "/portfolio/" + user.ID

	aapl := createStock(t, "AAPL", "NASDAQ", "Technology", 110)
	jpm := createStock(t, "JPM", "NYSE", "Financials", 45)
	for _, req := range []fiber.Map{
		{"stock_id": aapl.ID, "quantity": 10, "avg_cost": 100},
		{"stock_id": jpm.ID, "quantity": 20, "avg_cost": 50},
	} {
		resp, body := doJSON(t, app, http.MethodPost, base+"/items", token, req)
		require.Equal(t, 201, resp.StatusCode, body.Error)
	}

	resp, body := doJSON(t, app, http.MethodGet, base+"/summary", token, nil)
	require.Equal(t, 200, resp.StatusCode)
	var summary dto.PortfolioSummary
	decodeData(t, body, &summary)
	assert.Equal(t, 2, summary.ItemCount)
	assert.InDelta(t, 2000, summary.TotalValue, 1e-9)
	assert.InDelta(t, 2000, summary.TotalCost, 1e-9)
	assert.InDelta(t, 0, summary.TotalProfitLoss, 1e-9)

	_, body = doJSON(t, app, http.MethodGet, base+"/details", token, nil)
	var details []dto.PortfolioDetail
	decodeData(t, body, &details)
	require.Len(t, details, 2)
	assert.NotEmpty(t, details[0].Stock.Symbol)

	require.NoError(t, db.DB.Model(&types.Stock{}).Where("id = ?", aapl.ID).Update("price", 130).Error)
	resp, body = doJSON(t, app, http.MethodPost, base+"/refresh", token, nil)
	require.Equal(t, 200, resp.StatusCode)
	var refreshed map[string]int
	decodeData(t, body, &refreshed)
	assert.Equal(t, 2, refreshed["updated"])

	_, body = doJSON(t, app, http.MethodGet, base+"/summary", token, nil)
	decodeData(t, body, &summary)
	assert.InDelta(t, 2200, summary.TotalValue, 1e-9)
}

func TestPortfolio_GetItemClearAndReport(t *testing.T) {
	setupTestDB(t)
	setSecret(t)
	app := newPortfolioApp()
	user := &types.User{ID: "user-4", Username: "dave"}
	token := tokenFor(t, user)
	base := "/portfolio/" + user.ID

	aapl := createStock(t, "AAPL", "NASDAQ", "Technology", 120)
	resp, body := doJSON(t, app, http.MethodPost, base+"/items", token, fiber.Map{"stock_id": aapl.ID, "quantity": 10, "avg_cost": 100})
	require.Equal(t, 201, resp.StatusCode, body.Error)

	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("%s/items/%d", base, aapl.ID), token, nil)
	require.Equal(t, 200, resp.StatusCode, body.Error)
	var item types.PortfolioItem
	decodeData(t, body, &item)
	assert.Equal(t, 10, item.Quantity)

	resp, body = doJSON(t, app, http.MethodGet, base+"/items/9999", token, nil)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "Stock not found", body.Error)

	resp, body = doJSON(t, app, http.MethodGet, base+"/report", token, nil)
	require.Equal(t, 200, resp.StatusCode, body.Error)
	var rep dto.PortfolioReport
	decodeData(t, body, &rep)
	assert.Equal(t, user.ID, rep.UserID)
	assert.Equal(t, 1, rep.Summary.ItemCount)
	assert.Equal(t, 100.0, rep.Diversification.LargestPosition.Weight)
	assert.NotEmpty(t, rep.Recommendations)

	resp, _ = doJSON(t, app, http.MethodDelete, base+"/clear", token, nil)
	assert.Equal(t, 400, resp.StatusCode, "confirm is required")

	resp, body = doJSON(t, app, http.MethodDelete, base+"/clear?confirm=true", token, nil)
	require.Equal(t, 200, resp.StatusCode, body.Error)
	var cleared dto.ClearPortfolioResponse
	decodeData(t, body, &cleared)
	assert.Equal(t, int64(1), cleared.DeletedItems)

	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("%s/items/%d", base, aapl.ID), token, nil)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "Holding not found", body.Error)
}
