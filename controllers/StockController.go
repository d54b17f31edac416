package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"istock.com/dto"
	"istock.com/services"
	"istock.com/types"
)

type StockController struct {
	manager *services.DataSourceManager
}

func NewStockController(manager *services.DataSourceManager) *StockController {
	return &StockController{manager: manager}
}


// ListStocks godoc
//
//	@Summary	List stocks
//	@Tags		Stocks
//	@Produce	json
//	@Param		skip		query		int		false	"Offset"	default(0)
//	@Param		limit		query		int		false	"Page size, 1..1000"	default(100)
//	@Param		market		query		string	false	"Market"
//	@Param		industry	query		string	false	"Industry"
//	@Param		search		query		string	false	"Symbol or name contains"
//	@Success	200			{object}	types.Response{data=dto.StockList}
//	@Failure	400			{object}	types.Response
//	@Router		/stocks [get]
func (sc *StockController) ListStocks(c *fiber.Ctx) error {
	skip := c.QueryInt("skip", 0)
	limit := c.QueryInt("limit", 100)
	if skip < 0 {
		return badRequest(c, "skip must be >= 0")
	}
	if limit < 1 || limit > 1000 {
		return badRequest(c, "limit must be between 1 and 1000")
	}

	stocks, total, err := services.ListStocks(services.StockFilter{
		Skip:     skip,
		Limit:    limit,
		Market:   c.Query("market"),
		Industry: c.Query("industry"),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		return serverError(c, "Failed to list stocks", err)
	}
	return c.JSON(types.Response{
		Success: true,
		Data:    dto.StockList{Items: stocks, Total: total, Skip: skip, Limit: limit},
	})
}

// GetStock godoc
//
//	@Summary	Stock by id
//	@Tags		Stocks
//	@Produce	json
//	@Param		id	path		int	true	"Stock ID"
//	@Success	200	{object}	types.Response{data=types.Stock}
//	@Failure	404	{object}	types.Response
//	@Router		/stocks/{id} [get]
func (sc *StockController) GetStock(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid stock id")
	}
	stock, err := services.GetStock(id)
	if errors.Is(err, services.ErrStockNotFound) {
		return notFound(c, "Stock not found")
	}
	if err != nil {
		return serverError(c, "Failed to load stock", err)
	}
	return c.JSON(types.Response{Success: true, Data: stock})
}

// SearchStocks godoc
//
//	@Summary	Search stocks by symbol or name
//	@Tags		Stocks
//	@Produce	json
//	@Param		q	path		string	true	"Query"
//	@Success	200	{object}	types.Response{data=[]types.Stock}
//	@Router		/stocks/search/{q} [get]
func (sc *StockController) SearchStocks(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Params("q"))
	if q == "" {
		return badRequest(c, "Empty query")
	}
	stocks, err := services.SearchStocks(q, c.QueryInt("limit", 20))
	if err != nil {
		return serverError(c, "Search failed", err)
	}
	return c.JSON(types.Response{Success: true, Data: stocks})
}

// GetDaily godoc
//
//	@Summary	Daily bars, newest first
//	@Tags		Stocks
//	@Produce	json
//	@Param		id			path		int		true	"Stock ID"
//	@Param		start_date	query		string	false	"YYYY-MM-DD"
//	@Param		end_date	query		string	false	"YYYY-MM-DD"
//	@Param		limit		query		int		false	"Max rows"	default(100)
//	@Success	200			{object}	types.Response{data=[]types.StockDaily}
//	@Failure	404			{object}	types.Response
//	@Router		/stocks/{id}/daily [get]
func (sc *StockController) GetDaily(c *fiber.Ctx) error {
	id, r, err := sc.seriesParams(c)
	if err != nil {
		return err
	}
	if id == 0 {
		return nil
	}
	rows, err := services.DailyData(id, r)
	if err != nil {
		return serverError(c, "Failed to load daily data", err)
	}
	return c.JSON(types.Response{Success: true, Data: rows})
}

// GetIndicators godoc
//
//	@Summary	Technical indicators, newest first
//	@Tags		Stocks
//	@Produce	json
//	@Param		id			path		int		true	"Stock ID"
//	@Param		start_date	query		string	false	"YYYY-MM-DD"
//	@Param		end_date	query		string	false	"YYYY-MM-DD"
//	@Param		limit		query		int		false	"Max rows"	default(100)
//	@Success	200			{object}	types.Response{data=[]types.TechnicalIndicator}
//	@Failure	404			{object}	types.Response
//	@Router		/stocks/{id}/indicators [get]
func (sc *StockController) GetIndicators(c *fiber.Ctx) error {
	id, r, err := sc.seriesParams(c)
	if err != nil {
		return err
	}
	if id == 0 {
		return nil
	}
	rows, err := services.Indicators(id, r)
	if err != nil {
		return serverError(c, "Failed to load indicators", err)
	}
	return c.JSON(types.Response{Success: true, Data: rows})
}

// seriesParams writes the error response itself and returns id 0 when the
// request cannot be served.
func (sc *StockController) seriesParams(c *fiber.Ctx) (uint, services.DateRange, error) {
	id, ok := idParam(c, "id")
	if !ok {
		return 0, services.DateRange{}, badRequest(c, "Invalid stock id")
	}
	r, err := dateRange(c)
	if err != nil {
		return 0, r, badRequest(c, "Dates must be YYYY-MM-DD")
	}
	if _, err := services.GetStock(id); err != nil {
		if errors.Is(err, services.ErrStockNotFound) {
			return 0, r, notFound(c, "Stock not found")
		}
		return 0, r, serverError(c, "Failed to load stock", err)
	}
	return id, r, nil
}

// GetStatistics godoc
//
//	@Summary	Statistics over the latest 100 daily bars
//	@Tags		Stocks
//	@Produce	json
//	@Param		id	path		int	true	"Stock ID"
//	@Success	200	{object}	types.Response{data=services.StockStatistics}
//	@Router		/stocks/{id}/statistics [get]
func (sc *StockController) GetStatistics(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid stock id")
	}
	if _, err := services.GetStock(id); errors.Is(err, services.ErrStockNotFound) {
		return notFound(c, "Stock not found")
	}
	st, err := services.Statistics(id)
	if err != nil {
		return serverError(c, "Failed to compute statistics", err)
	}
	return c.JSON(types.Response{Success: true, Data: st})
}

// MarketOverview godoc
//
//	@Summary	Per-market average change
//	@Tags		Stocks
//	@Produce	json
//	@Success	200	{object}	types.Response{data=dto.MarketOverview}
//	@Router		/stocks/market/overview [get]
func (sc *StockController) MarketOverview(c *fiber.Ctx) error {
	ov, err := services.MarketOverview(c.UserContext())
	if err != nil {
		return serverError(c, "Failed to build market overview", err)
	}
	return c.JSON(types.Response{Success: true, Data: ov})
}

// IndicatorDefinitions godoc
//
//	@Summary	Supported indicators
//	@Tags		Stocks
//	@Produce	json
//	@Success	200	{object}	types.Response{data=[]dto.IndicatorDefinition}
//	@Router		/stocks/indicators/definitions [get]
func (sc *StockController) IndicatorDefinitions(c *fiber.Ctx) error {
	return c.JSON(types.Response{Success: true, Data: services.IndicatorDefinitions})
}

// Quote godoc
//
//	@Summary		Live quote
//	@Description	Quote from the primary data source.
//	@Tags			Stocks
//	@Produce		json
//	@Param			symbol	path		string	true	"Ticker"
//	@Success		200		{object}	types.Response{data=dto.Quote}
//	@Failure		502		{object}	types.Response
//	@Router			/stocks/quote/{symbol} [get]
func (sc *StockController) Quote(c *fiber.Ctx) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.Params("symbol")))
	if sc.manager == nil {
		return c.Status(503).JSON(types.Response{Success: false, Error: services.ErrNoDataSource.Error()})
	}
	src, err := sc.manager.Primary()
	if err != nil {
		return c.Status(503).JSON(types.Response{Success: false, Error: err.Error()})
	}
	p, err := sc.manager.Provider(src)
	if err != nil {
		return serverError(c, "Provider unavailable", err)
	}
	q, err := p.Quote(c.UserContext(), symbol)
	if err != nil {
		return c.Status(502).JSON(types.Response{Success: false, Error: "Quote failed: " + err.Error()})
	}
	return c.JSON(types.Response{Success: true, Data: q})
}

func InitStockRoutes(app fiber.Router, manager *services.DataSourceManager) {
	stockController := NewStockController(manager)

	app.Get("/stocks", stockController.ListStocks)
	app.Get("/stocks/search/:q", stockController.SearchStocks)
	app.Get("/stocks/market/overview", stockController.MarketOverview)
	app.Get("/stocks/indicators/definitions", stockController.IndicatorDefinitions)
	app.Get("/stocks/quote/:symbol", stockController.Quote)
	app.Get("/stocks/:id", stockController.GetStock)
	app.Get("/stocks/:id/daily", stockController.GetDaily)
	app.Get("/stocks/:id/indicators", stockController.GetIndicators)
	app.Get("/stocks/:id/statistics", stockController.GetStatistics)
}
