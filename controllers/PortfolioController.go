package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"istock.com/dto"
	"istock.com/middlewares"
	"istock.com/services"
	"istock.com/types"
)

type PortfolioController struct {
}

func NewPortfolioController() *PortfolioController { return &PortfolioController{} }

// GetItems godoc
//
//	@Summary	Holdings of a user
//	@Tags		Portfolio
//	@Produce	json
//	@Param		userId	path		string	true	"User ID"
//	@Success	200		{object}	types.Response{data=[]types.PortfolioItem}
//	@Failure	403		{object}	types.Response	"Another user's portfolio"
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/items [get]
func (pc *PortfolioController) GetItems(c *fiber.Ctx) error {
	items, err := services.ListItems(c.Params("userId"))
	if err != nil {
		return serverError(c, "Failed to load portfolio", err)
	}
	return c.JSON(types.Response{Success: true, Data: items})
}

// GetItem godoc
//
//	@Summary	One holding
//	@Tags		Portfolio
//	@Produce	json
//	@Param		userId	path		string	true	"User ID"
//	@Param		stockId	path		int		true	"Stock ID"
//	@Success	200		{object}	types.Response{data=types.PortfolioItem}
//	@Failure	404		{object}	types.Response	"Stock or holding not found"
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/items/{stockId} [get]
func (pc *PortfolioController) GetItem(c *fiber.Ctx) error {
	stockID, ok := idParam(c, "stockId")
	if !ok {
		return badRequest(c, "Invalid stock id")
	}
	item, err := services.GetItem(c.Params("userId"), stockID)
	switch {
	case errors.Is(err, services.ErrStockNotFound):
		return notFound(c, "Stock not found")
	case errors.Is(err, services.ErrItemNotFound):
		return notFound(c, "Holding not found")
	case err != nil:
		return serverError(c, "Failed to load holding", err)
	}
	return c.JSON(types.Response{Success: true, Data: item})
}

// AddItem godoc
//
//	@Summary	Add a holding
//	@Tags		Portfolio
//	@Accept		json
//	@Produce	json
//	@Param		userId	path		string							true	"User ID"
//	@Param		body	body		dto.CreatePortfolioItemRequest	true	"Holding"
//	@Success	201		{object}	types.Response{data=types.PortfolioItem}
//	@Failure	400		{object}	types.Response	"Invalid body or stock already held"
//	@Failure	404		{object}	types.Response	"Stock not found"
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/items [post]
func (pc *PortfolioController) AddItem(c *fiber.Ctx) error {
	req := c.Locals("validatedBody").(*dto.CreatePortfolioItemRequest)

	item, err := services.AddItem(c.Params("userId"), req)
	switch {
	case errors.Is(err, services.ErrStockNotFound):
		return notFound(c, "Stock not found")
	case errors.Is(err, services.ErrDuplicateHolding), errors.Is(err, services.ErrInvalidQuantities):
		return badRequest(c, err.Error())
	case err != nil:
		return serverError(c, "Failed to add holding", err)
	}
	return c.Status(201).JSON(types.Response{Success: true, Data: item})
}

// UpdateItem godoc
//
//	@Summary	Update a holding
//	@Tags		Portfolio
//	@Accept		json
//	@Produce	json
//	@Param		userId	path		string							true	"User ID"
//	@Param		stockId	path		int								true	"Stock ID"
//	@Param		body	body		dto.UpdatePortfolioItemRequest	true	"Fields to change"
//	@Success	200		{object}	types.Response{data=types.PortfolioItem}
//	@Failure	404		{object}	types.Response
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/items/{stockId} [put]
func (pc *PortfolioController) UpdateItem(c *fiber.Ctx) error {
	stockID, ok := idParam(c, "stockId")
	if !ok {
		return badRequest(c, "Invalid stock id")
	}
	req := c.Locals("validatedBody").(*dto.UpdatePortfolioItemRequest)

	item, err := services.UpdateItem(c.Params("userId"), stockID, req)
	if errors.Is(err, services.ErrItemNotFound) {
		return notFound(c, "Holding not found")
	}
	if err != nil {
		return serverError(c, "Failed to update holding", err)
	}
	return c.JSON(types.Response{Success: true, Data: item})
}

// DeleteItem godoc
//
//	@Summary	Remove a holding
//	@Tags		Portfolio
//	@Produce	json
//	@Param		userId	path		string	true	"User ID"
//	@Param		stockId	path		int		true	"Stock ID"
//	@Success	200		{object}	types.Response{data=string}
//	@Failure	404		{object}	types.Response
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/items/{stockId} [delete]
func (pc *PortfolioController) DeleteItem(c *fiber.Ctx) error {
	stockID, ok := idParam(c, "stockId")
	if !ok {
		return badRequest(c, "Invalid stock id")
	}
	err := services.RemoveItem(c.Params("userId"), stockID)
	if errors.Is(err, services.ErrItemNotFound) {
		return notFound(c, "Holding not found")
	}
	if err != nil {
		return serverError(c, "Failed to remove holding", err)
	}
	return c.JSON(types.Response{Success: true, Data: "Holding removed"})
}

// GetSummary godoc
//
//	@Summary	Portfolio totals and distributions
//	@Tags		Portfolio
//	@Produce	json
//	@Param		userId	path		string	true	"User ID"
//	@Success	200		{object}	types.Response{data=dto.PortfolioSummary}
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/summary [get]
func (pc *PortfolioController) GetSummary(c *fiber.Ctx) error {
	summary, err := services.Summary(c.Params("userId"))
	if err != nil {
		return serverError(c, "Failed to build summary", err)
	}
	return c.JSON(types.Response{Success: true, Data: summary})
}

// GetDetails godoc
//
//	@Summary	Holdings with stock data
//	@Tags		Portfolio
//	@Produce	json
//	@Param		userId	path		string	true	"User ID"
//	@Success	200		{object}	types.Response{data=[]dto.PortfolioDetail}
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/details [get]
func (pc *PortfolioController) GetDetails(c *fiber.Ctx) error {
	details, err := services.Details(c.Params("userId"))
	if err != nil {
		return serverError(c, "Failed to load details", err)
	}
	return c.JSON(types.Response{Success: true, Data: details})
}

// Clear godoc
//
//	@Summary	Remove every holding
//	@Tags		Portfolio
//	@Produce	json
//	@Param		userId	path		string	true	"User ID"
//	@Param		confirm	query		bool	true	"Must be true"
//	@Success	200		{object}	types.Response{data=dto.ClearPortfolioResponse}
//	@Failure	400		{object}	types.Response	"Missing confirm=true"
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/clear [delete]
func (pc *PortfolioController) Clear(c *fiber.Ctx) error {
	if !c.QueryBool("confirm") {
		return badRequest(c, "Set confirm=true to clear the portfolio")
	}
	userID := c.Params("userId")
	n, err := services.ClearItems(userID)
	if err != nil {
		return serverError(c, "Failed to clear portfolio", err)
	}
	log.Infof("Cleared %d holdings for %s", n, userID)
	return c.JSON(types.Response{Success: true, Data: dto.ClearPortfolioResponse{
		Message:      "Portfolio cleared",
		DeletedItems: n,
	}})
}

// GetReport godoc
//
//	@Summary	Risk, diversification and performance analysis
//	@Tags		Portfolio
//	@Produce	json
//	@Param		userId	path		string	true	"User ID"
//	@Success	200		{object}	types.Response{data=dto.PortfolioReport}
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/report [get]
func (pc *PortfolioController) GetReport(c *fiber.Ctx) error {
	rep, err := services.PortfolioReport(c.Params("userId"))
	if err != nil {
		return serverError(c, "Failed to build report", err)
	}
	return c.JSON(types.Response{Success: true, Data: rep})
}

// Refresh godoc
//
//	@Summary	Reprice holdings from latest quotes
//	@Tags		Portfolio
//	@Produce	json
//	@Param		userId	path		string	true	"User ID"
//	@Success	200		{object}	types.Response{data=map[string]int}
//	@Security	BearerAuth
//	@Router		/portfolio/{userId}/refresh [post]
func (pc *PortfolioController) Refresh(c *fiber.Ctx) error {
	userID := c.Params("userId")
	n, err := services.RefreshPrices(userID)
	if err != nil {
		return serverError(c, "Failed to refresh prices", err)
	}
	log.Infof("Repriced %d holdings for %s", n, userID)
	return c.JSON(types.Response{Success: true, Data: fiber.Map{"updated": n}})
}

func InitPortfolioRoutes(app fiber.Router) {
	portfolioController := NewPortfolioController()

	portfolio := app.Group("/portfolio/:userId", middlewares.Auth, middlewares.RequireSelfOrSuperuser("userId"))
	portfolio.Get("/items", portfolioController.GetItems)
	portfolio.Post("/items", middlewares.ValidateBody[dto.CreatePortfolioItemRequest](), portfolioController.AddItem)
	portfolio.Get("/items/:stockId", portfolioController.GetItem)
	portfolio.Put("/items/:stockId", middlewares.ValidateBody[dto.UpdatePortfolioItemRequest](), portfolioController.UpdateItem)
	portfolio.Delete("/items/:stockId", portfolioController.DeleteItem)
	portfolio.Get("/summary", portfolioController.GetSummary)
	portfolio.Get("/details", portfolioController.GetDetails)
	portfolio.Post("/refresh", portfolioController.Refresh)
	portfolio.Delete("/clear", portfolioController.Clear)
	portfolio.Get("/report", portfolioController.GetReport)
}
