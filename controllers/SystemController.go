package controllers

import (
	"github.com/gofiber/fiber/v2"

	"istock.com/services"
	"istock.com/types"
)

type SystemController struct {
	manager *services.DataSourceManager
}

func NewSystemController(manager *services.DataSourceManager) *SystemController {
	return &SystemController{manager: manager}
}

// Health godoc
//
//	@Summary	Liveness and database connectivity
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	dto.HealthResponse
//	@Router		/health [get]
func (sc *SystemController) Health(c *fiber.Ctx) error {
	return c.JSON(services.Health(appVersion()))
}

// Status godoc
//
//	@Summary	Runtime, database and API counters
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	types.Response{data=dto.SystemStatus}
//	@Router		/system/status [get]
func (sc *SystemController) Status(c *fiber.Ctx) error {
	return c.JSON(types.Response{Success: true, Data: services.SystemStatus(appVersion(), sc.manager)})
}

func InitSystemRoutes(app fiber.Router, manager *services.DataSourceManager) {
	systemController := NewSystemController(manager)

	app.Get("/health", systemController.Health)
	app.Get("/system/status", systemController.Status)
}
