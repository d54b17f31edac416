package routes

import (
	"github.com/gofiber/fiber/v2"

	"istock.com/controllers"
	"istock.com/services"
)

const APIPrefix = "/api/v1"

func SetupRoutes(app *fiber.App, manager *services.DataSourceManager) {
	api := app.Group(APIPrefix)

	controllers.InitSystemRoutes(api, manager)
	controllers.InitUserRoutes(api)
	controllers.InitStockRoutes(api, manager)
	controllers.InitPortfolioRoutes(api)
	controllers.InitDataRoutes(api, manager)

	// /health is also served unprefixed for load balancers
	app.Get("/health", controllers.NewSystemController(manager).Health)
}
