package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	"istock.com/broker"
	"istock.com/cache"
	"istock.com/config"
	"istock.com/cron"
	"istock.com/db"
	"istock.com/middlewares"
	"istock.com/routes"
	"istock.com/services"
	"istock.com/types"

	_ "istock.com/docs"
)

//	@title			iStock API
//	@version		1.0
//	@description	Stock quotes, technical indicators and personal portfolios
//	@BasePath		/api/v1

// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
// @description				Token from /users/login. Example: "Bearer eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."
func main() {
	cfg := config.Load()

	if err := db.Init(cfg); err != nil {
		log.Fatalf("Database init failed: %v", err)
	}
	if err := db.Seed(db.DB, cfg.SourcesFile, cfg.FinnhubAPIKey); err != nil {
		log.Errorf("Seeding failed: %v", err)
	}

	cache.Init(cfg.RedisHost, cfg.RedisPort)
	broker.Connect(cfg.BrokerNetwork, cfg.BrokerHost, cfg.AMQPURL)
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := services.NewDataSourceManager(nil)
	services.Sync = services.NewSyncService(manager, cfg.SyncWorkers, cfg.Symbols)
	services.Sync.Start(ctx)

	scheduler, err := cron.StartScheduler(services.Sync)
	if err != nil {
		log.Fatalf("Scheduler failed to start: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName: services.ServiceName,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(types.Response{Success: false, Error: err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middlewares.RequestCounter)

	routes.SetupRoutes(app, manager)
	app.Get("/swagger/*", fiberSwagger.WrapHandler)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down...")
		scheduler.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("Shutdown: %v", err)
		}
	}()

	log.Infof("Swagger UI available at http://localhost%s/swagger/index.html", cfg.ListenPath)
	if err := app.Listen(cfg.ListenPath); err != nil {
		log.Fatal(err)
	}
	services.Sync.Stop()
}
