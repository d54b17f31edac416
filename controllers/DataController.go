package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"istock.com/dto"
	"istock.com/middlewares"
	"istock.com/services"
	"istock.com/types"
)

type DataController struct {
	manager *services.DataSourceManager
}

func NewDataController(manager *services.DataSourceManager) *DataController {
	return &DataController{manager: manager}
}

// ListSources godoc
//
//	@Summary	List data sources
//	@Tags		Data
//	@Produce	json
//	@Param		active_only	query		bool	false	"Only active sources (default true)"
//	@Success	200			{object}	types.Response{data=[]types.DataSource}
//	@Router		/data/sources [get]
func (dc *DataController) ListSources(c *fiber.Ctx) error {
	sources, err := services.ListSources(c.QueryBool("active_only", true))
	if err != nil {
		return serverError(c, "Failed to load data sources", err)
	}
	return c.JSON(types.Response{Success: true, Data: sources})
}

// CreateSource godoc
//
//	@Summary	Register a data source
//	@Tags		Data
//	@Accept		json
//	@Produce	json
//	@Param		body	body		dto.CreateDataSourceRequest	true	"Data source"
//	@Success	201		{object}	types.Response{data=types.DataSource}
//	@Failure	400		{object}	types.Response	"Invalid body or duplicate name"
//	@Failure	403		{object}	types.Response	"Superuser only"
//	@Security	BearerAuth
//	@Router		/data/sources [post]
func (dc *DataController) CreateSource(c *fiber.Ctx) error {
	req := c.Locals("validatedBody").(*dto.CreateDataSourceRequest)

	src, err := services.CreateSource(req)
	if errors.Is(err, services.ErrSourceExists) {
		return badRequest(c, "Data source name already exists")
	}
	if err != nil {
		return serverError(c, "Failed to create data source", err)
	}
	log.Infof("Data source %s (%s) created by %s", src.Name, src.SourceType, middlewares.UserID(c))
	return c.Status(201).JSON(types.Response{Success: true, Data: src})
}

// GetSource godoc
//
//	@Summary	One data source
//	@Tags		Data
//	@Produce	json
//	@Param		id	path		int	true	"Data source ID"
//	@Success	200	{object}	types.Response{data=types.DataSource}
//	@Failure	404	{object}	types.Response
//	@Router		/data/sources/{id} [get]
func (dc *DataController) GetSource(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid data source id")
	}
	src, err := services.GetDataSource(id)
	if errors.Is(err, services.ErrSourceNotFound) {
		return notFound(c, "Data source not found")
	}
	if err != nil {
		return serverError(c, "Failed to load data source", err)
	}
	return c.JSON(types.Response{Success: true, Data: src})
}

// UpdateSource godoc
//
//	@Summary	Change a data source
//	@Tags		Data
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int								true	"Data source ID"
//	@Param		body	body		dto.UpdateDataSourceRequest	true	"Fields to change"
//	@Success	200		{object}	types.Response{data=types.DataSource}
//	@Failure	400		{object}	types.Response	"Invalid body or duplicate name"
//	@Failure	404		{object}	types.Response
//	@Security	BearerAuth
//	@Router		/data/sources/{id} [put]
func (dc *DataController) UpdateSource(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid data source id")
	}
	req := c.Locals("validatedBody").(*dto.UpdateDataSourceRequest)

	src, err := services.UpdateSource(id, req)
	switch {
	case errors.Is(err, services.ErrSourceNotFound):
		return notFound(c, "Data source not found")
	case errors.Is(err, services.ErrSourceExists):
		return badRequest(c, "Data source name already exists")
	case err != nil:
		return serverError(c, "Failed to update data source", err)
	}
	log.Infof("Data source %s updated by %s", src.Name, middlewares.UserID(c))
	return c.JSON(types.Response{Success: true, Data: src})
}

// DeleteSource godoc
//
//	@Summary	Delete a data source
//	@Tags		Data
//	@Produce	json
//	@Param		id	path		int	true	"Data source ID"
//	@Success	200	{object}	types.Response{data=string}
//	@Failure	404	{object}	types.Response
//	@Security	BearerAuth
//	@Router		/data/sources/{id} [delete]
func (dc *DataController) DeleteSource(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid data source id")
	}
	err := services.DeleteSource(id)
	if errors.Is(err, services.ErrSourceNotFound) {
		return notFound(c, "Data source not found")
	}
	if err != nil {
		return serverError(c, "Failed to delete data source", err)
	}
	log.Infof("Data source %d deleted by %s", id, middlewares.UserID(c))
	return c.JSON(types.Response{Success: true, Data: "Data source deleted"})
}

// TestSource godoc
//
//	@Summary	Ping one data source
//	@Description	Also works for inactive sources; the result is stored as the source's health.
//	@Tags		Data
//	@Produce	json
//	@Param		id	path		int	true	"Data source ID"
//	@Success	200	{object}	types.Response{data=dto.SourceTestResult}
//	@Failure	404	{object}	types.Response
//	@Failure	503	{object}	types.Response
//	@Security	BearerAuth
//	@Router		/data/sources/{id}/test [post]
func (dc *DataController) TestSource(c *fiber.Ctx) error {
	if dc.manager == nil {
		return c.Status(503).JSON(types.Response{Success: false, Error: "Data source manager unavailable"})
	}
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid data source id")
	}
	res, err := dc.manager.Test(c.UserContext(), id)
	if errors.Is(err, services.ErrSourceNotFound) {
		return notFound(c, "Data source not found")
	}
	if err != nil {
		return serverError(c, "Connection test failed", err)
	}
	return c.JSON(types.Response{Success: true, Data: res})
}

// GetSourceStats godoc
//
//	@Summary	Sync statistics of a data source
//	@Tags		Data
//	@Produce	json
//	@Param		id	path		int	true	"Data source ID"
//	@Success	200	{object}	types.Response{data=dto.SourceStats}
//	@Failure	404	{object}	types.Response
//	@Router		/data/sources/{id}/stats [get]
func (dc *DataController) GetSourceStats(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid data source id")
	}
	stats, err := services.SourceStats(id)
	if errors.Is(err, services.ErrSourceNotFound) {
		return notFound(c, "Data source not found")
	}
	if err != nil {
		return serverError(c, "Failed to load statistics", err)
	}
	return c.JSON(types.Response{Success: true, Data: stats})
}

// GetHealth godoc
//
//	@Summary	Probe every active source and report health
//	@Tags		Data
//	@Produce	json
//	@Success	200	{object}	types.Response{data=services.HealthReport}
//	@Failure	503	{object}	types.Response
//	@Router		/data/sources/health [get]
func (dc *DataController) GetHealth(c *fiber.Ctx) error {
	if dc.manager == nil {
		return c.Status(503).JSON(types.Response{Success: false, Error: "Data source manager unavailable"})
	}
	report, err := dc.manager.HealthReport(c.UserContext())
	if err != nil {
		return serverError(c, "Health check failed", err)
	}
	return c.JSON(types.Response{Success: true, Data: report})
}

// StartSync godoc
//
//	@Summary	Queue a data sync
//	@Description	Returns immediately with a task id; poll /data/sync/status/{taskId}.
//	@Tags		Data
//	@Accept		json
//	@Produce	json
//	@Param		body	body		dto.SyncRequest	true	"Sync request"
//	@Success	202		{object}	types.Response{data=dto.SyncResponse}
//	@Failure	400		{object}	types.Response	"Inactive source"
//	@Failure	404		{object}	types.Response	"Unknown source"
//	@Failure	503		{object}	types.Response	"Sync service busy or stopped"
//	@Security	BearerAuth
//	@Router		/data/sync [post]
func (dc *DataController) StartSync(c *fiber.Ctx) error {
	req := c.Locals("validatedBody").(*dto.SyncRequest)

	if services.Sync == nil {
		return c.Status(503).JSON(types.Response{Success: false, Error: services.ErrSyncStopped.Error()})
	}
	resp, err := services.Sync.Submit(req)
	switch {
	case errors.Is(err, services.ErrSourceNotFound):
		return notFound(c, "Data source not found")
	case errors.Is(err, services.ErrSourceInactive):
		return badRequest(c, "Data source is not active")
	case errors.Is(err, services.ErrQueueFull), errors.Is(err, services.ErrSyncStopped):
		return c.Status(503).JSON(types.Response{Success: false, Error: err.Error()})
	case err != nil:
		return serverError(c, "Failed to start sync", err)
	}
	return c.Status(202).JSON(types.Response{Success: true, Data: resp})
}

// ListSyncLogs godoc
//
//	@Summary	Sync history, newest first
//	@Tags		Data
//	@Produce	json
//	@Param		data_source_id	query		int		false	"Data source ID"
//	@Param		sync_type		query		string	false	"realtime or historical"
//	@Param		status			query		string	false	"Task status"
//	@Param		limit			query		int		false	"Max rows (default 100)"
//	@Success	200				{object}	types.Response{data=[]types.DataSyncLog}
//	@Router		/data/sync/logs [get]
func (dc *DataController) ListSyncLogs(c *fiber.Ctx) error {
	sourceID := c.QueryInt("data_source_id", 0)
	if sourceID < 0 {
		return badRequest(c, "Invalid data_source_id")
	}
	logs, err := services.ListSyncLogs(services.SyncLogFilter{
		DataSourceID: uint(sourceID),
		SyncType:     c.Query("sync_type"),
		Status:       c.Query("status"),
		Limit:        c.QueryInt("limit", 100),
	})
	if err != nil {
		return serverError(c, "Failed to load sync logs", err)
	}
	return c.JSON(types.Response{Success: true, Data: logs})
}

// GetSyncStatus godoc
//
//	@Summary	Status of a sync task
//	@Tags		Data
//	@Produce	json
//	@Param		taskId	path		string	true	"Task ID"
//	@Success	200		{object}	types.Response{data=types.DataSyncLog}
//	@Failure	404		{object}	types.Response
//	@Router		/data/sync/status/{taskId} [get]
func (dc *DataController) GetSyncStatus(c *fiber.Ctx) error {
	entry, err := services.GetSyncLog(c.Params("taskId"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(c, "Sync task not found")
	}
	if err != nil {
		return serverError(c, "Failed to load sync task", err)
	}
	return c.JSON(types.Response{Success: true, Data: entry})
}

// GetStatsOverview godoc
//
//	@Summary	Counts of sources, sync operations and records
//	@Tags		Data
//	@Produce	json
//	@Success	200	{object}	types.Response{data=dto.StatsOverview}
//	@Router		/data/stats/overview [get]
func (dc *DataController) GetStatsOverview(c *fiber.Ctx) error {
	ov, err := services.StatsOverview()
	if err != nil {
		return serverError(c, "Failed to build overview", err)
	}
	return c.JSON(types.Response{Success: true, Data: ov})
}

func InitDataRoutes(app fiber.Router, manager *services.DataSourceManager) {
	dataController := NewDataController(manager)

	data := app.Group("/data")
	data.Get("/sources", dataController.ListSources)
	data.Post("/sources", middlewares.Auth, middlewares.RequireSuperuser, middlewares.ValidateBody[dto.CreateDataSourceRequest](), dataController.CreateSource)
	data.Get("/sources/health", dataController.GetHealth)
	data.Get("/sources/:id", dataController.GetSource)
	data.Put("/sources/:id", middlewares.Auth, middlewares.RequireSuperuser, middlewares.ValidateBody[dto.UpdateDataSourceRequest](), dataController.UpdateSource)
	data.Delete("/sources/:id", middlewares.Auth, middlewares.RequireSuperuser, dataController.DeleteSource)
	data.Post("/sources/:id/test", middlewares.Auth, middlewares.RequireSuperuser, dataController.TestSource)
	data.Get("/sources/:id/stats", dataController.GetSourceStats)
	data.Post("/sync", middlewares.Auth, middlewares.ValidateBody[dto.SyncRequest](), dataController.StartSync)
	data.Get("/sync/logs", dataController.ListSyncLogs)
	data.Get("/sync/status/:taskId", dataController.GetSyncStatus)
	data.Get("/stats/overview", dataController.GetStatsOverview)
}
