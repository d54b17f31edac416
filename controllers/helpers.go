package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"istock.com/config"
	"istock.com/services"
	"istock.com/types"
)

func tokenTTL() time.Duration {
	if config.AppConfig == nil || config.AppConfig.JWTTTL <= 0 {
		return 24 * time.Hour
	}
	return config.AppConfig.JWTTTL
}

func appVersion() string {
	if config.AppConfig == nil {
		return "dev"
	}
	return config.AppConfig.Version
}

// idParam parses a positive numeric path parameter.
func idParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func dateRange(c *fiber.Ctx) (services.DateRange, error) {
	r := services.DateRange{Limit: c.QueryInt("limit", 100)}
	if r.Limit < 1 || r.Limit > 1000 {
		r.Limit = 100
	}
	if s := c.Query("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return r, err
		}
		r.Start = &t
	}
	if s := c.Query("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return r, err
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		r.End = &end
	}
	return r, nil
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(400).JSON(types.Response{Success: false, Error: msg})
}

func notFound(c *fiber.Ctx, msg string) error {
	return c.Status(404).JSON(types.Response{Success: false, Error: msg})
}

func serverError(c *fiber.Ctx, msg string, err error) error {
	return c.Status(500).JSON(types.Response{Success: false, Error: msg + ": " + err.Error()})
}
