package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"istock.com/services"
)

// RequestCounter feeds the API counters shown by /system/status.
func RequestCounter(c *fiber.Ctx) error {
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	services.RecordRequest(status)
	return err
}
