package middlewares

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"istock.com/types"
)

var validate = validator.New()

// ValidateBody parses the JSON body into T, validates it and stores a *T
// under the "validatedBody" local.
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := new(T)
		if err := c.BodyParser(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.Response{
				Success: false,
				Error:   "Invalid request body",
			})
		}
		if err := validate.Struct(body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.Response{
				Success: false,
				Error:   ValidationMessage(err),
			})
		}
		c.Locals("validatedBody", body)
		return c.Next()
	}
}

func ValidationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s=%s'", strings.ToLower(e.Field()), e.Tag(), e.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed '%s'", strings.ToLower(e.Field()), e.Tag()))
		}
	}
	sort.Strings(msgs)
	return "Validation failed: " + strings.Join(msgs, "; ")
}
