package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"istock.com/types"
)

func Auth(c *fiber.Ctx) error {
	return JWTMiddleware(c)
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func IsSuperuser(c *fiber.Ctx) bool {
	ok, _ := c.Locals("is_superuser").(bool)
	return ok
}

// RequireSuperuser must run after Auth.
func RequireSuperuser(c *fiber.Ctx) error {
	if !IsSuperuser(c) {
		return c.Status(fiber.StatusForbidden).JSON(types.Response{
			Success: false,
			Error:   "Superuser privileges required",
		})
	}
	return c.Next()
}

// RequireSelfOrSuperuser rejects requests whose path parameter names another user.
func RequireSelfOrSuperuser(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Params(param) != UserID(c) && !IsSuperuser(c) {
			return c.Status(fiber.StatusForbidden).JSON(types.Response{
				Success: false,
				Error:   "Access to another user's portfolio is not allowed",
			})
		}
		return c.Next()
	}
}
