package middlewares

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"istock.com/types"
)

const TokenTypeAccess = "access"

// JWTMiddleware validates HS256 bearer tokens signed with JWT_SECRET.
func JWTMiddleware(c *fiber.Ctx) error {
	key, err := getSigningKey()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.Response{
			Success: false,
			Error:   err.Error(),
		})
	}

	return jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{Key: key, JWTAlg: "HS256"},
		SuccessHandler: jwtSuccessHandler,
		ErrorHandler:   jwtErrorHandler,
	})(c)
}

// jwtSuccessHandler copies the claims the handlers need into Locals
func jwtSuccessHandler(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)

	if t, _ := claims["type"].(string); t != TokenTypeAccess {
		return jwtErrorHandler(c, fmt.Errorf("wrong token type"))
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return jwtErrorHandler(c, fmt.Errorf("missing subject"))
	}
	isSuperuser, _ := claims["is_superuser"].(bool)

	c.Locals("token", token.Raw)
	c.Locals("claims", claims)
	c.Locals("user_id", sub)
	c.Locals("username", claims["username"])
	c.Locals("is_superuser", isSuperuser)

	return c.Next()
}

func jwtErrorHandler(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(types.Response{
		Success: false,
		Error:   "Unauthorized - " + err.Error(),
	})
}

// GenerateToken issues an access token for the user. It returns the signed
// token and the number of seconds until it expires.
func GenerateToken(user *types.User, ttl time.Duration) (string, int64, error) {
	key, err := getSigningKey()
	if err != nil {
		return "", 0, err
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":          user.ID,
		"username":     user.Username,
		"is_superuser": user.IsSuperuser,
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
		"jti":          uuid.NewString(),
		"type":         TokenTypeAccess,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, int64(ttl.Seconds()), nil
}

func getSigningKey() ([]byte, error) {
	encodedSecret := os.Getenv("JWT_SECRET")
	if encodedSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	decodedSecret, err := base64.StdEncoding.DecodeString(encodedSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWT_SECRET: %w", err)
	}

	return decodedSecret, nil
}
