package middlewares

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istock.com/dto"
	"istock.com/types"
)

func setSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", base64.StdEncoding.EncodeToString([]byte("test-secret-key")))
}

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", Auth, func(c *fiber.Ctx) error {
		return c.JSON(types.Response{Success: true, Data: fiber.Map{
			"user_id":      UserID(c),
			"is_superuser": IsSuperuser(c),
		}})
	})
	app.Get("/portfolio/:userId", Auth, RequireSelfOrSuperuser("userId"), func(c *fiber.Ctx) error {
		return c.SendStatus(200)
	})
	app.Get("/admin", Auth, RequireSuperuser, func(c *fiber.Ctx) error {
		return c.SendStatus(200)
	})
	return app
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestGenerateToken_Claims(t *testing.T) {
	setSecret(t)
	user := &types.User{ID: "u-1", Username: "alice", IsSuperuser: true}

	signed, expiresIn, err := GenerateToken(user, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), expiresIn)

	key, _ := getSigningKey()
	parsed, err := jwt.Parse(signed, func(*jwt.Token) (any, error) { return key, nil })
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "u-1", claims["sub"])
	assert.Equal(t, "alice", claims["username"])
	assert.Equal(t, true, claims["is_superuser"])
	assert.Equal(t, TokenTypeAccess, claims["type"])
	assert.NotEmpty(t, claims["jti"])
}

func TestGenerateToken_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, _, err := GenerateToken(&types.User{ID: "x"}, time.Minute)
	assert.Error(t, err)
}

func TestAuth_ValidToken(t *testing.T) {
	setSecret(t)
	app := newProtectedApp()
	token, _, err := GenerateToken(&types.User{ID: "u-1", Username: "alice"}, time.Hour)
	require.NoError(t, err)

	resp, err := app.Test(bearer(httptest.NewRequest(http.MethodGet, "/me", nil), token))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var response types.Response
	json.Unmarshal(body, &response)
	data := response.Data.(map[string]any)
	assert.Equal(t, "u-1", data["user_id"])
	assert.Equal(t, false, data["is_superuser"])
}

func TestAuth_MissingAndBadToken(t *testing.T) {
	setSecret(t)
	app := newProtectedApp()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, 401, resp.StatusCode)

	resp, _ = app.Test(bearer(httptest.NewRequest(http.MethodGet, "/me", nil), "not-a-token"))
	assert.Equal(t, 401, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var response types.Response
	json.Unmarshal(body, &response)
	assert.False(t, response.Success)
	assert.True(t, strings.HasPrefix(response.Error, "Unauthorized"))
}

func TestAuth_ExpiredToken(t *testing.T) {
	setSecret(t)
	app := newProtectedApp()
	token, _, _ := GenerateToken(&types.User{ID: "u-1"}, -time.Minute)

	resp, _ := app.Test(bearer(httptest.NewRequest(http.MethodGet, "/me", nil), token))
	assert.Equal(t, 401, resp.StatusCode)
}

func TestRequireSelfOrSuperuser(t *testing.T) {
	setSecret(t)
	app := newProtectedApp()
	own, _, _ := GenerateToken(&types.User{ID: "u-1"}, time.Hour)
	admin, _, _ := GenerateToken(&types.User{ID: "root", IsSuperuser: true}, time.Hour)

	resp, _ := app.Test(bearer(httptest.NewRequest(http.MethodGet, "/portfolio/u-1", nil), own))
	assert.Equal(t, 200, resp.StatusCode)

	resp, _ = app.Test(bearer(httptest.NewRequest(http.MethodGet, "/portfolio/u-2", nil), own))
	assert.Equal(t, 403, resp.StatusCode)

	resp, _ = app.Test(bearer(httptest.NewRequest(http.MethodGet, "/portfolio/u-2", nil), admin))
	assert.Equal(t, 200, resp.StatusCode)

	resp, _ = app.Test(bearer(httptest.NewRequest(http.MethodGet, "/admin", nil), own))
	assert.Equal(t, 403, resp.StatusCode)
}

func TestValidateBody(t *testing.T) {
	app := fiber.New()
	app.Post("/login", ValidateBody[dto.LoginRequest](), func(c *fiber.Ctx) error {
		body := c.Locals("validatedBody").(*dto.LoginRequest)
		return c.JSON(types.Response{Success: true, Data: body.Username})
	})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"bob","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req)
	assert.Equal(t, 200, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"bob"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	assert.Equal(t, 400, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var response types.Response
	json.Unmarshal(body, &response)
	assert.Contains(t, response.Error, "password: failed 'required'")

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{bad`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = app.Test(req)
	assert.Equal(t, 400, resp.StatusCode)
}
