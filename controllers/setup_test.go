package controllers

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
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"istock.com/db"
	"istock.com/middlewares"
	"istock.com/types"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(testDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	prev := db.DB
	db.DB = testDB
	t.Cleanup(func() {
		db.DB = prev
		sqlDB.Close()
	})
	return testDB
}

func setSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", base64.StdEncoding.EncodeToString([]byte("controller-test-secret")))
}

func tokenFor(t *testing.T, user *types.User) string {
	t.Helper()
	token, _, err := middlewares.GenerateToken(user, time.Hour)
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, types.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out types.Response
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

// decodeData re-marshals the envelope data into dst.
func decodeData(t *testing.T, r types.Response, dst any) {
	t.Helper()
	raw, err := json.Marshal(r.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func findRoute(app *fiber.App, method, path string) bool {
	for _, routes := range app.Stack() {
		for _, route := range routes {
			if route.Method == method && strings.HasSuffix(route.Path, path) {
				return true
			}
		}
	}
	return false
}

func createStock(t *testing.T, symbol, market, industry string, price float64) types.Stock {
	t.Helper()
	s := types.Stock{Symbol: symbol, Name: symbol + " Corp", Market: market, Industry: industry, Status: "active", Price: price}
	require.NoError(t, db.DB.Create(&s).Error)
	return s
}
