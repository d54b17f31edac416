package services

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"istock.com/db"
	"istock.com/types"
)

// setupTestDB points db.DB at a fresh in-memory database.
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

func seedStock(t *testing.T, symbol, market, industry string, price float64) types.Stock {
	t.Helper()
	s := types.Stock{Symbol: symbol, Name: symbol + " Inc", Market: market, Industry: industry, Status: "active", Price: price}
	if err := db.DB.Create(&s).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	return s
}
