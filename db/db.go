package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"istock.com/config"
	"istock.com/types"
)

var DB *gorm.DB

// Init opens the database selected by DB_TYPE and migrates the schema.
func Init(cfg *config.Config) error {
	conn, err := Open(cfg)
	if err != nil {
		return err
	}
	if err := Migrate(conn); err != nil {
		return err
	}
	DB = conn
	log.Infof("Database ready (%s)", cfg.DBType)
	return nil
}

func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	switch cfg.DBType {
	case "POSTGRES_DSN":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is empty")
		}
		conn, err := gorm.Open(postgres.Open(cfg.PostgresDSN), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return conn, nil
	case "SQLITE", "":
		conn, err := gorm.Open(sqlite.Open(cfg.SqlitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SqlitePath, err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", cfg.DBType)
	}
}

func Migrate(conn *gorm.DB) error {
	err := conn.AutoMigrate(
		&types.Stock{},
		&types.StockDaily{},
		&types.TechnicalIndicator{},
		&types.User{},
		&types.PortfolioItem{},
		&types.DataSource{},
		&types.DataSyncLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping reports whether the underlying connection answers.
func Ping(conn *gorm.DB) bool {
	if conn == nil {
		return false
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

func Tables() []string {
	return []string{
		types.Stock{}.TableName(),
		types.StockDaily{}.TableName(),
		types.TechnicalIndicator{}.TableName(),
		types.User{}.TableName(),
		types.PortfolioItem{}.TableName(),
		types.DataSource{}.TableName(),
		types.DataSyncLog{}.TableName(),
	}
}
