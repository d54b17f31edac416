package db

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/yaml.v2"
	"gorm.io/gorm"

	"istock.com/types"
)

type seedFile struct {
	Sources []types.DataSource `yaml:"sources"`
	Stocks  []seedStock        `yaml:"stocks"`
}

type seedStock struct {
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Market   string `yaml:"market"`
	Industry string `yaml:"industry"`
	Sector   string `yaml:"sector"`
}

var defaultSources = []types.DataSource{
	{Name: "simulated", SourceType: types.SourceSimulated, IsActive: true, Priority: 10, UpdateFrequency: "realtime"},
}

// LoadSeed reads the YAML seed file. A missing file yields the built-in defaults.
func LoadSeed(path string) (*seedFile, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("Seed file %s not found, using defaults", path)
		return &seedFile{Sources: defaultSources}, nil
	}
	if err != nil {
		return nil, err
	}

	var f seedFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Sources) == 0 {
		f.Sources = defaultSources
	}
	return &f, nil
}

// Seed inserts the data sources and stocks that do not exist yet.
func Seed(conn *gorm.DB, path string, finnhubKey string) error {
	f, err := LoadSeed(path)
	if err != nil {
		return err
	}

	for _, src := range f.Sources {
		if src.SourceType == types.SourceFinnhub && src.APIKey == "" {
			src.APIKey = finnhubKey
		}
		var existing types.DataSource
		err := conn.Where("name = ?", src.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := conn.Create(&src).Error; err != nil {
			return fmt.Errorf("seed source %s: %w", src.Name, err)
		}
		log.Infof("Seeded data source %s (%s)", src.Name, src.SourceType)
	}

	for _, s := range f.Stocks {
		stock := types.Stock{Symbol: s.Symbol, Name: s.Name, Market: s.Market, Industry: s.Industry, Sector: s.Sector, Status: "active"}
		if err := conn.Where("symbol = ?", s.Symbol).FirstOrCreate(&stock).Error; err != nil {
			return fmt.Errorf("seed stock %s: %w", s.Symbol, err)
		}
	}
	return nil
}
