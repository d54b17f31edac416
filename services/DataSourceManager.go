package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"istock.com/broker"
	"istock.com/db"
	"istock.com/dto"
	"istock.com/providers"
	"istock.com/types"
)

const (
	providerTimeout  = 10 * time.Second
	healthyThreshold = 70
	maxParallelPings = 4

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

var ErrNoDataSource = errors.New("no data source configured")

type ProviderFactory func(src *types.DataSource) (providers.QuoteProvider, error)

func defaultFactory(src *types.DataSource) (providers.QuoteProvider, error) {
	return providers.New(src, GetOAuthService().ClientFor(src))
}

// DataSourceManager checks provider health and picks the source syncs use
// when none is named.
type DataSourceManager struct {
	factory ProviderFactory
	timeout time.Duration
}

func NewDataSourceManager(factory ProviderFactory) *DataSourceManager {
	if factory == nil {
		factory = defaultFactory
	}
	return &DataSourceManager{factory: factory, timeout: providerTimeout}
}

func (m *DataSourceManager) Provider(src *types.DataSource) (providers.QuoteProvider, error) {
	return m.factory(src)
}

type HealthReport struct {
	TotalSources   int                `json:"total_sources"`
	HealthySources int                `json:"healthy_sources"`
	HealthRate     float64            `json:"health_rate"`
	PrimarySource  string             `json:"primary_source"`
	Sources        []types.DataSource `json:"sources"`
	Timestamp      time.Time          `json:"timestamp"`
}

// healthScore drops with latency and with recent errors.
func healthScore(latency time.Duration, errorCount int) float64 {
	score := 100 - float64(latency.Milliseconds())/20 - 5*float64(min(errorCount, 6))
	return roundTo(max(0, min(100, score)), 1)
}

// CheckAll pings every active source concurrently and stores the results.
func (m *DataSourceManager) CheckAll(ctx context.Context) ([]types.DataSource, error) {
	var sources []types.DataSource
	if err := db.DB.Where("is_active = ?", true).Order("priority asc").Find(&sources).Error; err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelPings)
	for i := range sources {
		src := &sources[i]
		g.Go(func() error {
			status, score, pingErr := m.check(gctx, src)

			mu.Lock()
			defer mu.Unlock()
			return record(gctx, src, status, score, pingErr)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].HealthScore > sources[j].HealthScore
	})
	return sources, nil
}

// record stores a health check result on src and publishes it.
func record(ctx context.Context, src *types.DataSource, status string, score float64, pingErr error) error {
	t := now()
	src.Status = status
	src.HealthScore = score
	updates := map[string]any{"status": status, "health_score": score}
	if pingErr != nil {
		src.ErrorCount++
		src.LastErrorTime = &t
		updates["error_count"] = src.ErrorCount
		updates["last_error_time"] = t
		log.Warnf("Data source %s unhealthy: %v", src.Name, pingErr)
	}
	if err := db.DB.Model(&types.DataSource{}).Where("id = ?", src.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("save health of %s: %w", src.Name, err)
	}
	if err := broker.SendSourceHealth(ctx, &broker.SourceHealthEvent{Name: src.Name, Status: status, HealthScore: score}); err != nil {
		log.Warnf("Health event for %s not published: %v", src.Name, err)
	}
	return nil
}

// Test pings one source, active or not, and stores the result.
func (m *DataSourceManager) Test(ctx context.Context, id uint) (*dto.SourceTestResult, error) {
	src, err := GetDataSource(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	status, score, pingErr := m.check(ctx, src)
	elapsed := time.Since(start)
	if err := record(ctx, src, status, score, pingErr); err != nil {
		return nil, err
	}

	res := &dto.SourceTestResult{
		DataSourceID:   src.ID,
		Name:           src.Name,
		SourceType:     src.SourceType,
		Endpoint:       src.Endpoint,
		TestTime:       now(),
		Status:         "success",
		HealthScore:    score,
		ResponseTimeMS: elapsed.Milliseconds(),
		Message:        "Connected to " + src.Name,
	}
	if pingErr != nil {
		res.Status = "failed"
		res.Message = pingErr.Error()
	}
	return res, nil
}

func (m *DataSourceManager) check(ctx context.Context, src *types.DataSource) (string, float64, error) {
	p, err := m.factory(src)
	if err != nil {
		return StatusUnhealthy, 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return StatusUnhealthy, 0, err
	}
	return StatusHealthy, healthScore(time.Since(start), src.ErrorCount), nil
}

// Primary returns the healthiest source scoring above the threshold, or
// the highest priority active source when none qualifies.
func (m *DataSourceManager) Primary() (*types.DataSource, error) {
	var sources []types.DataSource
	if err := db.DB.Where("is_active = ?", true).Order("priority asc").Order("id asc").Find(&sources).Error; err != nil {
		return nil, err
	}
	return pickPrimary(sources)
}

func pickPrimary(sources []types.DataSource) (*types.DataSource, error) {
	if len(sources) == 0 {
		return nil, ErrNoDataSource
	}
	var best *types.DataSource
	for i := range sources {
		s := &sources[i]
		if s.Status != StatusHealthy || s.HealthScore <= healthyThreshold {
			continue
		}
		if best == nil || s.HealthScore > best.HealthScore {
			best = s
		}
	}
	if best != nil {
		return best, nil
	}
	top := sources[0]
	for _, s := range sources[1:] {
		if s.Priority < top.Priority {
			top = s
		}
	}
	return &top, nil
}

func (m *DataSourceManager) HealthReport(ctx context.Context) (*HealthReport, error) {
	sources, err := m.CheckAll(ctx)
	if err != nil {
		return nil, err
	}
	report := &HealthReport{TotalSources: len(sources), Sources: sources, Timestamp: now()}
	for _, s := range sources {
		if s.Status == StatusHealthy {
			report.HealthySources++
		}
	}
	if report.TotalSources > 0 {
		report.HealthRate = roundTo(float64(report.HealthySources)/float64(report.TotalSources)*100, 2)
	}
	if p, err := pickPrimary(sources); err == nil {
		report.PrimarySource = p.Name
	}
	return report, nil
}

func GetDataSource(id uint) (*types.DataSource, error) {
	var src types.DataSource
	if err := db.DB.First(&src, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}
	return &src, nil
}
