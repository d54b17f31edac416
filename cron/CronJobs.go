package cron

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"istock.com/services"
	"istock.com/types"
)

const (
	RealtimeSpec   = "0 */15 * * * *"
	HistoricalSpec = "0 30 15 * * *"

	healthInterval = 5 // minutes
	cleanupAt      = "03:00"
	logRetention   = 90 * 24 * time.Hour
)

// Scheduler owns the robfig sync jobs and the gocron maintenance jobs.
type Scheduler struct {
	cron        *cron.Cron
	maintenance *gocron.Scheduler
	sync        *services.SyncService
}

// StartScheduler registers every job and starts both schedulers.
func StartScheduler(sync *services.SyncService) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		maintenance: gocron.NewScheduler(time.UTC),
		sync:        sync,
	}
	if err := s.register(); err != nil {
		return nil, err
	}
	s.cron.Start()
	s.maintenance.StartAsync()
	log.Infof("Scheduler started: realtime %q, historical %q, health every %d min", RealtimeSpec, HistoricalSpec, healthInterval)
	return s, nil
}

func (s *Scheduler) register() error {
	if _, err := s.cron.AddFunc(RealtimeSpec, func() {
		s.submit(types.SyncRealtime)
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(HistoricalSpec, func() {
		s.submit(types.SyncHistorical)
	}); err != nil {
		return err
	}

	if _, err := s.maintenance.Every(healthInterval).Minutes().Do(func() {
		CheckSources(s.sync.Manager())
	}); err != nil {
		return err
	}
	if _, err := s.maintenance.Every(1).Day().At(cleanupAt).Do(func() {
		CleanupLogs()
	}); err != nil {
		return err
	}
	return nil
}

func (s *Scheduler) submit(syncType string) {
	resp, err := s.sync.SubmitPrimary(syncType)
	if err != nil {
		log.Errorf("Scheduled %s sync not started: %v", syncType, err)
		return
	}
	log.Infof("Scheduled %s sync %s queued", syncType, resp.TaskID)
}

// Stop halts both schedulers and waits for running robfig jobs.
func (s *Scheduler) Stop() {
	s.maintenance.Stop()
	<-s.cron.Stop().Done()
}

// Entries lists the robfig jobs in registration order.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func CheckSources(manager *services.DataSourceManager) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sources, err := manager.CheckAll(ctx)
	if err != nil {
		log.Errorf("Health check failed: %v", err)
		return
	}
	healthy := 0
	for _, src := range sources {
		if src.Status == services.StatusHealthy {
			healthy++
		}
	}
	log.Infof("Health check done: %d/%d sources healthy", healthy, len(sources))
}

func CleanupLogs() {
	n, err := services.CleanupSyncLogs(logRetention)
	if err != nil {
		log.Errorf("Sync log cleanup failed: %v", err)
		return
	}
	log.Infof("Removed %d sync logs older than %s", n, logRetention)
}
