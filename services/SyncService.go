package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"istock.com/broker"
	"istock.com/db"
	"istock.com/dto"
	"istock.com/providers"
	"istock.com/types"
)

var (
	ErrSourceNotFound = errors.New("data source not found")
	ErrSourceInactive = errors.New("data source is not active")
	ErrQueueFull      = errors.New("sync queue is full")
	ErrSyncStopped    = errors.New("sync service is not running")
)

const (
	defaultHistoryDays = 120
	queueSize          = 64
	maxErrorMessage    = 2000
)

type SyncJob struct {
	TaskID  string
	LogID   uint
	Source  types.DataSource
	Type    string
	Symbols []string
	From    time.Time
	To      time.Time
}

// SyncService runs data syncs on a fixed pool of workers fed from a queue.
type SyncService struct {
	manager *DataSourceManager
	symbols []string
	workers int

	mu      sync.Mutex
	jobs    chan SyncJob
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running bool
}

var Sync *SyncService

func NewSyncService(manager *DataSourceManager, workers int, symbols []string) *SyncService {
	if workers <= 0 {
		workers = 1
	}
	return &SyncService{manager: manager, workers: workers, symbols: symbols}
}

func (s *SyncService) Manager() *DataSourceManager { return s.manager }

func (s *SyncService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.jobs = make(chan SyncJob, queueSize)
	s.running = true

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i, s.jobs)
	}
	log.Infof("Sync service started with %d workers", s.workers)
}

func (s *SyncService) worker(ctx context.Context, id int, jobs <-chan SyncJob) {
	defer s.wg.Done()
	for job := range jobs {
		if ctx.Err() != nil {
			s.finish(&job, &types.DataSyncLog{}, types.SyncFailed, "cancelled")
			continue
		}
		log.Infof("Worker %d running %s sync %s on %s", id, job.Type, job.TaskID, job.Source.Name)
		s.Run(ctx, job)
	}
}

// Stop closes the queue and waits for in-flight jobs.
func (s *SyncService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.jobs)
	s.mu.Unlock()

	s.wg.Wait()
	s.cancel()
}

// Submit records a started task and queues it for a worker.
func (s *SyncService) Submit(req *dto.SyncRequest) (*dto.SyncResponse, error) {
	src, err := GetDataSource(req.DataSourceID)
	if err != nil {
		return nil, err
	}
	if !src.IsActive {
		return nil, ErrSourceInactive
	}
	job, err := s.newJob(src, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.markFailed(job.LogID, ErrSyncStopped.Error())
		return nil, ErrSyncStopped
	}
	select {
	case s.jobs <- *job:
	default:
		s.markFailed(job.LogID, ErrQueueFull.Error())
		return nil, ErrQueueFull
	}

	return &dto.SyncResponse{
		TaskID:       job.TaskID,
		Status:       types.SyncStarted,
		Message:      fmt.Sprintf("%s sync of %d symbols started", job.Type, len(job.Symbols)),
		DataSourceID: src.ID,
		SyncType:     job.Type,
	}, nil
}

// SubmitPrimary queues a sync on the primary data source.
func (s *SyncService) SubmitPrimary(syncType string) (*dto.SyncResponse, error) {
	src, err := s.manager.Primary()
	if err != nil {
		return nil, err
	}
	return s.Submit(&dto.SyncRequest{DataSourceID: src.ID, SyncType: syncType})
}

func (s *SyncService) newJob(src *types.DataSource, req *dto.SyncRequest) (*SyncJob, error) {
	syncType := req.SyncType
	if syncType == "" {
		syncType = types.SyncRealtime
	}
	symbols := normalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		symbols = s.trackedSymbols()
	}

	to := now()
	from := to.AddDate(0, 0, -defaultHistoryDays)
	if req.StartDate != "" {
		if t, err := time.Parse(time.DateOnly, req.StartDate); err == nil {
			from = t
		}
	}
	if req.EndDate != "" {
		if t, err := time.Parse(time.DateOnly, req.EndDate); err == nil {
			to = t.Add(24*time.Hour - time.Second)
		}
	}

	srcID := src.ID
	entry := types.DataSyncLog{
		TaskID:       uuid.NewString(),
		DataSourceID: &srcID,
		SyncType:     syncType,
		Symbols:      strings.Join(symbols, ","),
		StartTime:    now(),
		Status:       types.SyncStarted,
	}
	if err := db.DB.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create sync log: %w", err)
	}

	return &SyncJob{
		TaskID:  entry.TaskID,
		LogID:   entry.ID,
		Source:  *src,
		Type:    syncType,
		Symbols: symbols,
		From:    from,
		To:      to,
	}, nil
}

// trackedSymbols is every stock in the database, or the configured list
// when the table is empty.
func (s *SyncService) trackedSymbols() []string {
	var symbols []string
	err := db.DB.Model(&types.Stock{}).Where("status = ?", "active").Order("symbol asc").Pluck("symbol", &symbols).Error
	if err != nil {
		log.Warnf("Failed to list tracked symbols, using configured list: %v", err)
	}
	if len(symbols) == 0 {
		return append([]string(nil), s.symbols...)
	}
	return symbols
}

func normalizeSymbols(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (s *SyncService) markFailed(logID uint, msg string) {
	t := now()
	err := db.DB.Model(&types.DataSyncLog{}).Where("id = ?", logID).Updates(map[string]any{
		"status":        types.SyncFailed,
		"end_time":      t,
		"error_message": msg,
	}).Error
	if err != nil {
		log.Errorf("Failed to mark sync log %d failed: %v", logID, err)
	}
}

// Run executes a job synchronously.
func (s *SyncService) Run(ctx context.Context, job SyncJob) *types.DataSyncLog {
	entry := &types.DataSyncLog{}
	if err := db.DB.Model(&types.DataSyncLog{}).Where("id = ?", job.LogID).Update("status", types.SyncRunning).Error; err != nil {
		log.Warnf("Failed to mark sync %s running: %v", job.TaskID, err)
	}

	p, err := s.manager.Provider(&job.Source)
	if err != nil {
		s.finish(&job, entry, types.SyncFailed, err.Error())
		return entry
	}

	var errs []string
	for _, symbol := range job.Symbols {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err().Error())
			break
		}
		var err error
		switch job.Type {
		case types.SyncHistorical:
			err = syncHistorical(ctx, p, symbol, job.From, job.To, entry)
		default:
			err = syncRealtime(ctx, p, symbol, entry)
		}
		if err != nil {
			log.Warnf("Sync %s: %s failed: %v", job.TaskID, symbol, err)
			errs = append(errs, fmt.Sprintf("%s: %v", symbol, err))
		}
	}

	status := types.SyncSuccess
	switch {
	case len(errs) > 0 && len(errs) >= len(job.Symbols):
		status = types.SyncFailed
	case len(errs) > 0:
		status = types.SyncPartial
	}
	if job.Type == types.SyncRealtime && status != types.SyncFailed {
		InvalidateMarketOverview(ctx)
	}
	s.finish(&job, entry, status, strings.Join(errs, "; "))
	return entry
}

func (s *SyncService) finish(job *SyncJob, entry *types.DataSyncLog, status, msg string) {
	t := now()
	msg = truncate(msg, maxErrorMessage)
	err := db.DB.Model(&types.DataSyncLog{}).Where("id = ?", job.LogID).Updates(map[string]any{
		"status":            status,
		"end_time":          t,
		"error_message":     msg,
		"records_fetched":   entry.RecordsFetched,
		"records_processed": entry.RecordsProcessed,
		"records_inserted":  entry.RecordsInserted,
		"records_updated":   entry.RecordsUpdated,
	}).Error
	if err != nil {
		log.Errorf("Failed to finish sync log %s: %v", job.TaskID, err)
	}
	entry.ID = job.LogID
	entry.TaskID = job.TaskID
	entry.Status = status
	entry.ErrorMessage = msg
	entry.EndTime = &t
	if err := db.DB.First(entry, job.LogID).Error; err != nil {
		log.Errorf("Failed to reload sync log %s: %v", job.TaskID, err)
	}

	srcUpdates := map[string]any{"last_sync": t}
	if status == types.SyncFailed {
		srcUpdates["last_error_time"] = t
		srcUpdates["error_count"] = gorm.Expr("error_count + 1")
	} else {
		srcUpdates["last_success_time"] = t
	}
	if err := db.DB.Model(&types.DataSource{}).Where("id = ?", job.Source.ID).Updates(srcUpdates).Error; err != nil {
		log.Errorf("Failed to update data source %d after sync %s: %v", job.Source.ID, job.TaskID, err)
	}

	evt := &dto.SyncFinishedEvent{
		TaskID:         job.TaskID,
		DataSourceID:   job.Source.ID,
		SyncType:       job.Type,
		Status:         status,
		RecordsFetched: entry.RecordsFetched,
		FinishedAt:     t,
	}
	if err := broker.SendSyncFinished(context.Background(), evt); err != nil {
		log.Warnf("Sync event %s not published: %v", job.TaskID, err)
	}
	log.Infof("Sync %s finished: %s (%d fetched)", job.TaskID, status, entry.RecordsFetched)
}

func findOrCreateStock(symbol string) (*types.Stock, bool, error) {
	var stock types.Stock
	err := db.DB.Where("symbol = ?", symbol).First(&stock).Error
	if err == nil {
		return &stock, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	stock = types.Stock{Symbol: symbol, Name: symbol, Status: "active"}
	if err := db.DB.Create(&stock).Error; err != nil {
		return nil, false, err
	}
	return &stock, true, nil
}

func syncRealtime(ctx context.Context, p providers.QuoteProvider, symbol string, entry *types.DataSyncLog) error {
	q, err := p.Quote(ctx, symbol)
	if err != nil {
		return err
	}
	entry.RecordsFetched++

	stock, created, err := findOrCreateStock(symbol)
	if err != nil {
		return err
	}
	err = db.DB.Model(stock).Updates(map[string]any{
		"price":          q.Price,
		"change":         q.Change,
		"change_percent": q.ChangePercent,
		"volume":         q.Volume,
		"quoted_at":      q.Timestamp,
	}).Error
	if err != nil {
		return err
	}
	entry.RecordsProcessed++
	if created {
		entry.RecordsInserted++
	} else {
		entry.RecordsUpdated++
	}
	return nil
}

func syncHistorical(ctx context.Context, p providers.QuoteProvider, symbol string, from, to time.Time, entry *types.DataSyncLog) error {
	bars, err := p.Daily(ctx, symbol, from, to)
	if err != nil {
		return err
	}
	entry.RecordsFetched += len(bars)
	if len(bars) == 0 {
		return nil
	}

	stock, _, err := findOrCreateStock(symbol)
	if err != nil {
		return err
	}

	prevClose, err := closeBefore(stock.ID, bars[0].Date)
	if err != nil {
		return err
	}
	for _, b := range bars {
		row := DailyFromBar(stock.ID, b, prevClose)
		prevClose = b.Close

		var existing types.StockDaily
		err := db.DB.Where("stock_id = ? AND date = ?", stock.ID, row.Date).First(&existing).Error
		switch {
		case err == nil:
			row.ID = existing.ID
			row.CreatedAt = existing.CreatedAt
			if err := db.DB.Save(&row).Error; err != nil {
				return err
			}
			entry.RecordsUpdated++
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := db.DB.Create(&row).Error; err != nil {
				return err
			}
			entry.RecordsInserted++
		default:
			return err
		}
		entry.RecordsProcessed++
	}

	if _, err := RecomputeIndicators(stock.ID); err != nil {
		return err
	}
	return nil
}

// closeBefore is the stored close of the last bar before day, or 0 when
// there is none.
func closeBefore(stockID uint, day time.Time) (float64, error) {
	var prev types.StockDaily
	err := db.DB.Where("stock_id = ? AND date < ?", stockID, day).Order("date desc").Limit(1).Find(&prev).Error
	if err != nil {
		return 0, err
	}
	return prev.Close, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// DailyFromBar derives change, amplitude and amount; prevClose 0 means the
// bar's own open is used as the reference.
func DailyFromBar(stockID uint, b providers.Bar, prevClose float64) types.StockDaily {
	ref := prevClose
	if ref == 0 {
		ref = b.Open
	}
	row := types.StockDaily{
		StockID:  stockID,
		Date:     b.Date,
		Open:     b.Open,
		Close:    b.Close,
		High:     b.High,
		Low:      b.Low,
		PreClose: ref,
		Volume:   b.Volume,
		Amount:   roundTo(b.Close*float64(b.Volume), 2),
	}
	if ref != 0 {
		row.Change = roundTo(b.Close-ref, 4)
		row.ChangePercent = roundTo((b.Close-ref)/ref*100, 4)
		row.Amplitude = roundTo((b.High-b.Low)/ref*100, 4)
	}
	return row
}
