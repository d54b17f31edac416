package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"istock.com/db"
	"istock.com/dto"
	"istock.com/providers"
	"istock.com/types"
)

type fakeProvider struct {
	name    string
	failFor map[string]bool
	pingErr error
	delay   time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Quote(_ context.Context, symbol string) (*dto.Quote, error) {
	if f.failFor[symbol] {
		return nil, errors.New("boom")
	}
	return &dto.Quote{Symbol: symbol, Price: 50, Change: 1, ChangePercent: 2, Volume: 10, Timestamp: time.Now()}, nil
}

func (f *fakeProvider) Daily(ctx context.Context, symbol string, from, to time.Time) ([]providers.Bar, error) {
	if f.failFor[symbol] {
		return nil, errors.New("boom")
	}
	return providers.NewSimulated("x").Daily(ctx, symbol, from, to)
}

func (f *fakeProvider) Ping(context.Context) error {
	time.Sleep(f.delay)
	return f.pingErr
}

func seedSource(t *testing.T, name string, active bool, priority int) types.DataSource {
	t.Helper()
	src := types.DataSource{Name: name, SourceType: types.SourceSimulated, IsActive: true, Priority: priority}
	require.NoError(t, db.DB.Create(&src).Error)
	if !active {
		db.DB.Model(&src).Update("is_active", false)
		src.IsActive = false
	}
	return src
}

func newTestSync(p providers.QuoteProvider) *SyncService {
	m := NewDataSourceManager(func(*types.DataSource) (providers.QuoteProvider, error) { return p, nil })
	return NewSyncService(m, 1, []string{"AAPL", "MSFT"})
}

func TestSubmit_Validation(t *testing.T) {
	setupTestDB(t)
	inactive := seedSource(t, "off", false, 1)
	s := newTestSync(&fakeProvider{})

	_, err := s.Submit(&dto.SyncRequest{DataSourceID: 42})
	assert.ErrorIs(t, err, ErrSourceNotFound)

	_, err = s.Submit(&dto.SyncRequest{DataSourceID: inactive.ID})
	assert.ErrorIs(t, err, ErrSourceInactive)

	active := seedSource(t, "on", true, 2)
	_, err = s.Submit(&dto.SyncRequest{DataSourceID: active.ID})
	assert.ErrorIs(t, err, ErrSyncStopped)

	entry, _ := ListSyncLogs(SyncLogFilter{})
	require.Len(t, entry, 1)
	assert.Equal(t, types.SyncFailed, entry[0].Status)
}

func TestSubmit_RunsOnWorker(t *testing.T) {
	setupTestDB(t)
	src := seedSource(t, "sim", true, 1)
	s := newTestSync(&fakeProvider{})
	s.Start(context.Background())

	resp, err := s.Submit(&dto.SyncRequest{DataSourceID: src.ID, Symbols: []string{"aapl", "AAPL", "msft"}})
	require.NoError(t, err)
	assert.Equal(t, types.SyncStarted, resp.Status)
	assert.Equal(t, types.SyncRealtime, resp.SyncType)
	assert.NotEmpty(t, resp.TaskID)

	s.Stop()

	entry, err := GetSyncLog(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, types.SyncSuccess, entry.Status)
	assert.Equal(t, "AAPL,MSFT", entry.Symbols)
	assert.Equal(t, 2, entry.RecordsFetched)
	assert.Equal(t, 2, entry.RecordsInserted)
	assert.NotNil(t, entry.EndTime)

	stock, err := GetStockBySymbol("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 50.0, stock.Price)

	updated, _ := GetDataSource(src.ID)
	assert.NotNil(t, updated.LastSuccessTime)
}

func TestRun_PartialAndFailed(t *testing.T) {
	setupTestDB(t)
	src := seedSource(t, "sim", true, 1)
	s := newTestSync(&fakeProvider{failFor: map[string]bool{"MSFT": true}})

	job, err := s.newJob(&src, &dto.SyncRequest{DataSourceID: src.ID, Symbols: []string{"AAPL", "MSFT"}})
	require.NoError(t, err)
	entry := s.Run(context.Background(), *job)
	assert.Equal(t, types.SyncPartial, entry.Status)
	assert.Contains(t, entry.ErrorMessage, "MSFT")

	job, err = s.newJob(&src, &dto.SyncRequest{DataSourceID: src.ID, Symbols: []string{"MSFT"}})
	require.NoError(t, err)
	entry = s.Run(context.Background(), *job)
	assert.Equal(t, types.SyncFailed, entry.Status)

	updated, _ := GetDataSource(src.ID)
	assert.Equal(t, 1, updated.ErrorCount)
}

func TestRun_HistoricalStoresBarsAndIndicators(t *testing.T) {
	setupTestDB(t)
	src := seedSource(t, "sim", true, 1)
	s := newTestSync(&fakeProvider{})

	job, err := s.newJob(&src, &dto.SyncRequest{
		DataSourceID: src.ID,
		SyncType:     types.SyncHistorical,
		Symbols:      []string{"NVDA"},
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-31",
	})
	require.NoError(t, err)
	entry := s.Run(context.Background(), *job)
	require.Equal(t, types.SyncSuccess, entry.Status)
	// 23 weekdays in January 2024
	assert.Equal(t, 23, entry.RecordsInserted)

	stock, _ := GetStockBySymbol("NVDA")
	var indicators int64
	db.DB.Model(&types.TechnicalIndicator{}).Where("stock_id = ?", stock.ID).Count(&indicators)
	assert.Equal(t, int64(23), indicators)

	// a second run updates the same rows
	job, _ = s.newJob(&src, &dto.SyncRequest{DataSourceID: src.ID, SyncType: types.SyncHistorical, Symbols: []string{"NVDA"}, StartDate: "2024-01-01", EndDate: "2024-01-31"})
	entry = s.Run(context.Background(), *job)
	assert.Equal(t, 23, entry.RecordsUpdated)
	assert.Equal(t, 0, entry.RecordsInserted)
}

func TestTrackedSymbols_FallsBackToConfig(t *testing.T) {
	setupTestDB(t)
	s := newTestSync(&fakeProvider{})
	assert.Equal(t, []string{"AAPL", "MSFT"}, s.trackedSymbols())

	seedStock(t, "TSLA", "NASDAQ", "Automotive", 1)
	assert.Equal(t, []string{"TSLA"}, s.trackedSymbols())
}

func TestDailyFromBar(t *testing.T) {
	row := DailyFromBar(1, providers.Bar{Open: 10, High: 12, Low: 9, Close: 11, Volume: 100}, 10)
	assert.Equal(t, 1.0, row.Change)
	assert.Equal(t, 10.0, row.ChangePercent)
	assert.Equal(t, 30.0, row.Amplitude)
	assert.Equal(t, 1100.0, row.Amount)

	first := DailyFromBar(1, providers.Bar{Open: 10, High: 10, Low: 10, Close: 10}, 0)
	assert.Equal(t, 10.0, first.PreClose)
	assert.Equal(t, 0.0, first.Change)
}

func TestRun_HistoricalChainsAcrossRuns(t *testing.T) {
	setupTestDB(t)
	src := seedSource(t, "sim", true, 1)
	s := newTestSync(&fakeProvider{})

	run := func(day string) {
		job, err := s.newJob(&src, &dto.SyncRequest{
			DataSourceID: src.ID,
			SyncType:     types.SyncHistorical,
			Symbols:      []string{"AMZN"},
			StartDate:    day,
			EndDate:      day,
		})
		require.NoError(t, err)
		entry := s.Run(context.Background(), *job)
		require.Equal(t, types.SyncSuccess, entry.Status)
	}
	run("2024-01-02")
	run("2024-01-03")

	stock, err := GetStockBySymbol("AMZN")
	require.NoError(t, err)
	var rows []types.StockDaily
	require.NoError(t, db.DB.Where("stock_id = ?", stock.ID).Order("date asc").Find(&rows).Error)
	require.Len(t, rows, 2)

	assert.Equal(t, rows[0].Close, rows[1].PreClose)
	assert.InDelta(t, rows[1].Close-rows[0].Close, rows[1].Change, 1e-4)

	// re-syncing only the later day keeps the chain
	run("2024-01-03")
	var again types.StockDaily
	require.NoError(t, db.DB.First(&again, rows[1].ID).Error)
	assert.Equal(t, rows[1].PreClose, again.PreClose)
	assert.Equal(t, rows[1].ChangePercent, again.ChangePercent)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcd", 2))
	// "é" is two bytes; cutting inside it drops the whole rune
	assert.Equal(t, "a", truncate("aé", 2))
}

func TestRun_DatabaseDownFailsEverySymbol(t *testing.T) {
	testDB := setupTestDB(t)
	src := seedSource(t, "sim", true, 1)
	s := newTestSync(&fakeProvider{})
	job, err := s.newJob(&src, &dto.SyncRequest{DataSourceID: src.ID, Symbols: []string{"AAPL"}})
	require.NoError(t, err)

	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// bookkeeping writes fail and are logged; the symbol error is reported
	entry := s.Run(context.Background(), *job)
	assert.Equal(t, types.SyncFailed, entry.Status)
	assert.Contains(t, entry.ErrorMessage, "AAPL")
	assert.Equal(t, []string{"AAPL", "MSFT"}, s.trackedSymbols())
}
