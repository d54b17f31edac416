package cron

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"istock.com/db"
	"istock.com/services"
	"istock.com/types"
)

// Setup an in-memory database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		panic("Failed to open in-memory database: " + err.Error())
	}
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(testDB))

	prev := db.DB
	db.DB = testDB
	t.Cleanup(func() {
		db.DB = prev
		sqlDB.Close()
	})
	return testDB
}

func TestSpecsParse(t *testing.T) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	realtime, err := parser.Parse(RealtimeSpec)
	require.NoError(t, err)
	from := time.Date(2025, 6, 2, 10, 7, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 15, 0, 0, time.UTC), realtime.Next(from))

	historical, err := parser.Parse(HistoricalSpec)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC), historical.Next(from))
}

func TestStartScheduler_RegistersJobs(t *testing.T) {
	setupTestDB(t)
	sync := services.NewSyncService(services.NewDataSourceManager(nil), 1, nil)

	s, err := StartScheduler(sync)
	require.NoError(t, err)
	defer s.Stop()

	assert.Len(t, s.Entries(), 2)
	assert.Len(t, s.maintenance.Jobs(), 2)
}

func TestCleanupLogs(t *testing.T) {
	setupTestDB(t)
	old := types.DataSyncLog{TaskID: "old", SyncType: types.SyncRealtime, Status: types.SyncSuccess, StartTime: time.Now().Add(-100 * 24 * time.Hour)}
	recent := types.DataSyncLog{TaskID: "recent", SyncType: types.SyncRealtime, Status: types.SyncSuccess, StartTime: time.Now().Add(-time.Hour)}
	require.NoError(t, db.DB.Create(&old).Error)
	require.NoError(t, db.DB.Create(&recent).Error)

	CleanupLogs()

	var ids []string
	db.DB.Model(&types.DataSyncLog{}).Pluck("task_id", &ids)
	assert.Equal(t, []string{"recent"}, ids)
}

func TestCheckSources_UpdatesStatus(t *testing.T) {
	setupTestDB(t)
	src := types.DataSource{Name: "sim", SourceType: types.SourceSimulated, IsActive: true, Priority: 1}
	require.NoError(t, db.DB.Create(&src).Error)

	CheckSources(services.NewDataSourceManager(nil))

	var got types.DataSource
	require.NoError(t, db.DB.First(&got, src.ID).Error)
	assert.Equal(t, services.StatusHealthy, got.Status)
	assert.Greater(t, got.HealthScore, 70.0)
}
