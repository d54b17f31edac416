package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"istock.com/db"
	"istock.com/dto"
	"istock.com/types"
)

var ErrSourceExists = errors.New("data source name already exists")

type SyncLogFilter struct {
	DataSourceID uint
	SyncType     string
	Status       string
	Limit        int
}

func ListSources(activeOnly bool) ([]types.DataSource, error) {
	var sources []types.DataSource
	q := db.DB.Order("priority asc").Order("id asc")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&sources).Error
	return sources, err
}

func CreateSource(req *dto.CreateDataSourceRequest) (*types.DataSource, error) {
	var count int64
	if err := db.DB.Model(&types.DataSource{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSourceExists
	}

	src := types.DataSource{
		Name:            req.Name,
		SourceType:      req.SourceType,
		Endpoint:        req.Endpoint,
		APIKey:          req.APIKey,
		TokenURL:        req.TokenURL,
		ClientID:        req.ClientID,
		ClientSecret:    req.ClientSecret,
		PricePath:       req.PricePath,
		ChangePath:      req.ChangePath,
		VolumePath:      req.VolumePath,
		IsActive:        true,
		Priority:        req.Priority,
		UpdateFrequency: req.UpdateFrequency,
	}
	if src.Priority == 0 {
		src.Priority = 5
	}
	if src.UpdateFrequency == "" {
		src.UpdateFrequency = "daily"
	}
	if err := db.DB.Create(&src).Error; err != nil {
		return nil, fmt.Errorf("create data source: %w", err)
	}
	// is_active has a column default, false must be written separately
	if req.IsActive != nil && !*req.IsActive {
		if err := db.DB.Model(&src).Update("is_active", false).Error; err != nil {
			return nil, err
		}
	}
	return &src, nil
}

func UpdateSource(id uint, req *dto.UpdateDataSourceRequest) (*types.DataSource, error) {
	src, err := GetDataSource(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != src.Name {
		var count int64
		if err := db.DB.Model(&types.DataSource{}).Where("name = ? AND id <> ?", *req.Name, id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrSourceExists
		}
	}

	updates := map[string]any{}
	for column, v := range map[string]*string{
		"name":             req.Name,
		"source_type":      req.SourceType,
		"endpoint":         req.Endpoint,
		"api_key":          req.APIKey,
		"token_url":        req.TokenURL,
		"client_id":        req.ClientID,
		"client_secret":    req.ClientSecret,
		"price_path":       req.PricePath,
		"change_path":      req.ChangePath,
		"volume_path":      req.VolumePath,
		"update_frequency": req.UpdateFrequency,
	} {
		if v != nil {
			updates[column] = *v
		}
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}

	if len(updates) > 0 {
		if err := db.DB.Model(src).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update data source: %w", err)
		}
		GetOAuthService().Forget(src.Name)
	}
	return GetDataSource(id)
}

// DeleteSource removes the source; its sync logs are kept without it.
func DeleteSource(id uint) error {
	src, err := GetDataSource(id)
	if err != nil {
		return err
	}
	defer GetOAuthService().Forget(src.Name)
	return db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&types.DataSource{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSourceNotFound
		}
		return tx.Model(&types.DataSyncLog{}).Where("data_source_id = ?", id).Update("data_source_id", nil).Error
	})
}

func SourceStats(id uint) (*dto.SourceStats, error) {
	src, err := GetDataSource(id)
	if err != nil {
		return nil, err
	}

	st := &dto.SourceStats{
		DataSourceID:  src.ID,
		Name:          src.Name,
		Status:        src.Status,
		HealthScore:   src.HealthScore,
		LastSync:      src.LastSync,
		LastErrorTime: src.LastErrorTime,
	}
	logs := db.DB.Model(&types.DataSyncLog{}).Where("data_source_id = ?", id)
	if err := logs.Session(&gorm.Session{}).Count(&st.TotalSyncs).Error; err != nil {
		return nil, err
	}
	if err := logs.Session(&gorm.Session{}).Where("status = ?", types.SyncSuccess).Count(&st.SuccessSyncs).Error; err != nil {
		return nil, err
	}
	if err := logs.Session(&gorm.Session{}).Where("status = ?", types.SyncFailed).Count(&st.FailedSyncs).Error; err != nil {
		return nil, err
	}
	if err := logs.Session(&gorm.Session{}).Select("COALESCE(SUM(records_fetched), 0)").Scan(&st.RecordsTotal).Error; err != nil {
		return nil, err
	}
	if st.TotalSyncs > 0 {
		st.SuccessRate = roundTo(float64(st.SuccessSyncs)/float64(st.TotalSyncs)*100, 2)
	}
	return st, nil
}

func ListSyncLogs(f SyncLogFilter) ([]types.DataSyncLog, error) {
	q := db.DB.Model(&types.DataSyncLog{})
	if f.DataSourceID != 0 {
		q = q.Where("data_source_id = ?", f.DataSourceID)
	}
	if f.SyncType != "" {
		q = q.Where("sync_type = ?", f.SyncType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var logs []types.DataSyncLog
	err := q.Order("start_time desc").Order("id desc").Limit(limit).Find(&logs).Error
	return logs, err
}

func GetSyncLog(taskID string) (*types.DataSyncLog, error) {
	var entry types.DataSyncLog
	if err := db.DB.Where("task_id = ?", taskID).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// CleanupSyncLogs deletes logs that started before the cutoff.
func CleanupSyncLogs(olderThan time.Duration) (int64, error) {
	cutoff := now().Add(-olderThan)
	res := db.DB.Where("start_time < ?", cutoff).Delete(&types.DataSyncLog{})
	return res.RowsAffected, res.Error
}

func StatsOverview() (*dto.StatsOverview, error) {
	ov := &dto.StatsOverview{
		SyncOps: dto.SyncOverview{
			ByType:   map[string]int64{types.SyncRealtime: 0, types.SyncHistorical: 0},
			ByStatus: map[string]int64{types.SyncStarted: 0, types.SyncRunning: 0, types.SyncSuccess: 0, types.SyncPartial: 0, types.SyncFailed: 0},
		},
		GeneratedAt: now(),
	}

	if err := db.DB.Model(&types.DataSource{}).Count(&ov.Sources.Total).Error; err != nil {
		return nil, fmt.Errorf("count sources: %w", err)
	}
	if err := db.DB.Model(&types.DataSource{}).Where("is_active = ?", true).Count(&ov.Sources.Active).Error; err != nil {
		return nil, fmt.Errorf("count active sources: %w", err)
	}
	ov.Sources.Inactive = ov.Sources.Total - ov.Sources.Active

	if err := db.DB.Model(&types.DataSyncLog{}).Count(&ov.SyncOps.Total).Error; err != nil {
		return nil, fmt.Errorf("count sync logs: %w", err)
	}
	y, m, d := now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now().Location())
	if err := db.DB.Model(&types.DataSyncLog{}).Where("start_time >= ?", today).Count(&ov.SyncOps.Today).Error; err != nil {
		return nil, fmt.Errorf("count today's sync logs: %w", err)
	}

	for column, into := range map[string]map[string]int64{"sync_type": ov.SyncOps.ByType, "status": ov.SyncOps.ByStatus} {
		var grouped []struct {
			Name  string
			Count int64
		}
		err := db.DB.Model(&types.DataSyncLog{}).
			Select(column + " AS name, COUNT(*) AS count").
			Group(column).
			Scan(&grouped).Error
		if err != nil {
			return nil, fmt.Errorf("group sync logs by %s: %w", column, err)
		}
		for _, g := range grouped {
			into[g.Name] = g.Count
		}
	}

	var rec struct {
		Fetched   int64
		Processed int64
	}
	err := db.DB.Model(&types.DataSyncLog{}).
		Select("COALESCE(SUM(records_fetched), 0) AS fetched, COALESCE(SUM(records_processed), 0) AS processed").
		Scan(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("sum sync records: %w", err)
	}
	ov.Records.Fetched = rec.Fetched
	ov.Records.Processed = rec.Processed
	if rec.Fetched > 0 {
		ov.Records.ProcessingRate = roundTo(float64(rec.Processed)/float64(rec.Fetched)*100, 2)
	}
	return ov, nil
}
