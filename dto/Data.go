package dto

import "time"

type CreateDataSourceRequest struct {
	Name            string `json:"name" validate:"required,max=50"`
	SourceType      string `json:"source_type" validate:"required,oneof=finnhub json simulated"`
	Endpoint        string `json:"endpoint" validate:"omitempty,url"`
	APIKey          string `json:"api_key"`
	TokenURL        string `json:"token_url" validate:"omitempty,url"`
	ClientID        string `json:"client_id"`
	ClientSecret    string `json:"client_secret"`
	PricePath       string `json:"price_path"`
	ChangePath      string `json:"change_path"`
	VolumePath      string `json:"volume_path"`
	IsActive        *bool  `json:"is_active"`
	Priority        int    `json:"priority" validate:"omitempty,min=1,max=10"`
	UpdateFrequency string `json:"update_frequency" validate:"omitempty,oneof=realtime daily weekly"`
}

// UpdateDataSourceRequest changes only the fields that are set.
type UpdateDataSourceRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=50"`
	SourceType      *string `json:"source_type" validate:"omitempty,oneof=finnhub json simulated"`
	Endpoint        *string `json:"endpoint" validate:"omitempty,url"`
	APIKey          *string `json:"api_key"`
	TokenURL        *string `json:"token_url" validate:"omitempty,url"`
	ClientID        *string `json:"client_id"`
	ClientSecret    *string `json:"client_secret"`
	PricePath       *string `json:"price_path"`
	ChangePath      *string `json:"change_path"`
	VolumePath      *string `json:"volume_path"`
	IsActive        *bool   `json:"is_active"`
	Priority        *int    `json:"priority" validate:"omitempty,min=1,max=10"`
	UpdateFrequency *string `json:"update_frequency" validate:"omitempty,oneof=realtime daily weekly"`
}

type SourceTestResult struct {
	DataSourceID   uint      `json:"data_source_id"`
	Name           string    `json:"name"`
	SourceType     string    `json:"source_type"`
	Endpoint       string    `json:"endpoint,omitempty"`
	TestTime       time.Time `json:"test_time"`
	Status         string    `json:"status"`
	HealthScore    float64   `json:"health_score"`
	ResponseTimeMS int64     `json:"response_time_ms"`
	Message        string    `json:"message"`
}

type SyncRequest struct {
	DataSourceID uint     `json:"data_source_id" validate:"required"`
	SyncType     string   `json:"sync_type" validate:"omitempty,oneof=realtime historical"`
	Symbols      []string `json:"symbols"`
	StartDate    string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

type SyncResponse struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	DataSourceID uint   `json:"data_source_id"`
	SyncType     string `json:"sync_type"`
}

type SourceStats struct {
	DataSourceID  uint       `json:"data_source_id"`
	Name          string     `json:"name"`
	Status        string     `json:"status"`
	HealthScore   float64    `json:"health_score"`
	TotalSyncs    int64      `json:"total_syncs"`
	SuccessSyncs  int64      `json:"success_syncs"`
	FailedSyncs   int64      `json:"failed_syncs"`
	SuccessRate   float64    `json:"success_rate"`
	RecordsTotal  int64      `json:"records_total"`
	LastSync      *time.Time `json:"last_sync"`
	LastErrorTime *time.Time `json:"last_error_time"`
}

type SourcesOverview struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

type SyncOverview struct {
	Total    int64            `json:"total"`
	Today    int64            `json:"today"`
	ByType   map[string]int64 `json:"by_type"`
	ByStatus map[string]int64 `json:"by_status"`
}

type RecordsOverview struct {
	Fetched        int64   `json:"fetched"`
	Processed      int64   `json:"processed"`
	ProcessingRate float64 `json:"processing_rate"`
}

type StatsOverview struct {
	Sources     SourcesOverview `json:"sources"`
	SyncOps     SyncOverview    `json:"sync_operations"`
	Records     RecordsOverview `json:"records"`
	GeneratedAt time.Time       `json:"generated_at"`
}
