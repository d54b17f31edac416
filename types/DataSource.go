package types

import "time"

const (
	SourceFinnhub   = "finnhub"
	SourceJSON      = "json"
	SourceSimulated = "simulated"
)

const (
	SyncRealtime   = "realtime"
	SyncHistorical = "historical"
)

const (
	SyncStarted = "started"
	SyncRunning = "running"
	SyncSuccess = "success"
	SyncPartial = "partial"
	SyncFailed  = "failed"
)

type DataSource struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Name            string     `gorm:"size:50;uniqueIndex;not null" json:"name" yaml:"name"`
	SourceType      string     `gorm:"size:20;not null" json:"source_type" yaml:"source_type"`
	Endpoint        string     `gorm:"size:255" json:"endpoint,omitempty" yaml:"endpoint"`
	APIKey          string     `gorm:"size:255" json:"-" yaml:"api_key"`
	TokenURL        string     `gorm:"size:255" json:"-" yaml:"token_url"`
	ClientID        string     `gorm:"size:255" json:"-" yaml:"client_id"`
	ClientSecret    string     `gorm:"size:255" json:"-" yaml:"client_secret"`
	PricePath       string     `gorm:"size:255" json:"price_path,omitempty" yaml:"price_path"`
	ChangePath      string     `gorm:"size:255" json:"change_path,omitempty" yaml:"change_path"`
	VolumePath      string     `gorm:"size:255" json:"volume_path,omitempty" yaml:"volume_path"`
	IsActive        bool       `gorm:"default:true" json:"is_active" yaml:"is_active"`
	Priority        int        `gorm:"default:1" json:"priority" yaml:"priority"`
	UpdateFrequency string     `gorm:"size:20;default:daily" json:"update_frequency" yaml:"update_frequency"`
	Status          string     `gorm:"size:20;default:unknown" json:"status" yaml:"-"`
	HealthScore     float64    `json:"health_score" yaml:"-"`
	LastSync        *time.Time `json:"last_sync,omitempty" yaml:"-"`
	LastSuccessTime *time.Time `json:"last_success_time,omitempty" yaml:"-"`
	LastErrorTime   *time.Time `json:"last_error_time,omitempty" yaml:"-"`
	ErrorCount      int        `gorm:"default:0" json:"error_count" yaml:"-"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at" yaml:"-"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at" yaml:"-"`
}

func (DataSource) TableName() string {
	return "data_sources"
}

type DataSyncLog struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	TaskID           string     `gorm:"size:36;index" json:"task_id"`
	DataSourceID     *uint      `gorm:"index" json:"data_source_id,omitempty"`
	SyncType         string     `gorm:"size:20;not null;index" json:"sync_type"`
	Symbols          string     `gorm:"size:500" json:"symbols"`
	StartTime        time.Time  `gorm:"not null;index" json:"start_time"`
	EndTime          *time.Time `json:"end_time,omitempty"`
	Status           string     `gorm:"size:20;not null;index" json:"status"`
	RecordsFetched   int        `gorm:"default:0" json:"records_fetched"`
	RecordsProcessed int        `gorm:"default:0" json:"records_processed"`
	RecordsInserted  int        `gorm:"default:0" json:"records_inserted"`
	RecordsUpdated   int        `gorm:"default:0" json:"records_updated"`
	ErrorMessage     string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (DataSyncLog) TableName() string {
	return "data_sync_logs"
}
