package dto

import "time"

type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
}

type RuntimeStatus struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	HeapAllocMB  uint64 `json:"heap_alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
}

type DatabaseStatus struct {
	Connected bool             `json:"connected"`
	Tables    map[string]int64 `json:"tables"`
}

type APIStatus struct {
	TotalRequests int64 `json:"total_requests"`
	ErrorCount    int64 `json:"error_count"`
}

type SystemStatus struct {
	Status            string         `json:"status"`
	Version           string         `json:"version"`
	Uptime            string         `json:"uptime"`
	UptimeSeconds     int64          `json:"uptime_seconds"`
	Runtime           RuntimeStatus  `json:"runtime"`
	Database          DatabaseStatus `json:"database"`
	API               APIStatus      `json:"api"`
	PrimaryDataSource string         `json:"primary_data_source,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
}

type SyncFinishedEvent struct {
	TaskID         string    `json:"task_id"`
	DataSourceID   uint      `json:"data_source_id"`
	SyncType       string    `json:"sync_type"`
	Status         string    `json:"status"`
	RecordsFetched int       `json:"records_fetched"`
	FinishedAt     time.Time `json:"finished_at"`
}
