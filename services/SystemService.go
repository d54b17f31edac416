package services

import (
	"runtime"
	"sync/atomic"
	"time"

	"istock.com/db"
	"istock.com/dto"
)

const ServiceName = "istock-api"

var (
	startedAt     = time.Now()
	totalRequests atomic.Int64
	totalErrors   atomic.Int64
)

func RecordRequest(status int) {
	totalRequests.Add(1)
	if status >= 500 {
		totalErrors.Add(1)
	}
}

func Health(version string) dto.HealthResponse {
	h := dto.HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: now(),
		Version:   version,
		Database:  "connected",
	}
	if !db.Ping(db.DB) {
		h.Status = "degraded"
		h.Database = "disconnected"
	}
	return h
}

func SystemStatus(version string, manager *DataSourceManager) dto.SystemStatus {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	uptime := time.Since(startedAt).Truncate(time.Second)

	st := dto.SystemStatus{
		Status:        "running",
		Version:       version,
		Uptime:        uptime.String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Runtime: dto.RuntimeStatus{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
			HeapAllocMB:  mem.HeapAlloc / 1024 / 1024,
			SysMB:        mem.Sys / 1024 / 1024,
		},
		API: dto.APIStatus{
			TotalRequests: totalRequests.Load(),
			ErrorCount:    totalErrors.Load(),
		},
		Timestamp: now(),
	}

	st.Database.Connected = db.Ping(db.DB)
	if st.Database.Connected {
		st.Database.Tables = map[string]int64{}
		for _, table := range db.Tables() {
			var n int64
			if err := db.DB.Table(table).Count(&n).Error; err == nil {
				st.Database.Tables[table] = n
			}
		}
	} else {
		st.Status = "degraded"
	}

	if manager != nil && st.Database.Connected {
		if p, err := manager.Primary(); err == nil {
			st.PrimaryDataSource = p.Name
		}
	}
	return st
}
