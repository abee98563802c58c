package database

import (
	"context"
	"time"
)

// HealthStatus reports pool connectivity and connection statistics for the
// ops health endpoint.
type HealthStatus struct {
	Status          string        `json:"status"`
	ResponseTime    int64         `json:"response_time_ms"`
	TotalConns      int32         `json:"total_conns"`
	AcquiredConns   int32         `json:"acquired_conns"`
	IdleConns       int32         `json:"idle_conns"`
	MaxConns        int32         `json:"max_conns"`
	NewConnsCount   int64         `json:"new_conns_count"`
	AcquireCount    int64         `json:"acquire_count"`
}

// Health pings the pool and reports its current statistics.
func (p *Pool) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()

	if err := p.Ping(ctx); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start).Milliseconds()}, err
	}

	stat := p.Stat()
	return &HealthStatus{
		Status:        "healthy",
		ResponseTime:  time.Since(start).Milliseconds(),
		TotalConns:    stat.TotalConns(),
		AcquiredConns: stat.AcquiredConns(),
		IdleConns:     stat.IdleConns(),
		MaxConns:      stat.MaxConns(),
		NewConnsCount: stat.NewConnsCount(),
		AcquireCount:  stat.AcquireCount(),
	}, nil
}
