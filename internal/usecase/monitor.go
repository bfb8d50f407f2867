package usecase

import (
	"context"
	"database/sql"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// Sample はモニタが採取した1時点の実行時指標。
type Sample struct {
	Time            time.Time `json:"time"`
	Goroutines      int       `json:"goroutines"`
	HeapAllocBytes  uint64    `json:"heap_alloc_bytes"`
	HeapObjects     uint64    `json:"heap_objects"`
	OpenConnections int       `json:"open_connections"`
	InUse           int       `json:"in_use"`
	Idle            int       `json:"idle"`
	WaitCount       int64     `json:"wait_count"`
}

// MonitorReport は採取済みサンプルの集計。
type MonitorReport struct {
	Samples        []Sample      `json:"samples"`
	Duration       time.Duration `json:"duration"`
	PeakGoroutines int           `json:"peak_goroutines"`
	PeakHeapBytes  uint64        `json:"peak_heap_bytes"`
	PeakInUse      int           `json:"peak_in_use"`
}

// Monitor はマイグレーション実行中のランタイムと接続プールを定期採取する。
type Monitor struct {
	sqlDB    *sql.DB
	interval time.Duration

	mu      sync.Mutex
	samples []Sample
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewMonitor は新しいMonitorを生成する。intervalが0以下なら1秒になる。
func NewMonitor(sqlDB *sql.DB, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{sqlDB: sqlDB, interval: interval}
}

// Start はバックグラウンドで採取を開始する。二重起動は無視する。
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.started = time.Now()
	m.samples = nil

	go m.run(ctx)
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.collect(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collect(ctx)
		}
	}
}

func (m *Monitor) collect(ctx context.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	sample := Sample{
		Time:           time.Now(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		HeapObjects:    mem.HeapObjects,
	}
	if m.sqlDB != nil {
		stats := m.sqlDB.Stats()
		sample.OpenConnections = stats.OpenConnections
		sample.InUse = stats.InUse
		sample.Idle = stats.Idle
		sample.WaitCount = stats.WaitCount
	}

	m.mu.Lock()
	m.samples = append(m.samples, sample)
	m.mu.Unlock()

	slog.DebugContext(ctx, "runtime sample",
		"operation", "monitor",
		"goroutines", sample.Goroutines,
		"heap_alloc_bytes", sample.HeapAllocBytes,
		"pool_in_use", sample.InUse,
	)
}

// Stop は採取を停止し、集計レポートを返す。
func (m *Monitor) Stop() MonitorReport {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return m.Report()
}

// Report は現時点までのサンプルの集計を返す。
func (m *Monitor) Report() MonitorReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := MonitorReport{
		Samples: append([]Sample(nil), m.samples...),
	}
	if !m.started.IsZero() {
		report.Duration = time.Since(m.started)
	}
	for _, s := range m.samples {
		if s.Goroutines > report.PeakGoroutines {
			report.PeakGoroutines = s.Goroutines
		}
		if s.HeapAllocBytes > report.PeakHeapBytes {
			report.PeakHeapBytes = s.HeapAllocBytes
		}
		if s.InUse > report.PeakInUse {
			report.PeakInUse = s.InUse
		}
	}
	return report
}
