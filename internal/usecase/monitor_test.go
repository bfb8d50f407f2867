package usecase

import (
	"context"
	"testing"
	"time"
)

func TestMonitor_CollectsSamples(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("obtaining sql.DB: %v", err)
	}

	monitor := NewMonitor(sqlDB, 10*time.Millisecond)
	monitor.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	report := monitor.Stop()

	if len(report.Samples) == 0 {
		t.Fatal("expected at least one sample")
	}
	if report.PeakGoroutines == 0 {
		t.Error("peak goroutine count should be positive")
	}
	if report.PeakHeapBytes == 0 {
		t.Error("peak heap bytes should be positive")
	}
	if report.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

func TestMonitor_DoubleStartIgnored(t *testing.T) {
	monitor := NewMonitor(nil, 10*time.Millisecond)
	monitor.Start(context.Background())
	monitor.Start(context.Background())
	report := monitor.Stop()

	if len(report.Samples) == 0 {
		t.Error("expected the first start to collect samples")
	}
}

func TestMonitor_StopWithoutStart(t *testing.T) {
	monitor := NewMonitor(nil, time.Second)
	report := monitor.Stop()
	if len(report.Samples) != 0 {
		t.Errorf("expected no samples, got %d", len(report.Samples))
	}
}
