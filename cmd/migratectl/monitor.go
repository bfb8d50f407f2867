package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"schema-migration-service/internal/usecase"
)

// performanceCmd はマイグレーションを実行しつつ性能指標を採取するコマンド。
func performanceCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "migrate:performance",
		Short: "Apply pending migrations while collecting performance metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, db, err := newService()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("accessing connection pool: %w", err)
			}

			ctx := context.Background()
			monitor := usecase.NewMonitor(sqlDB, interval)
			monitor.Start(ctx)

			applied, migrateErr := service.Migrate(ctx)
			report := monitor.Stop()

			printApplied(applied)
			fmt.Println()
			printReport(report)

			if migrateErr != nil {
				return fmt.Errorf("migration failed: %w", migrateErr)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Sampling interval")
	return cmd
}

// monitorCmd はランタイム指標を一定時間採取するコマンド。
func monitorCmd() *cobra.Command {
	var duration time.Duration
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "migrate:monitor",
		Short: "Sample runtime and connection pool metrics for a fixed duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("accessing connection pool: %w", err)
			}

			ctx := context.Background()
			monitor := usecase.NewMonitor(sqlDB, interval)
			monitor.Start(ctx)
			time.Sleep(duration)
			report := monitor.Stop()

			printReport(report)
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "How long to sample")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Sampling interval")
	return cmd
}

func printReport(report usecase.MonitorReport) {
	fmt.Printf("Monitoring report (%s, %d samples)\n", report.Duration.Round(time.Millisecond), len(report.Samples))
	fmt.Printf("  peak goroutines:       %d\n", report.PeakGoroutines)
	fmt.Printf("  peak heap alloc:       %.2f MiB\n", float64(report.PeakHeapBytes)/(1024*1024))
	fmt.Printf("  peak connections used: %d\n", report.PeakInUse)
}
