// Package main はマイグレーションCLIのエントリポイント。
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"schema-migration-service/config"
	"schema-migration-service/internal/infra"

	// initによるマイグレーション登録
	_ "schema-migration-service/database/migrations"
)

const version = "1.0.0"

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:   "migratectl",
		Short: "Schema Migration Service CLI",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .envファイルを読み込む（存在しない場合は無視）
			_ = godotenv.Load()
			cfg = config.Load()
			infra.SetupLogger(cfg, infra.LogLevel(cfg))
		},
	}

	// サブコマンド登録
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(rollbackCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(freshCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(smartCmd())
	rootCmd.AddCommand(dryRunCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(squashCmd())
	rootCmd.AddCommand(makeMigrationCmd())
	rootCmd.AddCommand(templateCmd())
	rootCmd.AddCommand(timestampCmd())
	rootCmd.AddCommand(performanceCmd())
	rootCmd.AddCommand(monitorCmd())
	rootCmd.AddCommand(diffCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(compareCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(wipeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("migratectl version %s\n", version)
		},
	}
}
