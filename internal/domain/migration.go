// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import "time"

// MigrationStatus はマイグレーションの適用状態を表す。
type MigrationStatus string

const (
	MigrationStatusPending MigrationStatus = "pending"
	MigrationStatusApplied MigrationStatus = "applied"
)

// Migration はデータベースマイグレーションを表すドメインモデル。
type Migration struct {
	Name       string          // マイグレーション名（例: "2026_01_15_000001_create_users_table"）
	Batch      int             // 適用時のバッチ番号（未適用の場合は0）
	ExecutedAt *time.Time      // 適用日時（未適用の場合はnil）
	Status     MigrationStatus // 適用状態
}

// AppliedMigration は1回のマイグレーション実行の結果を表す。
type AppliedMigration struct {
	Name     string
	Batch    int
	Duration time.Duration
}

// PlannedMigration はドライラン時に発行予定のSQLを保持する。
type PlannedMigration struct {
	Name       string
	Statements []string
}
