// Package repository はマイグレーション履歴のデータアクセスを提供する。
package repository

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"schema-migration-service/internal/domain"
)

// MigrationModel はmigrationsテーブルのモデル。
// バッチ番号は同時に適用されたマイグレーション群をロールバック単位としてまとめる。
type MigrationModel struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Migration  string    `gorm:"column:migration;size:255;not null;uniqueIndex"`
	Batch      int       `gorm:"column:batch;not null"`
	ExecutedAt time.Time `gorm:"column:executed_at;not null;autoCreateTime"`
}

// TableName はテーブル名を指定。
func (MigrationModel) TableName() string {
	return "migrations"
}

// MigrationRepository はマイグレーション履歴を管理するリポジトリ。
type MigrationRepository struct {
	db *gorm.DB
}

// NewMigrationRepository は新しいMigrationRepositoryを生成する。
func NewMigrationRepository(db *gorm.DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

// EnsureTable はmigrationsテーブルが無ければ作成する。
func (r *MigrationRepository) EnsureTable(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&MigrationModel{}); err != nil {
		slog.ErrorContext(ctx, "failed to ensure migrations table",
			"operation", "ensure_table",
			"error", err,
		)
		return err
	}
	return nil
}

// FindAll は適用済みマイグレーション一覧を実行順（バッチ、ID昇順）で取得する。
func (r *MigrationRepository) FindAll(ctx context.Context) ([]*domain.Migration, error) {
	var models []MigrationModel
	if err := r.db.WithContext(ctx).Order("batch ASC, id ASC").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to find applied migrations",
			"operation", "find_all",
			"error", err,
		)
		return nil, err
	}

	migrations := make([]*domain.Migration, len(models))
	for i, model := range models {
		executedAt := model.ExecutedAt
		migrations[i] = &domain.Migration{
			Name:       model.Migration,
			Batch:      model.Batch,
			ExecutedAt: &executedAt,
			Status:     domain.MigrationStatusApplied,
		}
	}
	return migrations, nil
}

// RanBatches は適用済みマイグレーション名→バッチ番号のマップを取得する。
func (r *MigrationRepository) RanBatches(ctx context.Context) (map[string]int, error) {
	var models []MigrationModel
	if err := r.db.WithContext(ctx).Select("migration", "batch").Find(&models).Error; err != nil {
		slog.ErrorContext(ctx, "failed to load ran migrations",
			"operation", "ran_batches",
			"error", err,
		)
		return nil, err
	}
	ran := make(map[string]int, len(models))
	for _, model := range models {
		ran[model.Migration] = model.Batch
	}
	return ran, nil
}

// NextBatch は次のバッチ番号（MAX(batch)+1）を取得する。
func (r *MigrationRepository) NextBatch(ctx context.Context) (int, error) {
	var batch int
	err := r.db.WithContext(ctx).
		Model(&MigrationModel{}).
		Select("COALESCE(MAX(batch), 0) + 1").
		Scan(&batch).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to compute next batch number",
			"operation", "next_batch",
			"error", err,
		)
		return 0, err
	}
	return batch, nil
}

// Record はマイグレーション適用履歴を記録する。
// 呼び出し元のトランザクション内で実行するため、実行用のdbを受け取る。
func (r *MigrationRepository) Record(ctx context.Context, db *gorm.DB, name string, batch int) error {
	model := &MigrationModel{Migration: name, Batch: batch}
	if err := db.WithContext(ctx).Create(model).Error; err != nil {
		slog.ErrorContext(ctx, "failed to record migration",
			"operation", "record",
			"migration", name,
			"batch", batch,
			"error", err,
		)
		return err
	}
	return nil
}

// Remove はマイグレーション適用履歴を削除する。
// 呼び出し元のトランザクション内で実行するため、実行用のdbを受け取る。
func (r *MigrationRepository) Remove(ctx context.Context, db *gorm.DB, name string) error {
	if err := db.WithContext(ctx).Where("migration = ?", name).Delete(&MigrationModel{}).Error; err != nil {
		slog.ErrorContext(ctx, "failed to remove migration record",
			"operation", "remove",
			"migration", name,
			"error", err,
		)
		return err
	}
	return nil
}

// LastBatches は新しい順にバッチ番号を最大steps件取得する。
func (r *MigrationRepository) LastBatches(ctx context.Context, steps int) ([]int, error) {
	var batches []int
	err := r.db.WithContext(ctx).
		Model(&MigrationModel{}).
		Distinct("batch").
		Order("batch DESC").
		Limit(steps).
		Pluck("batch", &batches).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to load last batches",
			"operation", "last_batches",
			"error", err,
		)
		return nil, err
	}
	return batches, nil
}

// Batches は全バッチ番号を新しい順に取得する。
func (r *MigrationRepository) Batches(ctx context.Context) ([]int, error) {
	var batches []int
	err := r.db.WithContext(ctx).
		Model(&MigrationModel{}).
		Distinct("batch").
		Order("batch DESC").
		Pluck("batch", &batches).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to load batches",
			"operation", "batches",
			"error", err,
		)
		return nil, err
	}
	return batches, nil
}

// InBatch は指定バッチのマイグレーション名を実行順（ID昇順）で取得する。
// ロールバック時は呼び出し元がこれを逆順に処理する。
func (r *MigrationRepository) InBatch(ctx context.Context, batch int) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&MigrationModel{}).
		Where("batch = ?", batch).
		Order("id ASC").
		Pluck("migration", &names).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to load batch members",
			"operation", "in_batch",
			"batch", batch,
			"error", err,
		)
		return nil, err
	}
	return names, nil
}
