// Package usecase はマイグレーションエンジンのユースケースを実装する。
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"schema-migration-service/internal/domain"
	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

// MigrationRepository はマイグレーション履歴を管理するリポジトリのインターフェース。
type MigrationRepository interface {
	EnsureTable(ctx context.Context) error
	FindAll(ctx context.Context) ([]*domain.Migration, error)
	RanBatches(ctx context.Context) (map[string]int, error)
	NextBatch(ctx context.Context) (int, error)
	Record(ctx context.Context, db *gorm.DB, name string, batch int) error
	Remove(ctx context.Context, db *gorm.DB, name string) error
	LastBatches(ctx context.Context, steps int) ([]int, error)
	Batches(ctx context.Context) ([]int, error)
	InBatch(ctx context.Context, batch int) ([]string, error)
}

// MigrationService はマイグレーション実行のビジネスロジックを提供する。
//
// 1マイグレーションのUp/Downと履歴記録は同一トランザクション内で実行される。
// 途中で失敗した場合、バッチの残りは中断されるが、適用済み分の
// 補償ロールバックは行わない（履歴とスキーマは適用済み分まで進んだ状態で残る）。
type MigrationService struct {
	repo     MigrationRepository
	db       *gorm.DB
	registry *migration.Registry
	resolver *DependencyResolver
	tracer   trace.Tracer
}

// NewMigrationService は新しいMigrationServiceを生成する。
func NewMigrationService(repo MigrationRepository, db *gorm.DB, registry *migration.Registry) *MigrationService {
	return &MigrationService{
		repo:     repo,
		db:       db,
		registry: registry,
		resolver: NewDependencyResolver(),
		tracer:   otel.Tracer("schema-migration-service/migrator"),
	}
}

// Pending は未適用マイグレーションを名前順（タイムスタンプ順）で返す。
func (s *MigrationService) Pending(ctx context.Context) ([]migration.Migration, error) {
	if err := s.repo.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring migrations table: %w", err)
	}
	ran, err := s.repo.RanBatches(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ran migrations: %w", err)
	}
	var pending []migration.Migration
	for _, m := range s.registry.All() {
		if _, applied := ran[m.Name()]; !applied {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Migrate は未適用マイグレーションを名前順に適用する。
func (s *MigrationService) Migrate(ctx context.Context) ([]domain.AppliedMigration, error) {
	pending, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, pending)
}

// MigrateSmart は依存関係を解決した順序で未適用マイグレーションを適用する。
func (s *MigrationService) MigrateSmart(ctx context.Context) ([]domain.AppliedMigration, error) {
	pending, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}
	ordered, err := s.resolver.Resolve(ctx, pending, s.dialect())
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, ordered)
}

func (s *MigrationService) apply(ctx context.Context, pending []migration.Migration) ([]domain.AppliedMigration, error) {
	if len(pending) == 0 {
		return nil, nil
	}

	batch, err := s.repo.NextBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("computing next batch: %w", err)
	}

	runID := uuid.New().String()
	slog.InfoContext(ctx, "starting migration batch",
		"operation", "migrate",
		"run_id", runID,
		"batch", batch,
		"pending", len(pending),
	)

	var applied []domain.AppliedMigration
	for _, m := range pending {
		start := time.Now()
		if err := s.runUp(ctx, m, batch); err != nil {
			// 失敗したマイグレーション以降はバッチごと中断する。
			// 適用済み分の履歴は残る。
			slog.ErrorContext(ctx, "migration failed, aborting remaining batch",
				"operation", "migrate",
				"run_id", runID,
				"migration", m.Name(),
				"batch", batch,
				"applied", len(applied),
				"error", err,
			)
			return applied, fmt.Errorf("%w: %s: %v", domain.ErrMigrationFailed, m.Name(), err)
		}
		duration := time.Since(start)
		applied = append(applied, domain.AppliedMigration{Name: m.Name(), Batch: batch, Duration: duration})
		slog.InfoContext(ctx, "migrated",
			"operation", "migrate",
			"run_id", runID,
			"migration", m.Name(),
			"batch", batch,
			"duration_ms", duration.Milliseconds(),
		)
	}
	return applied, nil
}

func (s *MigrationService) runUp(ctx context.Context, m migration.Migration, batch int) error {
	ctx, span := s.tracer.Start(ctx, "migration.up",
		trace.WithAttributes(
			attribute.String("migration.name", m.Name()),
			attribute.Int("migration.batch", batch),
		),
	)
	defer span.End()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		builder, err := schema.NewBuilder(tx)
		if err != nil {
			return err
		}
		if err := m.Up(ctx, builder); err != nil {
			return err
		}
		return s.repo.Record(ctx, tx, m.Name(), batch)
	})
}

// Rollback は直近steps個のバッチを、各バッチ内を実行と逆順に取り消す。
func (s *MigrationService) Rollback(ctx context.Context, steps int) ([]string, error) {
	if steps <= 0 {
		steps = 1
	}
	if err := s.repo.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring migrations table: %w", err)
	}
	batches, err := s.repo.LastBatches(ctx, steps)
	if err != nil {
		return nil, fmt.Errorf("loading last batches: %w", err)
	}
	return s.rollbackBatches(ctx, batches)
}

// Reset は全バッチをロールバックする。
func (s *MigrationService) Reset(ctx context.Context) ([]string, error) {
	if err := s.repo.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring migrations table: %w", err)
	}
	batches, err := s.repo.Batches(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading batches: %w", err)
	}
	return s.rollbackBatches(ctx, batches)
}

func (s *MigrationService) rollbackBatches(ctx context.Context, batches []int) ([]string, error) {
	var rolledBack []string
	for _, batch := range batches {
		names, err := s.repo.InBatch(ctx, batch)
		if err != nil {
			return rolledBack, fmt.Errorf("loading batch %d: %w", batch, err)
		}
		// バッチ内は実行と逆順に処理する
		for i := len(names) - 1; i >= 0; i-- {
			name := names[i]
			m, ok := s.registry.Get(name)
			if !ok {
				return rolledBack, fmt.Errorf("%w: %s", domain.ErrMigrationNotRegistered, name)
			}
			if err := s.runDown(ctx, m, batch); err != nil {
				slog.ErrorContext(ctx, "rollback failed, aborting",
					"operation", "rollback",
					"migration", name,
					"batch", batch,
					"error", err,
				)
				return rolledBack, fmt.Errorf("%w: %s: %v", domain.ErrRollbackFailed, name, err)
			}
			rolledBack = append(rolledBack, name)
			slog.InfoContext(ctx, "rolled back",
				"operation", "rollback",
				"migration", name,
				"batch", batch,
			)
		}
	}
	return rolledBack, nil
}

func (s *MigrationService) runDown(ctx context.Context, m migration.Migration, batch int) error {
	ctx, span := s.tracer.Start(ctx, "migration.down",
		trace.WithAttributes(
			attribute.String("migration.name", m.Name()),
			attribute.Int("migration.batch", batch),
		),
	)
	defer span.End()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		builder, err := schema.NewBuilder(tx)
		if err != nil {
			return err
		}
		if err := m.Down(ctx, builder); err != nil {
			return err
		}
		return s.repo.Remove(ctx, tx, m.Name())
	})
}

// Refresh は全ロールバック後に再適用する（reset + migrate）。
func (s *MigrationService) Refresh(ctx context.Context) ([]domain.AppliedMigration, error) {
	if _, err := s.Reset(ctx); err != nil {
		return nil, err
	}
	return s.Migrate(ctx)
}

// Fresh は全テーブルを破棄してから全マイグレーションを適用する。
// ロールバック定義には依存しないため、Downが壊れていても再構築できる。
func (s *MigrationService) Fresh(ctx context.Context) ([]domain.AppliedMigration, error) {
	tables, err := s.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	builder, err := schema.NewBuilder(s.db)
	if err != nil {
		return nil, err
	}
	if err := builder.DisableForeignKeyChecks(ctx); err != nil {
		return nil, fmt.Errorf("disabling foreign key checks: %w", err)
	}
	dropped := 0
	for _, table := range tables {
		// sqlite_sequence等のSQLite内部テーブルはDROPできない
		if strings.HasPrefix(table, "sqlite_") {
			continue
		}
		if err := builder.DropIfExists(ctx, table); err != nil {
			return nil, fmt.Errorf("dropping table %s: %w", table, err)
		}
		dropped++
	}
	if err := builder.EnableForeignKeyChecks(ctx); err != nil {
		return nil, fmt.Errorf("enabling foreign key checks: %w", err)
	}

	slog.InfoContext(ctx, "dropped all tables",
		"operation", "fresh",
		"tables", dropped,
	)
	return s.Migrate(ctx)
}

// Status は登録済み・適用済みを突き合わせた一覧を返す。
func (s *MigrationService) Status(ctx context.Context) ([]*domain.Migration, error) {
	if err := s.repo.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensuring migrations table: %w", err)
	}
	appliedList, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading applied migrations: %w", err)
	}
	appliedMap := make(map[string]*domain.Migration, len(appliedList))
	for _, m := range appliedList {
		appliedMap[m.Name] = m
	}

	var result []*domain.Migration
	for _, m := range s.registry.All() {
		entry := &domain.Migration{Name: m.Name(), Status: domain.MigrationStatusPending}
		if applied, ok := appliedMap[m.Name()]; ok {
			entry.Status = domain.MigrationStatusApplied
			entry.Batch = applied.Batch
			entry.ExecutedAt = applied.ExecutedAt
			delete(appliedMap, m.Name())
		}
		result = append(result, entry)
	}
	// 履歴にはあるがレジストリに無いもの（ファイル削除済みなど）も可視化する
	for _, applied := range appliedList {
		if _, ok := appliedMap[applied.Name]; ok {
			result = append(result, applied)
		}
	}
	return result, nil
}

// DryRun は未適用マイグレーションごとに発行予定のSQLを返す。実際には適用しない。
func (s *MigrationService) DryRun(ctx context.Context) ([]domain.PlannedMigration, error) {
	pending, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}
	var planned []domain.PlannedMigration
	for _, m := range pending {
		builder, err := schema.NewDryRunBuilder(s.dialect())
		if err != nil {
			return nil, err
		}
		if err := m.Up(ctx, builder); err != nil {
			return nil, fmt.Errorf("previewing %s: %w", m.Name(), err)
		}
		planned = append(planned, domain.PlannedMigration{
			Name:       m.Name(),
			Statements: builder.Statements(),
		})
	}
	return planned, nil
}

func (s *MigrationService) dialect() string {
	return s.db.Dialector.Name()
}
