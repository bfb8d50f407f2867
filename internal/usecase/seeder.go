package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"gorm.io/gorm"

	"schema-migration-service/internal/schema"
)

// SeedFunc は1つのシーダーの実体。
type SeedFunc func(ctx context.Context, db *gorm.DB) error

// Seeder は名前付きシーダーを登録・実行する。
type Seeder struct {
	db *gorm.DB

	mu    sync.RWMutex
	seeds map[string]SeedFunc
}

// NewSeeder は新しいSeederを生成する。
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, seeds: make(map[string]SeedFunc)}
}

// Register はシーダーを登録する。同名の再登録は上書きになる。
func (s *Seeder) Register(name string, fn SeedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds[name] = fn
}

// Names は登録済みシーダー名を名前順で返す。
func (s *Seeder) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.seeds))
	for name := range s.seeds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run は指定シーダーを実行する。namesが空なら全シーダーを名前順に実行する。
// 各シーダーは独立したトランザクションで実行される。
func (s *Seeder) Run(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = s.Names()
	}
	for _, name := range names {
		s.mu.RLock()
		fn, ok := s.seeds[name]
		s.mu.RUnlock()
		if !ok {
			return fmt.Errorf("seeder not registered: %s", name)
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, tx)
		})
		if err != nil {
			slog.ErrorContext(ctx, "seeder failed",
				"operation", "seed",
				"seeder", name,
				"error", err,
			)
			return fmt.Errorf("running seeder %s: %w", name, err)
		}
		slog.InfoContext(ctx, "seeded", "operation", "seed", "seeder", name)
	}
	return nil
}

// Wipe は履歴テーブル以外の全テーブルの行を削除する。テーブル自体は残る。
func (s *Seeder) Wipe(ctx context.Context) error {
	tables, err := s.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return fmt.Errorf("listing tables: %w", err)
	}

	builder, err := schema.NewBuilder(s.db)
	if err != nil {
		return err
	}
	if err := builder.DisableForeignKeyChecks(ctx); err != nil {
		return fmt.Errorf("disabling foreign key checks: %w", err)
	}
	for _, table := range tables {
		if table == "migrations" {
			continue
		}
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("wiping table %s: %w", table, err)
		}
	}
	if err := builder.EnableForeignKeyChecks(ctx); err != nil {
		return fmt.Errorf("enabling foreign key checks: %w", err)
	}
	slog.InfoContext(ctx, "wiped all tables", "operation", "wipe", "tables", len(tables))
	return nil
}
