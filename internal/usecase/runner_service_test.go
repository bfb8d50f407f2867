package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"schema-migration-service/internal/domain"
	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/repository"
	"schema-migration-service/internal/schema"
)

// setupTestDB はテスト用のインメモリSQLiteデータベースを作成する。
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

// testMigration はテスト用のマイグレーション実装。
type testMigration struct {
	migration.Base
	up   func(ctx context.Context, b *schema.Builder) error
	down func(ctx context.Context, b *schema.Builder) error
	deps []string
}

func (m *testMigration) Up(ctx context.Context, b *schema.Builder) error {
	if m.up == nil {
		return nil
	}
	return m.up(ctx, b)
}

func (m *testMigration) Down(ctx context.Context, b *schema.Builder) error {
	if m.down == nil {
		return nil
	}
	return m.down(ctx, b)
}

func (m *testMigration) Dependencies() []string {
	return m.deps
}

// createTableMigration はテーブルを1つ作成するマイグレーションを生成する。
func createTableMigration(name, table string) *testMigration {
	return &testMigration{
		Base: migration.NewBase(name),
		up: func(ctx context.Context, b *schema.Builder) error {
			return b.Create(ctx, table, func(t *schema.Blueprint) {
				t.ID()
				t.String("name")
			})
		},
		down: func(ctx context.Context, b *schema.Builder) error {
			return b.DropIfExists(ctx, table)
		},
	}
}

func setupService(t *testing.T, migrations ...migration.Migration) (*MigrationService, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	registry := migration.NewRegistry()
	for _, m := range migrations {
		if err := registry.Register(m); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	repo := repository.NewMigrationRepository(db)
	return NewMigrationService(repo, db, registry), db
}

func tableExists(t *testing.T, db *gorm.DB, table string) bool {
	t.Helper()
	return db.Migrator().HasTable(table)
}

func TestMigrationService_Migrate(t *testing.T) {
	ctx := context.Background()
	service, db := setupService(t,
		createTableMigration("2025_01_01_000000_create_users_table", "users"),
		createTableMigration("2025_01_02_000000_create_posts_table", "posts"),
	)

	applied, err := service.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", len(applied))
	}
	for _, m := range applied {
		if m.Batch != 1 {
			t.Errorf("expected batch 1, got %d for %s", m.Batch, m.Name)
		}
	}
	if !tableExists(t, db, "users") || !tableExists(t, db, "posts") {
		t.Error("expected users and posts tables to exist")
	}

	// 再実行しても何も適用されない
	applied, err = service.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected no migrations on second run, got %d", len(applied))
	}
}

func TestMigrationService_MigrateBatchNumbers(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := migration.NewRegistry()
	repo := repository.NewMigrationRepository(db)
	service := NewMigrationService(repo, db, registry)

	registry.Register(createTableMigration("2025_01_01_000000_create_users_table", "users"))
	if _, err := service.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate failed: %v", err)
	}

	registry.Register(createTableMigration("2025_01_02_000000_create_posts_table", "posts"))
	applied, err := service.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if len(applied) != 1 || applied[0].Batch != 2 {
		t.Fatalf("expected posts in batch 2, got %+v", applied)
	}
}

func TestMigrationService_FailureAbortsBatch(t *testing.T) {
	ctx := context.Background()
	failing := &testMigration{
		Base: migration.NewBase("2025_01_02_000000_create_broken_table"),
		up: func(ctx context.Context, b *schema.Builder) error {
			return fmt.Errorf("boom")
		},
	}
	service, db := setupService(t,
		createTableMigration("2025_01_01_000000_create_users_table", "users"),
		failing,
		createTableMigration("2025_01_03_000000_create_posts_table", "posts"),
	)

	applied, err := service.Migrate(ctx)
	if !errors.Is(err, domain.ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied migration before failure, got %d", len(applied))
	}
	if !tableExists(t, db, "users") {
		t.Error("users should remain applied")
	}
	if tableExists(t, db, "posts") {
		t.Error("posts should not be applied after the batch aborts")
	}

	status, err := service.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	applied2 := 0
	for _, m := range status {
		if m.Status == domain.MigrationStatusApplied {
			applied2++
		}
	}
	if applied2 != 1 {
		t.Errorf("expected 1 applied in history, got %d", applied2)
	}
}

func TestMigrationService_RollbackLastBatch(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := migration.NewRegistry()
	repo := repository.NewMigrationRepository(db)
	service := NewMigrationService(repo, db, registry)

	registry.Register(createTableMigration("2025_01_01_000000_create_users_table", "users"))
	if _, err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	registry.Register(createTableMigration("2025_01_02_000000_create_posts_table", "posts"))
	if _, err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	rolledBack, err := service.Rollback(ctx, 1)
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if len(rolledBack) != 1 || rolledBack[0] != "2025_01_02_000000_create_posts_table" {
		t.Fatalf("expected posts rollback, got %v", rolledBack)
	}
	if tableExists(t, db, "posts") {
		t.Error("posts table should be dropped")
	}
	if !tableExists(t, db, "users") {
		t.Error("users table should remain")
	}
}

func TestMigrationService_RollbackReversesBatchOrder(t *testing.T) {
	ctx := context.Background()
	var order []string
	mk := func(name string) *testMigration {
		return &testMigration{
			Base: migration.NewBase(name),
			down: func(ctx context.Context, b *schema.Builder) error {
				order = append(order, name)
				return nil
			},
		}
	}
	service, _ := setupService(t,
		mk("2025_01_01_000000_first"),
		mk("2025_01_02_000000_second"),
	)

	if _, err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if _, err := service.Rollback(ctx, 1); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if len(order) != 2 || order[0] != "2025_01_02_000000_second" || order[1] != "2025_01_01_000000_first" {
		t.Errorf("expected reverse execution order, got %v", order)
	}
}

func TestMigrationService_RollbackUnregistered(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := migration.NewRegistry()
	repo := repository.NewMigrationRepository(db)
	service := NewMigrationService(repo, db, registry)

	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}
	if err := repo.Record(ctx, db, "2025_01_01_000000_ghost", 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	_, err := service.Rollback(ctx, 1)
	if !errors.Is(err, domain.ErrMigrationNotRegistered) {
		t.Errorf("expected ErrMigrationNotRegistered, got %v", err)
	}
}

func TestMigrationService_ResetAndRefresh(t *testing.T) {
	ctx := context.Background()
	service, db := setupService(t,
		createTableMigration("2025_01_01_000000_create_users_table", "users"),
		createTableMigration("2025_01_02_000000_create_posts_table", "posts"),
	)

	if _, err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	rolledBack, err := service.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if len(rolledBack) != 2 {
		t.Fatalf("expected 2 rollbacks, got %d", len(rolledBack))
	}
	if tableExists(t, db, "users") || tableExists(t, db, "posts") {
		t.Error("all tables should be dropped after reset")
	}

	applied, err := service.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 re-applied migrations, got %d", len(applied))
	}
	if applied[0].Batch != 1 {
		t.Errorf("expected refresh to restart at batch 1, got %d", applied[0].Batch)
	}
	if !tableExists(t, db, "users") || !tableExists(t, db, "posts") {
		t.Error("tables should exist again after refresh")
	}
}

func TestMigrationService_Fresh(t *testing.T) {
	ctx := context.Background()
	service, db := setupService(t,
		createTableMigration("2025_01_01_000000_create_users_table", "users"),
	)

	// マイグレーション管理外の残骸テーブル
	if err := db.Exec("CREATE TABLE leftovers (id INTEGER PRIMARY KEY)").Error; err != nil {
		t.Fatalf("creating leftover table failed: %v", err)
	}

	applied, err := service.Fresh(ctx)
	if err != nil {
		t.Fatalf("Fresh failed: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied migration, got %d", len(applied))
	}
	if tableExists(t, db, "leftovers") {
		t.Error("leftover table should be dropped by fresh")
	}
	if !tableExists(t, db, "users") {
		t.Error("users table should be recreated by fresh")
	}
}

func TestMigrationService_FreshSkipsSQLiteInternalTables(t *testing.T) {
	ctx := context.Background()
	service, db := setupService(t,
		createTableMigration("2025_01_01_000000_create_users_table", "users"),
	)

	if _, err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	// AUTOINCREMENTテーブルへの挿入でsqlite_sequenceが作られる
	if err := db.Exec("INSERT INTO users (name) VALUES ('alice')").Error; err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	applied, err := service.Fresh(ctx)
	if err != nil {
		t.Fatalf("Fresh failed: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied migration, got %d", len(applied))
	}
	if applied[0].Batch != 1 {
		t.Errorf("expected fresh to restart at batch 1, got %d", applied[0].Batch)
	}
	if !tableExists(t, db, "users") {
		t.Fatal("users table should be recreated by fresh")
	}
	var count int64
	if err := db.Table("users").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected an empty users table after fresh, got %d rows", count)
	}
}

func TestMigrationService_Status(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	registry := migration.NewRegistry()
	repo := repository.NewMigrationRepository(db)
	service := NewMigrationService(repo, db, registry)

	registry.Register(createTableMigration("2025_01_01_000000_create_users_table", "users"))
	if _, err := service.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	registry.Register(createTableMigration("2025_01_02_000000_create_posts_table", "posts"))

	status, err := service.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(status) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(status))
	}
	if status[0].Status != domain.MigrationStatusApplied || status[0].Batch != 1 {
		t.Errorf("unexpected first entry: %+v", status[0])
	}
	if status[1].Status != domain.MigrationStatusPending {
		t.Errorf("unexpected second entry: %+v", status[1])
	}
}

func TestMigrationService_DryRun(t *testing.T) {
	ctx := context.Background()
	service, db := setupService(t,
		createTableMigration("2025_01_01_000000_create_users_table", "users"),
	)

	planned, err := service.DryRun(ctx)
	if err != nil {
		t.Fatalf("DryRun failed: %v", err)
	}
	if len(planned) != 1 {
		t.Fatalf("expected 1 planned migration, got %d", len(planned))
	}
	if len(planned[0].Statements) == 0 {
		t.Error("expected recorded statements")
	}
	if tableExists(t, db, "users") {
		t.Error("dry-run must not touch the database")
	}
}

func TestMigrationService_MigrateSmart(t *testing.T) {
	ctx := context.Background()

	// postsはusersを外部キーで参照するが、名前順ではpostsが先になる
	posts := &testMigration{
		Base: migration.NewBase("2025_01_01_000000_create_posts_table"),
		up: func(ctx context.Context, b *schema.Builder) error {
			return b.Create(ctx, "posts", func(t *schema.Blueprint) {
				t.ID()
				t.ForeignID("user_id")
				t.Foreign("user_id").References("id").On("users")
			})
		},
		down: func(ctx context.Context, b *schema.Builder) error {
			return b.DropIfExists(ctx, "posts")
		},
	}
	users := createTableMigration("2025_01_02_000000_create_users_table", "users")

	service, db := setupService(t, posts, users)

	applied, err := service.MigrateSmart(ctx)
	if err != nil {
		t.Fatalf("MigrateSmart failed: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", len(applied))
	}
	if applied[0].Name != "2025_01_02_000000_create_users_table" {
		t.Errorf("expected users to be applied first, got %s", applied[0].Name)
	}
	if !tableExists(t, db, "posts") {
		t.Error("posts table should exist")
	}
}
