package repository

import (
	"context"
	"reflect"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"schema-migration-service/internal/domain"
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

func setupRepo(t *testing.T) (*MigrationRepository, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	repo := NewMigrationRepository(db)
	if err := repo.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}
	return repo, db
}

func TestMigrationRepository_EnsureTableIdempotent(t *testing.T) {
	repo, _ := setupRepo(t)
	if err := repo.EnsureTable(context.Background()); err != nil {
		t.Fatalf("second EnsureTable failed: %v", err)
	}
}

func TestMigrationRepository_RecordAndFindAll(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	if err := repo.Record(ctx, db, "2025_01_01_000000_create_users_table", 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := repo.Record(ctx, db, "2025_01_02_000000_create_posts_table", 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	migrations, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	first := migrations[0]
	if first.Name != "2025_01_01_000000_create_users_table" {
		t.Errorf("unexpected first migration: %s", first.Name)
	}
	if first.Status != domain.MigrationStatusApplied {
		t.Errorf("expected applied status, got %s", first.Status)
	}
	if first.ExecutedAt == nil {
		t.Error("executed_at should be set")
	}
}

func TestMigrationRepository_RecordDuplicateFails(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	if err := repo.Record(ctx, db, "2025_01_01_000000_create_users_table", 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := repo.Record(ctx, db, "2025_01_01_000000_create_users_table", 2); err == nil {
		t.Error("recording the same migration twice should fail")
	}
}

func TestMigrationRepository_NextBatch(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	batch, err := repo.NextBatch(ctx)
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	if batch != 1 {
		t.Errorf("expected first batch to be 1, got %d", batch)
	}

	if err := repo.Record(ctx, db, "2025_01_01_000000_create_users_table", batch); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	batch, err = repo.NextBatch(ctx)
	if err != nil {
		t.Fatalf("NextBatch failed: %v", err)
	}
	if batch != 2 {
		t.Errorf("expected next batch to be 2, got %d", batch)
	}
}

func TestMigrationRepository_RanBatches(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	repo.Record(ctx, db, "2025_01_01_000000_create_users_table", 1)
	repo.Record(ctx, db, "2025_01_02_000000_create_posts_table", 2)

	ran, err := repo.RanBatches(ctx)
	if err != nil {
		t.Fatalf("RanBatches failed: %v", err)
	}
	want := map[string]int{
		"2025_01_01_000000_create_users_table": 1,
		"2025_01_02_000000_create_posts_table": 2,
	}
	if !reflect.DeepEqual(ran, want) {
		t.Errorf("expected %v, got %v", want, ran)
	}
}

func TestMigrationRepository_BatchQueries(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	repo.Record(ctx, db, "2025_01_01_000000_create_users_table", 1)
	repo.Record(ctx, db, "2025_01_02_000000_create_posts_table", 2)
	repo.Record(ctx, db, "2025_01_03_000000_create_tags_table", 2)

	last, err := repo.LastBatches(ctx, 1)
	if err != nil {
		t.Fatalf("LastBatches failed: %v", err)
	}
	if !reflect.DeepEqual(last, []int{2}) {
		t.Errorf("expected [2], got %v", last)
	}

	all, err := repo.Batches(ctx)
	if err != nil {
		t.Fatalf("Batches failed: %v", err)
	}
	if !reflect.DeepEqual(all, []int{2, 1}) {
		t.Errorf("expected [2 1], got %v", all)
	}

	names, err := repo.InBatch(ctx, 2)
	if err != nil {
		t.Fatalf("InBatch failed: %v", err)
	}
	want := []string{
		"2025_01_02_000000_create_posts_table",
		"2025_01_03_000000_create_tags_table",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestMigrationRepository_Remove(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepo(t)

	repo.Record(ctx, db, "2025_01_01_000000_create_users_table", 1)
	if err := repo.Remove(ctx, db, "2025_01_01_000000_create_users_table"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	migrations, err := repo.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll failed: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("expected 0 migrations after remove, got %d", len(migrations))
	}
}
