package usecase

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func setupSeededDB(t *testing.T) *gorm.DB {
	t.Helper()

	db := setupTestDB(t)
	if err := db.Exec("CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)").Error; err != nil {
		t.Fatalf("preparing schema: %v", err)
	}
	if err := db.Exec("CREATE TABLE migrations (id INTEGER PRIMARY KEY, migration TEXT)").Error; err != nil {
		t.Fatalf("preparing schema: %v", err)
	}
	return db
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	if err := db.Table(table).Count(&count).Error; err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return count
}

func TestSeeder_RunAll(t *testing.T) {
	db := setupSeededDB(t)
	seeder := NewSeeder(db)
	seeder.Register("users", func(ctx context.Context, tx *gorm.DB) error {
		return tx.Exec("INSERT INTO users (name) VALUES ('alice')").Error
	})

	if err := seeder.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := countRows(t, db, "users"); got != 1 {
		t.Errorf("expected 1 user, got %d", got)
	}
}

func TestSeeder_RunNamed(t *testing.T) {
	db := setupSeededDB(t)
	seeder := NewSeeder(db)
	ran := []string{}
	for _, name := range []string{"users", "posts"} {
		name := name
		seeder.Register(name, func(ctx context.Context, tx *gorm.DB) error {
			ran = append(ran, name)
			return nil
		})
	}

	if err := seeder.Run(context.Background(), "posts"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ran) != 1 || ran[0] != "posts" {
		t.Errorf("expected only posts to run, got %v", ran)
	}

	if err := seeder.Run(context.Background(), "missing"); err == nil {
		t.Error("running an unregistered seeder should fail")
	}
}

func TestSeeder_FailureRollsBack(t *testing.T) {
	db := setupSeededDB(t)
	seeder := NewSeeder(db)
	seeder.Register("users", func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO users (name) VALUES ('alice')").Error; err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})

	if err := seeder.Run(context.Background()); err == nil {
		t.Fatal("expected seeder failure")
	}
	if got := countRows(t, db, "users"); got != 0 {
		t.Errorf("failed seeder should roll back, found %d rows", got)
	}
}

func TestSeeder_WipeKeepsHistory(t *testing.T) {
	db := setupSeededDB(t)
	if err := db.Exec("INSERT INTO users (name) VALUES ('alice')").Error; err != nil {
		t.Fatalf("seeding users: %v", err)
	}
	if err := db.Exec("INSERT INTO migrations (migration) VALUES ('2025_01_01_000000_create_users_table')").Error; err != nil {
		t.Fatalf("seeding history: %v", err)
	}

	if err := NewSeeder(db).Wipe(context.Background()); err != nil {
		t.Fatalf("Wipe failed: %v", err)
	}
	if got := countRows(t, db, "users"); got != 0 {
		t.Errorf("users should be wiped, found %d rows", got)
	}
	if got := countRows(t, db, "migrations"); got != 1 {
		t.Errorf("migration history must survive a wipe, found %d rows", got)
	}
}

func TestSeeder_Names(t *testing.T) {
	seeder := NewSeeder(nil)
	seeder.Register("users", nil)
	seeder.Register("posts", nil)

	names := seeder.Names()
	if len(names) != 2 || names[0] != "posts" || names[1] != "users" {
		t.Errorf("expected sorted [posts users], got %v", names)
	}
}
