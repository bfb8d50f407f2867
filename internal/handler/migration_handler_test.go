package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/repository"
	"schema-migration-service/internal/schema"
	"schema-migration-service/internal/usecase"
)

type usersMigration struct {
	migration.Base
}

func (m *usersMigration) Up(ctx context.Context, b *schema.Builder) error {
	return b.Create(ctx, "users", func(t *schema.Blueprint) {
		t.ID()
		t.String("email").Unique()
	})
}

func (m *usersMigration) Down(ctx context.Context, b *schema.Builder) error {
	return b.DropIfExists(ctx, "users")
}

type pendingMigration struct {
	migration.Base
}

func (m *pendingMigration) Up(ctx context.Context, b *schema.Builder) error   { return nil }
func (m *pendingMigration) Down(ctx context.Context, b *schema.Builder) error { return nil }

// setupServer は適用済み1件・未適用1件の状態でテストサーバーを組み立てる。
func setupServer(t *testing.T) http.Handler {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	registry := migration.NewRegistry()
	if err := registry.Register(&usersMigration{Base: migration.NewBase("2025_01_01_000000_create_users_table")}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	repo := repository.NewMigrationRepository(db)
	service := usecase.NewMigrationService(repo, db, registry)
	if _, err := service.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	if err := registry.Register(&pendingMigration{Base: migration.NewBase("2025_01_02_000000_add_bio_to_users_table")}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	h := NewMigrationHandler(service, usecase.NewDatabaseInspector(db))
	return NewRouter(h, nil)
}

func doRequest(t *testing.T, server http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Healthz(t *testing.T) {
	rec := doRequest(t, setupServer(t), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_ListMigrations(t *testing.T) {
	rec := doRequest(t, setupServer(t), "/v1/migrations")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp MigrationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(resp.Migrations))
	}
	first := resp.Migrations[0]
	if first.Name != "2025_01_01_000000_create_users_table" || first.Status != "applied" {
		t.Errorf("unexpected first migration: %+v", first)
	}
	if first.Batch != 1 || first.ExecutedAt == "" {
		t.Errorf("applied migration should carry batch and timestamp: %+v", first)
	}
	if resp.Migrations[1].Status != "pending" {
		t.Errorf("unexpected second migration: %+v", resp.Migrations[1])
	}
}

func TestHandler_GetStatus(t *testing.T) {
	rec := doRequest(t, setupServer(t), "/v1/migrations/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp StatusSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Applied != 1 || resp.Pending != 1 || resp.Batch != 1 {
		t.Errorf("unexpected summary: %+v", resp)
	}
	if len(resp.PendingNames) != 1 || resp.PendingNames[0] != "2025_01_02_000000_add_bio_to_users_table" {
		t.Errorf("unexpected pending names: %v", resp.PendingNames)
	}
}

func TestHandler_ListTables(t *testing.T) {
	rec := doRequest(t, setupServer(t), "/v1/schema/tables")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp TableListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	var hasUsers bool
	for _, table := range resp.Tables {
		if table == "users" {
			hasUsers = true
		}
	}
	if !hasUsers {
		t.Errorf("expected users in table list, got %v", resp.Tables)
	}
}

func TestHandler_GetTable(t *testing.T) {
	rec := doRequest(t, setupServer(t), "/v1/schema/tables/users")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp TableResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Name != "users" {
		t.Errorf("unexpected table name: %s", resp.Name)
	}
	var hasEmail bool
	for _, col := range resp.Columns {
		if col.Name == "email" {
			hasEmail = true
		}
	}
	if !hasEmail {
		t.Errorf("expected email column, got %+v", resp.Columns)
	}
}

func TestHandler_GetTableNotFound(t *testing.T) {
	rec := doRequest(t, setupServer(t), "/v1/schema/tables/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_GetTableInvalidName(t *testing.T) {
	rec := doRequest(t, setupServer(t), "/v1/schema/tables/bad-name")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
