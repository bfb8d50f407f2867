package migration

import (
	"context"
	"errors"
	"testing"

	"schema-migration-service/internal/domain"
	"schema-migration-service/internal/schema"
)

type stubMigration struct {
	Base
}

func (m *stubMigration) Up(ctx context.Context, b *schema.Builder) error   { return nil }
func (m *stubMigration) Down(ctx context.Context, b *schema.Builder) error { return nil }

func newStub(name string) *stubMigration {
	return &stubMigration{Base: NewBase(name)}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(newStub("2025_01_01_000000_create_users_table")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 migration, got %d", r.Len())
	}

	m, ok := r.Get("2025_01_01_000000_create_users_table")
	if !ok {
		t.Fatal("registered migration not found")
	}
	if m.Name() != "2025_01_01_000000_create_users_table" {
		t.Errorf("unexpected name: %s", m.Name())
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(newStub("2025_01_01_000000_create_users_table")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := r.Register(newStub("2025_01_01_000000_create_users_table"))
	if !errors.Is(err, domain.ErrDuplicateMigration) {
		t.Errorf("expected ErrDuplicateMigration, got %v", err)
	}
}

func TestRegistry_AllSortedByName(t *testing.T) {
	r := NewRegistry()

	names := []string{
		"2025_03_01_000000_create_comments_table",
		"2025_01_01_000000_create_users_table",
		"2025_02_01_000000_create_posts_table",
	}
	for _, name := range names {
		if err := r.Register(newStub(name)); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	all := r.All()
	want := []string{
		"2025_01_01_000000_create_users_table",
		"2025_02_01_000000_create_posts_table",
		"2025_03_01_000000_create_comments_table",
	}
	for i, m := range all {
		if m.Name() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], m.Name())
		}
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("2025_01_01_000000_missing"); ok {
		t.Error("expected missing migration to not be found")
	}
}
