package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"schema-migration-service/internal/domain"
	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

func resolveNames(t *testing.T, migrations ...migration.Migration) []string {
	t.Helper()

	resolver := NewDependencyResolver()
	ordered, err := resolver.Resolve(context.Background(), migrations, schema.DialectSQLite)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	names := make([]string, len(ordered))
	for i, m := range ordered {
		names[i] = m.Name()
	}
	return names
}

func TestDependencyResolver_ForeignKeyOrdering(t *testing.T) {
	posts := &testMigration{
		Base: migration.NewBase("2025_01_01_000000_create_posts_table"),
		up: func(ctx context.Context, b *schema.Builder) error {
			return b.Create(ctx, "posts", func(t *schema.Blueprint) {
				t.ID()
				t.ForeignID("user_id")
				t.Foreign("user_id").References("id").On("users")
			})
		},
	}
	users := createTableMigration("2025_01_02_000000_create_users_table", "users")

	names := resolveNames(t, posts, users)
	if names[0] != "2025_01_02_000000_create_users_table" {
		t.Errorf("expected users first, got %v", names)
	}
}

func TestDependencyResolver_ExplicitDependencies(t *testing.T) {
	first := &testMigration{
		Base: migration.NewBase("2025_01_01_000000_seed_settings"),
		deps: []string{"2025_01_02_000000_create_settings_table"},
	}
	second := createTableMigration("2025_01_02_000000_create_settings_table", "settings")

	names := resolveNames(t, first, second)
	if names[0] != "2025_01_02_000000_create_settings_table" {
		t.Errorf("expected explicit dependency to come first, got %v", names)
	}
}

func TestDependencyResolver_LexicographicWithoutDependencies(t *testing.T) {
	a := createTableMigration("2025_01_01_000000_create_users_table", "users")
	b := createTableMigration("2025_01_02_000000_create_posts_table", "posts")
	c := createTableMigration("2025_01_03_000000_create_tags_table", "tags")

	names := resolveNames(t, c, a, b)
	want := []string{
		"2025_01_01_000000_create_users_table",
		"2025_01_02_000000_create_posts_table",
		"2025_01_03_000000_create_tags_table",
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], names[i])
		}
	}
}

func TestDependencyResolver_CycleDetection(t *testing.T) {
	a := &testMigration{
		Base: migration.NewBase("2025_01_01_000000_alpha"),
		deps: []string{"2025_01_02_000000_beta"},
	}
	b := &testMigration{
		Base: migration.NewBase("2025_01_02_000000_beta"),
		deps: []string{"2025_01_01_000000_alpha"},
	}

	resolver := NewDependencyResolver()
	_, err := resolver.Resolve(context.Background(), []migration.Migration{a, b}, schema.DialectSQLite)
	if !errors.Is(err, domain.ErrDependencyCycle) {
		t.Errorf("expected ErrDependencyCycle, got %v", err)
	}
}

func TestDependencyResolver_NamingFallback(t *testing.T) {
	// ドライラン解析に失敗するマイグレーションは名前規約から作成テーブルを推定する
	users := &testMigration{
		Base: migration.NewBase("2025_01_02_000000_create_users_table"),
		up: func(ctx context.Context, b *schema.Builder) error {
			return fmt.Errorf("not analyzable")
		},
	}
	posts := &testMigration{
		Base: migration.NewBase("2025_01_01_000000_create_posts_table"),
		up: func(ctx context.Context, b *schema.Builder) error {
			return b.Create(ctx, "posts", func(t *schema.Blueprint) {
				t.ID()
				t.ForeignID("user_id")
				t.Foreign("user_id").Constrained()
			})
		},
	}

	names := resolveNames(t, users, posts)
	if names[0] != "2025_01_02_000000_create_users_table" {
		t.Errorf("expected users first via naming fallback, got %v", names)
	}
}

func TestDependencyResolver_IgnoresExternalDependencies(t *testing.T) {
	// 適用済みテーブルへの参照は対象集合外なので辺にならない
	comments := &testMigration{
		Base: migration.NewBase("2025_01_01_000000_create_comments_table"),
		up: func(ctx context.Context, b *schema.Builder) error {
			return b.Create(ctx, "comments", func(t *schema.Blueprint) {
				t.ID()
				t.ForeignID("post_id")
				t.Foreign("post_id").References("id").On("posts")
			})
		},
		deps: []string{"2024_01_01_000000_create_posts_table"},
	}

	names := resolveNames(t, comments)
	if len(names) != 1 {
		t.Fatalf("expected 1 migration, got %v", names)
	}
}

func TestDependencyResolver_Graph(t *testing.T) {
	posts := &testMigration{
		Base: migration.NewBase("2025_01_02_000000_create_posts_table"),
		up: func(ctx context.Context, b *schema.Builder) error {
			return b.Create(ctx, "posts", func(t *schema.Blueprint) {
				t.ID()
				t.ForeignID("user_id")
				t.Foreign("user_id").References("id").On("users")
			})
		},
	}
	users := createTableMigration("2025_01_01_000000_create_users_table", "users")

	resolver := NewDependencyResolver()
	graph, err := resolver.Graph(context.Background(), []migration.Migration{posts, users}, schema.DialectSQLite)
	if err != nil {
		t.Fatalf("Graph failed: %v", err)
	}
	deps := graph["2025_01_02_000000_create_posts_table"]
	if len(deps) != 1 || deps[0] != "2025_01_01_000000_create_users_table" {
		t.Errorf("unexpected dependencies: %v", deps)
	}
	if len(graph["2025_01_01_000000_create_users_table"]) != 0 {
		t.Errorf("users should have no dependencies")
	}
}
