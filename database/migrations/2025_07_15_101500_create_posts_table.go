package migrations

import (
	"context"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

type CreatePostsTable struct {
	migration.Base
}

func init() {
	migration.Register(&CreatePostsTable{Base: migration.NewBase("2025_07_15_101500_create_posts_table")})
}

func (m *CreatePostsTable) Up(ctx context.Context, b *schema.Builder) error {
	return b.Create(ctx, "posts", func(t *schema.Blueprint) {
		t.ID()
		t.ForeignID("user_id")
		t.String("title")
		t.Text("body")
		t.Enum("status", []string{"draft", "published", "archived"}).Default("draft")
		t.Timestamp("published_at").Nullable()
		t.Timestamps()

		t.Index([]string{"status"})
		t.Foreign("user_id").References("id").On("users").CascadeOnDelete()
	})
}

func (m *CreatePostsTable) Down(ctx context.Context, b *schema.Builder) error {
	return b.DropIfExists(ctx, "posts")
}
