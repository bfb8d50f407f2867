package migrations

import (
	"context"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

type AddBioToUsersTable struct {
	migration.Base
}

func init() {
	migration.Register(&AddBioToUsersTable{Base: migration.NewBase("2025_07_20_093000_add_bio_to_users_table")})
}

// Dependencies はusersテーブルの作成後に実行されることを宣言する。
func (m *AddBioToUsersTable) Dependencies() []string {
	return []string{"2025_07_15_100000_create_users_table"}
}

func (m *AddBioToUsersTable) Up(ctx context.Context, b *schema.Builder) error {
	return b.Table(ctx, "users", func(t *schema.Blueprint) {
		t.Text("bio").Nullable()
		t.String("avatar_url").Nullable()
	})
}

func (m *AddBioToUsersTable) Down(ctx context.Context, b *schema.Builder) error {
	return b.Table(ctx, "users", func(t *schema.Blueprint) {
		t.DropColumn("bio", "avatar_url")
	})
}
