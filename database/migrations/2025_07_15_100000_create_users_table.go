// Package migrations はアプリケーションのマイグレーション定義を保持する。
// 各ファイルはinitで自身をレジストリへ登録する。
package migrations

import (
	"context"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

type CreateUsersTable struct {
	migration.Base
}

func init() {
	migration.Register(&CreateUsersTable{Base: migration.NewBase("2025_07_15_100000_create_users_table")})
}

func (m *CreateUsersTable) Up(ctx context.Context, b *schema.Builder) error {
	return b.Create(ctx, "users", func(t *schema.Blueprint) {
		t.ID()
		t.UUID("public_id").Unique()
		t.String("name", 100)
		t.String("email").Unique()
		t.String("password")
		t.Boolean("active").Default(true)
		t.RememberToken()
		t.Timestamps()
		t.SoftDeletes()
	})
}

func (m *CreateUsersTable) Down(ctx context.Context, b *schema.Builder) error {
	return b.DropIfExists(ctx, "users")
}
