// Package migration はマイグレーションのインターフェースとレジストリを定義する。
//
// マイグレーションファイルはdatabase/migrations配下のGoソースとして生成され、
// init()でデフォルトレジストリに自己登録される。名前はファイル名の
// "{YYYY_MM_DD_HHMMSS}_{name}" 形式と一致させる。
package migration

import (
	"context"

	"schema-migration-service/internal/schema"
)

// Migration は1つのスキーマ変更を表す。
// Upで変更を適用し、Downで取り消す。
type Migration interface {
	// Name はマイグレーション名（タイムスタンプ付きファイル名のステム）を返す。
	Name() string
	// Up はスキーマ変更を適用する。
	Up(ctx context.Context, b *schema.Builder) error
	// Down はスキーマ変更を取り消す。
	Down(ctx context.Context, b *schema.Builder) error
}

// DependencyProvider は他マイグレーションへの明示的依存を宣言する。
// 実装は任意。宣言が無い場合は依存推論に委ねられる。
type DependencyProvider interface {
	Dependencies() []string
}

// Base はName実装を提供する埋め込み用の共通部品。
type Base struct {
	name string
}

// NewBase は指定名のBaseを生成する。
func NewBase(name string) Base {
	return Base{name: name}
}

// Name はマイグレーション名を返す。
func (b Base) Name() string {
	return b.name
}
