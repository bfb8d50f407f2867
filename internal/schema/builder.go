package schema

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Builder はBlueprintのDDLをデータベースへ発行するスキーマビルダー。
// ドライランモードでは発行せずに文を記録し、生成テーブル・参照テーブルの
// 集合も併せて記録する（SQLプレビューと依存関係推論の両方が利用する）。
type Builder struct {
	db      *gorm.DB
	grammar *Grammar
	dryRun  bool

	statements       []string
	createdTables    []string
	droppedTables    []string
	referencedTables []string
}

// NewBuilder はgorm接続に束縛されたBuilderを生成する。方言は接続から決定する。
func NewBuilder(db *gorm.DB) (*Builder, error) {
	grammar, err := NewGrammar(db.Dialector.Name())
	if err != nil {
		return nil, err
	}
	return &Builder{db: db, grammar: grammar}, nil
}

// NewDryRunBuilder はDDLを発行せず記録のみ行うBuilderを生成する。
func NewDryRunBuilder(dialect string) (*Builder, error) {
	grammar, err := NewGrammar(dialect)
	if err != nil {
		return nil, err
	}
	return &Builder{grammar: grammar, dryRun: true}, nil
}

// Dialect は方言名を返す。
func (b *Builder) Dialect() string {
	return b.grammar.Dialect()
}

// Create はテーブルを新規作成する。コールバックでBlueprintを組み立てる。
func (b *Builder) Create(ctx context.Context, table string, fn func(t *Blueprint)) error {
	bp := NewBlueprint(table, actionCreate)
	fn(bp)
	if err := b.grammar.Validate(bp); err != nil {
		return err
	}
	b.createdTables = append(b.createdTables, table)
	b.referencedTables = append(b.referencedTables, bp.ReferencedTables()...)
	return b.execAll(ctx, b.grammar.CompileCreate(bp))
}

// Table は既存テーブルを変更する。コールバックでBlueprintを組み立てる。
func (b *Builder) Table(ctx context.Context, table string, fn func(t *Blueprint)) error {
	bp := NewBlueprint(table, actionAlter)
	fn(bp)
	if err := b.grammar.Validate(bp); err != nil {
		return err
	}
	b.referencedTables = append(b.referencedTables, table)
	b.referencedTables = append(b.referencedTables, bp.ReferencedTables()...)
	return b.execAll(ctx, b.grammar.CompileAlter(bp))
}

// Drop はテーブルを削除する。
func (b *Builder) Drop(ctx context.Context, table string) error {
	b.droppedTables = append(b.droppedTables, table)
	return b.execAll(ctx, []string{b.grammar.CompileDrop(table)})
}

// DropIfExists は存在する場合のみテーブルを削除する。
func (b *Builder) DropIfExists(ctx context.Context, table string) error {
	b.droppedTables = append(b.droppedTables, table)
	return b.execAll(ctx, []string{b.grammar.CompileDropIfExists(table)})
}

// Rename はテーブル名を変更する。
func (b *Builder) Rename(ctx context.Context, from, to string) error {
	return b.execAll(ctx, []string{b.grammar.CompileRename(from, to)})
}

// Raw は任意のSQL文をそのまま発行する。DSLで表現できないDDLの逃げ道。
func (b *Builder) Raw(ctx context.Context, sql string) error {
	return b.execAll(ctx, []string{sql})
}

// HasTable はテーブルの存在を確認する。ドライラン時は常にfalseを返す。
func (b *Builder) HasTable(table string) (bool, error) {
	if b.dryRun {
		return false, nil
	}
	return b.db.Migrator().HasTable(table), nil
}

// HasColumn はカラムの存在を確認する。ドライラン時は常にfalseを返す。
func (b *Builder) HasColumn(table, column string) (bool, error) {
	if b.dryRun {
		return false, nil
	}
	columns, err := b.db.Migrator().ColumnTypes(table)
	if err != nil {
		return false, fmt.Errorf("inspecting columns of %s: %w", table, err)
	}
	for _, col := range columns {
		if col.Name() == column {
			return true, nil
		}
	}
	return false, nil
}

// DisableForeignKeyChecks は外部キー検査を無効化する（対応方言のみ）。
func (b *Builder) DisableForeignKeyChecks(ctx context.Context) error {
	if stmt, ok := b.grammar.CompileDisableForeignKeys(); ok {
		return b.execAll(ctx, []string{stmt})
	}
	return nil
}

// EnableForeignKeyChecks は外部キー検査を再度有効化する（対応方言のみ）。
func (b *Builder) EnableForeignKeyChecks(ctx context.Context) error {
	if stmt, ok := b.grammar.CompileEnableForeignKeys(); ok {
		return b.execAll(ctx, []string{stmt})
	}
	return nil
}

// Statements は記録済みのDDL文一覧を返す。
func (b *Builder) Statements() []string {
	return b.statements
}

// CreatedTables はこのBuilderで作成されたテーブル名の一覧を返す。
func (b *Builder) CreatedTables() []string {
	return b.createdTables
}

// DroppedTables はこのBuilderで削除されたテーブル名の一覧を返す。
func (b *Builder) DroppedTables() []string {
	return b.droppedTables
}

// ReferencedTables はこのBuilderが参照した他テーブル名の一覧を返す。
func (b *Builder) ReferencedTables() []string {
	return b.referencedTables
}

func (b *Builder) execAll(ctx context.Context, statements []string) error {
	for _, stmt := range statements {
		b.statements = append(b.statements, stmt)
		if b.dryRun {
			continue
		}
		// 方言非対応の操作はコメント文として記録のみ行う
		if strings.HasPrefix(stmt, "--") {
			continue
		}
		if err := b.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("executing DDL %q: %w", stmt, err)
		}
	}
	return nil
}
