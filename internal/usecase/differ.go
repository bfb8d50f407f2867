package usecase

import (
	"fmt"
	"sort"
	"strings"

	"schema-migration-service/internal/domain"
)

// ColumnChange は既存カラムの差分。
type ColumnChange struct {
	Name string            `json:"name"`
	From domain.ColumnInfo `json:"from"`
	To   domain.ColumnInfo `json:"to"`
}

// TableDiff は既存テーブル1つ分の差分。
type TableDiff struct {
	Table          string              `json:"table"`
	AddedColumns   []domain.ColumnInfo `json:"added_columns,omitempty"`
	DroppedColumns []string            `json:"dropped_columns,omitempty"`
	ChangedColumns []ColumnChange      `json:"changed_columns,omitempty"`
	AddedIndexes   []domain.IndexInfo  `json:"added_indexes,omitempty"`
	DroppedIndexes []string            `json:"dropped_indexes,omitempty"`
}

// SchemaDiff は2つのスキーマスナップショット間の差分。
type SchemaDiff struct {
	CreatedTables []string    `json:"created_tables,omitempty"`
	DroppedTables []string    `json:"dropped_tables,omitempty"`
	Modified      []TableDiff `json:"modified,omitempty"`
}

// Empty は差分が存在しないかを返す。
func (d *SchemaDiff) Empty() bool {
	return len(d.CreatedTables) == 0 && len(d.DroppedTables) == 0 && len(d.Modified) == 0
}

// DatabaseDiffer はスキーマスナップショットを比較し、差分を埋める
// マイグレーションソースを生成する。
type DatabaseDiffer struct{}

// NewDatabaseDiffer は新しいDatabaseDifferを生成する。
func NewDatabaseDiffer() *DatabaseDiffer {
	return &DatabaseDiffer{}
}

// Compare はfromをtoへ変換するために必要な差分を計算する。
// マイグレーション履歴テーブル自体は比較対象から除外する。
func (d *DatabaseDiffer) Compare(from, to *domain.SchemaSnapshot) *SchemaDiff {
	diff := &SchemaDiff{}

	for _, name := range to.TableNames() {
		if name == "migrations" {
			continue
		}
		if _, ok := from.Tables[name]; !ok {
			diff.CreatedTables = append(diff.CreatedTables, name)
		}
	}
	for _, name := range from.TableNames() {
		if name == "migrations" {
			continue
		}
		if _, ok := to.Tables[name]; !ok {
			diff.DroppedTables = append(diff.DroppedTables, name)
		}
	}

	for _, name := range from.TableNames() {
		if name == "migrations" {
			continue
		}
		toTable, ok := to.Tables[name]
		if !ok {
			continue
		}
		tableDiff := compareTables(from.Tables[name], toTable)
		if !tableDiffEmpty(tableDiff) {
			diff.Modified = append(diff.Modified, tableDiff)
		}
	}
	sort.Slice(diff.Modified, func(i, j int) bool { return diff.Modified[i].Table < diff.Modified[j].Table })
	return diff
}

func compareTables(from, to *domain.TableInfo) TableDiff {
	diff := TableDiff{Table: from.Name}

	for _, col := range to.Columns {
		fromCol := from.Column(col.Name)
		if fromCol == nil {
			diff.AddedColumns = append(diff.AddedColumns, col)
			continue
		}
		if !columnsEqual(*fromCol, col) {
			diff.ChangedColumns = append(diff.ChangedColumns, ColumnChange{
				Name: col.Name,
				From: *fromCol,
				To:   col,
			})
		}
	}
	for _, col := range from.Columns {
		if to.Column(col.Name) == nil {
			diff.DroppedColumns = append(diff.DroppedColumns, col.Name)
		}
	}

	fromIndexes := indexesByName(from.Indexes)
	toIndexes := indexesByName(to.Indexes)
	for name, idx := range toIndexes {
		if _, ok := fromIndexes[name]; !ok && !idx.Primary {
			diff.AddedIndexes = append(diff.AddedIndexes, idx)
		}
	}
	for name, idx := range fromIndexes {
		if _, ok := toIndexes[name]; !ok && !idx.Primary {
			diff.DroppedIndexes = append(diff.DroppedIndexes, name)
		}
	}
	sort.Slice(diff.AddedIndexes, func(i, j int) bool { return diff.AddedIndexes[i].Name < diff.AddedIndexes[j].Name })
	sort.Strings(diff.DroppedIndexes)
	return diff
}

// columnsEqual は型名の大文字小文字を無視して比較する。
// デフォルト値の表現は方言ごとに揺れるため、有無のみを比較する。
func columnsEqual(a, b domain.ColumnInfo) bool {
	return strings.EqualFold(a.Type, b.Type) &&
		a.Nullable == b.Nullable &&
		a.HasDefault == b.HasDefault
}

func indexesByName(indexes []domain.IndexInfo) map[string]domain.IndexInfo {
	m := make(map[string]domain.IndexInfo, len(indexes))
	for _, idx := range indexes {
		m[idx.Name] = idx
	}
	return m
}

func tableDiffEmpty(d TableDiff) bool {
	return len(d.AddedColumns) == 0 && len(d.DroppedColumns) == 0 &&
		len(d.ChangedColumns) == 0 && len(d.AddedIndexes) == 0 && len(d.DroppedIndexes) == 0
}

// GenerateMigration は差分を埋めるマイグレーションのGoソースを生成する。
// 作成は先、破棄は最後に並べ、外部キーの依存先が先に存在するようにする。
func (d *DatabaseDiffer) GenerateMigration(diff *SchemaDiff, to *domain.SchemaSnapshot, name, structName string) string {
	var up, down strings.Builder

	for _, table := range diff.CreatedTables {
		writeCreateTable(&up, to.Tables[table])
	}
	for _, tableDiff := range diff.Modified {
		writeAlterTable(&up, tableDiff)
	}
	for _, table := range diff.DroppedTables {
		fmt.Fprintf(&up, "\tif err := b.DropIfExists(ctx, %q); err != nil {\n\t\treturn err\n\t}\n", table)
	}

	// Downは逆操作: 作成したものを破棄し、追加したカラムを落とす
	for i := len(diff.CreatedTables) - 1; i >= 0; i-- {
		fmt.Fprintf(&down, "\tif err := b.DropIfExists(ctx, %q); err != nil {\n\t\treturn err\n\t}\n", diff.CreatedTables[i])
	}
	for _, tableDiff := range diff.Modified {
		writeRevertAlterTable(&down, tableDiff)
	}
	if len(diff.DroppedTables) > 0 {
		down.WriteString("\t// 破棄したテーブルの再作成は自動生成できないため手動で補うこと\n")
	}

	return fmt.Sprintf(`package migrations

import (
	"context"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

type %[1]s struct {
	migration.Base
}

func init() {
	migration.Register(&%[1]s{Base: migration.NewBase(%[2]q)})
}

func (m *%[1]s) Up(ctx context.Context, b *schema.Builder) error {
%[3]s	return nil
}

func (m *%[1]s) Down(ctx context.Context, b *schema.Builder) error {
%[4]s	return nil
}
`, structName, name, up.String(), down.String())
}

func writeCreateTable(sb *strings.Builder, table *domain.TableInfo) {
	fmt.Fprintf(sb, "\tif err := b.Create(ctx, %q, func(t *schema.Blueprint) {\n", table.Name)
	for _, col := range table.Columns {
		sb.WriteString("\t\t" + columnCall(col) + "\n")
	}
	for _, idx := range table.Indexes {
		if idx.Primary {
			continue
		}
		writeIndexCall(sb, "\t\t", idx)
	}
	for _, fk := range table.ForeignKeys {
		fmt.Fprintf(sb, "\t\tt.Foreign(%q).References(%q).On(%q)\n", fk.Column, fk.ReferencedColumn, fk.ReferencedTable)
	}
	sb.WriteString("\t}); err != nil {\n\t\treturn err\n\t}\n")
}

func writeAlterTable(sb *strings.Builder, diff TableDiff) {
	fmt.Fprintf(sb, "\tif err := b.Table(ctx, %q, func(t *schema.Blueprint) {\n", diff.Table)
	for _, col := range diff.AddedColumns {
		sb.WriteString("\t\t" + columnCall(col) + "\n")
	}
	for _, change := range diff.ChangedColumns {
		sb.WriteString("\t\t" + columnCall(change.To) + ".Change()\n")
	}
	for _, idx := range diff.AddedIndexes {
		writeIndexCall(sb, "\t\t", idx)
	}
	for _, name := range diff.DroppedIndexes {
		fmt.Fprintf(sb, "\t\tt.DropIndex(%q)\n", name)
	}
	for _, name := range diff.DroppedColumns {
		fmt.Fprintf(sb, "\t\tt.DropColumn(%q)\n", name)
	}
	sb.WriteString("\t}); err != nil {\n\t\treturn err\n\t}\n")
}

func writeRevertAlterTable(sb *strings.Builder, diff TableDiff) {
	if len(diff.AddedColumns) == 0 && len(diff.AddedIndexes) == 0 {
		return
	}
	fmt.Fprintf(sb, "\tif err := b.Table(ctx, %q, func(t *schema.Blueprint) {\n", diff.Table)
	for _, idx := range diff.AddedIndexes {
		fmt.Fprintf(sb, "\t\tt.DropIndex(%q)\n", idx.Name)
	}
	for _, col := range diff.AddedColumns {
		fmt.Fprintf(sb, "\t\tt.DropColumn(%q)\n", col.Name)
	}
	sb.WriteString("\t}); err != nil {\n\t\treturn err\n\t}\n")
}

// columnCall は検出したネイティブ型をそのまま使うBlueprint呼び出しを生成する。
func columnCall(col domain.ColumnInfo) string {
	call := fmt.Sprintf("t.Column(%q, %q)", col.Name, col.Type)
	if col.AutoIncrement {
		call += ".AutoIncrement()"
	}
	if col.PrimaryKey {
		call += ".Primary()"
	}
	if col.Nullable {
		call += ".Nullable()"
	}
	if col.HasDefault && col.Default != "" {
		call += fmt.Sprintf(".Default(%q)", col.Default)
	}
	return call
}

func writeIndexCall(sb *strings.Builder, indent string, idx domain.IndexInfo) {
	args := make([]string, len(idx.Columns))
	for i, col := range idx.Columns {
		args[i] = fmt.Sprintf("%q", col)
	}
	method := "Index"
	if idx.Unique {
		method = "UniqueIndex"
	}
	fmt.Fprintf(sb, "%st.%s([]string{%s})\n", indent, method, strings.Join(args, ", "))
}
