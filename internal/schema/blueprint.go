// Package schema はテーブル定義のフルーエントDSLと方言別DDL生成を提供する。
package schema

import "strings"

// Blueprintのアクション種別。
const (
	actionCreate = "create"
	actionAlter  = "alter"
)

// Blueprint は1テーブル分のカラム・インデックス・制約の宣言を保持する。
// create_table/modify_tableのコールバック内で組み立てられ、DDL発行後は破棄される。
type Blueprint struct {
	table       string
	action      string
	columns     []*ColumnDefinition
	indexes     []*IndexDefinition
	foreignKeys []*ForeignKeyDefinition

	// alter用コマンド
	dropColumns   []string
	renameColumns [][2]string
	dropIndexes   []string
	dropForeigns  []string
	renameTo      string
}

// NewBlueprint は指定テーブル・アクションのBlueprintを生成する。
func NewBlueprint(table, action string) *Blueprint {
	return &Blueprint{table: table, action: action}
}

// Table はテーブル名を返す。
func (b *Blueprint) Table() string {
	return b.table
}

func (b *Blueprint) addColumn(name, dataType string) *ColumnDefinition {
	col := &ColumnDefinition{name: name, dataType: dataType, nullable: true}
	b.columns = append(b.columns, col)
	return col
}

// ID は自動採番のBIGINT主キー（デフォルト名 "id"）を追加する。
func (b *Blueprint) ID(name ...string) *ColumnDefinition {
	columnName := "id"
	if len(name) > 0 {
		columnName = name[0]
	}
	col := b.addColumn(columnName, "BIGINT")
	col.nullable = false
	col.unsigned = true
	col.autoIncrement = true
	col.primary = true
	return col
}

// Increments は自動採番のINT主キーを追加する。
func (b *Blueprint) Increments(name string) *ColumnDefinition {
	col := b.addColumn(name, "INT")
	col.nullable = false
	col.unsigned = true
	col.autoIncrement = true
	col.primary = true
	return col
}

// BigIncrements は自動採番のBIGINT主キーを追加する。
func (b *Blueprint) BigIncrements(name string) *ColumnDefinition {
	col := b.addColumn(name, "BIGINT")
	col.nullable = false
	col.unsigned = true
	col.autoIncrement = true
	col.primary = true
	return col
}

// String はVARCHARカラムを追加する（デフォルト長255）。
func (b *Blueprint) String(name string, length ...int) *ColumnDefinition {
	col := b.addColumn(name, "VARCHAR")
	col.length = 255
	if len(length) > 0 {
		col.length = length[0]
	}
	return col
}

// Char はCHARカラムを追加する。
func (b *Blueprint) Char(name string, length int) *ColumnDefinition {
	col := b.addColumn(name, "CHAR")
	col.length = length
	return col
}

// Text はTEXTカラムを追加する。
func (b *Blueprint) Text(name string) *ColumnDefinition {
	return b.addColumn(name, "TEXT")
}

// Integer はINTカラムを追加する。
func (b *Blueprint) Integer(name string) *ColumnDefinition {
	return b.addColumn(name, "INT")
}

// BigInteger はBIGINTカラムを追加する。
func (b *Blueprint) BigInteger(name string) *ColumnDefinition {
	return b.addColumn(name, "BIGINT")
}

// SmallInteger はSMALLINTカラムを追加する。
func (b *Blueprint) SmallInteger(name string) *ColumnDefinition {
	return b.addColumn(name, "SMALLINT")
}

// UnsignedInteger は符号なしINTカラムを追加する。
func (b *Blueprint) UnsignedInteger(name string) *ColumnDefinition {
	col := b.addColumn(name, "INT")
	col.unsigned = true
	return col
}

// UnsignedBigInteger は符号なしBIGINTカラムを追加する。
func (b *Blueprint) UnsignedBigInteger(name string) *ColumnDefinition {
	col := b.addColumn(name, "BIGINT")
	col.unsigned = true
	return col
}

// Float はFLOATカラムを追加する。
func (b *Blueprint) Float(name string, precision, scale int) *ColumnDefinition {
	col := b.addColumn(name, "FLOAT")
	col.precision = precision
	col.scale = scale
	return col
}

// Double はDOUBLEカラムを追加する。
func (b *Blueprint) Double(name string, precision, scale int) *ColumnDefinition {
	col := b.addColumn(name, "DOUBLE")
	col.precision = precision
	col.scale = scale
	return col
}

// Decimal はDECIMALカラムを追加する。
func (b *Blueprint) Decimal(name string, precision, scale int) *ColumnDefinition {
	col := b.addColumn(name, "DECIMAL")
	col.precision = precision
	col.scale = scale
	return col
}

// Boolean はBOOLEANカラムを追加する。
func (b *Blueprint) Boolean(name string) *ColumnDefinition {
	return b.addColumn(name, "BOOLEAN")
}

// Date はDATEカラムを追加する。
func (b *Blueprint) Date(name string) *ColumnDefinition {
	return b.addColumn(name, "DATE")
}

// DateTime はDATETIMEカラムを追加する。
func (b *Blueprint) DateTime(name string) *ColumnDefinition {
	return b.addColumn(name, "DATETIME")
}

// Timestamp はTIMESTAMPカラムを追加する。
func (b *Blueprint) Timestamp(name string) *ColumnDefinition {
	return b.addColumn(name, "TIMESTAMP")
}

// Time はTIMEカラムを追加する。
func (b *Blueprint) Time(name string) *ColumnDefinition {
	return b.addColumn(name, "TIME")
}

// JSON はJSONカラムを追加する（PostgreSQLではJSONB、SQLiteではTEXT）。
func (b *Blueprint) JSON(name string) *ColumnDefinition {
	return b.addColumn(name, "JSON")
}

// UUID はUUIDカラムを追加する（PostgreSQL以外ではCHAR(36)）。
func (b *Blueprint) UUID(name string) *ColumnDefinition {
	return b.addColumn(name, "UUID")
}

// Binary はBLOBカラムを追加する。
func (b *Blueprint) Binary(name string) *ColumnDefinition {
	return b.addColumn(name, "BLOB")
}

// Enum はENUMカラムを追加する（非対応方言ではCHECK制約付きTEXT）。
func (b *Blueprint) Enum(name string, values []string) *ColumnDefinition {
	col := b.addColumn(name, "ENUM")
	col.enumValues = values
	return col
}

// Column は方言ネイティブの型名を直接指定してカラムを追加する。
// リフレクション由来の型を再現する用途（スキーマ差分の生成）で使う。
func (b *Blueprint) Column(name, nativeType string) *ColumnDefinition {
	return b.addColumn(name, strings.ToUpper(nativeType))
}

// ForeignID は外部キー用の符号なしBIGINTカラムを追加する。
func (b *Blueprint) ForeignID(name string) *ColumnDefinition {
	col := b.addColumn(name, "BIGINT")
	col.unsigned = true
	col.nullable = false
	return col
}

// Timestamps はcreated_at/updated_atカラムを追加する。
func (b *Blueprint) Timestamps() {
	b.Timestamp("created_at").Nullable().UseCurrent()
	b.Timestamp("updated_at").Nullable().UseCurrent()
}

// SoftDeletes は論理削除用のdeleted_atカラムを追加する。
func (b *Blueprint) SoftDeletes() {
	b.Timestamp("deleted_at").Nullable()
}

// RememberToken はremember_token VARCHAR(100)カラムを追加する。
func (b *Blueprint) RememberToken() {
	b.String("remember_token", 100).Nullable()
}

// Index は複合インデックスを追加する。名前省略時は規約名を生成する。
func (b *Blueprint) Index(columns []string, name ...string) *IndexDefinition {
	return b.addIndex(columns, "index", name...)
}

// UniqueIndex は一意インデックスを追加する。
func (b *Blueprint) UniqueIndex(columns []string, name ...string) *IndexDefinition {
	return b.addIndex(columns, "unique", name...)
}

// PrimaryIndex は複合主キーを追加する。
func (b *Blueprint) PrimaryIndex(columns []string) *IndexDefinition {
	return b.addIndex(columns, "primary")
}

func (b *Blueprint) addIndex(columns []string, kind string, name ...string) *IndexDefinition {
	idx := &IndexDefinition{columns: columns, kind: kind}
	if len(name) > 0 {
		idx.name = name[0]
	} else {
		prefix := map[string]string{"index": "idx", "unique": "uniq", "primary": "pk"}[kind]
		idx.name = prefix + "_" + b.table + "_" + strings.Join(columns, "_")
	}
	b.indexes = append(b.indexes, idx)
	return idx
}

// Foreign は外部キー制約の宣言を開始する。
func (b *Blueprint) Foreign(column string) *ForeignKeyDefinition {
	fk := &ForeignKeyDefinition{
		name:   "fk_" + b.table + "_" + column,
		column: column,
	}
	b.foreignKeys = append(b.foreignKeys, fk)
	return fk
}

// DropColumn はカラム削除コマンドを追加する（modify_table用）。
func (b *Blueprint) DropColumn(columns ...string) {
	b.dropColumns = append(b.dropColumns, columns...)
}

// RenameColumn はカラム名変更コマンドを追加する（modify_table用）。
func (b *Blueprint) RenameColumn(from, to string) {
	b.renameColumns = append(b.renameColumns, [2]string{from, to})
}

// DropIndex はインデックス削除コマンドを追加する（modify_table用）。
func (b *Blueprint) DropIndex(name string) {
	b.dropIndexes = append(b.dropIndexes, name)
}

// DropForeign は外部キー制約削除コマンドを追加する（modify_table用）。
func (b *Blueprint) DropForeign(name string) {
	b.dropForeigns = append(b.dropForeigns, name)
}

// RenameTo はテーブル名変更コマンドを追加する（modify_table用）。
func (b *Blueprint) RenameTo(name string) {
	b.renameTo = name
}

// Columns は宣言済みカラムの一覧を返す。
func (b *Blueprint) Columns() []*ColumnDefinition {
	return b.columns
}

// ReferencedTables は外部キーが参照するテーブル名の一覧を返す。
// 依存関係グラフの推論に使われる。
func (b *Blueprint) ReferencedTables() []string {
	var tables []string
	for _, fk := range b.foreignKeys {
		if fk.referencedTable != "" {
			tables = append(tables, fk.referencedTable)
		}
	}
	return tables
}

// IndexDefinition は1インデックス分の宣言を保持する。
type IndexDefinition struct {
	name    string
	columns []string
	kind    string // index / unique / primary
	where   string
}

// Where は部分インデックスの条件を設定する（PostgreSQLのみ有効）。
func (i *IndexDefinition) Where(condition string) *IndexDefinition {
	i.where = condition
	return i
}

// Name はインデックス名を返す。
func (i *IndexDefinition) Name() string {
	return i.name
}

// ForeignKeyDefinition は1外部キー制約分の宣言を保持する。
type ForeignKeyDefinition struct {
	name             string
	column           string
	referencedTable  string
	referencedColumn string
	onDelete         string
	onUpdate         string
}

// References は参照先カラムを設定する。
func (fk *ForeignKeyDefinition) References(column string) *ForeignKeyDefinition {
	fk.referencedColumn = column
	return fk
}

// On は参照先テーブルを設定する。
func (fk *ForeignKeyDefinition) On(table string) *ForeignKeyDefinition {
	fk.referencedTable = table
	return fk
}

// Constrained はカラム名の規約（xxx_id → xxxs.id）から参照先を決定する。
func (fk *ForeignKeyDefinition) Constrained(table ...string) *ForeignKeyDefinition {
	if len(table) > 0 {
		fk.referencedTable = table[0]
	} else if strings.HasSuffix(fk.column, "_id") {
		fk.referencedTable = strings.TrimSuffix(fk.column, "_id") + "s"
	}
	fk.referencedColumn = "id"
	return fk
}

// OnDelete は削除時アクションを設定する。
func (fk *ForeignKeyDefinition) OnDelete(action string) *ForeignKeyDefinition {
	fk.onDelete = action
	return fk
}

// OnUpdate は更新時アクションを設定する。
func (fk *ForeignKeyDefinition) OnUpdate(action string) *ForeignKeyDefinition {
	fk.onUpdate = action
	return fk
}

// CascadeOnDelete はON DELETE CASCADEを設定する。
func (fk *ForeignKeyDefinition) CascadeOnDelete() *ForeignKeyDefinition {
	fk.onDelete = "CASCADE"
	return fk
}
