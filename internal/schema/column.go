package schema

// ColumnDefinition は1カラム分の宣言を保持するフルーエントビルダー。
// Blueprintのカラム生成メソッドから返され、修飾メソッドを連鎖して属性を付与する。
type ColumnDefinition struct {
	name          string
	dataType      string
	length        int
	precision     int
	scale         int
	enumValues    []string
	nullable      bool
	defaultValue  any
	hasDefault    bool
	unsigned      bool
	autoIncrement bool
	primary       bool
	unique        bool
	index         bool
	comment       string
	after         string
	first         bool
	useCurrent    bool
	change        bool
}

// Nullable はカラムをNULL許可にする。
func (c *ColumnDefinition) Nullable() *ColumnDefinition {
	c.nullable = true
	return c
}

// NotNull はカラムをNOT NULLにする。
func (c *ColumnDefinition) NotNull() *ColumnDefinition {
	c.nullable = false
	return c
}

// Default はデフォルト値を設定する。
func (c *ColumnDefinition) Default(value any) *ColumnDefinition {
	c.defaultValue = value
	c.hasDefault = true
	return c
}

// UseCurrent はデフォルト値をCURRENT_TIMESTAMPにする。
func (c *ColumnDefinition) UseCurrent() *ColumnDefinition {
	c.useCurrent = true
	return c
}

// Unique はカラムに一意制約を付与する。
func (c *ColumnDefinition) Unique() *ColumnDefinition {
	c.unique = true
	return c
}

// Index はカラムに単独インデックスを付与する。
func (c *ColumnDefinition) Index() *ColumnDefinition {
	c.index = true
	return c
}

// Primary はカラムを主キーにする。
func (c *ColumnDefinition) Primary() *ColumnDefinition {
	c.primary = true
	return c
}

// Unsigned はカラムを符号なしにする（MySQLのみ有効）。
func (c *ColumnDefinition) Unsigned() *ColumnDefinition {
	c.unsigned = true
	return c
}

// AutoIncrement はカラムを自動採番にする。
func (c *ColumnDefinition) AutoIncrement() *ColumnDefinition {
	c.autoIncrement = true
	return c
}

// Comment はカラムコメントを設定する（MySQLのみ有効）。
func (c *ColumnDefinition) Comment(comment string) *ColumnDefinition {
	c.comment = comment
	return c
}

// After は指定カラムの直後に配置する（MySQLのみ有効）。
func (c *ColumnDefinition) After(column string) *ColumnDefinition {
	c.after = column
	return c
}

// First はカラムを先頭に配置する（MySQLのみ有効）。
func (c *ColumnDefinition) First() *ColumnDefinition {
	c.first = true
	return c
}

// Change は既存カラムの定義変更としてマークする（modify_table内で使用）。
func (c *ColumnDefinition) Change() *ColumnDefinition {
	c.change = true
	return c
}

// Name はカラム名を返す。
func (c *ColumnDefinition) Name() string {
	return c.name
}

// Type はカラムの論理型名を返す。
func (c *ColumnDefinition) Type() string {
	return c.dataType
}
