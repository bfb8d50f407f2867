package domain

import "sort"

// ColumnInfo はリフレクションで取得したカラム情報のスナップショット。
type ColumnInfo struct {
	Name          string `json:"name"`
	Type          string `json:"type"` // 方言ネイティブの型名（例: "varchar(255)"）
	Nullable      bool   `json:"nullable"`
	Default       string `json:"default,omitempty"`
	HasDefault    bool   `json:"has_default"`
	PrimaryKey    bool   `json:"primary_key,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty"`
}

// IndexInfo はリフレクションで取得したインデックス情報のスナップショット。
type IndexInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// ForeignKeyInfo はリフレクションで取得した外部キー情報のスナップショット。
type ForeignKeyInfo struct {
	Name             string `json:"name"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnDelete         string `json:"on_delete,omitempty"`
	OnUpdate         string `json:"on_update,omitempty"`
}

// TableInfo は1テーブル分のスキーマスナップショット。
type TableInfo struct {
	Name        string           `json:"name"`
	Columns     []ColumnInfo     `json:"columns"`
	Indexes     []IndexInfo      `json:"indexes,omitempty"`
	ForeignKeys []ForeignKeyInfo `json:"foreign_keys,omitempty"`
}

// Column は名前でカラム情報を検索する。見つからない場合はnilを返す。
func (t *TableInfo) Column(name string) *ColumnInfo {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// SchemaSnapshot はデータベース全体のスキーマスナップショット。
type SchemaSnapshot struct {
	Dialect string                `json:"dialect"`
	Tables  map[string]*TableInfo `json:"tables"`
}

// TableNames はテーブル名の一覧を名前順で返す。
func (s *SchemaSnapshot) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
