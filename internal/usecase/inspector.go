package usecase

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"schema-migration-service/internal/domain"
	"schema-migration-service/internal/schema"
)

// DatabaseInspector は接続先データベースの実スキーマを読み取る。
// カラムとインデックスはgormのMigratorを通じて方言非依存に取得し、
// 外部キーのみ方言ごとのカタログ照会で補う。
type DatabaseInspector struct {
	db *gorm.DB
}

// NewDatabaseInspector は新しいDatabaseInspectorを生成する。
func NewDatabaseInspector(db *gorm.DB) *DatabaseInspector {
	return &DatabaseInspector{db: db}
}

// Tables はテーブル名一覧を名前順で返す。
func (i *DatabaseInspector) Tables(ctx context.Context) ([]string, error) {
	tables, err := i.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	sort.Strings(tables)
	return tables, nil
}

// Snapshot は全テーブルの構造を読み取ったスナップショットを返す。
func (i *DatabaseInspector) Snapshot(ctx context.Context) (*domain.SchemaSnapshot, error) {
	tables, err := i.Tables(ctx)
	if err != nil {
		return nil, err
	}
	snapshot := &domain.SchemaSnapshot{
		Dialect: i.db.Dialector.Name(),
		Tables:  make(map[string]*domain.TableInfo, len(tables)),
	}
	for _, table := range tables {
		info, err := i.Table(ctx, table)
		if err != nil {
			return nil, err
		}
		snapshot.Tables[table] = info
	}
	return snapshot, nil
}

// Table は単一テーブルの構造を読み取る。
func (i *DatabaseInspector) Table(ctx context.Context, table string) (*domain.TableInfo, error) {
	db := i.db.WithContext(ctx)

	columnTypes, err := db.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("inspecting columns of %s: %w", table, err)
	}
	columns := make([]domain.ColumnInfo, 0, len(columnTypes))
	for _, ct := range columnTypes {
		col := domain.ColumnInfo{
			Name: ct.Name(),
			Type: ct.DatabaseTypeName(),
		}
		if nullable, ok := ct.Nullable(); ok {
			col.Nullable = nullable
		}
		if def, ok := ct.DefaultValue(); ok {
			col.Default = def
			col.HasDefault = true
		}
		if pk, ok := ct.PrimaryKey(); ok {
			col.PrimaryKey = pk
		}
		if ai, ok := ct.AutoIncrement(); ok {
			col.AutoIncrement = ai
		}
		columns = append(columns, col)
	}

	gormIndexes, err := db.Migrator().GetIndexes(table)
	if err != nil {
		return nil, fmt.Errorf("inspecting indexes of %s: %w", table, err)
	}
	indexes := make([]domain.IndexInfo, 0, len(gormIndexes))
	for _, idx := range gormIndexes {
		info := domain.IndexInfo{
			Name:    idx.Name(),
			Columns: idx.Columns(),
		}
		if unique, ok := idx.Unique(); ok {
			info.Unique = unique
		}
		if primary, ok := idx.PrimaryKey(); ok {
			info.Primary = primary
		}
		indexes = append(indexes, info)
	}
	sort.Slice(indexes, func(a, b int) bool { return indexes[a].Name < indexes[b].Name })

	foreignKeys, err := i.foreignKeys(ctx, table)
	if err != nil {
		return nil, err
	}

	return &domain.TableInfo{
		Name:        table,
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: foreignKeys,
	}, nil
}

func (i *DatabaseInspector) foreignKeys(ctx context.Context, table string) ([]domain.ForeignKeyInfo, error) {
	switch i.db.Dialector.Name() {
	case schema.DialectMySQL:
		return i.mysqlForeignKeys(ctx, table)
	case schema.DialectPostgres:
		return i.postgresForeignKeys(ctx, table)
	case schema.DialectSQLite:
		return i.sqliteForeignKeys(ctx, table)
	default:
		return nil, nil
	}
}

type foreignKeyRow struct {
	Name             string `gorm:"column:name"`
	Column           string `gorm:"column:column_name"`
	ReferencedTable  string `gorm:"column:referenced_table"`
	ReferencedColumn string `gorm:"column:referenced_column"`
	OnDelete         string `gorm:"column:on_delete"`
	OnUpdate         string `gorm:"column:on_update"`
}

func (i *DatabaseInspector) mysqlForeignKeys(ctx context.Context, table string) ([]domain.ForeignKeyInfo, error) {
	var rows []foreignKeyRow
	err := i.db.WithContext(ctx).Raw(`
		SELECT kcu.CONSTRAINT_NAME AS name,
		       kcu.COLUMN_NAME AS column_name,
		       kcu.REFERENCED_TABLE_NAME AS referenced_table,
		       kcu.REFERENCED_COLUMN_NAME AS referenced_column,
		       rc.DELETE_RULE AS on_delete,
		       rc.UPDATE_RULE AS on_update
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
		  ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA
		 AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		WHERE kcu.TABLE_SCHEMA = DATABASE()
		  AND kcu.TABLE_NAME = ?
		  AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.CONSTRAINT_NAME`, table).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("inspecting foreign keys of %s: %w", table, err)
	}
	return toForeignKeyInfos(rows), nil
}

func (i *DatabaseInspector) postgresForeignKeys(ctx context.Context, table string) ([]domain.ForeignKeyInfo, error) {
	var rows []foreignKeyRow
	err := i.db.WithContext(ctx).Raw(`
		SELECT tc.constraint_name AS name,
		       kcu.column_name AS column_name,
		       ccu.table_name AS referenced_table,
		       ccu.column_name AS referenced_column,
		       rc.delete_rule AS on_delete,
		       rc.update_rule AS on_update
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc
		  ON rc.constraint_name = tc.constraint_name
		 AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = ?
		ORDER BY tc.constraint_name`, table).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("inspecting foreign keys of %s: %w", table, err)
	}
	return toForeignKeyInfos(rows), nil
}

type sqliteForeignKeyRow struct {
	ID       int    `gorm:"column:id"`
	Table    string `gorm:"column:table"`
	From     string `gorm:"column:from"`
	To       string `gorm:"column:to"`
	OnDelete string `gorm:"column:on_delete"`
	OnUpdate string `gorm:"column:on_update"`
}

func (i *DatabaseInspector) sqliteForeignKeys(ctx context.Context, table string) ([]domain.ForeignKeyInfo, error) {
	var rows []sqliteForeignKeyRow
	err := i.db.WithContext(ctx).
		Raw(fmt.Sprintf("PRAGMA foreign_key_list(%q)", table)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("inspecting foreign keys of %s: %w", table, err)
	}
	infos := make([]domain.ForeignKeyInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, domain.ForeignKeyInfo{
			// SQLiteは制約名を保持しないため規約名で補う
			Name:             fmt.Sprintf("fk_%s_%s", table, row.From),
			Column:           row.From,
			ReferencedTable:  row.Table,
			ReferencedColumn: row.To,
			OnDelete:         row.OnDelete,
			OnUpdate:         row.OnUpdate,
		})
	}
	return infos, nil
}

func toForeignKeyInfos(rows []foreignKeyRow) []domain.ForeignKeyInfo {
	infos := make([]domain.ForeignKeyInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, domain.ForeignKeyInfo{
			Name:             row.Name,
			Column:           row.Column,
			ReferencedTable:  row.ReferencedTable,
			ReferencedColumn: row.ReferencedColumn,
			OnDelete:         row.OnDelete,
			OnUpdate:         row.OnUpdate,
		})
	}
	return infos
}
