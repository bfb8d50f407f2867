package schema

import (
	"fmt"
	"strings"

	"schema-migration-service/internal/domain"
)

// 対応する方言名。gorm Dialectorの名前と一致させる。
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Grammar はBlueprintを方言別のDDL文に変換する。
type Grammar struct {
	dialect string
}

// NewGrammar は指定方言のGrammarを生成する。
func NewGrammar(dialect string) (*Grammar, error) {
	switch dialect {
	case DialectMySQL, DialectPostgres, DialectSQLite:
		return &Grammar{dialect: dialect}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedDialect, dialect)
	}
}

// Dialect は方言名を返す。
func (g *Grammar) Dialect() string {
	return g.dialect
}

// CompileCreate はCREATE TABLE一式のDDL文を生成する。
// 外部キーはテーブル定義内のCONSTRAINTとして埋め込み、インデックスは後続文で生成する。
func (g *Grammar) CompileCreate(b *Blueprint) []string {
	var defs []string
	for _, col := range b.columns {
		defs = append(defs, g.columnSQL(col))
	}
	for _, idx := range b.indexes {
		if idx.kind == "primary" {
			defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(idx.columns, ", ")))
		}
	}
	for _, fk := range b.foreignKeys {
		defs = append(defs, g.foreignKeyClause(fk))
	}

	statements := []string{
		fmt.Sprintf("CREATE TABLE %s (%s)", b.table, strings.Join(defs, ", ")),
	}
	statements = append(statements, g.indexStatements(b)...)
	return statements
}

// CompileAlter はALTER TABLE一式のDDL文を生成する。
// 追加 → 変更 → 削除 → インデックス/外部キー → テーブル名変更の順で並べる。
// テーブル名変更を最後に置くことで、先行する文はすべて既存名に対して実行できる。
func (g *Grammar) CompileAlter(b *Blueprint) []string {
	var statements []string

	for _, col := range b.columns {
		if col.change {
			statements = append(statements, g.changeColumnSQL(b.table, col)...)
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", b.table, g.columnSQL(col))
		if g.dialect == DialectMySQL {
			if col.first {
				stmt += " FIRST"
			} else if col.after != "" {
				stmt += fmt.Sprintf(" AFTER %s", col.after)
			}
		}
		statements = append(statements, stmt)
	}

	for _, rc := range b.renameColumns {
		statements = append(statements,
			fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", b.table, rc[0], rc[1]))
	}

	for _, name := range b.dropIndexes {
		if g.dialect == DialectMySQL {
			statements = append(statements, fmt.Sprintf("DROP INDEX %s ON %s", name, b.table))
		} else {
			statements = append(statements, fmt.Sprintf("DROP INDEX %s", name))
		}
	}

	for _, name := range b.dropForeigns {
		switch g.dialect {
		case DialectMySQL:
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", b.table, name))
		case DialectPostgres:
			statements = append(statements, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", b.table, name))
		case DialectSQLite:
			// SQLiteは外部キー制約の個別削除に非対応。テーブル再作成が必要。
			statements = append(statements, fmt.Sprintf("-- SQLite cannot drop foreign key %s on %s", name, b.table))
		}
	}

	for _, name := range b.dropColumns {
		statements = append(statements, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", b.table, name))
	}

	statements = append(statements, g.indexStatements(b)...)

	for _, fk := range b.foreignKeys {
		if g.dialect == DialectSQLite {
			statements = append(statements, fmt.Sprintf("-- SQLite cannot add foreign key %s on %s", fk.name, b.table))
			continue
		}
		statements = append(statements,
			fmt.Sprintf("ALTER TABLE %s ADD %s", b.table, g.foreignKeyClause(fk)))
	}

	if b.renameTo != "" {
		statements = append(statements, g.CompileRename(b.table, b.renameTo))
	}

	return statements
}

// Validate はBlueprintが方言で表現可能か検査する。
// SQLiteのAUTOINCREMENTはINTEGER主キーにのみ付与できる。
func (g *Grammar) Validate(b *Blueprint) error {
	if g.dialect != DialectSQLite {
		return nil
	}
	for _, col := range b.columns {
		if col.autoIncrement && !col.primary {
			return fmt.Errorf("%w: sqlite allows AUTOINCREMENT only on the primary key (column %s on %s)",
				domain.ErrUnsupportedDialect, col.name, b.table)
		}
	}
	return nil
}

// CompileDrop はDROP TABLE文を生成する。
func (g *Grammar) CompileDrop(table string) string {
	return fmt.Sprintf("DROP TABLE %s", table)
}

// CompileDropIfExists はDROP TABLE IF EXISTS文を生成する。
func (g *Grammar) CompileDropIfExists(table string) string {
	if g.dialect == DialectPostgres {
		return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

// CompileRename はテーブル名変更文を生成する。
func (g *Grammar) CompileRename(from, to string) string {
	if g.dialect == DialectMySQL {
		return fmt.Sprintf("RENAME TABLE %s TO %s", from, to)
	}
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", from, to)
}

// CompileDisableForeignKeys は外部キー検査を無効化する文を生成する。
// PostgreSQLはDROP ... CASCADEで代替するため文を持たない。
func (g *Grammar) CompileDisableForeignKeys() (string, bool) {
	switch g.dialect {
	case DialectMySQL:
		return "SET FOREIGN_KEY_CHECKS = 0", true
	case DialectSQLite:
		return "PRAGMA foreign_keys = OFF", true
	default:
		return "", false
	}
}

// CompileEnableForeignKeys は外部キー検査を再度有効化する文を生成する。
func (g *Grammar) CompileEnableForeignKeys() (string, bool) {
	switch g.dialect {
	case DialectMySQL:
		return "SET FOREIGN_KEY_CHECKS = 1", true
	case DialectSQLite:
		return "PRAGMA foreign_keys = ON", true
	default:
		return "", false
	}
}

func (g *Grammar) indexStatements(b *Blueprint) []string {
	var statements []string
	for _, idx := range b.indexes {
		if idx.kind == "primary" {
			if b.action == actionAlter {
				statements = append(statements,
					fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", b.table, strings.Join(idx.columns, ", ")))
			}
			continue
		}
		unique := ""
		if idx.kind == "unique" {
			unique = "UNIQUE "
		}
		stmt := fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)", unique, idx.name, b.table, strings.Join(idx.columns, ", "))
		if idx.where != "" && g.dialect == DialectPostgres {
			stmt += fmt.Sprintf(" WHERE %s", idx.where)
		}
		statements = append(statements, stmt)
	}
	// カラム修飾子由来の単独インデックス
	for _, col := range b.columns {
		if col.index {
			statements = append(statements,
				fmt.Sprintf("CREATE INDEX idx_%s_%s ON %s (%s)", b.table, col.name, b.table, col.name))
		}
	}
	return statements
}

func (g *Grammar) columnSQL(col *ColumnDefinition) string {
	// 自動採番カラムは方言ごとに構文が大きく異なるため先に分岐する
	if col.autoIncrement {
		switch g.dialect {
		case DialectPostgres:
			sql := col.name + " " + pgSerialType(col.dataType)
			if col.primary {
				sql += " PRIMARY KEY"
			} else if col.unique {
				sql += " UNIQUE"
			}
			return sql
		case DialectSQLite:
			// 非主キーのAUTOINCREMENTはValidateで拒否される
			if col.primary {
				return col.name + " INTEGER PRIMARY KEY AUTOINCREMENT"
			}
		}
	}

	sql := col.name + " " + g.typeSQL(col)

	if col.unsigned && g.dialect == DialectMySQL {
		sql += " UNSIGNED"
	}
	if !col.nullable {
		sql += " NOT NULL"
	}
	if col.autoIncrement && g.dialect == DialectMySQL {
		sql += " AUTO_INCREMENT"
	}
	if col.primary && !col.autoIncrement {
		sql += " PRIMARY KEY"
	} else if col.primary && col.autoIncrement && g.dialect == DialectMySQL {
		sql += " PRIMARY KEY"
	}
	if col.unique {
		sql += " UNIQUE"
	}
	if col.hasDefault {
		switch v := col.defaultValue.(type) {
		case string:
			sql += fmt.Sprintf(" DEFAULT '%s'", v)
		case bool:
			if g.dialect == DialectSQLite {
				if v {
					sql += " DEFAULT 1"
				} else {
					sql += " DEFAULT 0"
				}
			} else {
				sql += fmt.Sprintf(" DEFAULT %t", v)
			}
		default:
			sql += fmt.Sprintf(" DEFAULT %v", v)
		}
	}
	if col.useCurrent {
		sql += " DEFAULT CURRENT_TIMESTAMP"
	}
	if col.comment != "" && g.dialect == DialectMySQL {
		sql += fmt.Sprintf(" COMMENT '%s'", col.comment)
	}
	if col.dataType == "ENUM" && g.dialect != DialectMySQL {
		sql += g.enumCheckClause(col)
	}
	return sql
}

// pgSerialType はPostgreSQLの自動採番型を整数型サイズに合わせて返す。
func pgSerialType(dataType string) string {
	switch dataType {
	case "BIGINT":
		return "BIGSERIAL"
	case "SMALLINT":
		return "SMALLSERIAL"
	default:
		return "SERIAL"
	}
}

func (g *Grammar) typeSQL(col *ColumnDefinition) string {
	switch col.dataType {
	case "VARCHAR":
		return fmt.Sprintf("VARCHAR(%d)", col.length)
	case "CHAR":
		return fmt.Sprintf("CHAR(%d)", col.length)
	case "FLOAT", "DOUBLE":
		name := col.dataType
		if g.dialect == DialectPostgres {
			name = "DOUBLE PRECISION"
		}
		if col.precision > 0 && g.dialect == DialectMySQL {
			return fmt.Sprintf("%s(%d,%d)", name, col.precision, col.scale)
		}
		return name
	case "DECIMAL":
		if col.precision > 0 {
			return fmt.Sprintf("DECIMAL(%d,%d)", col.precision, col.scale)
		}
		return "DECIMAL(8,2)"
	case "DATETIME":
		if g.dialect == DialectPostgres {
			return "TIMESTAMP"
		}
		return "DATETIME"
	case "JSON":
		switch g.dialect {
		case DialectMySQL:
			return "JSON"
		case DialectPostgres:
			return "JSONB"
		default:
			return "TEXT"
		}
	case "UUID":
		if g.dialect == DialectPostgres {
			return "UUID"
		}
		return "CHAR(36)"
	case "BLOB":
		if g.dialect == DialectPostgres {
			return "BYTEA"
		}
		return "BLOB"
	case "ENUM":
		if g.dialect == DialectMySQL {
			quoted := make([]string, len(col.enumValues))
			for i, v := range col.enumValues {
				quoted[i] = fmt.Sprintf("'%s'", v)
			}
			return fmt.Sprintf("ENUM(%s)", strings.Join(quoted, ","))
		}
		return "TEXT"
	case "BOOLEAN":
		return "BOOLEAN"
	default:
		return col.dataType
	}
}

func (g *Grammar) enumCheckClause(col *ColumnDefinition) string {
	quoted := make([]string, len(col.enumValues))
	for i, v := range col.enumValues {
		quoted[i] = fmt.Sprintf("'%s'", v)
	}
	return fmt.Sprintf(" CHECK (%s IN (%s))", col.name, strings.Join(quoted, ", "))
}

func (g *Grammar) changeColumnSQL(table string, col *ColumnDefinition) []string {
	switch g.dialect {
	case DialectMySQL:
		return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", table, g.columnSQL(col))}
	case DialectPostgres:
		statements := []string{
			fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", table, col.name, g.typeSQL(col)),
		}
		if col.nullable {
			statements = append(statements,
				fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", table, col.name))
		} else {
			statements = append(statements,
				fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", table, col.name))
		}
		return statements
	default:
		// SQLiteはカラム定義変更に非対応。テーブル再作成が必要。
		return []string{fmt.Sprintf("-- SQLite cannot change column %s on %s", col.name, table)}
	}
}

func (g *Grammar) foreignKeyClause(fk *ForeignKeyDefinition) string {
	referenced := fk.referencedColumn
	if referenced == "" {
		referenced = "id"
	}
	clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		fk.name, fk.column, fk.referencedTable, referenced)
	if fk.onDelete != "" {
		clause += " ON DELETE " + fk.onDelete
	}
	if fk.onUpdate != "" {
		clause += " ON UPDATE " + fk.onUpdate
	}
	return clause
}
