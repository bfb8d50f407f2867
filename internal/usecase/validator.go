package usecase

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"schema-migration-service/internal/domain"
)

// Severity は検証結果の深刻度。
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue はマイグレーションファイルの検証で見つかった問題。
type Issue struct {
	Severity Severity `json:"severity"`
	File     string   `json:"file"`
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
}

var (
	migrationFilePattern = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}_\d{6}_[a-z][a-z0-9_]*\.go$`)
	destructivePattern   = regexp.MustCompile(`(?i)\b(drop\s+table|drop\s+database|truncate)\b`)
	deleteAllPattern     = regexp.MustCompile(`(?i)\bdelete\s+from\b`)
	wherePattern         = regexp.MustCompile(`(?i)\bwhere\b`)
)

// MigrationValidator はマイグレーションソースを静的解析し、
// 規約違反やロールバック不能になる定義を適用前に検出する。
type MigrationValidator struct {
	dir string
}

// NewMigrationValidator は指定ディレクトリを対象とするバリデータを生成する。
func NewMigrationValidator(dir string) *MigrationValidator {
	return &MigrationValidator{dir: dir}
}

// ValidateAll はディレクトリ内の全マイグレーションファイルを検証する。
func (v *MigrationValidator) ValidateAll() ([]Issue, error) {
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", v.dir, err)
	}

	var issues []Issue
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		fileIssues, err := v.ValidateFile(filepath.Join(v.dir, name))
		if err != nil {
			return nil, err
		}
		issues = append(issues, fileIssues...)
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].File < issues[j].File })
	return issues, nil
}

// ValidateFile は単一のマイグレーションファイルを検証する。
func (v *MigrationValidator) ValidateFile(path string) ([]Issue, error) {
	base := filepath.Base(path)
	var issues []Issue

	if !migrationFilePattern.MatchString(base) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			File:     base,
			Rule:     "filename",
			Message:  "filename must match YYYY_MM_DD_HHMMSS_snake_case_name.go",
		})
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return append(issues, Issue{
			Severity: SeverityError,
			File:     base,
			Rule:     "syntax",
			Message:  fmt.Sprintf("parse error: %v", err),
		}), nil
	}

	m := inspectMigrationFile(file)

	if m.structName == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			File:     base,
			Rule:     "structure",
			Message:  "no migration struct with an Up method found",
		})
		return issues, nil
	}

	if expected := expectedStructName(base); expected != "" && m.structName != expected {
		issues = append(issues, Issue{
			Severity: SeverityInfo,
			File:     base,
			Rule:     "naming",
			Message:  fmt.Sprintf("struct %s does not match filename, expected %s", m.structName, expected),
		})
	}

	if !m.hasDown {
		issues = append(issues, Issue{
			Severity: SeverityError,
			File:     base,
			Rule:     "reversibility",
			Message:  fmt.Sprintf("migration %s has no Down method, rollback is impossible", m.structName),
		})
	} else if m.downEmpty {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			File:     base,
			Rule:     "reversibility",
			Message:  "Down method is empty, rollback will not undo any changes",
		})
	}

	for _, table := range m.upCreated {
		if !containsString(m.downDropped, table) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				File:     base,
				Rule:     "reversibility",
				Message:  fmt.Sprintf("table %q is created in Up but never dropped in Down", table),
			})
		}
	}

	for _, sql := range m.rawStatements {
		if destructivePattern.MatchString(sql) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				File:     base,
				Rule:     "destructive",
				Message:  fmt.Sprintf("raw SQL contains a destructive statement: %s", truncateSQL(sql)),
			})
		}
		if deleteAllPattern.MatchString(sql) && !wherePattern.MatchString(sql) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				File:     base,
				Rule:     "destructive",
				Message:  fmt.Sprintf("DELETE without WHERE clause affects all rows: %s", truncateSQL(sql)),
			})
		}
	}

	if !m.registered {
		issues = append(issues, Issue{
			Severity: SeverityError,
			File:     base,
			Rule:     "registration",
			Message:  "migration is never registered in an init function, it will not run",
		})
	}

	return issues, nil
}

// HasErrors はerror深刻度の問題が含まれるかを返す。
func HasErrors(issues []Issue) bool {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidationError はerrorを含む検証結果をエラー値に変換する。含まない場合はnil。
func ValidationError(issues []Issue) error {
	count := 0
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			count++
		}
	}
	if count == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d error(s) found", domain.ErrValidationFailed, count)
}

type migrationFileInfo struct {
	structName    string
	hasDown       bool
	downEmpty     bool
	upCreated     []string
	downDropped   []string
	rawStatements []string
	registered    bool
}

func inspectMigrationFile(file *ast.File) migrationFileInfo {
	var info migrationFileInfo

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if fn.Name.Name == "init" && fn.Recv == nil {
			if callsRegister(fn.Body) {
				info.registered = true
			}
			continue
		}
		recv := receiverTypeName(fn)
		if recv == "" {
			continue
		}
		switch fn.Name.Name {
		case "Up":
			info.structName = recv
			info.upCreated = append(info.upCreated, builderCallTables(fn.Body, "Create")...)
			info.rawStatements = append(info.rawStatements, builderCallTables(fn.Body, "Raw")...)
		case "Down":
			if info.structName == "" {
				info.structName = recv
			}
			info.hasDown = true
			info.downEmpty = isEmptyBody(fn.Body)
			info.downDropped = append(info.downDropped, builderCallTables(fn.Body, "Drop")...)
			info.downDropped = append(info.downDropped, builderCallTables(fn.Body, "DropIfExists")...)
			info.rawStatements = append(info.rawStatements, builderCallTables(fn.Body, "Raw")...)
		}
	}
	return info
}

func receiverTypeName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// builderCallTables はビルダーのメソッド呼び出しから最初の文字列リテラル引数を集める。
// b.Create(ctx, "users", ...) → "users"、b.Raw(ctx, "DROP ...") → SQL文字列。
func builderCallTables(body *ast.BlockStmt, method string) []string {
	if body == nil {
		return nil
	}
	var values []string
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || sel.Sel.Name != method {
			return true
		}
		for _, arg := range call.Args {
			if lit, ok := arg.(*ast.BasicLit); ok && lit.Kind == token.STRING {
				values = append(values, strings.Trim(lit.Value, "`\""))
				break
			}
		}
		return true
	})
	return values
}

func callsRegister(body *ast.BlockStmt) bool {
	if body == nil {
		return false
	}
	found := false
	ast.Inspect(body, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		switch fun := call.Fun.(type) {
		case *ast.Ident:
			if fun.Name == "Register" {
				found = true
			}
		case *ast.SelectorExpr:
			if fun.Sel.Name == "Register" {
				found = true
			}
		}
		return !found
	})
	return found
}

// isEmptyBody は実質的に何もしないボディ（空、またはreturn nilのみ）かを判定する。
func isEmptyBody(body *ast.BlockStmt) bool {
	if body == nil || len(body.List) == 0 {
		return true
	}
	if len(body.List) != 1 {
		return false
	}
	ret, ok := body.List[0].(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return false
	}
	ident, ok := ret.Results[0].(*ast.Ident)
	return ok && ident.Name == "nil"
}

// expectedStructName はファイル名の名前部分から期待される構造体名を導出する。
// 2025_01_02_120000_create_users_table.go → CreateUsersTable
func expectedStructName(filename string) string {
	name := strings.TrimSuffix(filename, ".go")
	parts := strings.SplitN(name, "_", 5)
	if len(parts) < 5 {
		return ""
	}
	return CamelCase(parts[4])
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func truncateSQL(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > 60 {
		return sql[:60] + "..."
	}
	return sql
}
