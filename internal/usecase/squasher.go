package usecase

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"schema-migration-service/internal/domain"
)

// tableOp はマイグレーション本文から抽出した1つのスキーマ操作。
// sourceは元ファイルの呼び出し式をそのまま切り出したGoコード断片。
type tableOp struct {
	kind   string // "create" / "alter" / "drop" / "raw" / "other"
	table  string
	source string
}

// MigrationSquasher は複数のマイグレーションファイルを1つに統合する。
//
// 各ファイルのUpから操作を抽出し、作成後に破棄されたテーブルの操作を
// 相殺したうえで、残った操作を元の実行順のまま1ファイルへまとめる。
// 元ファイルは削除せず、統合ファイルを新規作成するだけに留める。
type MigrationSquasher struct {
	dir string
}

// NewMigrationSquasher は指定ディレクトリを対象とするスカッシャーを生成する。
func NewMigrationSquasher(dir string) *MigrationSquasher {
	return &MigrationSquasher{dir: dir}
}

// Squash はディレクトリ内の全マイグレーションを統合した新ファイルを生成し、
// そのパスを返す。対象が2件未満の場合はErrNothingToSquashを返す。
func (s *MigrationSquasher) Squash(name string) (string, error) {
	files, err := s.migrationFiles()
	if err != nil {
		return "", err
	}
	if len(files) < 2 {
		return "", fmt.Errorf("%w: found %d migration file(s)", domain.ErrNothingToSquash, len(files))
	}

	var ops []tableOp
	for _, file := range files {
		fileOps, err := extractUpOps(filepath.Join(s.dir, file))
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrInvalidMigrationFile, file, err)
		}
		ops = append(ops, fileOps...)
	}

	merged, createdOrder := mergeOps(ops)

	filename := fmt.Sprintf("%s_%s.go", NextTimestamp(), name)
	path := filepath.Join(s.dir, filename)
	content, err := renderSquashed(squashedData{
		StructName: CamelCase(name),
		Name:       strings.TrimSuffix(filename, ".go"),
		Sources:    sourceFileNames(files),
		Ops:        merged,
		DropOrder:  reversed(createdOrder),
	})
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing squashed migration: %w", err)
	}
	return path, nil
}

func (s *MigrationSquasher) migrationFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", s.dir, err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !migrationFilePattern.MatchString(name) {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// extractUpOps はUpメソッド内のビルダー呼び出しを出現順に抽出する。
func extractUpOps(path string) ([]tableOp, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var ops []tableOp
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Name.Name != "Up" || fn.Recv == nil || fn.Body == nil {
			continue
		}
		builderName := upBuilderParam(fn)
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}
			recv, ok := sel.X.(*ast.Ident)
			if !ok || recv.Name != builderName {
				return true
			}
			op := tableOp{
				table:  firstStringArg(call),
				source: normalizeReceiver(callSource(fset, src, call), builderName),
			}
			switch sel.Sel.Name {
			case "Create":
				op.kind = "create"
			case "Table":
				op.kind = "alter"
			case "Drop", "DropIfExists":
				op.kind = "drop"
			case "Raw":
				op.kind = "raw"
			default:
				return true
			}
			ops = append(ops, op)
			return false
		})
	}
	return ops, nil
}

// mergeOps は「作成→最終的に破棄」となったテーブルの操作を相殺する。
// 戻り値は残った操作（元の順序のまま）と、生き残ったテーブルの作成順。
func mergeOps(ops []tableOp) (merged []tableOp, createdOrder []string) {
	finallyDropped := make(map[string]bool)
	for _, op := range ops {
		switch op.kind {
		case "create":
			finallyDropped[op.table] = false
		case "drop":
			if _, created := finallyDropped[op.table]; created {
				finallyDropped[op.table] = true
			}
		}
	}

	for _, op := range ops {
		// 作成後に最終的に破棄されたテーブルの操作はすべて相殺する
		if op.table != "" && finallyDropped[op.table] {
			continue
		}
		merged = append(merged, op)
		if op.kind == "create" && !containsString(createdOrder, op.table) {
			createdOrder = append(createdOrder, op.table)
		}
	}
	return merged, createdOrder
}

func upBuilderParam(fn *ast.FuncDecl) string {
	params := fn.Type.Params.List
	if len(params) == 0 {
		return "b"
	}
	last := params[len(params)-1]
	if len(last.Names) == 0 {
		return "b"
	}
	return last.Names[0].Name
}

func firstStringArg(call *ast.CallExpr) string {
	for _, arg := range call.Args {
		if lit, ok := arg.(*ast.BasicLit); ok && lit.Kind == token.STRING {
			return strings.Trim(lit.Value, "`\"")
		}
	}
	return ""
}

func callSource(fset *token.FileSet, src []byte, call *ast.CallExpr) string {
	start := fset.Position(call.Pos()).Offset
	end := fset.Position(call.End()).Offset
	return string(src[start:end])
}

// normalizeReceiver はビルダー変数名をテンプレートの引数名bに揃える。
func normalizeReceiver(source, builderName string) string {
	if builderName == "b" {
		return source
	}
	return "b" + strings.TrimPrefix(source, builderName)
}

func sourceFileNames(files []string) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = strings.TrimSuffix(f, ".go")
	}
	return strings.Join(names, ", ")
}

func reversed(list []string) []string {
	out := make([]string, len(list))
	for i, v := range list {
		out[len(list)-1-i] = v
	}
	return out
}

type squashedData struct {
	StructName string
	Name       string
	Sources    string
	Ops        []tableOp
	DropOrder  []string
}

var squashedTemplate = template.Must(template.New("squashed").Funcs(template.FuncMap{
	"source": func(op tableOp) string { return op.source },
}).Parse(`package migrations

import (
	"context"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

// {{.StructName}} は以下のマイグレーションを統合したもの:
// {{.Sources}}
type {{.StructName}} struct {
	migration.Base
}

func init() {
	migration.Register(&{{.StructName}}{Base: migration.NewBase("{{.Name}}")})
}

func (m *{{.StructName}}) Up(ctx context.Context, b *schema.Builder) error {
{{- range .Ops}}
	if err := {{source .}}; err != nil {
		return err
	}
{{- end}}
	return nil
}

func (m *{{.StructName}}) Down(ctx context.Context, b *schema.Builder) error {
{{- range .DropOrder}}
	if err := b.DropIfExists(ctx, "{{.}}"); err != nil {
		return err
	}
{{- end}}
	return nil
}
`))

func renderSquashed(data squashedData) (string, error) {
	var sb strings.Builder
	if err := squashedTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering squashed migration: %w", err)
	}
	return sb.String(), nil
}
