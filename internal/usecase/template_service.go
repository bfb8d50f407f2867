package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"
	"time"
)

// timestampLayout はマイグレーションファイル名の接頭辞形式。
const timestampLayout = "2006_01_02_150405"

var snakeCasePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// NextTimestamp は現在時刻（UTC）からファイル名用タイムスタンプを生成する。
func NextTimestamp() string {
	return time.Now().UTC().Format(timestampLayout)
}

// ParseTimestamp はファイル名またはタイムスタンプ接頭辞を時刻へ変換する。
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSuffix(filepath.Base(value), ".go")
	if len(value) > len(timestampLayout) {
		value = value[:len(timestampLayout)]
	}
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid migration timestamp %q: %w", value, err)
	}
	return t, nil
}

// CamelCase はsnake_caseをCamelCaseへ変換する。
func CamelCase(s string) string {
	parts := strings.Split(s, "_")
	var sb strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}
	return sb.String()
}

// TemplateKind は生成するマイグレーションの種類。
type TemplateKind string

const (
	TemplateBlank  TemplateKind = "blank"
	TemplateCreate TemplateKind = "create"
	TemplateAlter  TemplateKind = "table"
)

// TemplateService はマイグレーションの雛形ファイルを生成する。
type TemplateService struct {
	dir string
}

// NewTemplateService は指定ディレクトリへ生成するTemplateServiceを生成する。
func NewTemplateService(dir string) *TemplateService {
	return &TemplateService{dir: dir}
}

// List は利用可能なテンプレート種別と説明を返す。
func (s *TemplateService) List() map[TemplateKind]string {
	return map[TemplateKind]string{
		TemplateBlank:  "empty Up/Down skeleton",
		TemplateCreate: "create a new table with id and timestamps",
		TemplateAlter:  "alter an existing table",
	}
}

// Generate は雛形ファイルを生成してパスを返す。
// tableはcreate/tableテンプレートで対象テーブル名として使う。
// 空の場合は名前の規約（create_xxx_table / xxx_to_yyy_table）から推定する。
func (s *TemplateService) Generate(name string, kind TemplateKind, table string) (string, error) {
	if !snakeCasePattern.MatchString(name) {
		return "", fmt.Errorf("migration name must be snake_case, got %q", name)
	}
	if table == "" {
		table = guessTable(name, kind)
	}

	tmpl, ok := migrationTemplates[kind]
	if !ok {
		return "", fmt.Errorf("unknown template kind %q", kind)
	}

	filename := fmt.Sprintf("%s_%s.go", NextTimestamp(), name)
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("migration file already exists: %s", path)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations directory: %w", err)
	}

	var sb strings.Builder
	err := tmpl.Execute(&sb, map[string]string{
		"StructName": CamelCase(name),
		"Name":       strings.TrimSuffix(filename, ".go"),
		"Table":      table,
	})
	if err != nil {
		return "", fmt.Errorf("rendering migration template: %w", err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}
	return path, nil
}

// guessTable は名前規約からテーブル名を推定する。推定できない場合はtable。
func guessTable(name string, kind TemplateKind) string {
	if match := createTablePattern.FindStringSubmatch(name); match != nil {
		return match[1]
	}
	if idx := strings.LastIndex(name, "_to_"); idx >= 0 {
		rest := strings.TrimSuffix(name[idx+len("_to_"):], "_table")
		if rest != "" {
			return rest
		}
	}
	return "table"
}

// TemplateKinds は表示順のテンプレート種別一覧を返す。
func TemplateKinds() []TemplateKind {
	kinds := []TemplateKind{TemplateBlank, TemplateCreate, TemplateAlter}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

var migrationTemplates = map[TemplateKind]*template.Template{
	TemplateBlank: template.Must(template.New("blank").Parse(`package migrations

import (
	"context"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

type {{.StructName}} struct {
	migration.Base
}

func init() {
	migration.Register(&{{.StructName}}{Base: migration.NewBase("{{.Name}}")})
}

func (m *{{.StructName}}) Up(ctx context.Context, b *schema.Builder) error {
	return nil
}

func (m *{{.StructName}}) Down(ctx context.Context, b *schema.Builder) error {
	return nil
}
`)),
	TemplateCreate: template.Must(template.New("create").Parse(`package migrations

import (
	"context"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

type {{.StructName}} struct {
	migration.Base
}

func init() {
	migration.Register(&{{.StructName}}{Base: migration.NewBase("{{.Name}}")})
}

func (m *{{.StructName}}) Up(ctx context.Context, b *schema.Builder) error {
	return b.Create(ctx, "{{.Table}}", func(t *schema.Blueprint) {
		t.ID()
		t.Timestamps()
	})
}

func (m *{{.StructName}}) Down(ctx context.Context, b *schema.Builder) error {
	return b.DropIfExists(ctx, "{{.Table}}")
}
`)),
	TemplateAlter: template.Must(template.New("table").Parse(`package migrations

import (
	"context"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/schema"
)

type {{.StructName}} struct {
	migration.Base
}

func init() {
	migration.Register(&{{.StructName}}{Base: migration.NewBase("{{.Name}}")})
}

func (m *{{.StructName}}) Up(ctx context.Context, b *schema.Builder) error {
	return b.Table(ctx, "{{.Table}}", func(t *schema.Blueprint) {
	})
}

func (m *{{.StructName}}) Down(ctx context.Context, b *schema.Builder) error {
	return b.Table(ctx, "{{.Table}}", func(t *schema.Blueprint) {
	})
}
`)),
}
