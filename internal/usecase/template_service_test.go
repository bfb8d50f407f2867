package usecase

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTemplateService_GenerateCreate(t *testing.T) {
	dir := t.TempDir()
	svc := NewTemplateService(dir)

	path, err := svc.Generate("create_users_table", TemplateCreate, "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !migrationFilePattern.MatchString(filepath.Base(path)) {
		t.Errorf("filename %s should follow the migration naming convention", filepath.Base(path))
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading generated file: %v", err)
	}
	src := string(content)
	if !strings.Contains(src, "type CreateUsersTable struct") {
		t.Error("generated file should declare CreateUsersTable struct")
	}
	// テーブル名は名前規約から推定される
	if !strings.Contains(src, `b.Create(ctx, "users"`) {
		t.Error("create template should target the users table")
	}
	if !strings.Contains(src, `b.DropIfExists(ctx, "users")`) {
		t.Error("create template Down should drop the users table")
	}
	if !strings.Contains(src, "migration.Register(") {
		t.Error("generated file should self-register")
	}
}

func TestTemplateService_GenerateAlterWithExplicitTable(t *testing.T) {
	dir := t.TempDir()
	svc := NewTemplateService(dir)

	path, err := svc.Generate("add_bio_to_users_table", TemplateAlter, "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading generated file: %v", err)
	}
	if !strings.Contains(string(content), `b.Table(ctx, "users"`) {
		t.Error("alter template should infer users from xxx_to_users_table")
	}
}

func TestTemplateService_RejectsInvalidName(t *testing.T) {
	svc := NewTemplateService(t.TempDir())
	if _, err := svc.Generate("CreateUsers", TemplateBlank, ""); err == nil {
		t.Error("non-snake_case name should be rejected")
	}
	if _, err := svc.Generate("create_users_table", TemplateKind("bogus"), ""); err == nil {
		t.Error("unknown template kind should be rejected")
	}
}

func TestParseTimestamp_RoundTrip(t *testing.T) {
	ts := NextTimestamp()
	parsed, err := ParseTimestamp(ts)
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if parsed.Format(timestampLayout) != ts {
		t.Errorf("round trip mismatch: %s vs %s", parsed.Format(timestampLayout), ts)
	}
}

func TestParseTimestamp_FromFilename(t *testing.T) {
	parsed, err := ParseTimestamp("2025_07_15_100000_create_users_table.go")
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	want := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	if !parsed.Equal(want) {
		t.Errorf("expected %v, got %v", want, parsed)
	}

	if _, err := ParseTimestamp("not_a_timestamp"); err == nil {
		t.Error("invalid timestamp should fail to parse")
	}
}

func TestGuessTable(t *testing.T) {
	cases := []struct {
		name string
		kind TemplateKind
		want string
	}{
		{"create_users_table", TemplateCreate, "users"},
		{"add_bio_to_users_table", TemplateAlter, "users"},
		{"tune_indexes", TemplateAlter, "table"},
	}
	for _, tc := range cases {
		if got := guessTable(tc.name, tc.kind); got != tc.want {
			t.Errorf("guessTable(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}
