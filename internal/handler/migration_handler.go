// Package handler はHTTPハンドラを提供する。
package handler

import (
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"schema-migration-service/internal/domain"
	"schema-migration-service/internal/middleware"
	"schema-migration-service/internal/usecase"
	"schema-migration-service/pkg/httputil"
)

var tableNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// MigrationHandler はマイグレーション状態の読み取り専用APIを提供する。
// スキーマを変更する操作はCLI（migratectl）のみに限定する。
type MigrationHandler struct {
	service   *usecase.MigrationService
	inspector *usecase.DatabaseInspector
}

// NewMigrationHandler は新しいMigrationHandlerを生成する。
func NewMigrationHandler(service *usecase.MigrationService, inspector *usecase.DatabaseInspector) *MigrationHandler {
	return &MigrationHandler{service: service, inspector: inspector}
}

// MigrationResponse はマイグレーション1件のレスポンス形式。
type MigrationResponse struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Batch      int    `json:"batch,omitempty"`
	ExecutedAt string `json:"executed_at,omitempty"`
}

// MigrationListResponse はマイグレーション一覧のレスポンス形式。
type MigrationListResponse struct {
	Migrations []MigrationResponse `json:"migrations"`
}

// StatusSummaryResponse は適用状況サマリのレスポンス形式。
type StatusSummaryResponse struct {
	Applied      int      `json:"applied"`
	Pending      int      `json:"pending"`
	Batch        int      `json:"latest_batch"`
	PendingNames []string `json:"pending_names,omitempty"`
}

// TableListResponse はテーブル一覧のレスポンス形式。
type TableListResponse struct {
	Tables []string `json:"tables"`
}

// ColumnResponse はカラム情報のレスポンス形式。
type ColumnResponse struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Nullable      bool   `json:"nullable"`
	Default       string `json:"default,omitempty"`
	PrimaryKey    bool   `json:"primary_key,omitempty"`
	AutoIncrement bool   `json:"auto_increment,omitempty"`
}

// IndexResponse はインデックス情報のレスポンス形式。
type IndexResponse struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Unique  bool     `json:"unique"`
	Primary bool     `json:"primary"`
}

// ForeignKeyResponse は外部キー情報のレスポンス形式。
type ForeignKeyResponse struct {
	Name             string `json:"name"`
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	OnDelete         string `json:"on_delete,omitempty"`
	OnUpdate         string `json:"on_update,omitempty"`
}

// TableResponse は1テーブル分のスキーマレスポンス形式。
type TableResponse struct {
	Name        string               `json:"name"`
	Columns     []ColumnResponse     `json:"columns"`
	Indexes     []IndexResponse      `json:"indexes"`
	ForeignKeys []ForeignKeyResponse `json:"foreign_keys"`
}

// ListMigrations はマイグレーション一覧を取得する。
func (h *MigrationHandler) ListMigrations(w http.ResponseWriter, r *http.Request) {
	migrations, err := h.service.Status(r.Context())
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "LIST_MIGRATIONS", "", 0, "FAILED")
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	middleware.WriteAuditLog(r.Context(), "LIST_MIGRATIONS", "", 0, "SUCCESS")
	response := MigrationListResponse{
		Migrations: make([]MigrationResponse, len(migrations)),
	}
	for i, m := range migrations {
		response.Migrations[i] = toMigrationResponse(m)
	}
	httputil.JSON(w, http.StatusOK, response)
}

// GetStatus は適用状況のサマリを取得する。
func (h *MigrationHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	migrations, err := h.service.Status(r.Context())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	var summary StatusSummaryResponse
	for _, m := range migrations {
		switch m.Status {
		case domain.MigrationStatusApplied:
			summary.Applied++
			if m.Batch > summary.Batch {
				summary.Batch = m.Batch
			}
		case domain.MigrationStatusPending:
			summary.Pending++
			summary.PendingNames = append(summary.PendingNames, m.Name)
		}
	}
	httputil.JSON(w, http.StatusOK, summary)
}

// ListTables はデータベースのテーブル一覧を取得する。
func (h *MigrationHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.inspector.Tables(r.Context())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	httputil.JSON(w, http.StatusOK, TableListResponse{Tables: tables})
}

// GetTable は単一テーブルの構造を取得する。
func (h *MigrationHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	if table == "" || len(table) > 64 || !tableNameRegex.MatchString(table) {
		httputil.Error(w, http.StatusBadRequest, "INVALID_TABLE_NAME", "invalid table name format")
		return
	}

	if !hasTable(r, h, table) {
		httputil.Error(w, http.StatusNotFound, "TABLE_NOT_FOUND", "table not found")
		return
	}

	info, err := h.inspector.Table(r.Context(), table)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	httputil.JSON(w, http.StatusOK, toTableResponse(info))
}

// Healthz は死活確認用エンドポイント。
func (h *MigrationHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func hasTable(r *http.Request, h *MigrationHandler, table string) bool {
	tables, err := h.inspector.Tables(r.Context())
	if err != nil {
		return false
	}
	for _, t := range tables {
		if t == table {
			return true
		}
	}
	return false
}

func toTableResponse(info *domain.TableInfo) TableResponse {
	resp := TableResponse{
		Name:        info.Name,
		Columns:     make([]ColumnResponse, len(info.Columns)),
		Indexes:     make([]IndexResponse, len(info.Indexes)),
		ForeignKeys: make([]ForeignKeyResponse, len(info.ForeignKeys)),
	}
	for i, col := range info.Columns {
		resp.Columns[i] = ColumnResponse{
			Name:          col.Name,
			Type:          col.Type,
			Nullable:      col.Nullable,
			Default:       col.Default,
			PrimaryKey:    col.PrimaryKey,
			AutoIncrement: col.AutoIncrement,
		}
	}
	for i, idx := range info.Indexes {
		resp.Indexes[i] = IndexResponse{
			Name:    idx.Name,
			Columns: idx.Columns,
			Unique:  idx.Unique,
			Primary: idx.Primary,
		}
	}
	for i, fk := range info.ForeignKeys {
		resp.ForeignKeys[i] = ForeignKeyResponse{
			Name:             fk.Name,
			Column:           fk.Column,
			ReferencedTable:  fk.ReferencedTable,
			ReferencedColumn: fk.ReferencedColumn,
			OnDelete:         fk.OnDelete,
			OnUpdate:         fk.OnUpdate,
		}
	}
	return resp
}

func toMigrationResponse(m *domain.Migration) MigrationResponse {
	resp := MigrationResponse{
		Name:   m.Name,
		Status: string(m.Status),
		Batch:  m.Batch,
	}
	if m.ExecutedAt != nil {
		resp.ExecutedAt = m.ExecutedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
