package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"schema-migration-service/config"
)

// NewRouter はルーターを生成する。
func NewRouter(h *MigrationHandler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// ミドルウェア
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	// ルート定義
	r.Get("/healthz", h.Healthz)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/migrations", h.ListMigrations)
		r.Get("/migrations/status", h.GetStatus)
		r.Get("/schema/tables", h.ListTables)
		r.Get("/schema/tables/{table}", h.GetTable)
	})

	if cfg != nil && cfg.OtelEnabled {
		return otelhttp.NewHandler(r, "schema-migration-service")
	}
	return r
}
