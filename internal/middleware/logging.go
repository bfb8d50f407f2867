// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// AuditLog は監査ログの構造体。
type AuditLog struct {
	Operation string `json:"operation"`
	Migration string `json:"migration,omitempty"`
	Batch     int    `json:"batch,omitempty"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

// WriteAuditLog はスキーマ操作の監査ログを出力する。
func WriteAuditLog(ctx context.Context, operation string, migration string, batch int, result string) {
	slog.InfoContext(ctx, "schema operation completed",
		"operation", operation,
		"migration", migration,
		"batch", batch,
		"result", result,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	)
}
