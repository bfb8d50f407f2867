package seeders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedUsers は開発用のユーザーデータを投入する。
func SeedUsers(ctx context.Context, db *gorm.DB) error {
	now := time.Now().UTC()
	users := []map[string]interface{}{
		{
			"public_id":  uuid.New().String(),
			"name":       "Alice Example",
			"email":      "alice@example.com",
			"password":   "$2a$10$placeholderhashforalice0000000000000000000000000000",
			"active":     true,
			"created_at": now,
			"updated_at": now,
		},
		{
			"public_id":  uuid.New().String(),
			"name":       "Bob Example",
			"email":      "bob@example.com",
			"password":   "$2a$10$placeholderhashforbob000000000000000000000000000000",
			"active":     true,
			"created_at": now,
			"updated_at": now,
		},
	}
	for _, user := range users {
		if err := db.WithContext(ctx).Table("users").Create(user).Error; err != nil {
			return err
		}
	}
	return nil
}
