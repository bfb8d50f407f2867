package seeders

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// SeedPosts は開発用の投稿データを投入する。usersシーダーの後に実行すること。
func SeedPosts(ctx context.Context, db *gorm.DB) error {
	var userIDs []uint
	if err := db.WithContext(ctx).Table("users").Order("id ASC").Limit(2).Pluck("id", &userIDs).Error; err != nil {
		return err
	}
	if len(userIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	posts := []map[string]interface{}{
		{
			"user_id":      userIDs[0],
			"title":        "Hello, world",
			"body":         "First post.",
			"status":       "published",
			"published_at": now,
			"created_at":   now,
			"updated_at":   now,
		},
		{
			"user_id":      userIDs[len(userIDs)-1],
			"title":        "Draft thoughts",
			"body":         "Work in progress.",
			"status":       "draft",
			"created_at":   now,
			"updated_at":   now,
		},
	}
	for _, post := range posts {
		if err := db.WithContext(ctx).Table("posts").Create(post).Error; err != nil {
			return err
		}
	}
	return nil
}
