// Package seeders はアプリケーションのシーダー定義を保持する。
package seeders

import (
	"schema-migration-service/internal/usecase"
)

// RegisterAll は全シーダーを登録する。
func RegisterAll(s *usecase.Seeder) {
	s.Register("users", SeedUsers)
	s.Register("posts", SeedPosts)
}
