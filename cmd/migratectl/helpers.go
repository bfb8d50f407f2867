package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"gorm.io/gorm"

	"schema-migration-service/internal/infra"
	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/repository"
	"schema-migration-service/internal/usecase"
)

// openDB はDATABASE_URLを使ってデータベースへ接続する。
func openDB() (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	db, err := infra.NewDB(cfg.DatabaseURL, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newService はDB接続とMigrationServiceを初期化する。
func newService() (*usecase.MigrationService, *gorm.DB, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewMigrationRepository(db)
	return usecase.NewMigrationService(repo, db, migration.Default), db, nil
}

// migrationsDir はマイグレーションソースの格納ディレクトリを絶対パスで返す。
func migrationsDir() (string, error) {
	absPath, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve migrations directory: %w", err)
	}
	return absPath, nil
}

// newTabWriter はテーブル表示用のtabwriterを生成する。
func newTabWriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
}
