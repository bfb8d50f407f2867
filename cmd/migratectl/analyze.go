package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"schema-migration-service/internal/migration"
	"schema-migration-service/internal/usecase"
)

// validateCmd はマイグレーションソースの静的検証コマンド。
func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:validate",
		Short: "Validate migration source files",
		Long:  "Statically check migration files for naming, reversibility and destructive statements. Exits non-zero if any error-severity issue is found.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := migrationsDir()
			if err != nil {
				return err
			}
			issues, err := usecase.NewMigrationValidator(dir).ValidateAll()
			if err != nil {
				return fmt.Errorf("validation failed to run: %w", err)
			}
			printIssues(issues)
			return usecase.ValidationError(issues)
		},
	}
}

// analyzeCmd は検証結果と依存関係グラフの表示コマンド。
func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:analyze",
		Short: "Analyze migrations: validation report and dependency graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := migrationsDir()
			if err != nil {
				return err
			}
			issues, err := usecase.NewMigrationValidator(dir).ValidateAll()
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			fmt.Println("Validation:")
			printIssues(issues)

			// 依存関係グラフは登録済みマイグレーションから構築する
			// DB接続は不要（ドライラン解析のみ）
			migrations := migration.Default.All()
			dialect := "mysql"
			if cfg.DatabaseURL != "" {
				if db, dbErr := openDB(); dbErr == nil {
					dialect = db.Dialector.Name()
					if sqlDB, sqlErr := db.DB(); sqlErr == nil {
						sqlDB.Close()
					}
				}
			}
			resolver := usecase.NewDependencyResolver()
			graph, err := resolver.Graph(context.Background(), migrations, dialect)
			if err != nil {
				return fmt.Errorf("building dependency graph: %w", err)
			}

			fmt.Println("\nDependency graph:")
			ordered, err := resolver.Resolve(context.Background(), migrations, dialect)
			if err != nil {
				return err
			}
			for _, m := range ordered {
				deps := graph[m.Name()]
				if len(deps) == 0 {
					fmt.Printf("  %s\n", m.Name())
					continue
				}
				fmt.Printf("  %s (depends on: %s)\n", m.Name(), strings.Join(deps, ", "))
			}
			return nil
		},
	}
}

// squashCmd は複数マイグレーションの統合コマンド。
func squashCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "migrate:squash",
		Short: "Squash all migration files into a single migration",
		Long:  "Merge every migration file in the migrations directory into one. Tables created and later dropped cancel out. Source files are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := migrationsDir()
			if err != nil {
				return err
			}
			path, err := usecase.NewMigrationSquasher(dir).Squash(name)
			if err != nil {
				return fmt.Errorf("squash failed: %w", err)
			}
			fmt.Printf("Created squashed migration: %s\n", path)
			fmt.Println("Review the result, then remove the source files and reset the migration history.")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "squashed_schema", "Name for the squashed migration")
	return cmd
}

// validateSources はマイグレーションソースを検証し、エラーがあれば返す。
func validateSources() error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	issues, err := usecase.NewMigrationValidator(dir).ValidateAll()
	if err != nil {
		return fmt.Errorf("validation failed to run: %w", err)
	}
	if usecase.HasErrors(issues) {
		printIssues(issues)
	}
	return usecase.ValidationError(issues)
}

func printIssues(issues []usecase.Issue) {
	if len(issues) == 0 {
		fmt.Println("  No issues found.")
		return
	}
	for _, issue := range issues {
		fmt.Printf("  [%s] %s: %s (%s)\n", issue.Severity, issue.File, issue.Message, issue.Rule)
	}
}
