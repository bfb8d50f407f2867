package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"schema-migration-service/internal/domain"
)

// migrateCmd は未適用マイグレーションの適用コマンド。
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Long:  "Apply all pending migrations to the database in timestamp order",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := newService()
			if err != nil {
				return err
			}
			applied, err := service.Migrate(context.Background())
			printApplied(applied)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return nil
		},
	}
}

// smartCmd は依存関係を解決した順序で適用するコマンド。
func smartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:smart",
		Short: "Validate migrations and apply them in dependency order",
		Long:  "Validate migration sources, resolve dependencies between pending migrations and apply them in a safe order",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 静的検証でエラーがあれば適用しない
			if err := validateSources(); err != nil {
				return err
			}
			service, _, err := newService()
			if err != nil {
				return err
			}
			applied, err := service.MigrateSmart(context.Background())
			printApplied(applied)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			return nil
		},
	}
}

// rollbackCmd は直近バッチの取り消しコマンド。
func rollbackCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "migrate:rollback",
		Short: "Rollback the last migration batch",
		Long:  "Rollback the last batch of migrations, or the last --steps batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := newService()
			if err != nil {
				return err
			}
			rolledBack, err := service.Rollback(context.Background(), steps)
			printRolledBack(rolledBack)
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "Number of batches to rollback")
	return cmd
}

// resetCmd は全マイグレーションの取り消しコマンド。
func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:reset",
		Short: "Rollback all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := newService()
			if err != nil {
				return err
			}
			rolledBack, err := service.Reset(context.Background())
			printRolledBack(rolledBack)
			if err != nil {
				return fmt.Errorf("reset failed: %w", err)
			}
			return nil
		},
	}
}

// refreshCmd は全取り消し後の再適用コマンド。
func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:refresh",
		Short: "Rollback all migrations and re-apply them",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := newService()
			if err != nil {
				return err
			}
			applied, err := service.Refresh(context.Background())
			printApplied(applied)
			if err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			return nil
		},
	}
}

// freshCmd は全テーブル破棄後の再適用コマンド。
func freshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:fresh",
		Short: "Drop all tables and re-apply all migrations",
		Long:  "Drop every table in the database and re-run all migrations. Does not depend on Down definitions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := newService()
			if err != nil {
				return err
			}
			applied, err := service.Fresh(context.Background())
			printApplied(applied)
			if err != nil {
				return fmt.Errorf("fresh failed: %w", err)
			}
			return nil
		},
	}
}

// statusCmd は適用状況の表示コマンド。
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:status",
		Short: "Show migration status",
		Long:  "Show the status of all migrations (applied/pending)",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := newService()
			if err != nil {
				return err
			}
			migrations, err := service.Status(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			w := newTabWriter()
			fmt.Fprintln(w, "MIGRATION\tSTATUS\tBATCH\tEXECUTED AT")
			fmt.Fprintln(w, "---------\t------\t-----\t-----------")
			for _, m := range migrations {
				executedAt := "-"
				if m.ExecutedAt != nil {
					executedAt = m.ExecutedAt.Format("2006-01-02 15:04:05")
				}
				batch := "-"
				if m.Status == domain.MigrationStatusApplied {
					batch = fmt.Sprintf("%d", m.Batch)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Name, m.Status, batch, executedAt)
			}
			return w.Flush()
		},
	}
}

// dryRunCmd は発行予定SQLの表示コマンド。
func dryRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:dry-run",
		Short: "Show the SQL that pending migrations would execute",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, _, err := newService()
			if err != nil {
				return err
			}
			planned, err := service.DryRun(context.Background())
			if err != nil {
				return fmt.Errorf("dry-run failed: %w", err)
			}
			if len(planned) == 0 {
				fmt.Println("No pending migrations.")
				return nil
			}
			for _, p := range planned {
				fmt.Printf("-- %s\n", p.Name)
				for _, stmt := range p.Statements {
					fmt.Printf("%s;\n", stmt)
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func printApplied(applied []domain.AppliedMigration) {
	if len(applied) == 0 {
		fmt.Println("No pending migrations.")
		return
	}
	for _, m := range applied {
		fmt.Printf("Migrated: %s (batch %d, %dms)\n", m.Name, m.Batch, m.Duration.Milliseconds())
	}
	fmt.Printf("Applied %d migration(s) successfully.\n", len(applied))
}

func printRolledBack(names []string) {
	if len(names) == 0 {
		fmt.Println("Nothing to rollback.")
		return
	}
	for _, name := range names {
		fmt.Printf("Rolled back: %s\n", name)
	}
	fmt.Printf("Rolled back %d migration(s) successfully.\n", len(names))
}
