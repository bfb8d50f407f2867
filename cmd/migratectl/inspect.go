package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"schema-migration-service/internal/domain"
	"schema-migration-service/internal/infra"
	"schema-migration-service/internal/usecase"
)

// inspectCmd は接続先データベースのスキーマ表示コマンド。
func inspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "db:inspect [table]",
		Short: "Inspect the database schema",
		Long:  "Show tables, columns, indexes and foreign keys of the connected database. With a table argument, show only that table.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			inspector := usecase.NewDatabaseInspector(db)
			ctx := context.Background()

			if len(args) == 1 {
				info, err := inspector.Table(ctx, args[0])
				if err != nil {
					return fmt.Errorf("inspect failed: %w", err)
				}
				if asJSON {
					return printJSON(info)
				}
				printTableInfo(info)
				return nil
			}

			snapshot, err := inspector.Snapshot(ctx)
			if err != nil {
				return fmt.Errorf("inspect failed: %w", err)
			}
			if asJSON {
				return printJSON(snapshot)
			}
			for _, name := range snapshot.TableNames() {
				printTableInfo(snapshot.Tables[name])
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// compareCmd は2つのデータベースのスキーマ比較コマンド。
func compareCmd() *cobra.Command {
	var fromDSN, toDSN string
	cmd := &cobra.Command{
		Use:   "db:compare",
		Short: "Compare the schemas of two databases",
		Long:  "Show the differences between two database schemas. --from defaults to DATABASE_URL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, _, err := compareDatabases(fromDSN, toDSN)
			if err != nil {
				return err
			}
			if diff.Empty() {
				fmt.Println("Schemas are identical.")
				return nil
			}
			return printJSON(diff)
		},
	}
	cmd.Flags().StringVar(&fromDSN, "from", "", "Source database DSN (defaults to DATABASE_URL)")
	cmd.Flags().StringVar(&toDSN, "to", "", "Target database DSN (required)")
	cmd.MarkFlagRequired("to")
	return cmd
}

// diffCmd はスキーマ差分からマイグレーションを生成するコマンド。
func diffCmd() *cobra.Command {
	var fromDSN, toDSN, name string
	cmd := &cobra.Command{
		Use:   "migrate:diff",
		Short: "Generate a migration from the difference between two databases",
		Long:  "Compare two database schemas and write a migration that transforms the source schema into the target schema.",
		RunE: func(cmd *cobra.Command, args []string) error {
			diff, to, err := compareDatabases(fromDSN, toDSN)
			if err != nil {
				return err
			}
			if diff.Empty() {
				fmt.Println("Schemas are identical, nothing to generate.")
				return nil
			}

			dir, err := migrationsDir()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating migrations directory: %w", err)
			}

			filename := fmt.Sprintf("%s_%s.go", usecase.NextTimestamp(), name)
			migrationName := filename[:len(filename)-len(".go")]
			source := usecase.NewDatabaseDiffer().GenerateMigration(diff, to, migrationName, usecase.CamelCase(name))

			path := filepath.Join(dir, filename)
			if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
				return fmt.Errorf("writing migration: %w", err)
			}
			fmt.Printf("Created migration: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&fromDSN, "from", "", "Source database DSN (defaults to DATABASE_URL)")
	cmd.Flags().StringVar(&toDSN, "to", "", "Target database DSN (required)")
	cmd.Flags().StringVar(&name, "name", "schema_diff", "Name for the generated migration")
	cmd.MarkFlagRequired("to")
	return cmd
}

func compareDatabases(fromDSN, toDSN string) (*usecase.SchemaDiff, *domain.SchemaSnapshot, error) {
	if fromDSN == "" {
		fromDSN = cfg.DatabaseURL
	}
	if fromDSN == "" {
		return nil, nil, fmt.Errorf("--from is required (or set DATABASE_URL)")
	}

	ctx := context.Background()
	fromDB, err := infra.NewDB(fromDSN, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to source database: %w", err)
	}
	toDB, err := infra.NewDB(toDSN, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to target database: %w", err)
	}

	fromSnapshot, err := usecase.NewDatabaseInspector(fromDB).Snapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("inspecting source database: %w", err)
	}
	toSnapshot, err := usecase.NewDatabaseInspector(toDB).Snapshot(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("inspecting target database: %w", err)
	}

	diff := usecase.NewDatabaseDiffer().Compare(fromSnapshot, toSnapshot)
	return diff, toSnapshot, nil
}

func printTableInfo(info *domain.TableInfo) {
	fmt.Printf("Table: %s\n", info.Name)
	w := newTabWriter()
	fmt.Fprintln(w, "  COLUMN\tTYPE\tNULLABLE\tDEFAULT")
	for _, col := range info.Columns {
		def := "-"
		if col.HasDefault {
			def = col.Default
		}
		fmt.Fprintf(w, "  %s\t%s\t%t\t%s\n", col.Name, col.Type, col.Nullable, def)
	}
	w.Flush()
	for _, idx := range info.Indexes {
		kind := "index"
		if idx.Primary {
			kind = "primary"
		} else if idx.Unique {
			kind = "unique"
		}
		fmt.Printf("  %s %s (%s)\n", kind, idx.Name, strings.Join(idx.Columns, ", "))
	}
	for _, fk := range info.ForeignKeys {
		fmt.Printf("  foreign %s: %s -> %s.%s\n", fk.Name, fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
	}
}

func printJSON(data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
