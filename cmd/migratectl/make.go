package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"schema-migration-service/internal/usecase"
)

// makeMigrationCmd はマイグレーション雛形の生成コマンド。
func makeMigrationCmd() *cobra.Command {
	var createTable string
	var alterTable string
	cmd := &cobra.Command{
		Use:   "make:migration <name>",
		Short: "Generate a new migration file",
		Long:  "Generate a timestamped migration file from a template. The template is chosen by --create / --table, or inferred from the name.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			dir, err := migrationsDir()
			if err != nil {
				return err
			}

			kind := usecase.TemplateBlank
			table := ""
			switch {
			case createTable != "":
				kind = usecase.TemplateCreate
				table = createTable
			case alterTable != "":
				kind = usecase.TemplateAlter
				table = alterTable
			default:
				// 名前の規約からテンプレートを推定する
				if guessed := guessKindFromName(name); guessed != "" {
					kind = guessed
				}
			}

			service := usecase.NewTemplateService(dir)
			path, err := service.Generate(name, kind, table)
			if err != nil {
				return fmt.Errorf("failed to generate migration: %w", err)
			}
			fmt.Printf("Created migration: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&createTable, "create", "", "Table to create (uses the create template)")
	cmd.Flags().StringVar(&alterTable, "table", "", "Table to alter (uses the table template)")
	return cmd
}

func guessKindFromName(name string) usecase.TemplateKind {
	if strings.HasPrefix(name, "create_") {
		return usecase.TemplateCreate
	}
	return ""
}

// templateCmd は利用可能なテンプレートの一覧コマンド。
func templateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:template",
		Short: "List available migration templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			service := usecase.NewTemplateService("")
			templates := service.List()

			w := newTabWriter()
			fmt.Fprintln(w, "TEMPLATE\tDESCRIPTION")
			fmt.Fprintln(w, "--------\t-----------")
			for _, kind := range usecase.TemplateKinds() {
				fmt.Fprintf(w, "%s\t%s\n", kind, templates[kind])
			}
			return w.Flush()
		},
	}
}

// timestampCmd はタイムスタンプの生成・解析コマンド。
func timestampCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate:timestamp [value]",
		Short: "Mint a migration timestamp, or parse an existing one",
		Long:  "Without arguments, print a new timestamp for the current time (UTC). With a filename or timestamp prefix, print the parsed time.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Println(usecase.NextTimestamp())
				return nil
			}
			t, err := usecase.ParseTimestamp(args[0])
			if err != nil {
				return err
			}
			fmt.Println(t.UTC().Format(time.RFC3339))
			return nil
		},
	}
}
