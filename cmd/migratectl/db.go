package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"schema-migration-service/database/seeders"
	"schema-migration-service/internal/usecase"
)

// seedCmd はシーダーの実行コマンド。
func seedCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "db:seed [seeder...]",
		Short: "Run database seeders",
		Long:  "Run the named seeders, or all registered seeders when none are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			seeder := usecase.NewSeeder(db)
			seeders.RegisterAll(seeder)

			if list {
				for _, name := range seeder.Names() {
					fmt.Println(name)
				}
				return nil
			}

			if err := seeder.Run(context.Background(), args...); err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}
			fmt.Println("Seeding completed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List registered seeders without running them")
	return cmd
}

// wipeCmd は全テーブルの行削除コマンド。
func wipeCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "db:wipe",
		Short: "Delete all rows from every table",
		Long:  "Delete all rows from every table except the migration history. Tables themselves are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm("This will delete ALL rows in the database. Continue? [y/N]: ") {
				fmt.Println("Aborted.")
				return nil
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			if err := usecase.NewSeeder(db).Wipe(context.Background()); err != nil {
				return fmt.Errorf("wipe failed: %w", err)
			}
			fmt.Println("Database wiped.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
	return cmd
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
