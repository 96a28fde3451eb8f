package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"screenscan/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	var databaseURL string
	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema of the inspection record store",
	}
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")

	connect := func(ctx context.Context) (*sqlx.DB, error) {
		if databaseURL == "" {
			return nil, fmt.Errorf("--database-url or DATABASE_URL is required")
		}
		return sqlx.ConnectContext(ctx, "postgres", databaseURL)
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Create missing tables and indexes",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := connect(cmd.Context())
				if err != nil {
					return err
				}
				defer db.Close()

				runner := migration.NewRunner()
				start := time.Now()
				if err := runner.Run(cmd.Context(), db); err != nil {
					return err
				}
				log.Printf("Schema %s applied in %s", runner.Version(), time.Since(start).Round(time.Millisecond))
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Drop the inspections table and recreate it (destroys all records)",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := connect(cmd.Context())
				if err != nil {
					return err
				}
				defer db.Close()

				log.Println("Dropping inspections table")
				if _, err := db.ExecContext(cmd.Context(), "DROP TABLE IF EXISTS inspections CASCADE"); err != nil {
					return fmt.Errorf("drop inspections: %w", err)
				}
				return migration.NewRunner().Run(cmd.Context(), db)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the schema version this binary applies",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), migration.NewRunner().Version())
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
