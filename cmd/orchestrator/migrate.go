// cmd/orchestrator/migrate.go
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mfg-orchestrator/internal/common/database"
	"mfg-orchestrator/internal/common/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the SQL schema to the configured PostgreSQL database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		zapLog := logger.New(cfg.Logging.Level, "console")
		defer zapLog.Sync()

		file, _ := cmd.Flags().GetString("file")
		retries, _ := cmd.Flags().GetInt("retries")

		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(cmd.Context())
		}, retries, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.ApplySchemaFile(cmd.Context(), file); err != nil {
			return err
		}
		zapLog.Info("schema applied", zap.String("file", file))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().String("file", "migrations/001_initial_schema.sql", "schema file to apply")
	migrateCmd.Flags().Int("retries", 5, "connection attempts before giving up")
}
