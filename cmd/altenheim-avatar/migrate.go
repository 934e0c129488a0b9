package main

import (
	"github.com/spf13/cobra"

	"altenheim-avatar/internal/common/database"
	"altenheim-avatar/internal/common/logger"
	"altenheim-avatar/internal/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := database.NewPostgresDB(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)
			return database.Migrate(cmd.Context(), db, log)
		},
	}
}
