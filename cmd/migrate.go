package cmd

import (
	"errors"
	"log/slog"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/config"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.StoreBackend != config.BackendPostgres || cfg.DatabaseURL == "" {
			return errors.New("migrate needs STORE_BACKEND=postgres and DATABASE_URL")
		}

		db, err := storage.Open(cfg.DatabaseURL)
		if err != nil {
			slog.Error("[MIGRATE] failed to connect to database", "error", err)
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}

		if err := storage.Migrate(db); err != nil {
			slog.Error("[MIGRATE] migration failed", "error", err)
			return err
		}
		slog.Info("[MIGRATE] schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
