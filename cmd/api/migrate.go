package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sangkips/invoicecore/internal/infrastructure/database"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var skipAccounting bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug)
			if err != nil {
				return err
			}
			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			log.Info().Msg("primary store migrated")

			if skipAccounting {
				return nil
			}

			accountingDB, err := database.NewAccountingDB(&cfg.Accounting)
			if err != nil {
				return err
			}
			if accountingDB == nil {
				log.Info().Msg("accounting store not configured, skipping")
				return nil
			}
			if err := database.AutoMigrateAccounting(accountingDB); err != nil {
				return fmt.Errorf("accounting store: %w", err)
			}
			log.Info().Msg("accounting store migrated")
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipAccounting, "skip-accounting", false, "only migrate the primary store")
	return cmd
}
