package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lab-allocation-backend/internal/db"
	"lab-allocation-backend/internal/engine"
	"lab-allocation-backend/internal/store"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Migrate the database and create the workstation inventory if it is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}

			gormDB, err := db.Init(&cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			eng := engine.New(store.NewGormStore(gormDB, cfg.Database.OpTimeout), nil, nil, cfg.Inventory, logger)

			created, err := eng.Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d systems\n", created)
			return nil
		},
	}
}
