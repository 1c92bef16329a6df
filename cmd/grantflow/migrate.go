package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/MbBrainz/grantflow-dev-sub000/src/config"
	"github.com/MbBrainz/grantflow-dev-sub000/src/data"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		db, err := data.ConnectMySQL(cfg.MySQLDSN)
		if err != nil {
			return err
		}
		if err := data.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Printf("schema up to date")
		return nil
	},
}
