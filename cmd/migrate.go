package cmd

import (
	"fmt"

	"staysync/core/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates or updates the database schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := store.Migrate(rt.db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		rt.logger.Info("Database schema is up to date",
			zap.String("driver", rt.cfg.Database.Driver),
			zap.Int("tables", len(store.Models())),
		)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
