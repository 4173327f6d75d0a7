package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long:  `Create the tables and indexes of the configured SQL database. Running it again is a no-op.`,
		Args:  cobra.NoArgs,
		RunE: e.runE(func(cmd *cobra.Command, _ []string) error {
			if err := e.requireSQL("migrate"); err != nil {
				return err
			}

			if err := e.services.SQL.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("error migrating database: %w", err)
			}

			e.logger.Info("Migration complete", slog.String("driver", e.cfg.Database.Driver))
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		}),
	}
}
