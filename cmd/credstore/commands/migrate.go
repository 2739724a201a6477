package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rpgjournals/credstore/internal/stores"
)

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "migrate",
		Args:    cobra.NoArgs,
		Aliases: []string{"m"},
		Short:   "Database migration commands",
		Long:    `Apply or inspect the embedded relational schema.`,
	}

	cmd.AddCommand(
		newMigrateUpCommand(a),
		newMigrateStatusCommand(a),
	)

	return cmd
}

func newMigrateUpCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Args:  cobra.NoArgs,
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, dialect, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := stores.Migrate(cmd.Context(), db, dialect, a.logger); err != nil {
				return err
			}
			a.logger.WithField("dialect", dialect).Info("migrations applied")
			return nil
		},
	}
}

func newMigrateStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Args:  cobra.NoArgs,
		Short: "Print the state of every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, dialect, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			states, err := stores.MigrationStatus(cmd.Context(), db, dialect)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range states {
				applied := "pending"
				if s.Applied {
					applied = s.AppliedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%d\t%s\t%s\n", s.Version, s.Path, applied)
			}
			return nil
		},
	}
}
