package cli

import (
	"github.com/spf13/cobra"

	"vakit-notify/internal/store"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := rootOpts.load()
			if err != nil {
				return err
			}
			st, err := store.OpenSQL(cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.RunMigrations(cmd.Context()); err != nil {
				return err
			}
			log.Info().Str("driver", cfg.DatabaseDriver).Msg("database migrations completed")
			return nil
		},
	}
}
