// Package cli wires configuration, stores and services into the
// vakit-notify commands.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vakit-notify/internal/config"
	"vakit-notify/internal/logx"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vakit-notify",
		Short: "Prayer time reminders over web push, plus daily streaks",
		Long: `vakit-notify sends web push reminders before and at each prayer time
for users who opted in, keeps their notification inbox and tracks their
daily engagement streaks.

Configuration comes from the environment (optionally a .env file) and an
optional YAML file with per-locality overrides.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML config overlay (overrides CONFIG_FILE)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "console or json (overrides LOG_FORMAT)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewDispatchCommand(opts))
	cmd.AddCommand(NewSchedulerCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewVAPIDCommand(opts))

	return cmd
}

// load reads configuration and builds the root logger. Flags win over the
// environment.
func (o *RootOptions) load() (config.Config, zerolog.Logger, error) {
	if o.ConfigFile != "" {
		os.Setenv("CONFIG_FILE", o.ConfigFile)
	}
	cfg, envLoaded, err := config.Load()
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	log := logx.New(logx.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return cfg, log, err
	}
	if !envLoaded {
		log.Debug().Msg("no .env file found, using environment")
	}
	return cfg, log, nil
}
