package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type SchedulerOptions struct {
	*RootOptions
	Schedule string
	Timeout  time.Duration
}

// NewSchedulerCommand runs the dispatch cycle on a cron schedule. Run one
// scheduler per deployment; overlapping runs are skipped.
func NewSchedulerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchedulerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Trigger the dispatch cycle on a cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduler(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", "cron expression (overrides DISPATCH_SCHEDULE)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 5*time.Minute, "upper bound for one cycle")
	return cmd
}

func runScheduler(ctx context.Context, opts *SchedulerOptions) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	if opts.Schedule != "" {
		cfg.DispatchSchedule = opts.Schedule
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log})),
	)
	if _, err := c.AddFunc(cfg.DispatchSchedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		if _, err := a.cycle.Run(runCtx, time.Now()); err != nil {
			log.Error().Err(err).Msg("scheduled dispatch failed")
		}
	}); err != nil {
		return err
	}

	c.Start()
	log.Info().Str("schedule", cfg.DispatchSchedule).Str("tz", loc.String()).Msg("scheduler started")
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("scheduler stopped")
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
