package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

type DispatchOptions struct {
	*RootOptions
	At string
}

func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run one notification dispatch cycle and print its report",
		Long: `Run one notification dispatch cycle and print the JSON report.

Example:
  vakit-notify dispatch
  vakit-notify dispatch --at 2024-01-10T13:00:00+03:00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.At, "at", "", "evaluate windows at this RFC 3339 instant instead of now")
	return cmd
}

func runDispatch(ctx context.Context, opts *DispatchOptions, out io.Writer) error {
	now := time.Now()
	if opts.At != "" {
		t, err := time.Parse(time.RFC3339, opts.At)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		now = t
	}

	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.cycle.Run(ctx, now)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
