package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vakit-notify/internal/push"
)

func NewVAPIDCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair in .env format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, _, err := push.EnsureVAPIDKeys("", "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
}
