package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sigchat/internal/app"
)

func registerCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Publish your DeviceInfo to the relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				// Rotates the signed pre-key when due and tops up one-time pre-keys.
				info, err := w.Sessions.Publish(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with relay (signed pre-key %d, one-time pre-key %t)\n",
					info.UserID, info.SignedPreKey.ID, info.OneTimePreKey.Valid)
				return nil
			})
		},
	}
}
