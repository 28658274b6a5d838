package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sigchat/internal/app"
)

func fingerprintCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				fp, err := w.Identity.FingerprintIdentity(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fp)
				return nil
			})
		},
	}
}
