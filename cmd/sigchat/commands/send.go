package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sigchat/internal/app"
	"sigchat/internal/domain"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.UserID(args[0])
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				if err := w.Messages.SendMessage(ctx, peer, []byte(args[1])); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "sent")
				return nil
			})
		},
	}
}
