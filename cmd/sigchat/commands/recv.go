package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sigchat/internal/app"
)

// recv: fetch and decrypt queued messages.
func recvCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				msgs, err := w.Messages.ReceiveMessages(ctx, limit)
				out := cmd.OutOrStdout()
				for _, m := range msgs {
					if m.GroupID != "" {
						fmt.Fprintf(out, "[%s@%s] %s\n", m.From, m.GroupID, string(m.Plaintext))
						continue
					}
					fmt.Fprintf(out, "[%s] %s\n", m.From, string(m.Plaintext))
				}
				return err
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "fetch at most this many parcels (0 for all)")
	return cmd
}
