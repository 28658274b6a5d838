package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sigchat/internal/app"
	"sigchat/internal/crypto"
	"sigchat/internal/domain"
)

// startSessionCmd performs the Triple-DH handshake against a peer's DeviceInfo
// and persists a new session for future messaging.
func startSessionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "start-session <peer>",
		Short: "Establish a secure session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.UserID(args[0])
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				info, err := w.Sessions.InitiateSession(ctx, peer)
				if err != nil {
					return fmt.Errorf("starting session with %q: %w", peer, err)
				}
				// Print the peer fingerprint so users can compare it out of band.
				fmt.Fprintf(cmd.OutOrStdout(), "Session created with %s. Peer fingerprint: %s\n",
					peer, crypto.Fingerprint(info.IdentityKey.Slice()))
				return nil
			})
		},
	}
}

func resetSessionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-session <peer>",
		Short: "Destroy the session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.UserID(args[0])
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				if err := w.Manager.ResetSession(ctx, peer); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session with %s reset\n", peer)
				return nil
			})
		},
	}
}

func sessionsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List peers with an established session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				peers, err := w.Manager.Sessions(ctx)
				if err != nil {
					return err
				}
				for _, p := range peers {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			})
		},
	}
}
