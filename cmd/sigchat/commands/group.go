package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sigchat/internal/app"
	"sigchat/internal/domain"
)

func groupCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage sender-key groups",
	}
	cmd.AddCommand(
		groupCreateCmd(c, "create", "Create a group and distribute your sender key"),
		groupCreateCmd(c, "join", "Join a group you were invited to and distribute your sender key"),
		groupSendCmd(c),
		groupDistributeCmd(c),
		groupAddMemberCmd(c),
		groupRemoveMemberCmd(c),
		groupLeaveCmd(c),
		groupListCmd(c),
	)
	return cmd
}

// groupCreateCmd serves both create and join; they differ only in whether
// an existing group is an error.
func groupCreateCmd(c *cli, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <group> <member>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gid := domain.GroupID(args[0])
			members := userIDs(args[1:])
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				var err error
				if use == "create" {
					_, err = w.Manager.CreateGroup(ctx, gid, members)
				} else {
					_, err = w.Manager.JoinGroup(ctx, gid, members)
				}
				if err != nil {
					return err
				}
				return distribute(ctx, cmd, w, gid)
			})
		},
	}
}

func groupSendCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "send <group> <message>",
		Short: "Encrypt a message once and send it to every member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gid := domain.GroupID(args[0])
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				if err := w.Messages.SendGroupMessage(ctx, gid, []byte(args[1])); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "sent")
				return nil
			})
		},
	}
}

func groupDistributeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "distribute <group>",
		Short: "Send your current sender key to every member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				return distribute(ctx, cmd, w, domain.GroupID(args[0]))
			})
		},
	}
}

func groupAddMemberCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "add-member <group> <user>",
		Short: "Record a new member and send them your sender key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gid := domain.GroupID(args[0])
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				if err := w.Manager.AddMember(ctx, gid, domain.UserID(args[1])); err != nil {
					return err
				}
				return distribute(ctx, cmd, w, gid)
			})
		},
	}
}

func groupRemoveMemberCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member <group> <user>",
		Short: "Drop a departed member, rotate your sender key and redistribute it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			gid := domain.GroupID(args[0])
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				if _, err := w.Manager.HandleMemberLeave(ctx, gid, domain.UserID(args[1])); err != nil {
					return err
				}
				return distribute(ctx, cmd, w, gid)
			})
		},
	}
}

func groupLeaveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "leave <group>",
		Short: "Delete your state for a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gid := domain.GroupID(args[0])
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				if err := w.Manager.LeaveGroup(ctx, gid); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Left %s\n", gid)
				return nil
			})
		},
	}
}

func groupListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List groups and their members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWire(cmd, func(ctx context.Context, w *app.Wire) error {
				groups, err := w.Manager.Groups(ctx)
				if err != nil {
					return err
				}
				for _, g := range groups {
					members, err := w.Manager.GroupMembers(ctx, g)
					if err != nil {
						return err
					}
					names := make([]string, len(members))
					for i, m := range members {
						names[i] = string(m)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", g, strings.Join(names, ", "))
				}
				return nil
			})
		},
	}
}

func distribute(ctx context.Context, cmd *cobra.Command, w *app.Wire, gid domain.GroupID) error {
	missing, err := w.Messages.DistributeSenderKey(ctx, gid)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sender key for %s distributed\n", gid)
	for _, m := range missing {
		fmt.Fprintf(out, "  no session with %s; run start-session %s and distribute again\n", m, m)
	}
	return nil
}

func userIDs(args []string) []domain.UserID {
	out := make([]domain.UserID, len(args))
	for i, a := range args {
		out[i] = domain.UserID(a)
	}
	return out
}
