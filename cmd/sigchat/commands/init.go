package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigchat/internal/app"
	"sigchat/internal/domain"
)

func initCmd(c *cli) *cobra.Command {
	var (
		user     string
		deviceID uint32
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			cfg.User = domain.UserID(user)
			if deviceID != 0 {
				cfg.DeviceID = domain.DeviceID(deviceID)
			}
			res, err := app.Init(cmd.Context(), cfg, c.passphrase)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Identity created for %s (device %d, registration %d).\n",
				cfg.User, res.Identity.DeviceID, res.Identity.RegistrationID)
			fmt.Fprintf(out, "Fingerprint: %s\n", res.Fingerprint)
			fmt.Fprintf(out, "Config: %s\n", res.ConfigPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "your user id, as peers will address you")
	cmd.Flags().Uint32Var(&deviceID, "device-id", 0, "device id (default from config)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
