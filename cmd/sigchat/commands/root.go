package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sigchat/internal/app"
)

// passphraseEnv is consulted when --passphrase is not given.
const passphraseEnv = "SIGCHAT_PASSPHRASE"

// cli holds the flag values and the loaded config shared by subcommands.
type cli struct {
	home       string
	configPath string
	passphrase string
	relayURL   string
	driver     string

	cfg app.Config
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "sigchat",
		Short:        "End-to-end encrypted 1:1 and group chat CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	root.PersistentFlags().StringVar(&c.home, "home", "", "config dir (default ~/.sigchat)")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default <home>/config.yaml)")
	root.PersistentFlags().StringVarP(&c.passphrase, "passphrase", "p", "", "passphrase protecting the keystore (or $"+passphraseEnv+")")
	root.PersistentFlags().StringVar(&c.relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&c.driver, "store", "", "store driver: memory, file, bolt, sqlite, redis")

	root.AddCommand(
		initCmd(c),
		fingerprintCmd(c),
		registerCmd(c),
		startSessionCmd(c),
		resetSessionCmd(c),
		sessionsCmd(c),
		sendCmd(c),
		recvCmd(c),
		groupCmd(c),
	)
	return root
}

// load reads the config file and applies flag overrides.
func (c *cli) load() error {
	if c.home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.home = filepath.Join(dir, ".sigchat")
	}
	if c.configPath == "" {
		c.configPath = filepath.Join(c.home, app.ConfigFile)
	}
	cfg, err := app.LoadConfig(c.configPath, c.home)
	if err != nil {
		return err
	}
	if c.relayURL != "" {
		cfg.Relay.URL = c.relayURL
	}
	if c.driver != "" {
		cfg.Store.Driver = c.driver
	}
	if c.passphrase == "" {
		c.passphrase = os.Getenv(passphraseEnv)
	}
	c.cfg = cfg
	return nil
}

// withWire opens the store, builds the dependency graph, runs fn and closes
// the store again.
func (c *cli) withWire(cmd *cobra.Command, fn func(ctx context.Context, w *app.Wire) error) error {
	log, err := c.cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	w, err := app.NewWire(ctx, c.cfg, c.passphrase, log)
	if err != nil {
		return err
	}
	defer w.Close()
	return fn(ctx, w)
}
