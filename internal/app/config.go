package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sigchat/internal/domain"
	"sigchat/internal/protocol/ratchet"
	"sigchat/internal/protocol/senderkey"
	"sigchat/internal/services/prekey"
	"sigchat/internal/store"
)

// ConfigFile is the config file name inside the home directory.
const ConfigFile = "config.yaml"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string          `yaml:"-"`         // config directory, e.g. $HOME/.sigchat
	User     domain.UserID   `yaml:"user"`      // user id published to the relay
	DeviceID domain.DeviceID `yaml:"device_id"` // scopes every stored record

	Store    store.Config     `yaml:"store"`
	Ratchet  ratchet.Config   `yaml:"ratchet"`
	Group    senderkey.Config `yaml:"group"`
	PreKeys  prekey.Config    `yaml:"prekeys"`
	Keystore KeystoreConfig   `yaml:"keystore"`
	Log      LogConfig        `yaml:"log"`
	Relay    RelayConfig      `yaml:"relay"`
}

// KeystoreConfig controls at-rest encryption of the store.
type KeystoreConfig struct {
	Sealed  bool `yaml:"sealed"`
	ScryptN int  `yaml:"scrypt_n"`
	ScryptR int  `yaml:"scrypt_r"`
	ScryptP int  `yaml:"scrypt_p"`
}

// Params returns the scrypt parameters for a new sealed store.
func (k KeystoreConfig) Params() store.ScryptParams {
	return store.ScryptParams{N: k.ScryptN, R: k.ScryptR, P: k.ScryptP}
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// RelayConfig points at the relay.
type RelayConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig(home string) Config {
	sp := store.DefaultScryptParams()
	return Config{
		Home:     home,
		DeviceID: 1,
		Store:    store.Config{Driver: "file"},
		Ratchet:  ratchet.DefaultConfig(),
		Group:    senderkey.DefaultConfig(),
		PreKeys:  prekey.DefaultConfig(),
		Keystore: KeystoreConfig{Sealed: true, ScryptN: sp.N, ScryptR: sp.R, ScryptP: sp.P},
		Log:      LogConfig{Level: "info", Format: "text"},
		Relay:    RelayConfig{URL: "http://127.0.0.1:8080", Timeout: 10 * time.Second},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
func LoadConfig(path, home string) (Config, error) {
	cfg := DefaultConfig(home)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Home = home
	return cfg, cfg.Validate()
}

// Save writes cfg as YAML to path.
func (c Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// Validate checks the settings that have no usable default.
func (c Config) Validate() error {
	if c.DeviceID == 0 {
		return errors.New("config: device_id must be non-zero")
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Logger builds the slog logger described by c.Log, writing to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := c.Log.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return level, nil
}
