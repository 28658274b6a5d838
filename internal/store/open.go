package store

import (
	"context"
	"fmt"
	"path/filepath"

	"sigchat/internal/domain"
)

// Config selects and configures a backend.
type Config struct {
	// Driver is one of memory, file, bolt, sqlite, redis.
	Driver string `yaml:"driver"`
	// Path is the directory (file) or database file (bolt, sqlite).
	Path string `yaml:"path"`
	// DSN overrides Path for sqlite.
	DSN string `yaml:"dsn"`
	// Addr, Password, DB and Namespace configure redis.
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	Namespace string `yaml:"namespace"`
}

// Open returns the backend named by cfg.Driver. Relative paths are resolved
// against home.
func Open(ctx context.Context, cfg Config, home string) (domain.KeyValueStore, error) {
	path := cfg.Path
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(home, path)
	}

	switch cfg.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "", "file":
		if path == "" {
			path = filepath.Join(home, "store")
		}
		return NewFileStore(path), nil
	case "bolt":
		if path == "" {
			path = filepath.Join(home, "sigchat.bolt")
		}
		s, err := OpenBolt(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			if path == "" {
				path = filepath.Join(home, "sigchat.db")
			}
			dsn = "file:" + path
		}
		s, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := OpenRedis(ctx, RedisOptions{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB, Namespace: cfg.Namespace})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
