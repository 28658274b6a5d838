package app

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"sigchat/internal/domain"
	identitysvc "sigchat/internal/services/identity"
	"sigchat/internal/store"
)

// InitResult describes a freshly initialised home directory.
type InitResult struct {
	ConfigPath  string
	Identity    domain.Identity
	Fingerprint domain.Fingerprint
}

// Init prepares cfg.Home: it writes the config file, opens the store and
// creates the device identity. A sealed keystore needs a passphrase that
// meets the strength policy.
func Init(ctx context.Context, cfg Config, passphrase string) (InitResult, error) {
	if cfg.User == "" {
		return InitResult{}, ErrNoUser
	}
	if err := cfg.Validate(); err != nil {
		return InitResult{}, err
	}
	if cfg.Keystore.Sealed {
		if err := identitysvc.ValidatePassphrase(passphrase); err != nil {
			return InitResult{}, err
		}
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return InitResult{}, fmt.Errorf("create home: %w", err)
	}

	kv, err := OpenStore(ctx, cfg, passphrase)
	if err != nil {
		return InitResult{}, err
	}
	defer kv.Close()

	ids := identitysvc.New(store.NewRecords(kv, cfg.DeviceID), cfg.DeviceID, rand.Reader)
	id, fp, err := ids.GenerateIdentity(ctx)
	if err != nil {
		return InitResult{}, err
	}

	path := filepath.Join(cfg.Home, ConfigFile)
	if err := cfg.Save(path); err != nil {
		return InitResult{}, fmt.Errorf("write config: %w", err)
	}
	return InitResult{ConfigPath: path, Identity: id, Fingerprint: fp}, nil
}
