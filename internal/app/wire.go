package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"sigchat/internal/domain"
	"sigchat/internal/manager"
	"sigchat/internal/relay"
	identitysvc "sigchat/internal/services/identity"
	messagesvc "sigchat/internal/services/message"
	prekeysvc "sigchat/internal/services/prekey"
	sessionsvc "sigchat/internal/services/session"
	"sigchat/internal/store"
)

var (
	// ErrPassphraseRequired is returned when a sealed keystore is opened without one.
	ErrPassphraseRequired = errors.New("passphrase required for sealed keystore")
	// ErrNoUser is returned when the config names no user.
	ErrNoUser = errors.New("no user configured; run init --user")
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Store    domain.KeyValueStore
	Records  *store.Records
	Identity *identitysvc.Service
	PreKeys  *prekeysvc.Service
	Manager  *manager.Manager
	Sessions *sessionsvc.Service
	Messages *messagesvc.Service
	Relay    *relay.Client
	Log      *slog.Logger
}

// OpenStore opens the configured backend, sealed with passphrase when the
// keystore is sealed.
func OpenStore(ctx context.Context, cfg Config, passphrase string) (domain.KeyValueStore, error) {
	kv, err := store.Open(ctx, cfg.Store, cfg.Home)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if !cfg.Keystore.Sealed {
		return kv, nil
	}
	if passphrase == "" {
		_ = kv.Close()
		return nil, ErrPassphraseRequired
	}
	sealed, err := store.OpenSealed(ctx, kv, passphrase, cfg.Keystore.Params())
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return sealed, nil
}

// NewWire constructs the dependency graph from cfg. The caller must Close it.
func NewWire(ctx context.Context, cfg Config, passphrase string, log *slog.Logger) (*Wire, error) {
	if cfg.User == "" {
		return nil, ErrNoUser
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	kv, err := OpenStore(ctx, cfg, passphrase)
	if err != nil {
		return nil, err
	}
	w, err := wire(ctx, cfg, kv, log)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return w, nil
}

func wire(ctx context.Context, cfg Config, kv domain.KeyValueStore, log *slog.Logger) (*Wire, error) {
	records := store.NewRecords(kv, cfg.DeviceID)
	ids := identitysvc.New(records, cfg.DeviceID, rand.Reader)
	prekeys := prekeysvc.New(records, cfg.PreKeys, rand.Reader)

	mgr, err := manager.New(ctx, cfg.User, ids, prekeys, records, manager.Options{
		Ratchet: cfg.Ratchet,
		Group:   cfg.Group,
		Rand:    rand.Reader,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	rc := relay.NewClient(cfg.Relay.URL, cfg.Relay.Timeout)
	return &Wire{
		Store:    kv,
		Records:  records,
		Identity: ids,
		PreKeys:  prekeys,
		Manager:  mgr,
		Sessions: sessionsvc.New(mgr, rc),
		Messages: messagesvc.New(mgr, rc, log),
		Relay:    rc,
		Log:      log,
	}, nil
}

// Close releases the store.
func (w *Wire) Close() error { return w.Store.Close() }
