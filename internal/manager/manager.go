package manager

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"sigchat/internal/domain"
	"sigchat/internal/protocol/ratchet"
	"sigchat/internal/protocol/senderkey"
)

// Store is the persistence the manager needs. *store.Records satisfies it.
type Store interface {
	domain.SessionStore
	domain.GroupStore
	domain.DeviceInfoStore
}

// Options tune the manager. Zero values select defaults.
type Options struct {
	Ratchet ratchet.Config
	Group   senderkey.Config
	Rand    io.Reader
	Logger  *slog.Logger
	Now     func() time.Time
}

// Manager ties the local identity to its 1:1 sessions and group sessions.
type Manager struct {
	user     domain.UserID
	identity domain.Identity

	prekeys domain.PreKeyService
	store   Store

	sessions *Registry[domain.UserID, *session]
	groups   *Registry[domain.GroupID, *senderkey.Session]

	ratchetCfg ratchet.Config
	groupCfg   senderkey.Config
	rand       io.Reader
	log        *slog.Logger
	now        func() time.Time
}

// New loads or creates the device identity through ids and returns a manager
// acting as user.
func New(
	ctx context.Context,
	user domain.UserID,
	ids domain.IdentityService,
	prekeys domain.PreKeyService,
	st Store,
	opts Options,
) (*Manager, error) {
	if user == "" {
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "empty user id")
	}
	id, err := ids.LoadOrCreateIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}

	m := &Manager{
		user:       user,
		identity:   id,
		prekeys:    prekeys,
		store:      st,
		sessions:   NewRegistry[domain.UserID, *session](),
		groups:     NewRegistry[domain.GroupID, *senderkey.Session](),
		ratchetCfg: opts.Ratchet,
		groupCfg:   opts.Group,
		rand:       opts.Rand,
		log:        opts.Logger,
		now:        opts.Now,
	}
	if m.rand == nil {
		m.rand = rand.Reader
	}
	if m.log == nil {
		m.log = slog.New(slog.DiscardHandler)
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.log = m.log.With("user", string(user), "device", uint32(id.DeviceID))
	return m, nil
}

// UserID returns the user this manager acts as.
func (m *Manager) UserID() domain.UserID { return m.user }

// Identity returns the public half of the device identity.
func (m *Manager) Identity() (domain.X25519Public, domain.Ed25519Public, domain.RegistrationID) {
	return m.identity.XPub, m.identity.EdPub, m.identity.RegistrationID
}

// GetDeviceInfo returns the bundle to publish: identity keys, the current
// signed pre-key and one unused one-time pre-key.
func (m *Manager) GetDeviceInfo(ctx context.Context) (domain.DeviceInfo, error) {
	info, err := m.prekeys.DeviceInfo(ctx, m.identity, m.user)
	if err != nil {
		return domain.DeviceInfo{}, fmt.Errorf("device info: %w", err)
	}
	if err := m.store.SaveDeviceInfo(ctx, info); err != nil {
		return domain.DeviceInfo{}, fmt.Errorf("save device info: %w", err)
	}
	m.log.Debug("device info built", "signed_pre_key", uint32(info.SignedPreKey.ID))
	return info, nil
}
