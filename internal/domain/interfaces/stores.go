package interfaces

import (
	"context"

	domaintypes "sigchat/internal/domain/types"
)

// KeyValueStore is the persistent secure byte store the engine writes its
// state to. A Set replaces the whole value atomically. Get reports a missing
// key as ok == false with a nil error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// KeyLister is implemented by stores that can enumerate keys under a prefix.
// Keys are returned in ascending order.
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// IdentityStore persists the local device identity.
type IdentityStore interface {
	LoadIdentity(ctx context.Context) (domaintypes.Identity, bool, error)
	SaveIdentity(ctx context.Context, id domaintypes.Identity) error
}

// PreKeyStore persists signed and one-time pre-keys.
type PreKeyStore interface {
	SaveSignedPreKey(ctx context.Context, spk domaintypes.SignedPreKey) error
	LoadSignedPreKey(
		ctx context.Context,
		id domaintypes.SignedPreKeyID,
	) (domaintypes.SignedPreKey, bool, error)

	SaveOneTimePreKey(ctx context.Context, opk domaintypes.OneTimePreKeyPair) error
	LoadOneTimePreKey(
		ctx context.Context,
		id domaintypes.OneTimePreKeyID,
	) (domaintypes.OneTimePreKeyPair, bool, error)
	DeleteOneTimePreKey(ctx context.Context, id domaintypes.OneTimePreKeyID) error

	LoadPreKeyMeta(ctx context.Context) (domaintypes.PreKeyMeta, error)
	SavePreKeyMeta(ctx context.Context, meta domaintypes.PreKeyMeta) error
}

// SessionStore persists one SessionState per peer.
type SessionStore interface {
	SaveSession(ctx context.Context, st domaintypes.SessionState) error
	LoadSession(ctx context.Context, peer domaintypes.UserID) (domaintypes.SessionState, bool, error)
	DeleteSession(ctx context.Context, peer domaintypes.UserID) error
	ListSessions(ctx context.Context) ([]domaintypes.UserID, error)
}

// GroupStore persists one GroupSessionState per group.
type GroupStore interface {
	SaveGroup(ctx context.Context, st domaintypes.GroupSessionState) error
	LoadGroup(ctx context.Context, id domaintypes.GroupID) (domaintypes.GroupSessionState, bool, error)
	DeleteGroup(ctx context.Context, id domaintypes.GroupID) error
	ListGroups(ctx context.Context) ([]domaintypes.GroupID, error)

	// Pending bundles arrived for a group this device has not created or
	// joined yet.
	SavePendingBundles(ctx context.Context, id domaintypes.GroupID, b []domaintypes.SenderKeyBundle) error
	LoadPendingBundles(ctx context.Context, id domaintypes.GroupID) ([]domaintypes.SenderKeyBundle, error)
	DeletePendingBundles(ctx context.Context, id domaintypes.GroupID) error
}

// DeviceInfoStore caches the last DeviceInfo this device published.
type DeviceInfoStore interface {
	SaveDeviceInfo(ctx context.Context, info domaintypes.DeviceInfo) error
	LoadDeviceInfo(ctx context.Context) (domaintypes.DeviceInfo, bool, error)
}
