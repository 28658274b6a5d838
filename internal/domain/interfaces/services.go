package interfaces

import (
	"context"

	domaintypes "sigchat/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects the device identity.
type IdentityService interface {
	GenerateIdentity(ctx context.Context) (domaintypes.Identity, domaintypes.Fingerprint, error)
	LoadIdentity(ctx context.Context) (domaintypes.Identity, bool, error)
	LoadOrCreateIdentity(ctx context.Context) (domaintypes.Identity, error)
	FingerprintIdentity(ctx context.Context) (domaintypes.Fingerprint, error)
}

// PreKeyService manages signed and one-time pre-keys and assembles DeviceInfo.
type PreKeyService interface {
	DeviceInfo(
		ctx context.Context,
		id domaintypes.Identity,
		user domaintypes.UserID,
	) (domaintypes.DeviceInfo, error)
	LoadSignedPreKey(
		ctx context.Context,
		keyID domaintypes.SignedPreKeyID,
	) (domaintypes.SignedPreKey, bool, error)
	LoadOneTimePreKey(
		ctx context.Context,
		keyID domaintypes.OneTimePreKeyID,
	) (domaintypes.OneTimePreKeyPair, bool, error)
	ConsumeOneTimePreKey(
		ctx context.Context,
		keyID domaintypes.OneTimePreKeyID,
	) (domaintypes.OneTimePreKeyPair, bool, error)
}
