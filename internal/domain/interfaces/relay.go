package interfaces

import (
	"context"

	domaintypes "sigchat/internal/domain/types"
)

// Transport delivers opaque payloads and device-info bundles between peers.
// It knows nothing about the cryptography inside a Parcel.
type Transport interface {
	PublishDeviceInfo(ctx context.Context, info domaintypes.DeviceInfo) error
	FetchDeviceInfo(ctx context.Context, user domaintypes.UserID) (domaintypes.DeviceInfo, error)

	Send(ctx context.Context, parcel domaintypes.Parcel) error
	Fetch(ctx context.Context, user domaintypes.UserID, limit int) ([]domaintypes.Parcel, error)
	Ack(ctx context.Context, user domaintypes.UserID, count int) error
}
