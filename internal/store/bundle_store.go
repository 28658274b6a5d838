package store

import (
	"context"

	"sigchat/internal/domain"
)

// SaveDeviceInfo caches the last DeviceInfo this device published.
func (r *Records) SaveDeviceInfo(ctx context.Context, info domain.DeviceInfo) error {
	return putRecord(ctx, r.kv, r.keys.DeviceInfo(), info)
}

// LoadDeviceInfo returns the cached DeviceInfo and whether it was present.
func (r *Records) LoadDeviceInfo(ctx context.Context) (domain.DeviceInfo, bool, error) {
	return getRecord[domain.DeviceInfo](ctx, r.kv, r.keys.DeviceInfo())
}
