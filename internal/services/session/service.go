package session

import (
	"context"
	"fmt"

	"sigchat/internal/domain"
	"sigchat/internal/manager"
)

// Service bootstraps sessions over a transport.
//
// This service handles:
//   - Publishing our current DeviceInfo so peers can start sessions with us.
//   - Fetching a peer's DeviceInfo and running the initiator handshake.
type Service struct {
	mgr       *manager.Manager
	transport domain.Transport
}

// New constructs a session service.
func New(mgr *manager.Manager, transport domain.Transport) *Service {
	return &Service{mgr: mgr, transport: transport}
}

// Publish builds our DeviceInfo and uploads it.
func (s *Service) Publish(ctx context.Context) (domain.DeviceInfo, error) {
	info, err := s.mgr.GetDeviceInfo(ctx)
	if err != nil {
		return domain.DeviceInfo{}, err
	}
	if err := s.transport.PublishDeviceInfo(ctx, info); err != nil {
		return domain.DeviceInfo{}, fmt.Errorf("publish device info: %w", err)
	}
	return info, nil
}

// InitiateSession fetches peer's DeviceInfo and starts a session with it.
// The first message sent afterwards carries the handshake parameters.
func (s *Service) InitiateSession(ctx context.Context, peer domain.UserID) (domain.DeviceInfo, error) {
	info, err := s.transport.FetchDeviceInfo(ctx, peer)
	if err != nil {
		return domain.DeviceInfo{}, fmt.Errorf("fetch device info for %q: %w", peer, err)
	}
	if err := s.mgr.StartSession(ctx, peer, info); err != nil {
		return domain.DeviceInfo{}, err
	}
	return info, nil
}
