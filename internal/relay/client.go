package relay

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sigchat/internal/domain"
)

// ErrNotFound is matched by a StatusError for a 404 response.
var ErrNotFound = errors.New("relay: not found")

// Client talks to a relay over HTTP.
type Client struct {
	Base string
	HTTP *http.Client
}

// NewClient returns a client for the relay at base. A zero timeout leaves
// deadlines to the caller's context.
func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: timeout},
	}
}

// PublishDeviceInfo stores info as the current bundle for info.UserID.
func (c *Client) PublishDeviceInfo(ctx context.Context, info domain.DeviceInfo) error {
	return c.post(ctx, "/register", info, nil)
}

// FetchDeviceInfo returns the latest bundle published by user.
func (c *Client) FetchDeviceInfo(ctx context.Context, user domain.UserID) (domain.DeviceInfo, error) {
	var out domain.DeviceInfo
	if err := c.get(ctx, "/prekey/"+url.PathEscape(string(user)), &out); err != nil {
		return domain.DeviceInfo{}, err
	}
	return out, nil
}

// Send queues parcel for parcel.To.
func (c *Client) Send(ctx context.Context, parcel domain.Parcel) error {
	return c.post(ctx, "/msg/"+url.PathEscape(string(parcel.To)), parcel, nil)
}

// Fetch returns up to limit queued parcels for user, oldest first. A limit
// of zero or less returns everything queued.
func (c *Client) Fetch(ctx context.Context, user domain.UserID, limit int) ([]domain.Parcel, error) {
	path := "/msg/" + url.PathEscape(string(user))
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []domain.Parcel
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ack drops the first count queued parcels for user.
func (c *Client) Ack(ctx context.Context, user domain.UserID, count int) error {
	return c.post(ctx, "/msg/"+url.PathEscape(string(user))+"/ack", ackRequest{Count: count}, nil)
}

type ackRequest struct {
	Count int `json:"count"`
}

// Compile-time assertion that Client implements domain.Transport.
var _ domain.Transport = (*Client)(nil)
