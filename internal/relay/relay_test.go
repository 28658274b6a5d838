package relay_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sigchat/internal/domain"
	"sigchat/internal/relay"
)

func newRelay(t *testing.T) *relay.Client {
	t.Helper()
	srv := httptest.NewServer(relay.NewServer(nil))
	t.Cleanup(srv.Close)
	return relay.NewClient(srv.URL+"/", 5*time.Second)
}

func TestDeviceInfo(t *testing.T) {
	ctx := context.Background()
	c := newRelay(t)

	_, err := c.FetchDeviceInfo(ctx, "bob")
	require.ErrorIs(t, err, relay.ErrNotFound)

	info := domain.DeviceInfo{
		UserID:         "bob",
		DeviceID:       2,
		RegistrationID: 77,
		IdentityKey:    domain.X25519Public{1, 2, 3},
		SignedPreKey:   domain.SignedPreKeyPublic{ID: 4, Public: domain.X25519Public{9}, Signature: []byte("sig")},
		OneTimePreKey:  domain.Some(domain.OneTimePreKeyPublic{ID: 5, Public: domain.X25519Public{8}}),
	}
	require.NoError(t, c.PublishDeviceInfo(ctx, info))

	got, err := c.FetchDeviceInfo(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, info, got)

	// The one-time pre-key is only handed out once.
	again, err := c.FetchDeviceInfo(ctx, "bob")
	require.NoError(t, err)
	require.False(t, again.OneTimePreKey.Valid)
	require.Equal(t, info.SignedPreKey, again.SignedPreKey)
}

func TestParcels(t *testing.T) {
	ctx := context.Background()
	c := newRelay(t)

	for i := range 3 {
		require.NoError(t, c.Send(ctx, domain.Parcel{
			From:    "alice",
			To:      "bob",
			Kind:    domain.ParcelSignal,
			Payload: []byte{byte(i)},
		}))
	}

	got, err := c.Fetch(ctx, "bob", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, []byte{0}, got[0].Payload)
	require.NotZero(t, got[0].Timestamp)

	require.NoError(t, c.Ack(ctx, "bob", 2))
	got, err = c.Fetch(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []byte{2}, got[0].Payload)
	require.Equal(t, domain.ParcelSignal, got[0].Kind)

	require.NoError(t, c.Ack(ctx, "bob", 10))
	got, err = c.Fetch(ctx, "bob", 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestServerRejectsBadRequests(t *testing.T) {
	srv := relay.NewServer(nil)

	for _, tc := range []struct {
		method, path, body string
		want               int
	}{
		{"POST", "/msg/carol", `{"from":"alice","to":"bob"}`, http.StatusBadRequest},
		{"POST", "/register", `{"user_id":""}`, http.StatusBadRequest},
		{"POST", "/register", `not json`, http.StatusBadRequest},
		{"GET", "/msg/bob?limit=-1", "", http.StatusBadRequest},
		{"POST", "/msg/bob/ack", `{"count":-1}`, http.StatusBadRequest},
		{"GET", "/prekey/nobody", "", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)))
		require.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}
}
