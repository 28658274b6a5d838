package senderkey_test

import (
	"bytes"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sigchat/internal/domain"
	"sigchat/internal/domain/types"
	"sigchat/internal/protocol/senderkey"
)

const group = domain.GroupID("g1")

var now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newMember(t *testing.T, me domain.UserID, cfg senderkey.Config, members ...domain.UserID) *senderkey.Session {
	t.Helper()
	s, err := senderkey.New(rand.Reader, group, me, members, cfg, now)
	require.NoError(t, err)
	return s
}

// exchange hands every member's bundle to every other member.
func exchange(t *testing.T, sessions ...*senderkey.Session) {
	t.Helper()
	for _, from := range sessions {
		b, err := from.GetSenderKeyBundle()
		require.NoError(t, err)
		for _, to := range sessions {
			if to == from {
				continue
			}
			require.NoError(t, to.ProcessSenderKeyBundle(b))
		}
	}
}

func newGroup(t *testing.T, cfg senderkey.Config) (a, b, c *senderkey.Session) {
	t.Helper()
	a = newMember(t, "alice", cfg, "bob", "carol")
	b = newMember(t, "bob", cfg, "alice", "carol")
	c = newMember(t, "carol", cfg, "alice", "bob")
	exchange(t, a, b, c)
	return a, b, c
}

func send(t *testing.T, s *senderkey.Session, pt string) domain.GroupMessage {
	t.Helper()
	msg, err := s.EncryptGroupMessage(rand.Reader, []byte(pt), now)
	require.NoError(t, err)
	return msg
}

func recv(t *testing.T, s *senderkey.Session, msg domain.GroupMessage, want string) {
	t.Helper()
	pt, err := s.DecryptGroupMessage(msg)
	require.NoError(t, err)
	require.Equal(t, want, string(pt))
}

func TestGroup_RoundTrip(t *testing.T) {
	a, b, c := newGroup(t, senderkey.DefaultConfig())
	require.ElementsMatch(t, []domain.UserID{"alice", "bob", "carol"}, a.Members())

	m := send(t, a, "hello group")
	require.Equal(t, group, m.GroupID)
	require.Equal(t, domain.UserID("alice"), m.SenderID)
	require.Zero(t, m.KeyVersion)
	require.Len(t, m.MessageID, 36)
	require.Equal(t, now.UnixMilli(), m.Timestamp)

	recv(t, b, m, "hello group")
	recv(t, c, m, "hello group")

	for i := 0; i < 20; i++ {
		pt := string(bytes.Repeat([]byte{'x'}, i))
		m := send(t, b, pt)
		require.Equal(t, uint32(i), m.KeyVersion)
		recv(t, a, m, pt)
		recv(t, c, m, pt)
	}
}

func TestGroup_HeaderLayout(t *testing.T) {
	a, _, _ := newGroup(t, senderkey.DefaultConfig())
	send(t, a, "first")
	m := send(t, a, "second")

	p := m.EncryptedPayload
	require.Equal(t, []byte{1, 0, 0, 0}, p[0:4])
	require.Equal(t, []byte{5, 0, 0, 0}, p[4:8])
	require.Equal(t, "alice", string(p[8:13]))
}

func TestGroup_OwnMessageRejected(t *testing.T) {
	a, _, _ := newGroup(t, senderkey.DefaultConfig())
	m := send(t, a, "mine")
	_, err := a.DecryptGroupMessage(m)
	require.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestGroup_DuplicateAndBehindRejected(t *testing.T) {
	a, b, _ := newGroup(t, senderkey.DefaultConfig())

	m0 := send(t, a, "zero")
	m1 := send(t, a, "one")
	m2 := send(t, a, "two")

	recv(t, b, m0, "zero")
	_, err := b.DecryptGroupMessage(m0)
	require.ErrorIs(t, err, domain.ErrDuplicateMessage)

	// Jumping ahead discards the intermediate key for good.
	recv(t, b, m2, "two")
	before := b.Record()
	_, err = b.DecryptGroupMessage(m1)
	require.ErrorIs(t, err, domain.ErrDuplicateMessage)
	require.Equal(t, before, b.Record())
}

func TestGroup_ForwardJumpLimit(t *testing.T) {
	cfg := senderkey.DefaultConfig()
	cfg.MaxForwardJump = 3
	a, b, _ := newGroup(t, cfg)

	var msgs []domain.GroupMessage
	for i := 0; i < 5; i++ {
		msgs = append(msgs, send(t, a, "m"))
	}
	before := b.Record()
	_, err := b.DecryptGroupMessage(msgs[4])
	require.ErrorIs(t, err, domain.ErrInvalidOperation)
	require.Equal(t, before, b.Record())

	recv(t, b, msgs[3], "m")
	recv(t, b, msgs[4], "m")
}

func TestGroup_TamperingRejected(t *testing.T) {
	a, b, _ := newGroup(t, senderkey.DefaultConfig())
	m := send(t, a, "authentic")
	before := b.Record()

	forged := m
	forged.EncryptedPayload = append([]byte(nil), m.EncryptedPayload...)
	forged.EncryptedPayload[len(forged.EncryptedPayload)-1] ^= 1
	_, err := b.DecryptGroupMessage(forged)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
	require.Equal(t, before, b.Record())

	spoofed := m
	spoofed.SenderID = "carol"
	_, err = b.DecryptGroupMessage(spoofed)
	require.ErrorIs(t, err, domain.ErrInvalidOperation)

	wrongGroup := m
	wrongGroup.GroupID = "g2"
	_, err = b.DecryptGroupMessage(wrongGroup)
	require.ErrorIs(t, err, domain.ErrInvalidOperation)

	recv(t, b, m, "authentic")
}

func TestGroup_NoSenderKey(t *testing.T) {
	a := newMember(t, "alice", senderkey.DefaultConfig(), "bob")
	b := newMember(t, "bob", senderkey.DefaultConfig(), "alice")

	_, err := b.DecryptGroupMessage(send(t, a, "unknown sender"))
	require.ErrorIs(t, err, domain.ErrNoSenderKey)
}

func TestGroup_BundleValidation(t *testing.T) {
	a, b, _ := newGroup(t, senderkey.DefaultConfig())

	own, err := a.GetSenderKeyBundle()
	require.NoError(t, err)
	require.ErrorIs(t, a.ProcessSenderKeyBundle(own), domain.ErrInvalidOperation)

	own.GroupID = "other"
	require.ErrorIs(t, b.ProcessSenderKeyBundle(own), domain.ErrInvalidOperation)
}

func TestGroup_RedeliveredBundleDoesNotRewind(t *testing.T) {
	a, b, _ := newGroup(t, senderkey.DefaultConfig())
	old, err := a.GetSenderKeyBundle()
	require.NoError(t, err)

	m := send(t, a, "one")
	recv(t, b, m, "one")

	require.NoError(t, b.ProcessSenderKeyBundle(old))
	_, err = b.DecryptGroupMessage(m)
	require.ErrorIs(t, err, domain.ErrDuplicateMessage)
	recv(t, b, send(t, a, "two"), "two")
}

func TestGroup_LateJoinerFollowsFromBundleCounter(t *testing.T) {
	a := newMember(t, "alice", senderkey.DefaultConfig())
	send(t, a, "before dave")
	send(t, a, "before dave")

	d := newMember(t, "dave", senderkey.DefaultConfig(), "alice")
	require.NoError(t, a.AddMember("dave"))
	exchange(t, a, d)
	require.Contains(t, a.Members(), domain.UserID("dave"))

	m := send(t, a, "welcome")
	require.Equal(t, uint32(2), m.KeyVersion)
	recv(t, d, m, "welcome")
}

func TestGroup_HistoryBoundedAndFingerprinted(t *testing.T) {
	cfg := senderkey.DefaultConfig()
	cfg.HistorySize = 3
	a, b, _ := newGroup(t, cfg)

	bundle, err := a.GetSenderKeyBundle()
	require.NoError(t, err)
	firstKey := bundle.ChainKey

	for i := 0; i < 5; i++ {
		recv(t, b, send(t, a, "m"), "m")
	}

	own, ok := a.SenderKey("alice")
	require.True(t, ok)
	require.Len(t, own.History, 3)
	require.Equal(t, uint32(2), own.History[0].Counter)
	require.Equal(t, uint32(4), own.History[2].Counter)

	seen, ok := b.SenderKey("alice")
	require.True(t, ok)
	require.Len(t, seen.History, 3)

	blob, err := types.Encode(a.Record())
	require.NoError(t, err)
	require.False(t, bytes.Contains(blob, firstKey[:]))
}

func TestGroup_RotationLocksOutDepartedMember(t *testing.T) {
	a, b, c := newGroup(t, senderkey.DefaultConfig())
	recv(t, c, send(t, a, "carol can read this"), "carol can read this")

	// What carol walks away with.
	attacker := c.Clone()
	stale, err := a.GetSenderKeyBundle()
	require.NoError(t, err)

	newBundle, err := a.HandleMemberLeave(rand.Reader, "carol")
	require.NoError(t, err)
	require.NotContains(t, a.Members(), domain.UserID("carol"))
	_, ok := a.SenderKey("carol")
	require.False(t, ok)
	require.Zero(t, newBundle.Counter)
	require.NotEqual(t, stale.SigningPublicKey, newBundle.SigningPublicKey)
	require.NotEqual(t, stale.ChainKey, newBundle.ChainKey)

	_, err = b.HandleMemberLeave(rand.Reader, "carol")
	require.NoError(t, err)
	require.NoError(t, b.ProcessSenderKeyBundle(newBundle))

	m := send(t, a, "carol is gone")
	recv(t, b, m, "carol is gone")

	_, err = attacker.DecryptGroupMessage(m)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	// Even with the new signing key the stale chain yields the wrong keys.
	forged := stale
	forged.SigningPublicKey = newBundle.SigningPublicKey
	forged.Counter = 0
	require.NoError(t, attacker.ProcessSenderKeyBundle(forged))
	_, err = attacker.DecryptGroupMessage(m)
	require.ErrorIs(t, err, domain.ErrDecryptFailed)
}

func TestGroup_HandleMemberLeaveValidation(t *testing.T) {
	a, _, _ := newGroup(t, senderkey.DefaultConfig())

	_, err := a.HandleMemberLeave(rand.Reader, "alice")
	require.ErrorIs(t, err, domain.ErrInvalidOperation)

	_, err = a.HandleMemberLeave(rand.Reader, "mallory")
	require.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestGroup_RecordRoundTrip(t *testing.T) {
	a, b, _ := newGroup(t, senderkey.DefaultConfig())
	recv(t, b, send(t, a, "one"), "one")

	blob, err := types.Encode(b.Record())
	require.NoError(t, err)
	rec, err := types.Decode[domain.GroupSessionState](blob)
	require.NoError(t, err)

	restored := senderkey.FromRecord(rec, senderkey.DefaultConfig())
	require.Equal(t, b.Members(), restored.Members())
	recv(t, restored, send(t, a, "two"), "two")
	recv(t, a, send(t, restored, "three"), "three")
}
