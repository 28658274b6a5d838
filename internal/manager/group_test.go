package manager_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"sigchat/internal/domain"
)

// setupGroup creates group g across the devices, with every member holding
// every other member's sender key.
func setupGroup(t *testing.T, gid domain.GroupID, devs ...*device) {
	t.Helper()
	ctx := context.Background()

	ids := make([]domain.UserID, len(devs))
	for i, d := range devs {
		ids[i] = d.UserID()
	}
	bundles := make([]domain.SenderKeyBundle, len(devs))
	var err error
	bundles[0], err = devs[0].CreateGroup(ctx, gid, ids)
	require.NoError(t, err)
	for i := 1; i < len(devs); i++ {
		bundles[i], err = devs[i].JoinGroup(ctx, gid, ids)
		require.NoError(t, err)
	}
	for i, d := range devs {
		for j, b := range bundles {
			if i != j {
				require.NoError(t, d.ProcessSenderKeyBundle(ctx, b))
			}
		}
	}
}

func TestGroupThreeMembersOneLeaves(t *testing.T) {
	ctx := context.Background()
	a, b, c := newDevice(t, "a"), newDevice(t, "b"), newDevice(t, "c")
	setupGroup(t, "g", a, b, c)

	msg, err := a.EncryptGroupMessage(ctx, "g", []byte("hi all"))
	require.NoError(t, err)
	for _, d := range []*device{b, c} {
		pt, err := d.DecryptGroupMessage(ctx, msg)
		require.NoError(t, err)
		require.Equal(t, "hi all", string(pt))
	}
	_, err = a.DecryptGroupMessage(ctx, msg)
	require.ErrorIs(t, err, domain.ErrInvalidOperation)

	// c leaves; a and b rotate and swap fresh bundles.
	newA, err := a.HandleMemberLeave(ctx, "g", "c")
	require.NoError(t, err)
	newB, err := b.HandleMemberLeave(ctx, "g", "c")
	require.NoError(t, err)
	require.NoError(t, b.ProcessSenderKeyBundle(ctx, newA))
	require.NoError(t, a.ProcessSenderKeyBundle(ctx, newB))

	members, err := a.GroupMembers(ctx, "g")
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.UserID{"a", "b"}, members)

	msg, err = a.EncryptGroupMessage(ctx, "g", []byte("c is gone"))
	require.NoError(t, err)
	pt, err := b.DecryptGroupMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, "c is gone", string(pt))

	// c still holds a's old sender key, which no longer verifies.
	_, err = c.DecryptGroupMessage(ctx, msg)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)

	reply, err := b.EncryptGroupMessage(ctx, "g", []byte("agreed"))
	require.NoError(t, err)
	pt, err = a.DecryptGroupMessage(ctx, reply)
	require.NoError(t, err)
	require.Equal(t, "agreed", string(pt))

	require.NoError(t, c.LeaveGroup(ctx, "g"))
	_, err = c.DecryptGroupMessage(ctx, msg)
	require.ErrorIs(t, err, domain.ErrNoGroupSession)
	groups, err := c.Groups(ctx)
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestGroupLifecycleErrors(t *testing.T) {
	ctx := context.Background()
	a, b := newDevice(t, "a"), newDevice(t, "b")

	_, err := a.EncryptGroupMessage(ctx, "nope", []byte("x"))
	require.ErrorIs(t, err, domain.ErrNoGroupSession)

	first, err := a.CreateGroup(ctx, "g", []domain.UserID{"b"})
	require.NoError(t, err)
	_, err = a.CreateGroup(ctx, "g", nil)
	require.ErrorIs(t, err, domain.ErrInvalidOperation)

	// Joining a group already held returns the same bundle.
	again, err := a.JoinGroup(ctx, "g", nil)
	require.NoError(t, err)
	require.Equal(t, first, again)

	_, err = b.JoinGroup(ctx, "g", []domain.UserID{"a"})
	require.NoError(t, err)
	msg, err := a.EncryptGroupMessage(ctx, "g", []byte("x"))
	require.NoError(t, err)
	_, err = b.DecryptGroupMessage(ctx, msg)
	require.ErrorIs(t, err, domain.ErrNoSenderKey)

	// A failed decrypt does not disturb later processing.
	require.NoError(t, b.ProcessSenderKeyBundle(ctx, first))
	pt, err := b.DecryptGroupMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, "x", string(pt))
	_, err = b.DecryptGroupMessage(ctx, msg)
	require.ErrorIs(t, err, domain.ErrDuplicateMessage)

	require.NoError(t, a.AddMember(ctx, "g", "c"))
	members, err := a.GroupMembers(ctx, "g")
	require.NoError(t, err)
	require.ElementsMatch(t, []domain.UserID{"a", "b", "c"}, members)

	_, err = a.HandleMemberLeave(ctx, "g", "a")
	require.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestGroupSurvivesRestartAndFailedWrite(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	flaky := &flakyStore{Records: newRecords(kv)}
	a := newDeviceOn(t, "a", kv, flaky)
	b := newDevice(t, "b")
	setupGroup(t, "g", a, b)

	flaky.down = true
	_, err := a.EncryptGroupMessage(ctx, "g", []byte("lost"))
	require.ErrorIs(t, err, errStoreDown)
	flaky.down = false

	restarted := newDeviceOn(t, "a", kv, nil)
	msg, err := restarted.EncryptGroupMessage(ctx, "g", []byte("kept"))
	require.NoError(t, err)
	require.Equal(t, uint32(0), msg.KeyVersion)

	pt, err := b.DecryptGroupMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, "kept", string(pt))
}

// sendSenderKey encrypts from's bundle for gid to to over their session.
func sendSenderKey(t *testing.T, from *device, to domain.UserID, gid domain.GroupID) (domain.SenderKeyBundle, domain.Envelope) {
	t.Helper()
	ctx := context.Background()
	b, err := from.GetSenderKeyBundle(ctx, gid)
	require.NoError(t, err)
	blob, err := domain.Encode(b)
	require.NoError(t, err)
	env, err := from.EncryptMessage(ctx, to, blob)
	require.NoError(t, err)
	return b, env
}

func TestSenderKeyBeforeJoinIsHeld(t *testing.T) {
	ctx := context.Background()
	a, b := newDevice(t, "a"), newDevice(t, "b")
	_, err := b.DecryptMessage(ctx, "a", connect(t, a, b, "hi"))
	require.NoError(t, err)

	_, err = a.CreateGroup(ctx, "g", []domain.UserID{"b"})
	require.NoError(t, err)
	want, env := sendSenderKey(t, a, "b", "g")

	got, err := b.ProcessSenderKeyMessage(ctx, "a", env)
	require.NoError(t, err)
	require.Equal(t, want, got)
	groups, err := b.Groups(ctx)
	require.NoError(t, err)
	require.Empty(t, groups)

	_, err = b.JoinGroup(ctx, "g", []domain.UserID{"a"})
	require.NoError(t, err)
	held, err := b.recs.LoadPendingBundles(ctx, "g")
	require.NoError(t, err)
	require.Empty(t, held)

	msg, err := a.EncryptGroupMessage(ctx, "g", []byte("welcome"))
	require.NoError(t, err)
	pt, err := b.DecryptGroupMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, "welcome", string(pt))
}

func TestSenderKeyMessageRetriedAfterFailedWrite(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	flaky := &flakyStore{Records: newRecords(kv)}
	a, b := newDevice(t, "a"), newDeviceOn(t, "b", kv, flaky)
	_, err := b.DecryptMessage(ctx, "a", connect(t, a, b, "hi"))
	require.NoError(t, err)

	_, err = a.CreateGroup(ctx, "g", []domain.UserID{"b"})
	require.NoError(t, err)
	_, err = b.JoinGroup(ctx, "g", []domain.UserID{"a"})
	require.NoError(t, err)
	_, env := sendSenderKey(t, a, "b", "g")

	flaky.groupsDown = true
	_, err = b.ProcessSenderKeyMessage(ctx, "a", env)
	require.ErrorIs(t, err, errStoreDown)
	flaky.groupsDown = false

	// The session did not advance, so the same envelope opens again.
	_, err = b.ProcessSenderKeyMessage(ctx, "a", env)
	require.NoError(t, err)

	msg, err := a.EncryptGroupMessage(ctx, "g", []byte("x"))
	require.NoError(t, err)
	pt, err := b.DecryptGroupMessage(ctx, msg)
	require.NoError(t, err)
	require.Equal(t, "x", string(pt))
}
