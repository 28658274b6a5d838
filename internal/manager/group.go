package manager

import (
	"context"
	"fmt"
	"slices"

	"sigchat/internal/domain"
	"sigchat/internal/protocol/senderkey"
)

// CreateGroup starts a group with members and returns our sender-key bundle
// for distribution. It fails if the group already exists on this device.
func (m *Manager) CreateGroup(ctx context.Context, gid domain.GroupID, members []domain.UserID) (domain.SenderKeyBundle, error) {
	e := m.groups.Acquire(gid)
	defer e.Release()

	_, found, err := m.loadGroup(ctx, e, gid)
	if err != nil {
		return domain.SenderKeyBundle{}, err
	}
	if found {
		return domain.SenderKeyBundle{}, domain.NewSignalError(domain.CodeInvalidOperation, "group %q already exists", gid)
	}
	return m.newGroup(ctx, e, gid, members)
}

// JoinGroup sets up our side of a group we were invited to and returns our
// sender-key bundle. Joining a group we already hold returns its bundle.
func (m *Manager) JoinGroup(ctx context.Context, gid domain.GroupID, members []domain.UserID) (domain.SenderKeyBundle, error) {
	e := m.groups.Acquire(gid)
	defer e.Release()

	cur, found, err := m.loadGroup(ctx, e, gid)
	if err != nil {
		return domain.SenderKeyBundle{}, err
	}
	if found {
		return cur.GetSenderKeyBundle()
	}
	return m.newGroup(ctx, e, gid, members)
}

func (m *Manager) newGroup(
	ctx context.Context,
	e *Entry[*senderkey.Session],
	gid domain.GroupID,
	members []domain.UserID,
) (domain.SenderKeyBundle, error) {
	if gid == "" {
		return domain.SenderKeyBundle{}, domain.NewSignalError(domain.CodeInvalidOperation, "empty group id")
	}
	s, err := senderkey.New(m.rand, gid, m.user, members, m.groupCfg, m.now())
	if err != nil {
		return domain.SenderKeyBundle{}, err
	}
	pending, err := m.store.LoadPendingBundles(ctx, gid)
	if err != nil {
		return domain.SenderKeyBundle{}, fmt.Errorf("load pending sender keys for %q: %w", gid, err)
	}
	for _, b := range pending {
		if err := s.ProcessSenderKeyBundle(b); err != nil {
			m.log.Warn("discarding held sender key", "group", string(gid), "member", string(b.UserID), "err", err)
		}
	}
	bundle, err := s.GetSenderKeyBundle()
	if err != nil {
		return domain.SenderKeyBundle{}, err
	}
	if err := m.commitGroup(ctx, e, s); err != nil {
		return domain.SenderKeyBundle{}, err
	}
	if len(pending) > 0 {
		if err := m.store.DeletePendingBundles(ctx, gid); err != nil {
			m.log.Warn("held sender keys not deleted", "group", string(gid), "err", err)
		}
	}
	m.log.Info("group created", "group", string(gid), "members", len(s.Members()), "held_sender_keys", len(pending))
	return bundle, nil
}

// AddMember records user as a member of gid.
func (m *Manager) AddMember(ctx context.Context, gid domain.GroupID, user domain.UserID) error {
	return m.updateGroup(ctx, gid, func(s *senderkey.Session) error {
		return s.AddMember(user)
	})
}

// GetSenderKeyBundle returns our current sender-key bundle for gid.
func (m *Manager) GetSenderKeyBundle(ctx context.Context, gid domain.GroupID) (domain.SenderKeyBundle, error) {
	e := m.groups.Acquire(gid)
	defer e.Release()

	s, err := m.requireGroup(ctx, e, gid)
	if err != nil {
		return domain.SenderKeyBundle{}, err
	}
	return s.GetSenderKeyBundle()
}

// ProcessSenderKeyBundle installs another member's sender key.
func (m *Manager) ProcessSenderKeyBundle(ctx context.Context, b domain.SenderKeyBundle) error {
	err := m.updateGroup(ctx, b.GroupID, func(s *senderkey.Session) error {
		return s.ProcessSenderKeyBundle(b)
	})
	if err == nil {
		m.log.Debug("sender key installed", "group", string(b.GroupID), "member", string(b.UserID), "counter", b.Counter)
	}
	return err
}

// ProcessSenderKeyMessage opens env, which carries peer's sender-key bundle
// over the 1:1 session, and installs the bundle. The bundle is stored before
// the session advances, so a failed write leaves env decryptable again. A
// bundle for a group not created or joined here is held until it is.
func (m *Manager) ProcessSenderKeyMessage(ctx context.Context, peer domain.UserID, env domain.Envelope) (domain.SenderKeyBundle, error) {
	e := m.sessions.Acquire(peer)
	defer e.Release()

	o, err := m.open(ctx, e, peer, env)
	if err != nil {
		return domain.SenderKeyBundle{}, err
	}
	b, err := domain.Decode[domain.SenderKeyBundle](o.plaintext)
	if err != nil {
		return domain.SenderKeyBundle{}, &domain.SignalError{Code: domain.CodeInvalidOperation, Message: "sender key bundle", Err: err}
	}
	if b.UserID != peer {
		return domain.SenderKeyBundle{}, domain.NewSignalError(domain.CodeInvalidOperation,
			"sender key for %q delivered by %q", b.UserID, peer)
	}
	if err := m.installBundle(ctx, b); err != nil {
		return domain.SenderKeyBundle{}, err
	}
	if _, err := m.settle(ctx, e, peer, o); err != nil {
		return domain.SenderKeyBundle{}, err
	}
	return b, nil
}

// installBundle applies b to its group, or holds it when the group does not
// exist here yet.
func (m *Manager) installBundle(ctx context.Context, b domain.SenderKeyBundle) error {
	e := m.groups.Acquire(b.GroupID)
	defer e.Release()

	cur, found, err := m.loadGroup(ctx, e, b.GroupID)
	if err != nil {
		return err
	}
	if found {
		next := cur.Clone()
		if err := next.ProcessSenderKeyBundle(b); err != nil {
			return err
		}
		if err := m.commitGroup(ctx, e, next); err != nil {
			return err
		}
		m.log.Debug("sender key installed", "group", string(b.GroupID), "member", string(b.UserID), "counter", b.Counter)
		return nil
	}

	held, err := m.store.LoadPendingBundles(ctx, b.GroupID)
	if err != nil {
		return fmt.Errorf("load pending sender keys for %q: %w", b.GroupID, err)
	}
	held = slices.DeleteFunc(held, func(h domain.SenderKeyBundle) bool { return h.UserID == b.UserID })
	held = append(held, b)
	if err := m.store.SavePendingBundles(ctx, b.GroupID, held); err != nil {
		return fmt.Errorf("hold sender key for %q: %w", b.GroupID, err)
	}
	m.log.Info("sender key held until group is joined", "group", string(b.GroupID), "member", string(b.UserID))
	return nil
}

// EncryptGroupMessage encrypts plaintext for every member of gid.
func (m *Manager) EncryptGroupMessage(ctx context.Context, gid domain.GroupID, plaintext []byte) (domain.GroupMessage, error) {
	var msg domain.GroupMessage
	err := m.updateGroup(ctx, gid, func(s *senderkey.Session) error {
		var err error
		msg, err = s.EncryptGroupMessage(m.rand, plaintext, m.now())
		return err
	})
	return msg, err
}

// DecryptGroupMessage authenticates and opens a group message.
func (m *Manager) DecryptGroupMessage(ctx context.Context, msg domain.GroupMessage) ([]byte, error) {
	var pt []byte
	err := m.updateGroup(ctx, msg.GroupID, func(s *senderkey.Session) error {
		var err error
		pt, err = s.DecryptGroupMessage(msg)
		return err
	})
	return pt, err
}

// HandleMemberLeave removes user from gid, rotates our sender key and
// returns the new bundle for the remaining members.
func (m *Manager) HandleMemberLeave(ctx context.Context, gid domain.GroupID, user domain.UserID) (domain.SenderKeyBundle, error) {
	var bundle domain.SenderKeyBundle
	err := m.updateGroup(ctx, gid, func(s *senderkey.Session) error {
		var err error
		bundle, err = s.HandleMemberLeave(m.rand, user)
		return err
	})
	if err == nil {
		m.log.Info("member left, sender key rotated", "group", string(gid), "member", string(user))
	}
	return bundle, err
}

// LeaveGroup drops our state for gid.
func (m *Manager) LeaveGroup(ctx context.Context, gid domain.GroupID) error {
	e := m.groups.Acquire(gid)
	defer e.Release()

	if _, err := m.requireGroup(ctx, e, gid); err != nil {
		return err
	}
	if err := m.store.DeleteGroup(ctx, gid); err != nil {
		return fmt.Errorf("delete group %q: %w", gid, err)
	}
	e.Clear()
	if err := m.store.DeletePendingBundles(ctx, gid); err != nil {
		m.log.Warn("held sender keys not deleted", "group", string(gid), "err", err)
	}
	m.log.Info("left group", "group", string(gid))
	return nil
}

// GroupMembers returns the member list of gid.
func (m *Manager) GroupMembers(ctx context.Context, gid domain.GroupID) ([]domain.UserID, error) {
	e := m.groups.Acquire(gid)
	defer e.Release()

	s, err := m.requireGroup(ctx, e, gid)
	if err != nil {
		return nil, err
	}
	return s.Members(), nil
}

// Groups lists the groups stored on this device.
func (m *Manager) Groups(ctx context.Context) ([]domain.GroupID, error) {
	return m.store.ListGroups(ctx)
}

// updateGroup runs fn on a copy of the group and commits the copy when fn
// succeeds.
func (m *Manager) updateGroup(ctx context.Context, gid domain.GroupID, fn func(*senderkey.Session) error) error {
	e := m.groups.Acquire(gid)
	defer e.Release()

	cur, err := m.requireGroup(ctx, e, gid)
	if err != nil {
		return err
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return err
	}
	return m.commitGroup(ctx, e, next)
}

func (m *Manager) requireGroup(ctx context.Context, e *Entry[*senderkey.Session], gid domain.GroupID) (*senderkey.Session, error) {
	s, found, err := m.loadGroup(ctx, e, gid)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.NoGroupSessionError{GroupID: gid}
	}
	return s, nil
}

// loadGroup returns the cached group or loads it from the store.
func (m *Manager) loadGroup(ctx context.Context, e *Entry[*senderkey.Session], gid domain.GroupID) (*senderkey.Session, bool, error) {
	if s, ok := e.Get(); ok {
		return s, true, nil
	}
	rec, ok, err := m.store.LoadGroup(ctx, gid)
	if err != nil {
		return nil, false, fmt.Errorf("load group %q: %w", gid, err)
	}
	if !ok {
		return nil, false, nil
	}
	s := senderkey.FromRecord(rec, m.groupCfg)
	e.Set(s)
	return s, true, nil
}

// commitGroup persists s and only then publishes it in the directory.
func (m *Manager) commitGroup(ctx context.Context, e *Entry[*senderkey.Session], s *senderkey.Session) error {
	if err := m.store.SaveGroup(ctx, s.Record()); err != nil {
		return fmt.Errorf("save group %q: %w", s.GroupID(), err)
	}
	e.Set(s)
	return nil
}
