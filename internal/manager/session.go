package manager

import (
	"context"
	"fmt"
	"slices"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
	"sigchat/internal/protocol/ratchet"
	"sigchat/internal/protocol/x3dh"
	"sigchat/internal/util/memzero"
)

// session is the in-memory form of a SessionState. state.Ratchet is only
// refreshed when the session is persisted.
type session struct {
	state   domain.SessionState
	ratchet *ratchet.State
}

// associatedData binds both identity keys, initiator first.
func (s *session) associatedData() []byte {
	local, remote := s.state.LocalIdentityKey, s.state.RemoteIdentityKey
	if s.state.Role == domain.RoleResponder {
		local, remote = remote, local
	}
	ad := make([]byte, 0, 64)
	ad = append(ad, local[:]...)
	return append(ad, remote[:]...)
}

func (s *session) record() domain.SessionState {
	st := s.state
	st.Ratchet = s.ratchet.Record()
	return st
}

// StartSession runs the initiator side of the handshake against info and
// stores the new session, replacing any previous one with peer. Messages
// carry the handshake parameters until peer replies.
func (m *Manager) StartSession(ctx context.Context, peer domain.UserID, info domain.DeviceInfo) error {
	if info.UserID != "" && info.UserID != peer {
		return domain.NewSignalError(domain.CodeInvalidOperation, "device info for %q used for %q", info.UserID, peer)
	}
	if peer == m.user {
		return domain.NewSignalError(domain.CodeInvalidOperation, "session with self")
	}

	res, err := x3dh.InitiatorRoot(m.rand, m.identity, info)
	if err != nil {
		return err
	}
	defer memzero.Zero(res.MasterSecret[:])

	s := &session{
		state: domain.SessionState{
			PeerUserID:           peer,
			Version:              domain.ProtocolVersion,
			Initialized:          true,
			Role:                 domain.RoleInitiator,
			LocalIdentityKey:     m.identity.XPub,
			RemoteIdentityKey:    info.IdentityKey,
			RemoteRegistrationID: info.RegistrationID,
			BaseKey:              res.Header.BaseKey,
			PendingPreKey:        domain.Some(res.Header),
			CreatedUTC:           m.now().UTC().Unix(),
		},
		ratchet: ratchet.InitAsInitiator(res.MasterSecret, info.SignedPreKey.Public, m.ratchetCfg),
	}

	e := m.sessions.Acquire(peer)
	defer e.Release()
	if err := m.commitSession(ctx, e, s); err != nil {
		return err
	}
	m.log.Info("session started",
		"peer", string(peer),
		"peer_identity", crypto.Fingerprint(info.IdentityKey.Slice()).String(),
		"one_time_pre_key", res.Header.OneTimePreKeyID.Valid,
	)
	return nil
}

// maxPreviousBaseKeys bounds SessionState.PreviousBaseKeys.
const maxPreviousBaseKeys = 16

// opened is a decrypted message whose session update has not been stored.
type opened struct {
	next      *session
	prev      *session
	plaintext []byte
	// oneTimePreKey is set when next came from a handshake that used one.
	oneTimePreKey domain.Option[domain.OneTimePreKeyID]
	handshake     bool
}

// ProcessInitialMessage runs the responder side of the handshake for msg,
// decrypts its payload and stores the resulting session. The one-time
// pre-key named by msg is consumed only once the session is stored.
func (m *Manager) ProcessInitialMessage(
	ctx context.Context,
	peer domain.UserID,
	msg domain.PreKeySignalMessage,
) ([]byte, error) {
	e := m.sessions.Acquire(peer)
	defer e.Release()

	o, err := m.openPreKey(ctx, e, peer, msg)
	if err != nil {
		return nil, err
	}
	return m.settle(ctx, e, peer, o)
}

func (m *Manager) openPreKey(
	ctx context.Context,
	e *Entry[*session],
	peer domain.UserID,
	msg domain.PreKeySignalMessage,
) (*opened, error) {
	if msg.Message.Version != domain.ProtocolVersion {
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "unsupported version %d", msg.Message.Version)
	}
	prev, found, err := m.loadSession(ctx, e, peer)
	if err != nil {
		return nil, err
	}
	if !found {
		return m.respond(ctx, peer, nil, msg)
	}
	if prev.state.BaseKey == msg.BaseKey {
		// Retransmitted handshake for the session we hold.
		return m.openExisting(prev, msg.Message)
	}
	if slices.Contains(prev.state.PreviousBaseKeys, msg.BaseKey) {
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "stale handshake from %q", peer)
	}
	return m.respond(ctx, peer, prev, msg)
}

func (m *Manager) respond(
	ctx context.Context,
	peer domain.UserID,
	prev *session,
	msg domain.PreKeySignalMessage,
) (*opened, error) {
	spk, ok, err := m.prekeys.LoadSignedPreKey(ctx, msg.SignedPreKeyID)
	if err != nil {
		return nil, fmt.Errorf("load signed pre-key: %w", err)
	}
	if !ok {
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "unknown signed pre-key %d", msg.SignedPreKeyID)
	}

	opk := domain.None[domain.KeyPair]()
	opkID, wantOPK := msg.OneTimePreKeyID.Get()
	if wantOPK {
		pair, ok, err := m.prekeys.LoadOneTimePreKey(ctx, opkID)
		if err != nil {
			return nil, fmt.Errorf("load one-time pre-key: %w", err)
		}
		if !ok {
			return nil, domain.NewSignalError(domain.CodeInvalidOperation, "unknown one-time pre-key %d", opkID)
		}
		opk = domain.Some(pair.KeyPair)
	}

	master, err := x3dh.ResponderRoot(m.identity, spk.KeyPair, opk, msg.PreKeyHeader)
	if err != nil {
		return nil, &domain.SignalError{Code: domain.CodeInvalidOperation, Message: "handshake", Err: err}
	}
	defer memzero.Zero(master[:])

	s := &session{
		state: domain.SessionState{
			PeerUserID:           peer,
			Version:              domain.ProtocolVersion,
			Initialized:          true,
			Role:                 domain.RoleResponder,
			LocalIdentityKey:     m.identity.XPub,
			RemoteIdentityKey:    msg.IdentityKey,
			RemoteRegistrationID: msg.RegistrationID,
			BaseKey:              msg.BaseKey,
			CreatedUTC:           m.now().UTC().Unix(),
		},
		ratchet: ratchet.InitAsResponder(master, spk.KeyPair, m.ratchetCfg),
	}
	if prev != nil {
		s.state.PreviousBaseKeys = previousBaseKeys(prev.state)
	}
	pt, err := s.ratchet.Decrypt(msg.Message, s.associatedData())
	if err != nil {
		return nil, err
	}
	return &opened{
		next:          s,
		prev:          prev,
		plaintext:     pt,
		oneTimePreKey: msg.OneTimePreKeyID,
		handshake:     true,
	}, nil
}

// previousBaseKeys returns the base keys a session replacing st must refuse.
func previousBaseKeys(st domain.SessionState) []domain.X25519Public {
	keys := append(slices.Clone(st.PreviousBaseKeys), st.BaseKey)
	if len(keys) > maxPreviousBaseKeys {
		keys = keys[len(keys)-maxPreviousBaseKeys:]
	}
	return keys
}

// openExisting decrypts msg on a copy of cur.
func (m *Manager) openExisting(cur *session, msg domain.SignalMessage) (*opened, error) {
	next := &session{state: cur.state, ratchet: cur.ratchet.Clone()}
	pt, err := next.ratchet.Decrypt(msg, next.associatedData())
	if err != nil {
		return nil, err
	}
	// Any message from the responder acknowledges the handshake.
	if next.state.Role == domain.RoleInitiator {
		next.state.PendingPreKey = domain.None[domain.PreKeyHeader]()
	}
	return &opened{next: next, prev: cur, plaintext: pt}, nil
}

// open decrypts env from peer without storing anything.
func (m *Manager) open(ctx context.Context, e *Entry[*session], peer domain.UserID, env domain.Envelope) (*opened, error) {
	if env.From != "" && env.From != peer {
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "envelope from %q passed as %q", env.From, peer)
	}
	if pk, ok := env.PreKeyMessage(); ok {
		return m.openPreKey(ctx, e, peer, pk)
	}
	cur, found, err := m.loadSession(ctx, e, peer)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.NoSessionError{Peer: peer}
	}
	return m.openExisting(cur, env.Message)
}

// settle stores o and returns its plaintext. Once the session is stored the
// message counts as delivered, so a one-time pre-key that cannot be deleted
// is only logged.
func (m *Manager) settle(ctx context.Context, e *Entry[*session], peer domain.UserID, o *opened) ([]byte, error) {
	if err := m.commitSession(ctx, e, o.next); err != nil {
		return nil, err
	}
	if id, ok := o.oneTimePreKey.Get(); ok {
		if _, _, err := m.prekeys.ConsumeOneTimePreKey(ctx, id); err != nil {
			m.log.Warn("one-time pre-key not consumed", "peer", string(peer), "key_id", id, "err", err)
		}
	}
	if !o.handshake {
		return o.plaintext, nil
	}

	if o.prev != nil && o.prev.state.RemoteIdentityKey != o.next.state.RemoteIdentityKey {
		m.log.Warn("peer identity key changed",
			"peer", string(peer),
			"old", crypto.Fingerprint(o.prev.state.RemoteIdentityKey.Slice()).String(),
			"new", crypto.Fingerprint(o.next.state.RemoteIdentityKey.Slice()).String(),
		)
	}
	m.log.Info("session accepted", "peer", string(peer), "one_time_pre_key", o.oneTimePreKey.Valid)
	return o.plaintext, nil
}

// EncryptMessage encrypts plaintext for peer. The envelope carries the
// handshake parameters until peer has replied.
func (m *Manager) EncryptMessage(ctx context.Context, peer domain.UserID, plaintext []byte) (domain.Envelope, error) {
	e := m.sessions.Acquire(peer)
	defer e.Release()

	cur, found, err := m.loadSession(ctx, e, peer)
	if err != nil {
		return domain.Envelope{}, err
	}
	if !found {
		return domain.Envelope{}, &domain.NoSessionError{Peer: peer}
	}

	next := &session{state: cur.state, ratchet: cur.ratchet.Clone()}
	msg, err := next.ratchet.Encrypt(m.rand, plaintext, next.associatedData())
	if err != nil {
		return domain.Envelope{}, err
	}
	if err := m.commitSession(ctx, e, next); err != nil {
		return domain.Envelope{}, err
	}

	return domain.Envelope{
		From:      m.user,
		To:        peer,
		PreKey:    next.state.PendingPreKey,
		Message:   msg,
		Timestamp: m.now().UTC().Unix(),
	}, nil
}

// DecryptMessage opens an envelope from peer. Envelopes carrying handshake
// parameters bootstrap or replace the session as needed.
func (m *Manager) DecryptMessage(ctx context.Context, peer domain.UserID, env domain.Envelope) ([]byte, error) {
	e := m.sessions.Acquire(peer)
	defer e.Release()

	o, err := m.open(ctx, e, peer, env)
	if err != nil {
		return nil, err
	}
	return m.settle(ctx, e, peer, o)
}

// ResetSession destroys the session with peer.
func (m *Manager) ResetSession(ctx context.Context, peer domain.UserID) error {
	e := m.sessions.Acquire(peer)
	defer e.Release()

	if err := m.store.DeleteSession(ctx, peer); err != nil {
		return fmt.Errorf("delete session %q: %w", peer, err)
	}
	if cur, ok := e.Get(); ok {
		cur.ratchet.Wipe()
	}
	e.Clear()
	m.log.Info("session reset", "peer", string(peer))
	return nil
}

// HasSession reports whether a session with peer exists.
func (m *Manager) HasSession(ctx context.Context, peer domain.UserID) (bool, error) {
	e := m.sessions.Acquire(peer)
	defer e.Release()
	_, found, err := m.loadSession(ctx, e, peer)
	return found, err
}

// Sessions lists the peers with a stored session.
func (m *Manager) Sessions(ctx context.Context) ([]domain.UserID, error) {
	return m.store.ListSessions(ctx)
}

// loadSession returns the cached session or loads it from the store.
func (m *Manager) loadSession(ctx context.Context, e *Entry[*session], peer domain.UserID) (*session, bool, error) {
	if s, ok := e.Get(); ok {
		return s, true, nil
	}
	rec, ok, err := m.store.LoadSession(ctx, peer)
	if err != nil {
		return nil, false, fmt.Errorf("load session %q: %w", peer, err)
	}
	if !ok {
		return nil, false, nil
	}
	if rec.Version != domain.ProtocolVersion {
		return nil, false, domain.NewSignalError(domain.CodeInvalidOperation, "session %q has version %d", peer, rec.Version)
	}
	r, err := ratchet.FromRecord(rec.Ratchet, m.ratchetCfg)
	if err != nil {
		return nil, false, fmt.Errorf("session %q: %w", peer, err)
	}
	s := &session{state: rec, ratchet: r}
	e.Set(s)
	return s, true, nil
}

// commitSession persists s and only then publishes it in the directory.
func (m *Manager) commitSession(ctx context.Context, e *Entry[*session], s *session) error {
	rec := s.record()
	if err := m.store.SaveSession(ctx, rec); err != nil {
		return fmt.Errorf("save session %q: %w", rec.PeerUserID, err)
	}
	e.Set(s)
	return nil
}
