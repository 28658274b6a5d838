package senderkey

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/google/uuid"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
	"sigchat/internal/protocol/kdf"
	"sigchat/internal/util/memzero"
)

// Config tunes rotation and the bounded bookkeeping.
type Config struct {
	// RotationSteps is how many one-way chain steps a rotation discards.
	RotationSteps int `yaml:"rotation_steps"`
	// HistorySize caps the chain-key history per member.
	HistorySize int `yaml:"history_size"`
	// MaxForwardJump is the largest counter gap a receiver will fast-forward.
	MaxForwardJump uint32 `yaml:"max_forward_jump"`
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{RotationSteps: 32, HistorySize: 64, MaxForwardJump: 2000}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RotationSteps <= 0 {
		c.RotationSteps = d.RotationSteps
	}
	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
	if c.MaxForwardJump == 0 {
		c.MaxForwardJump = d.MaxForwardJump
	}
	return c
}

// Session is this device's view of one group.
type Session struct {
	cfg   Config
	state domain.GroupSessionState
}

// New creates a group session and our own sender key.
func New(
	rand io.Reader,
	groupID domain.GroupID,
	me domain.UserID,
	members []domain.UserID,
	cfg Config,
	now time.Time,
) (*Session, error) {
	s := &Session{
		cfg: cfg.withDefaults(),
		state: domain.GroupSessionState{
			GroupID:    groupID,
			MyUserID:   me,
			SenderKeys: make(map[domain.UserID]domain.SenderKeyState),
			CreatedUTC: now.UTC().Unix(),
		},
	}
	s.addMember(me)
	for _, m := range members {
		s.addMember(m)
	}
	if err := s.InitializeSenderKey(rand); err != nil {
		return nil, err
	}
	return s, nil
}

// FromRecord rebuilds a Session from its persisted form.
func FromRecord(rec domain.GroupSessionState, cfg Config) *Session {
	s := &Session{cfg: cfg.withDefaults(), state: cloneState(rec)}
	if s.state.SenderKeys == nil {
		s.state.SenderKeys = make(map[domain.UserID]domain.SenderKeyState)
	}
	return s
}

// Record returns a copy of the persisted form.
func (s *Session) Record() domain.GroupSessionState { return cloneState(s.state) }

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session { return &Session{cfg: s.cfg, state: cloneState(s.state)} }

// GroupID returns the group this session belongs to.
func (s *Session) GroupID() domain.GroupID { return s.state.GroupID }

// Members returns the current member list.
func (s *Session) Members() []domain.UserID { return slices.Clone(s.state.Members) }

// SenderKey returns the sender key held for user.
func (s *Session) SenderKey(user domain.UserID) (domain.SenderKeyState, bool) {
	sk, ok := s.state.SenderKeys[user]
	return sk, ok
}

// InitializeSenderKey replaces our own sender key with a fresh random chain
// and signing key pair.
func (s *Session) InitializeSenderKey(rand io.Reader) error {
	var ck domain.ChainKey
	if _, err := io.ReadFull(rand, ck.Key[:]); err != nil {
		return fmt.Errorf("senderkey: chain key: %w", err)
	}
	priv, pub, err := crypto.GenerateSigningKeyPair(rand)
	if err != nil {
		return fmt.Errorf("senderkey: %w", err)
	}
	s.state.SenderKeys[s.state.MyUserID] = domain.SenderKeyState{
		UserID:  s.state.MyUserID,
		Chain:   ck,
		Signing: domain.SigningKeyPair{Public: pub, Private: domain.Some(priv)},
	}
	return nil
}

// EncryptGroupMessage seals plaintext under our next chain position.
func (s *Session) EncryptGroupMessage(rand io.Reader, plaintext []byte, now time.Time) (domain.GroupMessage, error) {
	me := s.state.MyUserID
	own, ok := s.state.SenderKeys[me]
	if !ok {
		return domain.GroupMessage{}, domain.NewSignalError(domain.CodeNoSenderKey, "no own sender key in group %q", s.state.GroupID)
	}
	priv, ok := own.Signing.Private.Get()
	if !ok {
		return domain.GroupMessage{}, domain.NewSignalError(domain.CodeNoSenderKey, "own sender key in group %q cannot sign", s.state.GroupID)
	}

	ck := own.Chain
	next, seed := kdf.ChainStep(ck)
	mk, err := kdf.MessageKeysFrom(seed, ck.Counter, kdf.InfoGroupKeys)
	memzero.Zero(seed[:])
	if err != nil {
		return domain.GroupMessage{}, err
	}
	defer kdf.Wipe(&mk)

	hb := domain.GroupHeader{Counter: ck.Counter, SenderID: me}.Bytes()
	ct, err := crypto.Seal(mk.CipherKey, mk.IV, plaintext, s.associated(hb))
	if err != nil {
		return domain.GroupMessage{}, fmt.Errorf("senderkey: seal: %w", err)
	}
	payload := append(hb, ct...)

	id, err := uuid.NewRandomFromReader(rand)
	if err != nil {
		return domain.GroupMessage{}, fmt.Errorf("senderkey: message id: %w", err)
	}

	own.History = s.appendHistory(own.History, ck, own.Signing.Public)
	own.Chain = next
	s.state.SenderKeys[me] = own

	return domain.GroupMessage{
		GroupID:          s.state.GroupID,
		SenderID:         me,
		MessageID:        id.String(),
		Timestamp:        now.UnixMilli(),
		EncryptedPayload: payload,
		Signature:        crypto.Sign(priv, payload),
		KeyVersion:       ck.Counter,
	}, nil
}

// DecryptGroupMessage authenticates and opens msg. On any error s is left
// unchanged.
func (s *Session) DecryptGroupMessage(msg domain.GroupMessage) ([]byte, error) {
	if msg.GroupID != s.state.GroupID {
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "message for group %q delivered to %q", msg.GroupID, s.state.GroupID)
	}
	header, ct, err := domain.ParseGroupHeader(msg.EncryptedPayload)
	if err != nil {
		return nil, &domain.SignalError{Code: domain.CodeDecryptFailed, Err: err}
	}
	switch {
	case header.SenderID != msg.SenderID:
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "header sender %q does not match %q", header.SenderID, msg.SenderID)
	case header.Counter != msg.KeyVersion:
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "header counter %d does not match key version %d", header.Counter, msg.KeyVersion)
	case header.SenderID == s.state.MyUserID:
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "cannot decrypt our own group message")
	}

	sk, ok := s.state.SenderKeys[header.SenderID]
	if !ok {
		return nil, domain.NewSignalError(domain.CodeNoSenderKey, "no sender key for %q in group %q", header.SenderID, s.state.GroupID)
	}
	if !crypto.Verify(sk.Signing.Public, msg.EncryptedPayload, msg.Signature) {
		return nil, &domain.InvalidSignatureError{Context: fmt.Sprintf("group message %d from %q", header.Counter, header.SenderID)}
	}
	if header.Counter < sk.Chain.Counter {
		return nil, &domain.DuplicateMessageError{Counter: header.Counter}
	}
	if header.Counter-sk.Chain.Counter > s.cfg.MaxForwardJump {
		return nil, domain.NewSignalError(domain.CodeInvalidOperation,
			"counter %d is %d ahead of %d, limit %d",
			header.Counter, header.Counter-sk.Chain.Counter, sk.Chain.Counter, s.cfg.MaxForwardJump)
	}

	ck := sk.Chain
	for ck.Counter < header.Counter {
		next, seed := kdf.ChainStep(ck)
		memzero.Zero(seed[:])
		ck = next
	}
	next, seed := kdf.ChainStep(ck)
	mk, err := kdf.MessageKeysFrom(seed, ck.Counter, kdf.InfoGroupKeys)
	memzero.Zero(seed[:])
	if err != nil {
		return nil, err
	}
	defer kdf.Wipe(&mk)

	pt, err := crypto.Open(mk.CipherKey, mk.IV, ct, s.associated(header.Bytes()))
	if err != nil {
		return nil, &domain.SignalError{Code: domain.CodeDecryptFailed, Message: fmt.Sprintf("group message %d from %q", header.Counter, header.SenderID), Err: err}
	}

	sk.History = s.appendHistory(slices.Clone(sk.History), ck, sk.Signing.Public)
	sk.Chain = next
	s.state.SenderKeys[header.SenderID] = sk
	return pt, nil
}

// GetSenderKeyBundle returns the bundle other members need to follow our
// chain from its current position.
func (s *Session) GetSenderKeyBundle() (domain.SenderKeyBundle, error) {
	own, ok := s.state.SenderKeys[s.state.MyUserID]
	if !ok {
		return domain.SenderKeyBundle{}, domain.NewSignalError(domain.CodeNoSenderKey, "no own sender key in group %q", s.state.GroupID)
	}
	return domain.SenderKeyBundle{
		GroupID:          s.state.GroupID,
		UserID:           s.state.MyUserID,
		SigningPublicKey: own.Signing.Public,
		ChainKey:         own.Chain.Key,
		Counter:          own.Chain.Counter,
	}, nil
}

// ProcessSenderKeyBundle installs or replaces a member's sender key. The
// sender becomes a member if it was not one already. A bundle for the chain
// we already track at or past its counter is ignored, so redelivery never
// rewinds a chain.
func (s *Session) ProcessSenderKeyBundle(b domain.SenderKeyBundle) error {
	switch {
	case b.GroupID != s.state.GroupID:
		return domain.NewSignalError(domain.CodeInvalidOperation, "bundle for group %q delivered to %q", b.GroupID, s.state.GroupID)
	case b.UserID == "":
		return domain.NewSignalError(domain.CodeInvalidOperation, "bundle without user id")
	case b.UserID == s.state.MyUserID:
		return domain.NewSignalError(domain.CodeInvalidOperation, "refusing to replace our own sender key from a bundle")
	}
	s.addMember(b.UserID)
	if cur, ok := s.state.SenderKeys[b.UserID]; ok &&
		cur.Signing.Public == b.SigningPublicKey && cur.Chain.Counter >= b.Counter {
		return nil
	}
	s.state.SenderKeys[b.UserID] = domain.SenderKeyState{
		UserID:  b.UserID,
		Chain:   domain.ChainKey{Key: b.ChainKey, Counter: b.Counter},
		Signing: domain.SigningKeyPair{Public: b.SigningPublicKey},
	}
	return nil
}

// AdvanceSenderKey rotates our sender key: a new signing key, RotationSteps
// discarded chain steps and a re-key with fresh entropy. The counter
// restarts at zero.
func (s *Session) AdvanceSenderKey(rand io.Reader) error {
	me := s.state.MyUserID
	own, ok := s.state.SenderKeys[me]
	if !ok {
		return domain.NewSignalError(domain.CodeNoSenderKey, "no own sender key in group %q", s.state.GroupID)
	}

	priv, pub, err := crypto.GenerateSigningKeyPair(rand)
	if err != nil {
		return fmt.Errorf("senderkey: rotate: %w", err)
	}

	ck := own.Chain
	for i := 0; i < s.cfg.RotationSteps; i++ {
		next, seed := kdf.ChainStep(ck)
		memzero.Zero(seed[:])
		memzero.Zero(ck.Key[:])
		ck = next
	}
	entropy := make([]byte, 32)
	if _, err := io.ReadFull(rand, entropy); err != nil {
		return fmt.Errorf("senderkey: rotate: %w", err)
	}
	key, err := kdf.Rekey(ck.Key, entropy)
	memzero.Zero(entropy)
	memzero.Zero(ck.Key[:])
	if err != nil {
		return err
	}

	own.Chain = domain.ChainKey{Key: key}
	own.Signing = domain.SigningKeyPair{Public: pub, Private: domain.Some(priv)}
	own.History = slices.Clone(own.History)
	s.state.SenderKeys[me] = own
	return nil
}

// HandleMemberLeave removes user and its sender key, rotates our own key and
// returns the bundle to redistribute to the remaining members.
func (s *Session) HandleMemberLeave(rand io.Reader, user domain.UserID) (domain.SenderKeyBundle, error) {
	if user == s.state.MyUserID {
		return domain.SenderKeyBundle{}, domain.NewSignalError(domain.CodeInvalidOperation, "cannot process our own departure")
	}
	if !slices.Contains(s.state.Members, user) {
		return domain.SenderKeyBundle{}, domain.NewSignalError(domain.CodeInvalidOperation, "%q is not a member of %q", user, s.state.GroupID)
	}
	c := s.Clone()
	c.state.Members = slices.DeleteFunc(c.state.Members, func(m domain.UserID) bool { return m == user })
	delete(c.state.SenderKeys, user)

	if err := c.AdvanceSenderKey(rand); err != nil {
		return domain.SenderKeyBundle{}, err
	}
	bundle, err := c.GetSenderKeyBundle()
	if err != nil {
		return domain.SenderKeyBundle{}, err
	}
	*s = *c
	return bundle, nil
}

// AddMember records user as a member. Its sender key arrives separately.
func (s *Session) AddMember(user domain.UserID) error {
	if user == "" {
		return domain.NewSignalError(domain.CodeInvalidOperation, "empty user id")
	}
	s.addMember(user)
	return nil
}

func (s *Session) addMember(user domain.UserID) {
	if !slices.Contains(s.state.Members, user) {
		s.state.Members = append(s.state.Members, user)
	}
}

func (s *Session) associated(header []byte) []byte {
	out := make([]byte, 0, len(s.state.GroupID)+len(header))
	out = append(out, s.state.GroupID...)
	return append(out, header...)
}

// appendHistory records a consumed chain position and trims the oldest
// entries beyond HistorySize.
func (s *Session) appendHistory(h []domain.ChainKeyHistoryEntry, ck domain.ChainKey, signer domain.Ed25519Public) []domain.ChainKeyHistoryEntry {
	h = append(h, domain.ChainKeyHistoryEntry{
		Counter:    ck.Counter,
		ChainKey:   kdf.ChainFingerprint(ck.Key),
		SigningKey: signer,
	})
	if over := len(h) - s.cfg.HistorySize; over > 0 {
		h = slices.Delete(h, 0, over)
	}
	return h
}

func cloneState(st domain.GroupSessionState) domain.GroupSessionState {
	out := st
	out.Members = slices.Clone(st.Members)
	out.SenderKeys = make(map[domain.UserID]domain.SenderKeyState, len(st.SenderKeys))
	for id, sk := range st.SenderKeys {
		sk.History = slices.Clone(sk.History)
		out.SenderKeys[id] = sk
	}
	return out
}
