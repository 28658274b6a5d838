package ratchet

import (
	"fmt"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
	"sigchat/internal/util/memzero"
)

// Config bounds the memory a session may spend on out-of-order delivery.
type Config struct {
	// MaxSkip is the largest counter gap a single message may open.
	MaxSkip uint32 `yaml:"max_skip"`
	// MaxSkippedKeys caps the skipped-key cache across all chains.
	MaxSkippedKeys int `yaml:"max_skipped_keys"`
	// MaxReceivingChains caps how many remote ratchet keys stay decryptable.
	MaxReceivingChains int `yaml:"max_receiving_chains"`
}

// DefaultConfig returns the bounds used when none are configured.
func DefaultConfig() Config {
	return Config{MaxSkip: 1000, MaxSkippedKeys: 2000, MaxReceivingChains: 5}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxSkip == 0 {
		c.MaxSkip = d.MaxSkip
	}
	if c.MaxSkippedKeys <= 0 {
		c.MaxSkippedKeys = d.MaxSkippedKeys
	}
	if c.MaxReceivingChains <= 0 {
		c.MaxReceivingChains = d.MaxReceivingChains
	}
	return c
}

// SendingChain is either NotEstablished or Established.
type SendingChain interface {
	isSendingChain()
}

// NotEstablished means the next Encrypt must perform a DH ratchet step.
type NotEstablished struct{}

// Established carries the live sending chain.
type Established struct {
	Chain domain.ChainKey
}

func (NotEstablished) isSendingChain() {}
func (Established) isSendingChain()    {}

// Phase reports where a State is in its lifecycle.
type Phase uint8

const (
	PhaseUninitialized Phase = iota
	PhaseSenderInitialized
	PhaseReceiverInitialized
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseSenderInitialized:
		return "sender-initialized"
	case PhaseReceiverInitialized:
		return "receiver-initialized"
	case PhaseActive:
		return "active"
	default:
		return "uninitialized"
	}
}

// State is one side of a Double Ratchet session.
type State struct {
	cfg Config

	rootKey         [32]byte
	ourKey          domain.Option[domain.KeyPair]
	remoteKey       domain.Option[domain.X25519Public]
	sending         SendingChain
	previousCounter uint32

	receiving map[domain.Fingerprint]*domain.ReceivingChain
	order     []domain.Fingerprint // oldest first
	skipped   *skippedKeys
}

func newState(master [32]byte, cfg Config) *State {
	cfg = cfg.withDefaults()
	return &State{
		cfg:       cfg,
		rootKey:   master,
		sending:   NotEstablished{},
		receiving: make(map[domain.Fingerprint]*domain.ReceivingChain),
		skipped:   newSkippedKeys(cfg.MaxSkippedKeys),
	}
}

// InitAsInitiator starts a session from the handshake master secret. The
// responder's signed pre-key serves as its first ratchet key; the first
// Encrypt performs the initial DH step.
func InitAsInitiator(master [32]byte, remoteRatchetKey domain.X25519Public, cfg Config) *State {
	s := newState(master, cfg)
	s.remoteKey = domain.Some(remoteRatchetKey)
	return s
}

// InitAsResponder starts a session from the handshake master secret using our
// signed pre-key pair as the current ratchet key. No remote key is known
// until the first message arrives.
func InitAsResponder(master [32]byte, ourRatchetKey domain.KeyPair, cfg Config) *State {
	s := newState(master, cfg)
	s.ourKey = domain.Some(ourRatchetKey)
	return s
}

// Phase returns the lifecycle position of s.
func (s *State) Phase() Phase {
	switch {
	case s == nil || s.receiving == nil:
		return PhaseUninitialized
	case len(s.order) > 0:
		return PhaseActive
	}
	if _, ok := s.sending.(Established); ok {
		return PhaseActive
	}
	if s.remoteKey.Valid {
		return PhaseSenderInitialized
	}
	if s.ourKey.Valid {
		return PhaseReceiverInitialized
	}
	return PhaseUninitialized
}

// RatchetKey returns our current ratchet public key, if any.
func (s *State) RatchetKey() (domain.X25519Public, bool) {
	kp, ok := s.ourKey.Get()
	return kp.Public, ok
}

// SkippedKeys reports how many skipped message keys are cached.
func (s *State) SkippedKeys() int { return s.skipped.Len() }

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.receiving = make(map[domain.Fingerprint]*domain.ReceivingChain, len(s.receiving))
	for fp, rc := range s.receiving {
		cp := *rc
		c.receiving[fp] = &cp
	}
	c.order = append([]domain.Fingerprint(nil), s.order...)
	c.skipped = s.skipped.clone()
	return &c
}

// Wipe zeroes the secrets held by s. s must not be used afterwards.
func (s *State) Wipe() {
	memzero.Zero(s.rootKey[:])
	memzero.Zero(s.ourKey.Value.Private[:])
	s.ourKey = domain.None[domain.KeyPair]()
	for _, rc := range s.receiving {
		memzero.Zero(rc.Chain.Key[:])
	}
	s.sending = NotEstablished{}
	s.skipped.wipe()
}

// Record converts s into its persisted form.
func (s *State) Record() domain.RatchetState {
	rec := domain.RatchetState{
		RootKey:          s.rootKey,
		OurRatchetKey:    s.ourKey,
		RemoteRatchetKey: s.remoteKey,
		PreviousCounter:  s.previousCounter,
		ReceivingChains:  make([]domain.ReceivingChain, 0, len(s.order)),
		SkippedKeys:      s.skipped.records(),
	}
	if est, ok := s.sending.(Established); ok {
		rec.SendingChain = domain.Some(est.Chain)
	}
	for _, fp := range s.order {
		rec.ReceivingChains = append(rec.ReceivingChains, *s.receiving[fp])
	}
	return rec
}

// FromRecord rebuilds a State from its persisted form.
func FromRecord(rec domain.RatchetState, cfg Config) (*State, error) {
	s := newState(rec.RootKey, cfg)
	s.ourKey = rec.OurRatchetKey
	s.remoteKey = rec.RemoteRatchetKey
	s.previousCounter = rec.PreviousCounter
	if ck, ok := rec.SendingChain.Get(); ok {
		if !s.ourKey.Valid {
			return nil, fmt.Errorf("ratchet record: sending chain without ratchet key")
		}
		s.sending = Established{Chain: ck}
	}
	for _, rc := range rec.ReceivingChains {
		s.addReceiving(rc.RemoteKey, rc.Chain)
	}
	for _, sk := range rec.SkippedKeys {
		s.skipped.put(skippedID{ratchet: sk.RatchetKey, counter: sk.Counter}, sk.MessageKey)
	}
	return s, nil
}

func (s *State) findReceiving(remote domain.X25519Public) (*domain.ReceivingChain, domain.Fingerprint) {
	fp := crypto.Fingerprint(remote.Slice())
	rc, ok := s.receiving[fp]
	if !ok || rc.RemoteKey != remote {
		return nil, fp
	}
	return rc, fp
}

// addReceiving installs a chain for remote and evicts the oldest chains
// beyond the bound.
func (s *State) addReceiving(remote domain.X25519Public, ck domain.ChainKey) *domain.ReceivingChain {
	fp := crypto.Fingerprint(remote.Slice())
	rc := &domain.ReceivingChain{RemoteKey: remote, Chain: ck}
	if _, ok := s.receiving[fp]; !ok {
		s.order = append(s.order, fp)
	}
	s.receiving[fp] = rc
	for len(s.order) > s.cfg.MaxReceivingChains {
		old := s.order[0]
		s.order = s.order[1:]
		if ev, ok := s.receiving[old]; ok {
			memzero.Zero(ev.Chain.Key[:])
			delete(s.receiving, old)
		}
	}
	return rc
}
