package ratchet

import (
	"fmt"
	"io"

	"sigchat/internal/crypto"
	"sigchat/internal/domain"
	"sigchat/internal/protocol/kdf"
	"sigchat/internal/util/memzero"
)

// Encrypt seals plaintext for the peer. ad is bound into both the AEAD and
// the MAC; the session layer passes the two identity keys.
//
// If no sending chain exists a DH ratchet step runs first, which needs a
// known remote ratchet key.
func (s *State) Encrypt(rand io.Reader, plaintext, ad []byte) (domain.SignalMessage, error) {
	c := s.Clone()

	var ck domain.ChainKey
	switch sc := c.sending.(type) {
	case Established:
		ck = sc.Chain
	case NotEstablished:
		var err error
		if ck, err = c.sendingStep(rand); err != nil {
			return domain.SignalMessage{}, err
		}
	}

	next, seed := kdf.ChainStep(ck)
	mk, err := kdf.MessageKeysFrom(seed, ck.Counter, kdf.InfoMessageKeys)
	memzero.Zero(seed[:])
	if err != nil {
		return domain.SignalMessage{}, err
	}
	defer kdf.Wipe(&mk)

	ours, _ := c.ourKey.Get()
	header := domain.MessageHeader{RatchetKey: ours.Public, Counter: ck.Counter}
	hb := header.Bytes()

	ct, err := crypto.Seal(mk.CipherKey, mk.IV, plaintext, associated(ad, hb))
	if err != nil {
		return domain.SignalMessage{}, fmt.Errorf("ratchet: seal: %w", err)
	}
	body := append(hb, ct...)
	msg := domain.SignalMessage{
		Version:   domain.ProtocolVersion,
		Body:      body,
		Signature: crypto.MAC(mk.MacKey[:], ad, []byte{domain.ProtocolVersion}, body),
	}

	c.sending = Established{Chain: next}
	*s = *c
	return msg, nil
}

// Decrypt authenticates and opens msg. On any error s is left unchanged.
func (s *State) Decrypt(msg domain.SignalMessage, ad []byte) ([]byte, error) {
	if msg.Version != domain.ProtocolVersion {
		return nil, domain.NewSignalError(domain.CodeInvalidOperation, "unsupported message version %d", msg.Version)
	}
	header, ct, err := msg.Header()
	if err != nil {
		return nil, &domain.SignalError{Code: domain.CodeDecryptFailed, Err: err}
	}

	c := s.Clone()
	fp := crypto.Fingerprint(header.RatchetKey.Slice())

	var seed [32]byte
	if cached, ok := c.skipped.take(skippedID{ratchet: fp, counter: header.Counter}); ok {
		seed = cached
	} else {
		rc, _ := c.findReceiving(header.RatchetKey)
		if rc == nil {
			if rc, err = c.receivingStep(header.RatchetKey); err != nil {
				return nil, err
			}
		}
		if header.Counter < rc.Chain.Counter {
			return nil, &domain.DuplicateMessageError{Counter: header.Counter}
		}
		if header.Counter-rc.Chain.Counter > c.cfg.MaxSkip {
			return nil, domain.NewSignalError(domain.CodeInvalidOperation,
				"counter %d skips %d messages, limit %d",
				header.Counter, header.Counter-rc.Chain.Counter, c.cfg.MaxSkip)
		}
		for rc.Chain.Counter < header.Counter {
			next, skippedSeed := kdf.ChainStep(rc.Chain)
			c.skipped.put(skippedID{ratchet: fp, counter: rc.Chain.Counter}, skippedSeed)
			rc.Chain = next
		}
		var next domain.ChainKey
		next, seed = kdf.ChainStep(rc.Chain)
		rc.Chain = next
	}

	mk, err := kdf.MessageKeysFrom(seed, header.Counter, kdf.InfoMessageKeys)
	memzero.Zero(seed[:])
	if err != nil {
		return nil, err
	}
	defer kdf.Wipe(&mk)

	if !crypto.VerifyMAC(mk.MacKey[:], msg.Signature, ad, []byte{msg.Version}, msg.Body) {
		return nil, &domain.InvalidSignatureError{Context: fmt.Sprintf("message %d", header.Counter)}
	}
	pt, err := crypto.Open(mk.CipherKey, mk.IV, ct, associated(ad, msg.Body[:domain.MessageHeaderSize]))
	if err != nil {
		return nil, &domain.SignalError{Code: domain.CodeDecryptFailed, Message: fmt.Sprintf("message %d", header.Counter), Err: err}
	}

	*s = *c
	return pt, nil
}

// sendingStep generates a new ratchet key and derives a sending chain
// against the last known remote ratchet key.
func (s *State) sendingStep(rand io.Reader) (domain.ChainKey, error) {
	remote, ok := s.remoteKey.Get()
	if !ok {
		return domain.ChainKey{}, domain.NewSignalError(domain.CodeNotInitialized, "no remote ratchet key to send to")
	}
	kp, err := crypto.GenerateKeyPair(rand)
	if err != nil {
		return domain.ChainKey{}, fmt.Errorf("ratchet: new ratchet key: %w", err)
	}
	dh, err := crypto.DH(kp.Private, remote)
	if err != nil {
		return domain.ChainKey{}, err
	}
	root, ck, err := kdf.RootStep(s.rootKey, dh)
	memzero.Zero(dh[:])
	if err != nil {
		return domain.ChainKey{}, err
	}
	s.rootKey = root
	s.ourKey = domain.Some(kp)
	return ck, nil
}

// receivingStep handles a ratchet key we have not seen: it derives a
// receiving chain with our current ratchet key and drops the sending chain
// so the next Encrypt answers with a fresh key.
func (s *State) receivingStep(remote domain.X25519Public) (*domain.ReceivingChain, error) {
	ours, ok := s.ourKey.Get()
	if !ok {
		return nil, domain.NewSignalError(domain.CodeNotInitialized, "no ratchet key to receive with")
	}
	dh, err := crypto.DH(ours.Private, remote)
	if err != nil {
		return nil, err
	}
	root, ck, err := kdf.RootStep(s.rootKey, dh)
	memzero.Zero(dh[:])
	if err != nil {
		return nil, err
	}
	if est, ok := s.sending.(Established); ok {
		s.previousCounter = est.Chain.Counter
	}
	s.rootKey = root
	s.remoteKey = domain.Some(remote)
	s.sending = NotEstablished{}
	return s.addReceiving(remote, ck), nil
}

func associated(ad, header []byte) []byte {
	out := make([]byte, 0, len(ad)+len(header))
	out = append(out, ad...)
	return append(out, header...)
}
