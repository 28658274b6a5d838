package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sigchat/internal/domain"
	"sigchat/internal/domain/types"
	"sigchat/internal/manager"
)

// Service sends and receives messages over the transport.
//
// High-level flow:
//   - Send: encrypt with the manager, encode the envelope and post it as a
//     parcel. Until the peer replies the envelope carries the handshake
//     parameters, so the receiver can bootstrap its side.
//   - Receive: fetch parcels, dispatch them by kind, then ack what was
//     handled. Parcels that fail for protocol reasons are dropped with a
//     warning; any other failure stops processing and leaves the rest queued.
type Service struct {
	mgr       *manager.Manager
	transport domain.Transport
	log       *slog.Logger
	now       func() time.Time
}

// New constructs a message service.
func New(mgr *manager.Manager, transport domain.Transport, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{mgr: mgr, transport: transport, log: log, now: time.Now}
}

// SendMessage encrypts plaintext for peer and posts it.
func (s *Service) SendMessage(ctx context.Context, peer domain.UserID, plaintext []byte) error {
	env, err := s.mgr.EncryptMessage(ctx, peer, plaintext)
	if err != nil {
		return err
	}
	return s.send(ctx, peer, domain.ParcelSignal, env)
}

// SendGroupMessage encrypts plaintext once for gid and posts a copy to every
// other member.
func (s *Service) SendGroupMessage(ctx context.Context, gid domain.GroupID, plaintext []byte) error {
	msg, err := s.mgr.EncryptGroupMessage(ctx, gid, plaintext)
	if err != nil {
		return err
	}
	members, err := s.mgr.GroupMembers(ctx, gid)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m == s.mgr.UserID() {
			continue
		}
		if err := s.send(ctx, m, domain.ParcelGroup, msg); err != nil {
			return err
		}
	}
	return nil
}

// DistributeSenderKey sends our sender-key bundle for gid to every other
// member over their 1:1 sessions. Members without a session are returned in
// missing and skipped.
func (s *Service) DistributeSenderKey(ctx context.Context, gid domain.GroupID) (missing []domain.UserID, err error) {
	bundle, err := s.mgr.GetSenderKeyBundle(ctx, gid)
	if err != nil {
		return nil, err
	}
	blob, err := types.Encode(bundle)
	if err != nil {
		return nil, fmt.Errorf("encode sender key bundle: %w", err)
	}
	members, err := s.mgr.GroupMembers(ctx, gid)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m == s.mgr.UserID() {
			continue
		}
		env, err := s.mgr.EncryptMessage(ctx, m, blob)
		if errors.Is(err, domain.ErrNoSession) {
			missing = append(missing, m)
			continue
		}
		if err != nil {
			return missing, err
		}
		if err := s.send(ctx, m, domain.ParcelSenderKey, env); err != nil {
			return missing, err
		}
	}
	return missing, nil
}

// ReceiveMessages fetches up to limit parcels, decrypts them in order and
// acks the ones handled. Sender-key parcels are installed and not returned.
func (s *Service) ReceiveMessages(ctx context.Context, limit int) ([]domain.DecryptedMessage, error) {
	me := s.mgr.UserID()
	parcels, err := s.transport.Fetch(ctx, me, limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DecryptedMessage, 0, len(parcels))
	processed := 0

	for _, p := range parcels {
		msg, ok, err := s.dispatch(ctx, p)
		if err != nil {
			if !isProtocolError(err) {
				s.ackProcessed(ctx, processed)
				return out, fmt.Errorf("parcel from %q: %w", p.From, err)
			}
			s.log.Warn("dropping parcel", "from", string(p.From), "kind", string(p.Kind), "err", err)
		} else if ok {
			out = append(out, msg)
		}
		processed++
	}

	if err := s.ack(ctx, processed); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Service) dispatch(ctx context.Context, p domain.Parcel) (domain.DecryptedMessage, bool, error) {
	switch p.Kind {
	case domain.ParcelSignal:
		env, err := decode[domain.Envelope](p.Payload)
		if err != nil {
			return domain.DecryptedMessage{}, false, err
		}
		pt, err := s.mgr.DecryptMessage(ctx, p.From, env)
		if err != nil {
			return domain.DecryptedMessage{}, false, err
		}
		return domain.DecryptedMessage{From: p.From, Plaintext: pt, Timestamp: env.Timestamp}, true, nil

	case domain.ParcelSenderKey:
		env, err := decode[domain.Envelope](p.Payload)
		if err != nil {
			return domain.DecryptedMessage{}, false, err
		}
		_, err = s.mgr.ProcessSenderKeyMessage(ctx, p.From, env)
		return domain.DecryptedMessage{}, false, err

	case domain.ParcelGroup:
		gm, err := decode[domain.GroupMessage](p.Payload)
		if err != nil {
			return domain.DecryptedMessage{}, false, err
		}
		if gm.SenderID != p.From {
			return domain.DecryptedMessage{}, false, domain.NewSignalError(domain.CodeInvalidOperation,
				"group message from %q delivered by %q", gm.SenderID, p.From)
		}
		pt, err := s.mgr.DecryptGroupMessage(ctx, gm)
		if err != nil {
			return domain.DecryptedMessage{}, false, err
		}
		return domain.DecryptedMessage{
			From:      p.From,
			GroupID:   gm.GroupID,
			Plaintext: pt,
			Timestamp: gm.Timestamp / 1000,
		}, true, nil

	default:
		return domain.DecryptedMessage{}, false, domain.NewSignalError(domain.CodeInvalidOperation, "unknown parcel kind %q", p.Kind)
	}
}

func (s *Service) send(ctx context.Context, to domain.UserID, kind domain.ParcelKind, v any) error {
	payload, err := types.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s parcel: %w", kind, err)
	}
	return s.transport.Send(ctx, domain.Parcel{
		From:      s.mgr.UserID(),
		To:        to,
		Kind:      kind,
		Payload:   payload,
		Timestamp: s.now().UTC().Unix(),
	})
}

// ack acknowledges count parcels. If zero, do nothing.
func (s *Service) ack(ctx context.Context, count int) error {
	if count == 0 {
		return nil
	}
	if err := s.transport.Ack(ctx, s.mgr.UserID(), count); err != nil {
		return fmt.Errorf("ack %d parcels: %w", count, err)
	}
	return nil
}

// ackProcessed acks on the error path, where the original error wins.
func (s *Service) ackProcessed(ctx context.Context, count int) {
	if err := s.ack(ctx, count); err != nil {
		s.log.Warn("ack failed", "count", count, "err", err)
	}
}

// errMalformed marks a parcel payload that does not decode.
var errMalformed = errors.New("malformed parcel payload")

func decode[T any](b []byte) (T, error) {
	v, err := types.Decode[T](b)
	if err != nil {
		return v, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return v, nil
}

// isProtocolError reports whether err is about the parcel itself, as opposed
// to the store or transport.
func isProtocolError(err error) bool {
	var se *domain.SignalError
	switch {
	case errors.As(err, &se),
		errors.Is(err, errMalformed),
		errors.Is(err, domain.ErrInvalidKey),
		errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrDuplicateMessage),
		errors.Is(err, domain.ErrNoSession),
		errors.Is(err, domain.ErrNoGroupSession):
		return true
	}
	return false
}
