package ratchet

import (
	"container/list"

	"sigchat/internal/domain"
	"sigchat/internal/util/memzero"
)

type skippedID struct {
	ratchet domain.Fingerprint
	counter uint32
}

type skippedEntry struct {
	id   skippedID
	seed [32]byte
}

// skippedKeys is a FIFO queue of message key seeds paired with an index for
// O(1) lookup and eviction.
type skippedKeys struct {
	max   int
	order *list.List
	index map[skippedID]*list.Element
}

func newSkippedKeys(max int) *skippedKeys {
	return &skippedKeys{max: max, order: list.New(), index: make(map[skippedID]*list.Element)}
}

func (s *skippedKeys) Len() int { return s.order.Len() }

// put stores seed and evicts the oldest entries beyond the bound.
func (s *skippedKeys) put(id skippedID, seed [32]byte) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = s.order.PushBack(&skippedEntry{id: id, seed: seed})
	for s.order.Len() > s.max {
		s.remove(s.order.Front())
	}
}

// take removes and returns the seed for id.
func (s *skippedKeys) take(id skippedID) ([32]byte, bool) {
	el, ok := s.index[id]
	if !ok {
		return [32]byte{}, false
	}
	seed := el.Value.(*skippedEntry).seed
	s.remove(el)
	return seed, true
}

func (s *skippedKeys) has(id skippedID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *skippedKeys) remove(el *list.Element) {
	e := s.order.Remove(el).(*skippedEntry)
	delete(s.index, e.id)
	memzero.Zero(e.seed[:])
}

func (s *skippedKeys) clone() *skippedKeys {
	c := newSkippedKeys(s.max)
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*skippedEntry)
		c.index[e.id] = c.order.PushBack(&skippedEntry{id: e.id, seed: e.seed})
	}
	return c
}

func (s *skippedKeys) records() []domain.SkippedMessageKey {
	out := make([]domain.SkippedMessageKey, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*skippedEntry)
		out = append(out, domain.SkippedMessageKey{
			RatchetKey: e.id.ratchet,
			Counter:    e.id.counter,
			MessageKey: e.seed,
		})
	}
	return out
}

func (s *skippedKeys) wipe() {
	for s.order.Len() > 0 {
		s.remove(s.order.Front())
	}
}
