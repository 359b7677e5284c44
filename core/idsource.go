package core

import (
	"go.uber.org/atomic"
)

// IDSource is the process-wide monotonic identity allocator shared by
// every mailbox and chain kind. Identities are never reset and never
// recycled, even after a mailbox is destroyed.
type IDSource struct {
	counter atomic.Uint64
}

// NewIDSource creates an IDSource starting above zero so that the
// zero MailboxID stays reserved as "no mailbox".
func NewIDSource() *IDSource {
	return &IDSource{}
}

// Next allocates a fresh identity. The increment is lock-free so it
// never contends with the named dictionary lock.
func (s *IDSource) Next() MailboxID {
	id := s.counter.Inc()
	if id == 0 {
		// 64-bit wrap-around is unreachable in practice; treat it as
		// fatal rather than hand out an aliased identity.
		panic("mailbox id counter overflow")
	}
	return MailboxID(id)
}

// Current returns the most recently allocated identity, zero if none
// was allocated yet.
func (s *IDSource) Current() MailboxID {
	return MailboxID(s.counter.Load())
}
