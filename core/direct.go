package core

import (
	"fmt"
)

// directMailbox is the point-to-point mailbox variant. Its sole
// permitted consumer is the owning agent fixed at construction.
// The limited flavor lets the owner's demand queue refuse delivery
// once its capacity is exceeded; the limitless flavor bypasses the
// capacity check for control traffic that must never be rejected.
type directMailbox struct {
	id      MailboxID
	owner   Agent
	limited bool
}

// newDirectMailbox creates a direct mailbox bound to owner.
func newDirectMailbox(id MailboxID, owner Agent, limited bool) *directMailbox {
	return &directMailbox{
		id:      id,
		owner:   owner,
		limited: limited,
	}
}

// ID returns the unique identity of this mailbox.
func (m *directMailbox) ID() MailboxID {
	return m.id
}

// Kind returns KindDirect.
func (m *directMailbox) Kind() MailboxKind {
	return KindDirect
}

// Owner returns the single permitted consumer.
func (m *directMailbox) Owner() Agent {
	return m.owner
}

// Limited reports whether deliveries respect the owner's queue
// capacity.
func (m *directMailbox) Limited() bool {
	return m.limited
}

// Deliver enqueues the message on the owner's demand queue.
func (m *directMailbox) Deliver(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("mailbox %d: cannot deliver nil message", m.id)
	}

	if err := m.owner.Enqueue(msg, m.limited); err != nil {
		return fmt.Errorf("mailbox %d: deliver to owner %d: %w",
			m.id, m.owner.ID(), err)
	}
	return nil
}

// Subscribe accepts only the owning agent; the owner is implicitly
// subscribed, so a matching call is a no-op.
func (m *directMailbox) Subscribe(agent Agent) error {
	if agent == nil || agent.ID() != m.owner.ID() {
		return ErrNotOwner
	}
	return nil
}

// Unsubscribe is a no-op: the owner binding never changes.
func (m *directMailbox) Unsubscribe(agent Agent) {}

// String returns a human-readable representation of this mailbox.
func (m *directMailbox) String() string {
	flavor := "limited"
	if !m.limited {
		flavor = "limitless"
	}
	return fmt.Sprintf("<mbox:direct:%s:%d:owner=%d>", flavor, m.id, m.owner.ID())
}
