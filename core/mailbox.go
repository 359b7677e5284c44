package core

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// localMailbox is the broadcast mailbox variant: anonymous,
// multi-producer, delivering each message to every subscribed agent.
type localMailbox struct {
	id MailboxID

	mu   sync.RWMutex
	subs map[AgentID]Agent
}

// newLocalMailbox creates an empty broadcast mailbox.
func newLocalMailbox(id MailboxID) *localMailbox {
	return &localMailbox{
		id:   id,
		subs: make(map[AgentID]Agent),
	}
}

// ID returns the unique identity of this mailbox.
func (m *localMailbox) ID() MailboxID {
	return m.id
}

// Kind returns KindBroadcast.
func (m *localMailbox) Kind() MailboxKind {
	return KindBroadcast
}

// Subscribe registers an agent as a consumer. Subscribing the same
// agent twice is a no-op.
func (m *localMailbox) Subscribe(agent Agent) error {
	if agent == nil {
		return ErrNilOwner
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs[agent.ID()] = agent
	return nil
}

// Unsubscribe removes a previously subscribed agent. Removing an
// unknown agent is a no-op.
func (m *localMailbox) Unsubscribe(agent Agent) {
	if agent == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.subs, agent.ID())
}

// Deliver fans the message out to every subscriber. Per-subscriber
// failures do not stop delivery to the rest; they are aggregated into
// the returned error.
func (m *localMailbox) Deliver(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("mailbox %d: cannot deliver nil message", m.id)
	}

	// Snapshot under the read lock so slow subscriber queues never
	// block subscription changes.
	m.mu.RLock()
	targets := make([]Agent, 0, len(m.subs))
	for _, agent := range m.subs {
		targets = append(targets, agent)
	}
	m.mu.RUnlock()

	var err error
	for _, agent := range targets {
		if deliverErr := agent.Enqueue(msg, true); deliverErr != nil {
			err = multierr.Append(err,
				fmt.Errorf("mailbox %d: deliver to agent %d: %w",
					m.id, agent.ID(), deliverErr))
		}
	}

	return err
}

// SubscriberCount returns the current number of subscribed agents.
func (m *localMailbox) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.subs)
}

// String returns a human-readable representation of this mailbox.
func (m *localMailbox) String() string {
	return fmt.Sprintf("<mbox:broadcast:%d>", m.id)
}
