package core

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// namedKey identifies a dictionary entry.
type namedKey struct {
	namespace string
	name      string
}

// String returns the key in namespace/name form.
func (k namedKey) String() string {
	return k.namespace + "/" + k.name
}

// namedEntry is one dictionary value: the underlying mailbox plus the
// count of outstanding NamedMailbox aliases. The count is a plain int
// mutated only under the dictionary mutex; an entry exists if and only
// if its count is positive.
type namedEntry struct {
	mailbox  Mailbox
	refCount uint
}

// namedDictionary is the concurrently-accessed mapping from
// (namespace, name) to a reference-counted underlying mailbox. All
// mutation happens under one exclusive lock whose hold time is O(1).
type namedDictionary struct {
	mu      sync.Mutex
	entries map[namedKey]*namedEntry
}

// newNamedDictionary creates an empty dictionary.
func newNamedDictionary() *namedDictionary {
	return &namedDictionary{
		entries: make(map[namedKey]*namedEntry),
	}
}

// createOrAttach returns an alias over the mailbox stored under key,
// creating it with factory on first use. Concurrent calls for the
// same key are linearized by the dictionary lock: exactly one becomes
// the first creator, all others attach to the created entry.
//
// The factory runs while the lock is held and must not re-enter the
// dictionary. A factory failure propagates to the caller with the
// dictionary left unmodified.
func (d *namedDictionary) createOrAttach(key namedKey, factory func() (Mailbox, error)) (*NamedMailbox, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.entries[key]; ok {
		// Build the alias before touching the count so a failed
		// construction leaves the entry untouched.
		alias := newNamedMailbox(key, entry.mailbox, d)
		entry.refCount++
		return alias, nil
	}

	mailbox, err := factory()
	if err != nil {
		return nil, err
	}

	alias := newNamedMailbox(key, mailbox, d)
	d.entries[key] = &namedEntry{mailbox: mailbox, refCount: 1}
	return alias, nil
}

// release decrements the entry's reference count and erases the entry
// at zero. Absence of the key is not an error: under the "last holder
// already released" race it is an expected outcome.
func (d *namedDictionary) release(key namedKey) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.entries[key]
	if !ok {
		return
	}

	entry.refCount--
	if entry.refCount == 0 {
		delete(d.entries, key)
	}
}

// size returns the current count of distinct named entries.
func (d *namedDictionary) size() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return uint64(len(d.entries))
}

// NamedMailbox is a thin alias over an underlying mailbox reachable by
// (namespace, name). It reports the underlying mailbox's identity, so
// two aliases for the same name compare equal by ID. Closing the alias
// triggers exactly one release against the dictionary; use
// defer mb.Close() for release-on-all-exit-paths semantics.
type NamedMailbox struct {
	key    namedKey
	inner  Mailbox
	dict   *namedDictionary
	closed atomic.Bool
}

// newNamedMailbox creates an alias over inner.
func newNamedMailbox(key namedKey, inner Mailbox, dict *namedDictionary) *NamedMailbox {
	return &NamedMailbox{
		key:   key,
		inner: inner,
		dict:  dict,
	}
}

// ID returns the identity of the underlying mailbox.
func (m *NamedMailbox) ID() MailboxID {
	return m.inner.ID()
}

// Kind returns KindNamed.
func (m *NamedMailbox) Kind() MailboxKind {
	return KindNamed
}

// Namespace returns the namespace part of the alias key.
func (m *NamedMailbox) Namespace() string {
	return m.key.namespace
}

// Name returns the name part of the alias key.
func (m *NamedMailbox) Name() string {
	return m.key.name
}

// Deliver forwards to the underlying mailbox. A closed alias refuses
// deliveries even though the underlying mailbox may outlive it.
func (m *NamedMailbox) Deliver(msg *Message) error {
	if m.closed.Load() {
		return ErrMailboxClosed
	}
	return m.inner.Deliver(msg)
}

// Subscribe forwards to the underlying mailbox.
func (m *NamedMailbox) Subscribe(agent Agent) error {
	if m.closed.Load() {
		return ErrMailboxClosed
	}
	return m.inner.Subscribe(agent)
}

// Unsubscribe forwards to the underlying mailbox.
func (m *NamedMailbox) Unsubscribe(agent Agent) {
	if m.closed.Load() {
		return
	}
	m.inner.Unsubscribe(agent)
}

// Close releases this alias's reference against the dictionary.
// Close is idempotent and never fails.
func (m *NamedMailbox) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.dict.release(m.key)
	}
	return nil
}

// String returns a human-readable representation of this alias.
func (m *NamedMailbox) String() string {
	return fmt.Sprintf("<mbox:named:%d:%s>", m.inner.ID(), m.key)
}
