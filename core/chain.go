package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// demand is one pending delivery held by a chain: the message plus its
// delivery metadata.
type demand struct {
	msg        *Message
	enqueuedAt time.Time
}

// demandQueue is the internal FIFO representation behind a chain. The
// three disciplines are behaviorally identical from the consumer's
// point of view; only capacity enforcement and storage allocation
// differ.
type demandQueue interface {
	// push appends a demand, returning ErrChainFull at capacity.
	push(d demand) error

	// pop removes and returns the oldest demand.
	pop() (demand, bool)

	// len returns the number of pending demands.
	len() int
}

// newDemandQueue picks the queue discipline matching the capacity
// policy.
func newDemandQueue(capacity ChainCapacity) demandQueue {
	switch {
	case capacity.Unlimited():
		return &unlimitedQueue{}
	case capacity.Memory() == MemoryPreallocated:
		return newPreallocatedQueue(capacity.MaxSize())
	default:
		return &limitedDynamicQueue{maxSize: capacity.MaxSize()}
	}
}

// unlimitedQueue grows without bound; push never fails due to
// capacity.
type unlimitedQueue struct {
	items []demand
	head  int
}

func (q *unlimitedQueue) push(d demand) error {
	q.items = append(q.items, d)
	return nil
}

func (q *unlimitedQueue) pop() (demand, bool) {
	if q.head == len(q.items) {
		return demand{}, false
	}

	d := q.items[q.head]
	q.items[q.head] = demand{}
	q.head++

	// Reclaim the drained prefix once everything was consumed.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}

	return d, true
}

func (q *unlimitedQueue) len() int {
	return len(q.items) - q.head
}

// limitedDynamicQueue enforces a maximum demand count with storage
// allocated per push.
type limitedDynamicQueue struct {
	maxSize int
	items   []demand
	head    int
}

func (q *limitedDynamicQueue) push(d demand) error {
	if q.len() >= q.maxSize {
		return ErrChainFull
	}

	q.items = append(q.items, d)
	return nil
}

func (q *limitedDynamicQueue) pop() (demand, bool) {
	if q.head == len(q.items) {
		return demand{}, false
	}

	d := q.items[q.head]
	q.items[q.head] = demand{}
	q.head++

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}

	return d, true
}

func (q *limitedDynamicQueue) len() int {
	return len(q.items) - q.head
}

// preallocatedQueue enforces the same capacity semantics as
// limitedDynamicQueue over a ring buffer reserved once at
// construction, avoiding per-message allocation.
type preallocatedQueue struct {
	buf   []demand
	head  int
	count int
}

func newPreallocatedQueue(maxSize int) *preallocatedQueue {
	return &preallocatedQueue{
		buf: make([]demand, maxSize),
	}
}

func (q *preallocatedQueue) push(d demand) error {
	if q.count == len(q.buf) {
		return ErrChainFull
	}

	q.buf[(q.head+q.count)%len(q.buf)] = d
	q.count++
	return nil
}

func (q *preallocatedQueue) pop() (demand, bool) {
	if q.count == 0 {
		return demand{}, false
	}

	d := q.buf[q.head]
	q.buf[q.head] = demand{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return d, true
}

func (q *preallocatedQueue) len() int {
	return q.count
}

// Chain is a mailbox variant holding a bounded or unbounded demand
// queue, usable for direct, queue-like hand-off between threads.
// Deliveries enqueue demands; consumers drain them through Receive or
// TryReceive.
type Chain struct {
	id       MailboxID
	capacity ChainCapacity

	// sink is the tracing sink chosen at construction, nil for the
	// untraced sibling. The selection never changes afterward.
	sink TracingSink

	mu     sync.Mutex
	queue  demandQueue
	closed bool

	// wake is closed and replaced on every push so all blocked
	// receivers re-check the queue.
	wake chan struct{}
}

// newChain creates a chain with the queue discipline matching
// capacity. The capacity must already be validated.
func newChain(id MailboxID, capacity ChainCapacity, sink TracingSink) *Chain {
	return &Chain{
		id:       id,
		capacity: capacity,
		sink:     sink,
		queue:    newDemandQueue(capacity),
		wake:     make(chan struct{}),
	}
}

// ID returns the unique identity of this chain.
func (c *Chain) ID() MailboxID {
	return c.id
}

// Kind returns KindChain.
func (c *Chain) Kind() MailboxKind {
	return KindChain
}

// Capacity returns the policy the chain was created with.
func (c *Chain) Capacity() ChainCapacity {
	return c.capacity
}

// Deliver enqueues the message as a new demand. It fails with
// ErrChainFull once a limited queue reaches its maximum and with
// ErrChainClosed after Close.
func (c *Chain) Deliver(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("chain %d: cannot deliver nil message", c.id)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.trace(TraceReject, msg.Type)
		return ErrChainClosed
	}

	if err := c.queue.push(demand{msg: msg, enqueuedAt: time.Now()}); err != nil {
		c.mu.Unlock()
		c.trace(TraceReject, msg.Type)
		return err
	}

	close(c.wake)
	c.wake = make(chan struct{})
	c.mu.Unlock()

	c.trace(TraceDeliver, msg.Type)
	return nil
}

// Subscribe always fails: chains are consumed through Receive.
func (c *Chain) Subscribe(agent Agent) error {
	return ErrSubscriptionUnsupported
}

// Unsubscribe is a no-op.
func (c *Chain) Unsubscribe(agent Agent) {}

// TryReceive returns the oldest pending message without blocking.
func (c *Chain) TryReceive() (*Message, bool) {
	c.mu.Lock()
	d, ok := c.queue.pop()
	c.mu.Unlock()

	if ok {
		c.trace(TraceReceive, d.msg.Type)
		return d.msg, true
	}
	return nil, false
}

// Receive blocks until a message is available, the chain is closed
// and drained, or the context is done. Pending messages remain
// receivable after Close; ErrChainClosed is returned only once the
// queue is empty.
func (c *Chain) Receive(ctx context.Context) (*Message, error) {
	for {
		c.mu.Lock()
		if d, ok := c.queue.pop(); ok {
			c.mu.Unlock()
			c.trace(TraceReceive, d.msg.Type)
			return d.msg, nil
		}
		if c.closed {
			c.mu.Unlock()
			return nil, ErrChainClosed
		}
		wake := c.wake
		c.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of pending demands.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.queue.len()
}

// Close stops the chain from accepting new deliveries and wakes every
// blocked receiver. Close is idempotent.
func (c *Chain) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.wake)
	c.wake = make(chan struct{})
	c.mu.Unlock()

	c.trace(TraceClose, "")
	return nil
}

// Closed reports whether Close was called.
func (c *Chain) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// trace reports an event to the sink picked at construction.
func (c *Chain) trace(op TraceOp, msgType string) {
	if c.sink == nil {
		return
	}
	c.sink.Trace(TraceEvent{
		Op:        op,
		Mailbox:   c.id,
		Kind:      KindChain,
		MsgType:   msgType,
		Timestamp: time.Now(),
	})
}

// String returns a human-readable representation of this chain.
func (c *Chain) String() string {
	if c.capacity.Unlimited() {
		return fmt.Sprintf("<mchain:%d:unlimited>", c.id)
	}
	return fmt.Sprintf("<mchain:%d:%s:max=%d>",
		c.id, c.capacity.Memory(), c.capacity.MaxSize())
}
