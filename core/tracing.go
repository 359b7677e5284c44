package core

import (
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// TraceOp identifies the operation recorded by a trace event.
type TraceOp uint8

const (
	// TraceDeliver records a message handed to a mailbox
	TraceDeliver TraceOp = iota

	// TraceReject records a delivery refused by a mailbox
	TraceReject

	// TraceSubscribe records an agent subscribing to a mailbox
	TraceSubscribe

	// TraceUnsubscribe records an agent unsubscribing from a mailbox
	TraceUnsubscribe

	// TraceReceive records a demand consumed from a chain
	TraceReceive

	// TraceClose records a chain being closed
	TraceClose
)

// String returns the string representation of TraceOp.
func (op TraceOp) String() string {
	switch op {
	case TraceDeliver:
		return "deliver"
	case TraceReject:
		return "reject"
	case TraceSubscribe:
		return "subscribe"
	case TraceUnsubscribe:
		return "unsubscribe"
	case TraceReceive:
		return "receive"
	case TraceClose:
		return "close"
	default:
		return "unknown"
	}
}

// TraceEvent is one observation emitted by a traced mailbox variant.
type TraceEvent struct {
	// Op is the traced operation
	Op TraceOp

	// Mailbox is the identity of the mailbox the operation ran on
	Mailbox MailboxID

	// Kind of the traced mailbox
	Kind MailboxKind

	// MsgType is the payload tag for delivery operations, empty
	// otherwise
	MsgType string

	// Agent is the subscriber for subscription operations, zero
	// otherwise
	Agent AgentID

	// Timestamp when the event was observed
	Timestamp time.Time
}

// SinkFunc adapts a function to the TracingSink interface.
type SinkFunc func(ev TraceEvent)

// Trace calls f(ev).
func (f SinkFunc) Trace(ev TraceEvent) {
	f(ev)
}

// NopSink discards every event.
func NopSink() TracingSink {
	return SinkFunc(func(TraceEvent) {})
}

// NewZapSink returns a sink that logs every event at debug level.
func NewZapSink(logger *zap.Logger) TracingSink {
	return SinkFunc(func(ev TraceEvent) {
		logger.Debug("mailbox trace",
			zap.String("op", ev.Op.String()),
			zap.Uint64("mailbox", uint64(ev.Mailbox)),
			zap.String("kind", ev.Kind.String()),
			zap.String("msg_type", ev.MsgType),
			zap.Uint64("agent", uint64(ev.Agent)),
		)
	})
}

// MultiSink fans every event out to all sinks in order. Nil sinks are
// skipped.
func MultiSink(sinks ...TracingSink) TracingSink {
	return SinkFunc(func(ev TraceEvent) {
		for _, s := range sinks {
			if s != nil {
				s.Trace(ev)
			}
		}
	})
}

// Gate is the standard TracingGate implementation: an atomic on/off
// flag plus a fixed sink. It is set once by environment bootstrap and
// read by every mailbox creation.
type Gate struct {
	enabled atomic.Bool
	sink    TracingSink
}

// NewGate creates a gate writing to sink, initially disabled. A nil
// sink is replaced by NopSink.
func NewGate(sink TracingSink) *Gate {
	if sink == nil {
		sink = NopSink()
	}
	return &Gate{sink: sink}
}

// SetEnabled switches tracing for mailboxes created afterward.
// Already-created mailboxes are unaffected.
func (g *Gate) SetEnabled(v bool) {
	g.enabled.Store(v)
}

// Enabled reports whether newly created mailboxes should trace.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// Sink returns the gate's sink.
func (g *Gate) Sink() TracingSink {
	return g.sink
}

// selectVariant returns the traced sibling of mb when the gate is
// enabled at the moment of the call, otherwise mb itself. The choice
// is frozen for the mailbox's entire lifetime; delivery never
// re-checks the gate.
func selectVariant(gate TracingGate, mb Mailbox) Mailbox {
	if gate != nil && gate.Enabled() {
		return &tracedMailbox{inner: mb, sink: gate.Sink()}
	}
	return mb
}

// tracedMailbox is the traced sibling of any mailbox variant. It
// forwards every operation to the wrapped mailbox and reports it to
// the sink chosen at construction.
type tracedMailbox struct {
	inner Mailbox
	sink  TracingSink
}

// ID returns the identity of the wrapped mailbox.
func (m *tracedMailbox) ID() MailboxID {
	return m.inner.ID()
}

// Kind returns the kind of the wrapped mailbox.
func (m *tracedMailbox) Kind() MailboxKind {
	return m.inner.Kind()
}

// Deliver traces the delivery and forwards it to the wrapped mailbox.
func (m *tracedMailbox) Deliver(msg *Message) error {
	err := m.inner.Deliver(msg)
	if msg == nil {
		// The inner mailbox already rejected it; there is nothing to
		// report a type for.
		return err
	}

	op := TraceDeliver
	if err != nil {
		op = TraceReject
	}
	m.sink.Trace(TraceEvent{
		Op:        op,
		Mailbox:   m.inner.ID(),
		Kind:      m.inner.Kind(),
		MsgType:   msg.Type,
		Timestamp: time.Now(),
	})

	return err
}

// Subscribe traces the subscription and forwards it.
func (m *tracedMailbox) Subscribe(agent Agent) error {
	err := m.inner.Subscribe(agent)
	if err == nil {
		m.sink.Trace(TraceEvent{
			Op:        TraceSubscribe,
			Mailbox:   m.inner.ID(),
			Kind:      m.inner.Kind(),
			Agent:     agent.ID(),
			Timestamp: time.Now(),
		})
	}
	return err
}

// Unsubscribe traces the removal and forwards it.
func (m *tracedMailbox) Unsubscribe(agent Agent) {
	m.inner.Unsubscribe(agent)
	m.sink.Trace(TraceEvent{
		Op:        TraceUnsubscribe,
		Mailbox:   m.inner.ID(),
		Kind:      m.inner.Kind(),
		Agent:     agent.ID(),
		Timestamp: time.Now(),
	})
}

// String returns the wrapped mailbox's representation.
func (m *tracedMailbox) String() string {
	return m.inner.String()
}
