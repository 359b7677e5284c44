package core

// Agent is an independently scheduled computational unit that consumes
// messages from its demand queue. The registry only uses agents as
// delivery sinks for direct mailboxes; scheduling is owned by the
// runtime layer.
type Agent interface {
	// ID returns the unique identifier of this agent.
	ID() AgentID

	// Enqueue places a message on the agent's demand queue.
	// When limited is false the queue accepts the message regardless
	// of capacity; this is the escape hatch for control traffic that
	// must never be rejected.
	Enqueue(msg *Message, limited bool) error
}

// Mailbox is an addressable target for sending messages. A mailbox is
// immutable in shape after construction: its kind and owner never
// change, and its traced/untraced variant is frozen at creation time.
type Mailbox interface {
	// ID returns the process-unique identity of this mailbox.
	ID() MailboxID

	// Kind returns the delivery capability of this mailbox.
	Kind() MailboxKind

	// Deliver sends a message to the mailbox's consumers.
	Deliver(msg *Message) error

	// Subscribe registers an agent as a consumer. Direct mailboxes
	// accept only their owner; chains accept no subscribers.
	Subscribe(agent Agent) error

	// Unsubscribe removes a previously subscribed agent.
	Unsubscribe(agent Agent)

	// String returns a human-readable representation for logging.
	String() string
}

// TracingSink receives trace events from traced mailbox variants.
type TracingSink interface {
	// Trace records a single event. Implementations must be safe for
	// concurrent use.
	Trace(ev TraceEvent)
}

// TracingGate is the process-wide switch consulted once, at mailbox
// construction time, to pick the traced or untraced variant. Toggling
// the gate never affects already-created mailboxes.
type TracingGate interface {
	// Enabled reports whether newly created mailboxes should trace.
	Enabled() bool

	// Sink returns the sink traced mailboxes write to.
	Sink() TracingSink
}

// MailboxCreationData is the context handed to a custom mailbox
// creator: a fresh identity, the owning registry and the tracing gate.
// The registry never inspects the shape of the mailbox the creator
// returns.
type MailboxCreationData struct {
	// ID is the freshly allocated identity for the new mailbox
	ID MailboxID

	// Registry is the registry performing the creation
	Registry *Registry

	// Tracing is the gate the creator should consult for its own
	// traced/untraced selection
	Tracing TracingGate
}

// CustomMailboxCreator builds mailbox kinds defined outside this
// package. It is the extension point for non-standard delivery
// disciplines.
type CustomMailboxCreator interface {
	// Create constructs the mailbox from the supplied creation data.
	Create(data MailboxCreationData) (Mailbox, error)
}

// CustomMailboxCreatorFunc adapts a function to the
// CustomMailboxCreator interface.
type CustomMailboxCreatorFunc func(data MailboxCreationData) (Mailbox, error)

// Create calls f(data).
func (f CustomMailboxCreatorFunc) Create(data MailboxCreationData) (Mailbox, error) {
	return f(data)
}
