package core

import (
	"time"
)

// MailboxID is a process-unique identifier for a mailbox or chain.
// Identifiers are strictly monotonic and never recycled, so external
// components may retain them for logging and comparison after the
// mailbox itself is gone.
type MailboxID uint64

// AgentID is a unique identifier for an agent.
type AgentID uint64

// MailboxKind describes the delivery capability of a mailbox.
type MailboxKind uint8

const (
	// KindBroadcast delivers each message to every subscribed agent
	KindBroadcast MailboxKind = iota

	// KindDirect delivers messages to a single owning agent
	KindDirect

	// KindNamed is an alias over another mailbox, reachable by name
	KindNamed

	// KindChain holds messages in a demand queue for explicit receive
	KindChain

	// KindCustom is built by an externally supplied creator
	KindCustom
)

// String returns the string representation of MailboxKind.
func (k MailboxKind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindDirect:
		return "direct"
	case KindNamed:
		return "named"
	case KindChain:
		return "chain"
	case KindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Message represents communication data exchanged between agents.
// The payload is an opaque, type-tagged blob; the registry never
// inspects it.
type Message struct {
	// Type tags the payload so handlers can dispatch on it
	Type string

	// Sender is the agent that produced the message, zero for
	// anonymous senders
	Sender AgentID

	// Data contains the actual message payload
	Data []byte

	// Timestamp when the message was created
	Timestamp time.Time
}

// NewMessage creates a message with the current timestamp.
func NewMessage(msgType string, sender AgentID, data []byte) *Message {
	return &Message{
		Type:      msgType,
		Sender:    sender,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// MemoryUsage selects how a limited chain allocates storage for
// pending demands.
type MemoryUsage uint8

const (
	// MemoryDynamic allocates storage for each demand individually
	MemoryDynamic MemoryUsage = iota

	// MemoryPreallocated reserves storage for the maximum demand
	// count once at construction
	MemoryPreallocated
)

// String returns the string representation of MemoryUsage.
func (m MemoryUsage) String() string {
	switch m {
	case MemoryDynamic:
		return "dynamic"
	case MemoryPreallocated:
		return "preallocated"
	default:
		return "unknown"
	}
}

// ChainCapacity is the policy governing how many undelivered demands
// a chain may hold and how their storage is allocated.
type ChainCapacity struct {
	unlimited bool
	maxSize   int
	memory    MemoryUsage
}

// UnlimitedCapacity returns a policy whose demand queue grows without
// bound.
func UnlimitedCapacity() ChainCapacity {
	return ChainCapacity{unlimited: true}
}

// LimitedDynamic returns a policy with at most maxSize pending
// demands, each allocated individually.
func LimitedDynamic(maxSize int) ChainCapacity {
	return ChainCapacity{maxSize: maxSize, memory: MemoryDynamic}
}

// LimitedPreallocated returns a policy with at most maxSize pending
// demands backed by storage reserved once at construction. It trades
// memory for avoidance of per-message allocation on latency-sensitive
// paths.
func LimitedPreallocated(maxSize int) ChainCapacity {
	return ChainCapacity{maxSize: maxSize, memory: MemoryPreallocated}
}

// Unlimited reports whether the policy places no bound on the queue.
func (c ChainCapacity) Unlimited() bool {
	return c.unlimited
}

// MaxSize returns the maximum demand count for limited policies.
func (c ChainCapacity) MaxSize() int {
	return c.maxSize
}

// Memory returns the storage allocation mode for limited policies.
func (c ChainCapacity) Memory() MemoryUsage {
	return c.memory
}

// validate rejects limited policies with a non-positive maximum.
func (c ChainCapacity) validate() error {
	if !c.unlimited && c.maxSize <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}

// RegistryStats contains observability counters for a Registry.
type RegistryStats struct {
	// NamedMailboxes is the current count of distinct named entries
	NamedMailboxes uint64
}
