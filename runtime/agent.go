// Package runtime hosts agents on top of the core mailbox registry.
package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/soactor/soactor/core"
)

// MessageHandler processes incoming messages for an agent.
type MessageHandler interface {
	// HandleMessage processes a single message.
	// It should return an error if processing fails.
	HandleMessage(ctx context.Context, msg *core.Message) error
}

// MessageHandlerFunc adapts a function to the MessageHandler
// interface.
type MessageHandlerFunc func(ctx context.Context, msg *core.Message) error

// HandleMessage calls f(ctx, msg).
func (f MessageHandlerFunc) HandleMessage(ctx context.Context, msg *core.Message) error {
	return f(ctx, msg)
}

// AgentState represents the current state of an agent.
type AgentState int32

const (
	// AgentStateIdle means the agent is waiting for messages
	AgentStateIdle AgentState = iota

	// AgentStateRunning means the agent is processing a message
	AgentStateRunning

	// AgentStateStopping means the agent is shutting down
	AgentStateStopping

	// AgentStateStopped means the agent has been stopped
	AgentStateStopped
)

// String returns the string representation of AgentState.
func (s AgentState) String() string {
	switch s {
	case AgentStateIdle:
		return "idle"
	case AgentStateRunning:
		return "running"
	case AgentStateStopping:
		return "stopping"
	case AgentStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// AgentOptions contains configuration options for spawning an agent.
type AgentOptions struct {
	// Name is a human-readable name for the agent
	Name string

	// QueueSize bounds the agent's demand queue for limited
	// deliveries; limitless deliveries bypass it
	QueueSize int

	// ProcessTimeout bounds handling of a single message
	ProcessTimeout time.Duration
}

// DefaultAgentOptions returns sensible default options.
func DefaultAgentOptions() AgentOptions {
	return AgentOptions{
		QueueSize:      1000,
		ProcessTimeout: 30 * time.Second,
	}
}

// AgentStats contains runtime statistics for an agent.
type AgentStats struct {
	// ID of the agent
	ID core.AgentID

	// Name of the agent
	Name string

	// Current state
	State AgentState

	// Total messages processed
	MessagesProcessed uint64

	// Messages currently pending in the demand queue
	Pending int
}

// Agent is an independently scheduled computational unit. Its demand
// queue is an unlimited core chain; the configured queue size is
// enforced only for limited deliveries, so control traffic sent
// through a limitless direct mailbox is never rejected.
type Agent struct {
	id      core.AgentID
	name    string
	handler MessageHandler
	opts    AgentOptions

	// demand queue backing the agent's mailbox
	chain *core.Chain

	state     atomic.Int32
	processed atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

// newAgent creates an agent; the environment starts it.
func newAgent(id core.AgentID, handler MessageHandler, chain *core.Chain, opts AgentOptions, logger *zap.Logger) *Agent {
	ctx, cancel := context.WithCancel(context.Background())

	a := &Agent{
		id:      id,
		name:    opts.Name,
		handler: handler,
		opts:    opts,
		chain:   chain,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
	a.state.Store(int32(AgentStateIdle))
	return a
}

// ID returns the unique identifier of this agent.
func (a *Agent) ID() core.AgentID {
	return a.id
}

// Name returns the human-readable name of this agent.
func (a *Agent) Name() string {
	return a.name
}

// Enqueue places a message on the agent's demand queue. Limited
// deliveries are refused once the configured queue size is reached;
// limitless deliveries always succeed while the agent runs.
func (a *Agent) Enqueue(msg *core.Message, limited bool) error {
	state := AgentState(a.state.Load())
	if state == AgentStateStopping || state == AgentStateStopped {
		return core.ErrAgentStopped
	}

	// The length check and the push are not atomic, so concurrent
	// limited enqueues near the bound can overshoot it by a message or
	// two. QueueSize is a soft limit.
	if limited && a.chain.Len() >= a.opts.QueueSize {
		return core.ErrAgentQueueFull
	}

	if err := a.chain.Deliver(msg); err != nil {
		return fmt.Errorf("agent %d: enqueue: %w", a.id, err)
	}
	return nil
}

// Start begins the agent's message processing loop.
func (a *Agent) Start() error {
	if AgentState(a.state.Load()) != AgentStateIdle {
		return fmt.Errorf("agent %d is already started (state: %s)",
			a.id, AgentState(a.state.Load()))
	}

	a.wg.Add(1)
	go a.messageLoop()

	return nil
}

// Stop gracefully shuts down the agent. Pending messages are
// discarded; the in-flight handler finishes first.
func (a *Agent) Stop() error {
	if !a.state.CompareAndSwap(int32(AgentStateIdle), int32(AgentStateStopping)) &&
		!a.state.CompareAndSwap(int32(AgentStateRunning), int32(AgentStateStopping)) {
		return fmt.Errorf("agent %d cannot be stopped from state %s",
			a.id, AgentState(a.state.Load()))
	}

	a.cancel()
	a.chain.Close()
	a.wg.Wait()

	a.state.Store(int32(AgentStateStopped))
	a.logger.Debug("agent stopped", zap.Uint64("id", uint64(a.id)))

	return nil
}

// Stats returns current runtime statistics for this agent.
func (a *Agent) Stats() AgentStats {
	return AgentStats{
		ID:                a.id,
		Name:              a.name,
		State:             AgentState(a.state.Load()),
		MessagesProcessed: a.processed.Load(),
		Pending:           a.chain.Len(),
	}
}

// messageLoop is the main processing loop for the agent.
func (a *Agent) messageLoop() {
	defer a.wg.Done()

	for {
		msg, err := a.chain.Receive(a.ctx)
		if err != nil {
			// Closed chain or cancelled context ends the loop.
			return
		}
		a.processMessage(msg)
	}
}

// processMessage handles a single message.
func (a *Agent) processMessage(msg *core.Message) {
	a.state.CompareAndSwap(int32(AgentStateIdle), int32(AgentStateRunning))
	defer a.state.CompareAndSwap(int32(AgentStateRunning), int32(AgentStateIdle))

	a.processed.Inc()

	ctx, cancel := context.WithTimeout(a.ctx, a.opts.ProcessTimeout)
	defer cancel()

	if err := a.handler.HandleMessage(ctx, msg); err != nil {
		a.logger.Warn("message handler failed",
			zap.Uint64("agent", uint64(a.id)),
			zap.String("msg_type", msg.Type),
			zap.Error(err))
	}
}
