package core

import (
	"fmt"

	"go.uber.org/zap"
)

// RegistryOptions contains configuration options for creating a
// Registry.
type RegistryOptions struct {
	// Tracing is the gate consulted at every mailbox creation. When
	// nil, a permanently disabled gate is used.
	Tracing TracingGate

	// Logger receives registry lifecycle events. When nil, logging is
	// disabled.
	Logger *zap.Logger

	// OnCreate, when non-nil, is invoked after every successful
	// mailbox or chain creation. Used by the monitor package to count
	// creations by kind.
	OnCreate func(kind MailboxKind)
}

// DefaultRegistryOptions returns options with tracing disabled and no
// logging.
func DefaultRegistryOptions() RegistryOptions {
	return RegistryOptions{}
}

// Registry is the single entry point used by the rest of the runtime
// to obtain anonymous, named, owner-bound and custom mailboxes and
// chains, to release named mailboxes and to report statistics.
//
// The named dictionary is the only mutable shared structure; identity
// allocation is lock-free and the tracing gate is read-only from the
// registry's perspective.
type Registry struct {
	ids     *IDSource
	tracing TracingGate
	names   *namedDictionary

	logger   *zap.Logger
	onCreate func(kind MailboxKind)
}

// NewRegistry creates a registry with the given options.
func NewRegistry(opts RegistryOptions) *Registry {
	tracing := opts.Tracing
	if tracing == nil {
		tracing = NewGate(nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		ids:      NewIDSource(),
		tracing:  tracing,
		names:    newNamedDictionary(),
		logger:   logger,
		onCreate: opts.OnCreate,
	}
}

// Tracing returns the gate the registry consults at creation time.
func (r *Registry) Tracing() TracingGate {
	return r.tracing
}

// NewMailbox creates an anonymous broadcast mailbox, selecting the
// traced or untraced variant per the tracing gate's current value.
func (r *Registry) NewMailbox() Mailbox {
	id := r.ids.Next()
	mb := selectVariant(r.tracing, newLocalMailbox(id))

	r.logger.Debug("mailbox created",
		zap.Uint64("id", uint64(id)),
		zap.String("kind", KindBroadcast.String()))
	r.created(KindBroadcast)

	return mb
}

// NewNamedMailbox returns an alias for the mailbox registered under
// (namespace, name), creating an anonymous broadcast mailbox on first
// use. Repeated calls with the same pair attach to the same underlying
// mailbox; each returned alias holds one reference that its Close
// releases.
func (r *Registry) NewNamedMailbox(namespace, name string) (*NamedMailbox, error) {
	if namespace == "" || name == "" {
		return nil, ErrEmptyName
	}

	key := namedKey{namespace: namespace, name: name}
	alias, err := r.names.createOrAttach(key, func() (Mailbox, error) {
		return r.NewMailbox(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("create named mailbox %s: %w", key, err)
	}

	r.logger.Debug("named mailbox attached",
		zap.Uint64("id", uint64(alias.ID())),
		zap.String("namespace", namespace),
		zap.String("name", name))
	r.created(KindNamed)

	return alias, nil
}

// ReleaseNamedMailbox decrements the reference count of the entry
// registered under (namespace, name) and removes the entry at zero.
// Releasing an absent name is a silent no-op; the call never fails.
func (r *Registry) ReleaseNamedMailbox(namespace, name string) {
	r.names.release(namedKey{namespace: namespace, name: name})
}

// NewDirectMailbox creates a point-to-point mailbox whose sole
// permitted consumer is owner. When limited is true deliveries respect
// the owner's demand queue capacity; otherwise the mailbox accepts
// unbounded backlog for traffic that must never be rejected.
func (r *Registry) NewDirectMailbox(owner Agent, limited bool) (Mailbox, error) {
	if owner == nil {
		return nil, ErrNilOwner
	}

	id := r.ids.Next()
	mb := selectVariant(r.tracing, newDirectMailbox(id, owner, limited))

	r.logger.Debug("mailbox created",
		zap.Uint64("id", uint64(id)),
		zap.String("kind", KindDirect.String()),
		zap.Uint64("owner", uint64(owner.ID())),
		zap.Bool("limited", limited))
	r.created(KindDirect)

	return mb, nil
}

// NewCustomMailbox allocates a fresh identity and delegates
// construction to creator. Creator failures propagate unchanged.
func (r *Registry) NewCustomMailbox(creator CustomMailboxCreator) (Mailbox, error) {
	if creator == nil {
		return nil, ErrNilCreator
	}

	id := r.ids.Next()
	mb, err := creator.Create(MailboxCreationData{
		ID:       id,
		Registry: r,
		Tracing:  r.tracing,
	})
	if err != nil {
		return nil, err
	}
	if mb == nil {
		return nil, ErrNilCustomResult
	}

	r.logger.Debug("mailbox created",
		zap.Uint64("id", uint64(id)),
		zap.String("kind", KindCustom.String()))
	r.created(KindCustom)

	return mb, nil
}

// NewChain creates a chain with the queue discipline matching
// capacity. The traced sibling is selected once, at construction.
func (r *Registry) NewChain(capacity ChainCapacity) (*Chain, error) {
	if err := capacity.validate(); err != nil {
		return nil, err
	}

	id := r.ids.Next()

	var sink TracingSink
	if r.tracing.Enabled() {
		sink = r.tracing.Sink()
	}
	chain := newChain(id, capacity, sink)

	r.logger.Debug("chain created",
		zap.Uint64("id", uint64(id)),
		zap.Stringer("chain", chain))
	r.created(KindChain)

	return chain, nil
}

// AllocateID hands out a fresh mailbox identity without creating a
// mailbox. External components building their own endpoint kinds use
// it to stay inside the process-wide identity space.
func (r *Registry) AllocateID() MailboxID {
	return r.ids.Next()
}

// Stats returns the current registry statistics, consistent with
// respect to dictionary mutation.
func (r *Registry) Stats() RegistryStats {
	return RegistryStats{
		NamedMailboxes: r.names.size(),
	}
}

// created reports a successful creation to the configured hook.
func (r *Registry) created(kind MailboxKind) {
	if r.onCreate != nil {
		r.onCreate(kind)
	}
}
