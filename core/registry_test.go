package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// stubAgent is a minimal agent fake recording delivered messages.
type stubAgent struct {
	id AgentID

	mu       sync.Mutex
	capacity int // 0 means unbounded
	got      []*Message
}

func (a *stubAgent) ID() AgentID {
	return a.id
}

func (a *stubAgent) Enqueue(msg *Message, limited bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if limited && a.capacity > 0 && len(a.got) >= a.capacity {
		return ErrAgentQueueFull
	}
	a.got = append(a.got, msg)
	return nil
}

func (a *stubAgent) received() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.got)
}

func TestNewMailboxIdentities(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	first := registry.NewMailbox()
	second := registry.NewMailbox()

	if first.ID() == second.ID() {
		t.Fatalf("expected distinct identities, both got %d", first.ID())
	}
	if second.ID() <= first.ID() {
		t.Errorf("expected strictly increasing identities, got %d then %d",
			first.ID(), second.ID())
	}
	if first.Kind() != KindBroadcast {
		t.Errorf("expected broadcast kind, got %s", first.Kind())
	}
}

func TestIdentitiesUniqueAcrossGoroutines(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	results := make([][]MailboxID, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]MailboxID, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, registry.NewMailbox().ID())
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	seen := make(map[MailboxID]bool)
	for w, ids := range results {
		prev := MailboxID(0)
		for _, id := range ids {
			if seen[id] {
				t.Fatalf("identity %d allocated twice", id)
			}
			seen[id] = true
			if id <= prev {
				t.Fatalf("worker %d: identities not increasing: %d after %d",
					w, id, prev)
			}
			prev = id
		}
	}
}

func TestNamedMailboxAliasing(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	first, err := registry.NewNamedMailbox("ns", "shared")
	if err != nil {
		t.Fatalf("failed to create named mailbox: %v", err)
	}

	second, err := registry.NewNamedMailbox("ns", "shared")
	if err != nil {
		t.Fatalf("failed to attach to named mailbox: %v", err)
	}

	if first.ID() != second.ID() {
		t.Errorf("expected aliases of the same mailbox, got ids %d and %d",
			first.ID(), second.ID())
	}

	stats := registry.Stats()
	if stats.NamedMailboxes != 1 {
		t.Errorf("expected 1 named entry, got %d", stats.NamedMailboxes)
	}

	// Releasing one of two references must keep the name resolvable.
	if err := first.Close(); err != nil {
		t.Fatalf("failed to close alias: %v", err)
	}
	if got := registry.Stats().NamedMailboxes; got != 1 {
		t.Errorf("expected entry to survive first release, count = %d", got)
	}

	third, err := registry.NewNamedMailbox("ns", "shared")
	if err != nil {
		t.Fatalf("failed to re-attach: %v", err)
	}
	if third.ID() != second.ID() {
		t.Errorf("expected same underlying mailbox, got ids %d and %d",
			third.ID(), second.ID())
	}
}

func TestNamedMailboxReleaseRemovesEntry(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	first, err := registry.NewNamedMailbox("ns", "box")
	if err != nil {
		t.Fatalf("failed to create named mailbox: %v", err)
	}
	oldID := first.ID()

	second, err := registry.NewNamedMailbox("ns", "box")
	if err != nil {
		t.Fatalf("failed to attach: %v", err)
	}

	first.Close()
	second.Close()

	if got := registry.Stats().NamedMailboxes; got != 0 {
		t.Fatalf("expected empty dictionary after matched releases, count = %d", got)
	}

	// Re-creation must allocate a new underlying identity, never the
	// old one.
	recreated, err := registry.NewNamedMailbox("ns", "box")
	if err != nil {
		t.Fatalf("failed to recreate named mailbox: %v", err)
	}
	if recreated.ID() == oldID {
		t.Errorf("recreated mailbox reused identity %d", oldID)
	}
}

func TestNamedMailboxClosedAliasRefuses(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	first, _ := registry.NewNamedMailbox("ns", "box")
	second, _ := registry.NewNamedMailbox("ns", "box")
	first.Close()

	// The closed alias refuses while its sibling keeps working.
	if err := first.Deliver(NewMessage("x", 0, nil)); !errors.Is(err, ErrMailboxClosed) {
		t.Errorf("expected ErrMailboxClosed, got %v", err)
	}
	if err := first.Subscribe(&stubAgent{id: 1}); !errors.Is(err, ErrMailboxClosed) {
		t.Errorf("expected ErrMailboxClosed on subscribe, got %v", err)
	}
	if err := second.Deliver(NewMessage("x", 0, nil)); err != nil {
		t.Errorf("sibling alias delivery failed: %v", err)
	}
	second.Close()
}

func TestNamedMailboxCloseIdempotent(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	first, _ := registry.NewNamedMailbox("ns", "box")
	second, _ := registry.NewNamedMailbox("ns", "box")

	// Double close of one alias must release only one reference.
	first.Close()
	first.Close()

	if got := registry.Stats().NamedMailboxes; got != 1 {
		t.Fatalf("double close released more than one reference, count = %d", got)
	}

	second.Close()
	if got := registry.Stats().NamedMailboxes; got != 0 {
		t.Errorf("expected empty dictionary, count = %d", got)
	}
}

func TestReleaseNamedMailboxAbsentIsNoop(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	// Must not panic or create state.
	registry.ReleaseNamedMailbox("ns", "never-created")

	if got := registry.Stats().NamedMailboxes; got != 0 {
		t.Errorf("release of absent name created state, count = %d", got)
	}
}

func TestNewNamedMailboxEmptyNames(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	if _, err := registry.NewNamedMailbox("", "x"); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty namespace: expected ErrEmptyName, got %v", err)
	}
	if _, err := registry.NewNamedMailbox("ns", ""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name: expected ErrEmptyName, got %v", err)
	}

	if got := registry.Stats().NamedMailboxes; got != 0 {
		t.Errorf("failed creations changed the dictionary, count = %d", got)
	}
}

func TestConcurrentNamedCreateRelease(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	const workers = 8
	const rounds = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			aliases := make([]*NamedMailbox, 0, rounds)
			for i := 0; i < rounds; i++ {
				mb, err := registry.NewNamedMailbox("g", "shared")
				if err != nil {
					t.Errorf("create failed: %v", err)
					return
				}
				aliases = append(aliases, mb)
			}
			for _, mb := range aliases {
				mb.Close()
			}
		}()
	}
	wg.Wait()

	if got := registry.Stats().NamedMailboxes; got != 0 {
		t.Errorf("expected empty dictionary after concurrent phase, count = %d", got)
	}
}

func TestConcurrentNamedAliasSameIdentity(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	const workers = 8

	var wg sync.WaitGroup
	ids := make([]MailboxID, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			mb, err := registry.NewNamedMailbox("g", "one")
			if err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			ids[w] = mb.ID()
		}(w)
	}
	wg.Wait()

	// Exactly one goroutine became the first creator; everyone must
	// observe the same underlying identity.
	for w := 1; w < workers; w++ {
		if ids[w] != ids[0] {
			t.Fatalf("worker %d got identity %d, worker 0 got %d", w, ids[w], ids[0])
		}
	}
}

func TestNewDirectMailbox(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())
	owner := &stubAgent{id: 7, capacity: 1}

	mb, err := registry.NewDirectMailbox(owner, true)
	if err != nil {
		t.Fatalf("failed to create direct mailbox: %v", err)
	}
	if mb.Kind() != KindDirect {
		t.Errorf("expected direct kind, got %s", mb.Kind())
	}

	if err := mb.Deliver(NewMessage("ping", 0, nil)); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}

	// Capacity 1 is exhausted, the limited mailbox must refuse.
	err = mb.Deliver(NewMessage("ping", 0, nil))
	if !errors.Is(err, ErrAgentQueueFull) {
		t.Errorf("expected ErrAgentQueueFull, got %v", err)
	}

	if owner.received() != 1 {
		t.Errorf("expected 1 delivered message, got %d", owner.received())
	}
}

func TestNewDirectMailboxLimitless(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())
	owner := &stubAgent{id: 7, capacity: 1}

	mb, err := registry.NewDirectMailbox(owner, false)
	if err != nil {
		t.Fatalf("failed to create direct mailbox: %v", err)
	}

	// The limitless flavor bypasses the capacity check entirely.
	for i := 0; i < 5; i++ {
		if err := mb.Deliver(NewMessage("signal", 0, nil)); err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}
	if owner.received() != 5 {
		t.Errorf("expected 5 delivered messages, got %d", owner.received())
	}
}

func TestNewDirectMailboxNilOwner(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	if _, err := registry.NewDirectMailbox(nil, true); !errors.Is(err, ErrNilOwner) {
		t.Errorf("expected ErrNilOwner, got %v", err)
	}
}

func TestDirectMailboxSubscribeOwnerOnly(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())
	owner := &stubAgent{id: 1}
	other := &stubAgent{id: 2}

	mb, err := registry.NewDirectMailbox(owner, true)
	if err != nil {
		t.Fatalf("failed to create direct mailbox: %v", err)
	}

	if err := mb.Subscribe(owner); err != nil {
		t.Errorf("owner subscription failed: %v", err)
	}
	if err := mb.Subscribe(other); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestBroadcastDelivery(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())
	mb := registry.NewMailbox()

	first := &stubAgent{id: 1}
	second := &stubAgent{id: 2}

	if err := mb.Subscribe(first); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if err := mb.Subscribe(second); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := mb.Deliver(NewMessage("hello", 0, []byte("hi"))); err != nil {
		t.Fatalf("delivery failed: %v", err)
	}

	if first.received() != 1 || second.received() != 1 {
		t.Errorf("expected both subscribers to receive, got %d and %d",
			first.received(), second.received())
	}

	mb.Unsubscribe(first)
	if err := mb.Deliver(NewMessage("hello", 0, nil)); err != nil {
		t.Fatalf("delivery failed: %v", err)
	}
	if first.received() != 1 {
		t.Errorf("unsubscribed agent still received messages")
	}
	if second.received() != 2 {
		t.Errorf("expected 2 messages for remaining subscriber, got %d", second.received())
	}
}

func TestBroadcastPartialFailure(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())
	mb := registry.NewMailbox()

	full := &stubAgent{id: 1, capacity: 0}
	full.capacity = 1
	full.got = append(full.got, NewMessage("pad", 0, nil))
	healthy := &stubAgent{id: 2}

	mb.Subscribe(full)
	mb.Subscribe(healthy)

	err := mb.Deliver(NewMessage("x", 0, nil))
	if err == nil {
		t.Fatal("expected aggregated error for full subscriber")
	}
	if !errors.Is(err, ErrAgentQueueFull) {
		t.Errorf("expected ErrAgentQueueFull in aggregate, got %v", err)
	}

	// The healthy subscriber must still have received the message.
	if healthy.received() != 1 {
		t.Errorf("expected delivery to healthy subscriber, got %d", healthy.received())
	}
}

func TestNewCustomMailbox(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	var seen MailboxCreationData
	creator := CustomMailboxCreatorFunc(func(data MailboxCreationData) (Mailbox, error) {
		seen = data
		return newLocalMailbox(data.ID), nil
	})

	mb, err := registry.NewCustomMailbox(creator)
	if err != nil {
		t.Fatalf("failed to create custom mailbox: %v", err)
	}

	if mb.ID() != seen.ID {
		t.Errorf("expected mailbox to carry allocated id %d, got %d", seen.ID, mb.ID())
	}
	if seen.Registry != registry {
		t.Error("creator did not receive the owning registry")
	}
	if seen.Tracing == nil {
		t.Error("creator did not receive the tracing gate")
	}
}

func TestNewCustomMailboxErrors(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	if _, err := registry.NewCustomMailbox(nil); !errors.Is(err, ErrNilCreator) {
		t.Errorf("expected ErrNilCreator, got %v", err)
	}

	boom := fmt.Errorf("creator exploded")
	_, err := registry.NewCustomMailbox(
		CustomMailboxCreatorFunc(func(MailboxCreationData) (Mailbox, error) {
			return nil, boom
		}))
	if !errors.Is(err, boom) {
		t.Errorf("expected creator error to propagate unchanged, got %v", err)
	}

	_, err = registry.NewCustomMailbox(
		CustomMailboxCreatorFunc(func(MailboxCreationData) (Mailbox, error) {
			return nil, nil
		}))
	if !errors.Is(err, ErrNilCustomResult) {
		t.Errorf("expected ErrNilCustomResult, got %v", err)
	}
}

func TestNamedMailboxFactoryFailureLeavesDictionaryUnchanged(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())
	dict := registry.names

	boom := fmt.Errorf("factory failed")
	_, err := dict.createOrAttach(namedKey{"ns", "x"}, func() (Mailbox, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}

	if got := dict.size(); got != 0 {
		t.Errorf("failed factory left a partial entry, count = %d", got)
	}
}

func TestRegistryOnCreateHook(t *testing.T) {
	counts := make(map[MailboxKind]int)
	opts := DefaultRegistryOptions()
	opts.OnCreate = func(kind MailboxKind) {
		counts[kind]++
	}
	registry := NewRegistry(opts)

	registry.NewMailbox()
	registry.NewDirectMailbox(&stubAgent{id: 1}, true)
	registry.NewChain(UnlimitedCapacity())
	named, _ := registry.NewNamedMailbox("ns", "n")
	named.Close()

	if counts[KindBroadcast] != 2 {
		// The named mailbox's factory creates the underlying
		// broadcast mailbox, so broadcast is counted twice.
		t.Errorf("expected 2 broadcast creations, got %d", counts[KindBroadcast])
	}
	if counts[KindDirect] != 1 || counts[KindChain] != 1 || counts[KindNamed] != 1 {
		t.Errorf("unexpected creation counts: %v", counts)
	}
}

func TestAllocateID(t *testing.T) {
	registry := NewRegistry(DefaultRegistryOptions())

	a := registry.AllocateID()
	b := registry.AllocateID()
	if b <= a {
		t.Errorf("expected increasing ids, got %d then %d", a, b)
	}

	mb := registry.NewMailbox()
	if mb.ID() <= b {
		t.Errorf("mailbox id %d not above previously allocated %d", mb.ID(), b)
	}
}
