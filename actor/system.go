package actor

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoActor is returned by operations that target an ID with no live
// entry (spec.md §3 ExitNoActor / §7).
var ErrNoActor = errors.New("actor: no such actor")

// ErrSendFailed is returned when Send or TrySend could not deliver its
// message: the target's inbox was closed because it terminated, TrySend
// found the inbox full, or the message type did not match the actor's.
var ErrSendFailed = errors.New("actor: send failed")

// SystemConfig holds the two configuration options recognized by the
// system registry, per spec.md §6.
type SystemConfig struct {
	// MaxActors bounds the identity pool / entry table.
	MaxActors int

	// ActorTerminationTimeout bounds how long System.Shutdown waits for
	// graceful actor termination before giving up.
	ActorTerminationTimeout time.Duration
}

// DefaultConfig returns the spec.md §6 defaults: 1024 max actors, 30s
// termination timeout.
func DefaultConfig() SystemConfig {
	return SystemConfig{
		MaxActors:               1024,
		ActorTerminationTimeout: 30 * time.Second,
	}
}

// entrySlot is one element of the System's fixed-capacity registry array.
// Per-slot locking (spec.md §5) lets two unrelated actors be looked up in
// parallel.
type entrySlot struct {
	mu    sync.RWMutex
	entry *actorEntry
	term  *terminatedRecord
}

// System is the process-wide registry described in spec.md §4.4: it maps
// IDs to entries and provides spawn, send, exit, wait, and link.
type System struct {
	gen   uint64
	pool  *idPool
	slots []entrySlot
	cfg   SystemConfig

	exitHandler  ExitHandler
	receptionist *receptionist
}

// NewSystem creates a System using the given configuration, defaulting
// any zero field via DefaultConfig.
func NewSystem(cfg SystemConfig) *System {
	def := DefaultConfig()
	if cfg.MaxActors <= 0 {
		cfg.MaxActors = def.MaxActors
	}
	if cfg.ActorTerminationTimeout <= 0 {
		cfg.ActorTerminationTimeout = def.ActorTerminationTimeout
	}

	// The system generation stamps every ID this instance issues, so an
	// ID minted by a prior System (e.g. before a process restart) can
	// never alias one minted by this one. A random UUID's leading 8
	// bytes give a generation number that is for all practical purposes
	// unique without needing any shared state.
	genBytes := uuid.New()
	gen := binary.BigEndian.Uint64(genBytes[:8])

	return &System{
		gen:   gen,
		pool:  newIDPool(cfg.MaxActors, gen),
		slots: make([]entrySlot, cfg.MaxActors),
		cfg:   cfg,

		exitHandler:  NewLoggingExitHandler(),
		receptionist: newReceptionist(),
	}
}

// NewSystemWithDefaults creates a System using DefaultConfig().
func NewSystemWithDefaults() *System {
	return NewSystem(DefaultConfig())
}

// SetExitHandler installs the process-wide exit-handler strategy
// described in spec.md §7. The default is NewLoggingExitHandler.
func (sys *System) SetExitHandler(h ExitHandler) {
	sys.exitHandler = h
}

// Config returns the system's configuration, for the admin surface.
func (sys *System) Config() SystemConfig {
	return sys.cfg
}

// Spawn starts a new actor running behavior and returns its ID. Spawn is
// a package-level generic function (methods cannot carry their own type
// parameters), matching the teacher's RegisterWithSystem shape.
func Spawn[M any](sys *System, behavior Behavior[M], opts SpawnOpts) (ID, error) {
	opts = opts.withDefaults()

	lse, err := sys.pool.acquire()
	if err != nil {
		return ID{}, err
	}
	id := lse.id

	doneCtx, cancel := context.WithCancel(context.Background())

	entry := &actorEntry{
		id:  id,
		lse: lse,
		bag: newDataBag(),
	}

	msgPipe := newPipe[M](doneCtx, opts.MessageInboxCapacity)
	entry.msgSink = &typedSink[M]{p: msgPipe}
	entry.msgTypeName = reflect.TypeOf((*M)(nil)).Elem().String()
	entry.behaviorTypeName = fmt.Sprintf("%T", behavior)

	r := &runner[M]{
		id:             id,
		sys:            sys,
		msgPipe:        msgPipe,
		signalPipe:     newPipe[Signal](doneCtx, opts.SignalInboxCapacity),
		sysPipe:        newPipe[sysMsg](doneCtx, defaultSysInboxCapacity),
		entry:          entry,
		linkSet:        make(map[ID]struct{}),
		trapExit:       opts.TrapExit,
		cleanupTimeout: opts.CleanupTimeout,
	}
	entry.sysPipe = r.sysPipe

	slot := &sys.slots[id.Slot]
	slot.mu.Lock()
	slot.entry = entry
	slot.term = nil
	slot.mu.Unlock()

	// Establish any requested links before the runner goroutine starts,
	// so a peer (typically a supervisor) is guaranteed to observe this
	// actor's exit even if it crashes before a separately-issued Link
	// call could have run.
	for _, peer := range opts.LinkTo {
		r.linkSet[peer] = struct{}{}
		if !sys.deliverSysMsg(peer, sysMsg{kind: sysLink, peer: id}) {
			r.sysPipe.trySend(sysMsg{
				kind: sysExit, from: peer, reason: NoActor(),
			})
		}
	}
	r.publishLinks()

	// Install the init-ack channel before the runner goroutine starts,
	// so a behavior that calls Context.InitAckOK on its very first
	// scheduling quantum cannot race ahead of AttachInitAck and have
	// its ack silently dropped.
	if opts.RequireInitAck {
		bagSet[chan ID](entry.bag, initAckBagKey{}, make(chan ID, 1))
	}

	go func() {
		defer cancel()
		r.run(behavior)
	}()

	log.DebugS(context.Background(), "actor spawned",
		"actor_id", id.String(), "behaviour", entry.behaviorTypeName)

	return id, nil
}

// lookupLive returns the live entry for id, or false if id has no live
// entry at its slot (either never spawned, already terminated, or a
// stale reference to a slot that has since been reused).
func (sys *System) lookupLive(id ID) (*actorEntry, bool) {
	if int(id.Slot) >= len(sys.slots) {
		return nil, false
	}
	slot := &sys.slots[id.Slot]
	slot.mu.RLock()
	defer slot.mu.RUnlock()

	if slot.entry != nil && slot.entry.id == id {
		return slot.entry, true
	}
	return nil, false
}

// lookupTerminated returns the terminated record for id, if the slot
// still remembers it.
func (sys *System) lookupTerminated(id ID) (*terminatedRecord, bool) {
	if int(id.Slot) >= len(sys.slots) {
		return nil, false
	}
	slot := &sys.slots[id.Slot]
	slot.mu.RLock()
	defer slot.mu.RUnlock()

	if slot.term != nil && slot.term.id == id {
		return slot.term, true
	}
	return nil, false
}

// deliverSysMsg pushes a system message onto id's system-message inbox,
// blocking until accepted or the target is no longer live. Returns false
// if id has no live entry.
func (sys *System) deliverSysMsg(id ID, msg sysMsg) bool {
	entry, ok := sys.lookupLive(id)
	if !ok {
		return false
	}
	return entry.sysPipe.send(context.Background(), msg)
}

// markTerminated transitions id's slot from live to terminated, notifying
// every registered waiter with a clone of reason. Called once by the
// owning runner during its termination sequence, after linked peers are
// notified and before OnStop runs and the slot lease is released.
func (sys *System) markTerminated(id ID, reason ExitReason) {
	if int(id.Slot) >= len(sys.slots) {
		return
	}
	slot := &sys.slots[id.Slot]

	slot.mu.Lock()
	entry := slot.entry
	if entry == nil || entry.id != id {
		slot.mu.Unlock()
		return
	}
	slot.entry = nil
	slot.term = &terminatedRecord{
		id:               id,
		reason:           reason,
		finishAt:         time.Now(),
		behaviorTypeName: entry.behaviorTypeName,
		msgTypeName:      entry.msgTypeName,
	}
	slot.mu.Unlock()

	for _, w := range entry.takeWatchers() {
		w <- reason
		close(w)
	}

	sys.exitHandler.Handle(ExitInfo{
		ID:          id,
		Reason:      reason,
		Behaviour:   entry.behaviorTypeName,
		MessageType: entry.msgTypeName,
	})
}

// Send blocks until msg is accepted by id's message inbox or id
// terminates. ctx is not consulted: a Send waiting on a full inbox is not
// interrupted by its cancellation. A type mismatch between M and the actor's
// actual message type is treated as a silent no-op per spec.md §4.4 and
// reported as ErrSendFailed only because no delivery occurred, not
// because anything was detected as a type error.
func Send[M any](sys *System, ctx context.Context, id ID, msg M) error {
	entry, ok := sys.lookupLive(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoActor, id)
	}
	if entry.msgSink.send(msg) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSendFailed, id)
}

// TrySend is the non-blocking counterpart of Send.
func TrySend[M any](sys *System, id ID, msg M) error {
	entry, ok := sys.lookupLive(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoActor, id)
	}
	if entry.msgSink.trySend(msg) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSendFailed, id)
}

// Exit dispatches an Exit system message to id, per spec.md §4.4.
func (sys *System) Exit(id ID, reason ExitReason) error {
	if !sys.deliverSysMsg(id, sysMsg{kind: sysExit, from: id, reason: reason}) {
		return fmt.Errorf("%w: %s", ErrNoActor, id)
	}
	return nil
}

// Wait blocks until id terminates (or ctx is cancelled), returning a
// clone of its final exit reason. A Wait registered after id has already
// terminated is answered immediately, per spec.md §3/§8 invariant 10.
func (sys *System) Wait(ctx context.Context, id ID) (ExitReason, error) {
	if term, ok := sys.lookupTerminated(id); ok {
		return term.reason, nil
	}

	entry, ok := sys.lookupLive(id)
	if !ok {
		// Neither live nor terminated: never existed, or already
		// removed. Treat the same as NoActor.
		return ExitReason{}, fmt.Errorf("%w: %s", ErrNoActor, id)
	}

	ch := make(chan ExitReason, 1)
	entry.addWatcher(ch)

	// A race is possible: the actor may have terminated between the
	// lookupLive above and addWatcher. markTerminated always drains the
	// watcher list after installing the terminated record and releasing
	// the slot lock, so if we lost that race our channel is simply among those
	// notified; if we won it, re-check the terminated record directly to
	// avoid blocking forever.
	if term, ok := sys.lookupTerminated(id); ok {
		select {
		case reason := <-ch:
			return reason, nil
		default:
			return term.reason, nil
		}
	}

	select {
	case reason := <-ch:
		return reason, nil
	case <-ctx.Done():
		return ExitReason{}, ctx.Err()
	}
}

// Link delivers reciprocal Link system messages to a and b, per
// spec.md §4.4. Unlike Context.Link (issued by an actor linking itself to
// a peer), this establishes a link between two arbitrary actors from a
// third party, e.g. a supervisor linking a freshly spawned child to
// itself.
func (sys *System) Link(a, b ID) error {
	okA := sys.deliverSysMsg(a, sysMsg{kind: sysLink, peer: b})
	okB := sys.deliverSysMsg(b, sysMsg{kind: sysLink, peer: a})
	if !okA || !okB {
		return fmt.Errorf("%w: link(%s, %s)", ErrNoActor, a, b)
	}
	return nil
}

// Unlink is the symmetric counterpart of Link.
func (sys *System) Unlink(a, b ID) error {
	okA := sys.deliverSysMsg(a, sysMsg{kind: sysUnlink, peer: b})
	okB := sys.deliverSysMsg(b, sysMsg{kind: sysUnlink, peer: a})
	if !okA || !okB {
		return fmt.Errorf("%w: unlink(%s, %s)", ErrNoActor, a, b)
	}
	return nil
}

// TrapExit toggles id's trap-exit flag from outside the actor itself
// (used by supervisors that need to guarantee a child has trap-exit
// enabled before it is considered started).
func (sys *System) TrapExit(id ID, trap bool) error {
	ack := make(chan struct{})
	if !sys.deliverSysMsg(id, sysMsg{kind: sysTrapExit, trap: trap, ack: ack}) {
		return fmt.Errorf("%w: %s", ErrNoActor, id)
	}
	<-ack
	return nil
}

// Shutdown exits every live actor and waits for termination, bounded by
// the system's ActorTerminationTimeout. It is the System-wide analogue of
// a supervisor's stop-child shutdown sequence.
func (sys *System) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sys.cfg.ActorTerminationTimeout)
	defer cancel()

	var ids []ID
	for i := range sys.slots {
		sys.slots[i].mu.RLock()
		if sys.slots[i].entry != nil {
			ids = append(ids, sys.slots[i].entry.id)
		}
		sys.slots[i].mu.RUnlock()
	}

	for _, id := range ids {
		_ = sys.Exit(id, Shutdown())
	}

	var firstErr error
	for _, id := range ids {
		if _, err := sys.Wait(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ActorInfo is the admin-facing snapshot of a live actor, matching the
// JSON shape of spec.md §6's GET /actors/{id}.
type ActorInfo struct {
	ID          ID     `json:"id"`
	Behaviour   string `json:"behaviour"`
	Links       []ID   `json:"links"`
	MessageType string `json:"message_type"`
	ArgsType    string `json:"args_type,omitempty"`
}

// ListActors returns a snapshot of every live actor's ID, for
// spec.md §6's GET /actors.
func (sys *System) ListActors() []ID {
	var ids []ID
	for i := range sys.slots {
		sys.slots[i].mu.RLock()
		if sys.slots[i].entry != nil {
			ids = append(ids, sys.slots[i].entry.id)
		}
		sys.slots[i].mu.RUnlock()
	}
	return ids
}

// GetActor returns the admin record for id, or false if it is not live.
// Links are a best-effort, lock-order-relaxed snapshot: the runner is the
// sole mutator of its own link set, so this reads a racy copy suitable
// only for display purposes, never for correctness-sensitive logic.
func (sys *System) GetActor(id ID) (ActorInfo, bool) {
	entry, ok := sys.lookupLive(id)
	if !ok {
		return ActorInfo{}, false
	}

	argsType, _ := bagGet[string](entry.bag, argsTypeBagKey{})

	return ActorInfo{
		ID:          id,
		Behaviour:   entry.behaviorTypeName,
		Links:       entry.snapshotLinks(),
		MessageType: entry.msgTypeName,
		ArgsType:    argsType,
	}, true
}

// argsTypeBagKey tags the optional args-type string a supervisor may
// attach to a child entry for admin display.
type argsTypeBagKey struct{}

// SetArgsType records the argument type name shown by GetActor, typically
// called by a supervisor immediately after a successful start-child
// protocol.
func SetArgsType(sys *System, id ID, typeName string) {
	if entry, ok := sys.lookupLive(id); ok {
		bagSet(entry.bag, argsTypeBagKey{}, typeName)
	}
}
