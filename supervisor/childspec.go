package supervisor

import (
	"fmt"
	"time"

	"github.com/roasbeef/agner/actor"
)

// ChildID is a supervisor-chosen identifier for one of its children,
// distinct from the actor.ID minted at spawn time: it survives across
// restarts, where the actor.ID does not.
type ChildID string

// ChildType controls whether a child is restarted after it terminates,
// per spec.md §4.6's restart table.
type ChildType int

const (
	// Permanent children are always restarted, regardless of exit
	// reason.
	Permanent ChildType = iota

	// Transient children are restarted only on an abnormal
	// (propagating) exit; a planned Normal/Shutdown exit leaves them
	// stopped.
	Transient

	// Temporary children are never restarted; any exit removes them
	// from supervision permanently.
	Temporary
)

func (t ChildType) String() string {
	switch t {
	case Permanent:
		return "permanent"
	case Transient:
		return "transient"
	case Temporary:
		return "temporary"
	default:
		return "unknown"
	}
}

// ShutdownStep is one attempt in a ShutdownSequence: send Reason, then
// wait up to Timeout for the child to terminate before moving to the
// next step.
type ShutdownStep struct {
	Reason  actor.ExitReason
	Timeout time.Duration
}

// ShutdownSequence is an ordered list of escalating stop attempts, per
// spec.md §4.5's stop-child protocol.
type ShutdownSequence []ShutdownStep

// DefaultShutdownSequence returns the spec.md §6 default:
// [(Shutdown, 5s), (Kill, 5s)].
func DefaultShutdownSequence() ShutdownSequence {
	return ShutdownSequence{
		{Reason: actor.Shutdown(), Timeout: 5 * time.Second},
		{Reason: actor.Kill(), Timeout: 5 * time.Second},
	}
}

// ArgFactory produces a child's start argument. It returns ok=false when
// it has no further argument to give (only Unique factories can ever do
// this; Clone and Call0 are inexhaustible).
type ArgFactory[A any] func() (A, bool)

// CloneArg returns an ArgFactory that hands out the same value every
// time it is called, for a child restarted with identical arguments on
// every (re)start.
func CloneArg[A any](proto A) ArgFactory[A] {
	return func() (A, bool) {
		return proto, true
	}
}

// UniqueArg returns an ArgFactory that hands out value exactly once, then
// reports exhaustion. Use for a child whose argument cannot meaningfully
// be reused across a restart (e.g. a consumed one-shot handle).
func UniqueArg[A any](value A) ArgFactory[A] {
	used := false
	return func() (A, bool) {
		if used {
			var zero A
			return zero, false
		}
		used = true
		return value, true
	}
}

// Call0Arg returns an ArgFactory that calls f fresh on every (re)start,
// for a child whose argument must be rebuilt each time (e.g. a new
// buffer or a freshly dialed connection).
func Call0Arg[A any](f func() A) ArgFactory[A] {
	return func() (A, bool) {
		return f(), true
	}
}

// ChildSpec describes one supervised child: how to start it, what
// identifies it across restarts, and how it should be asked to stop.
// The concrete message/argument types are erased behind the start
// closure built by NewChildSpec, so heterogeneous children can live
// side by side in one supervisor's child list.
type ChildSpec struct {
	ID       ChildID
	Type     ChildType
	Shutdown ShutdownSequence

	// RequireInitAck, when true, makes the start-child protocol wait for
	// the child to call Context.InitAckOK before considering it started.
	RequireInitAck bool
	InitAckTimeout time.Duration

	// argsTypeName is surfaced via the admin API (actor.SetArgsType), to
	// show what a child was started with without exposing the value.
	argsTypeName string

	// spawnOpts is captured into start's closure.
	spawnOpts actor.SpawnOpts

	start func(sys *actor.System, linkTo actor.ID) (actor.ID, error)
}

// ChildSpecOption configures optional ChildSpec fields.
type ChildSpecOption func(*ChildSpec)

// WithShutdownSequence overrides DefaultShutdownSequence.
func WithShutdownSequence(seq ShutdownSequence) ChildSpecOption {
	return func(cs *ChildSpec) { cs.Shutdown = seq }
}

// WithInitAck enables the init-ack handshake with the given timeout (or
// DefaultInitAckTimeout if timeout is zero).
func WithInitAck(timeout time.Duration) ChildSpecOption {
	return func(cs *ChildSpec) {
		cs.RequireInitAck = true
		cs.InitAckTimeout = timeout
	}
}

// WithSpawnOpts overrides the actor.SpawnOpts used to start the child.
func WithSpawnOpts(opts actor.SpawnOpts) ChildSpecOption {
	return func(cs *ChildSpec) { cs.spawnOpts = opts }
}

// NewChildSpec builds a ChildSpec for a child with message type M,
// started with an argument of type A produced by argFactory and turned
// into a Behavior by behaviorFactory. Grounded on the teacher's
// ActorConfig[M, R] constructor shape, generalized from a single
// argument value to a factory so a restarted child can be given a fresh
// or identical argument depending on the caller's choice of ArgFactory.
func NewChildSpec[M any, A any](id ChildID, childType ChildType,
	argFactory ArgFactory[A], behaviorFactory func(arg A) actor.Behavior[M],
	opts ...ChildSpecOption) ChildSpec {

	cs := ChildSpec{
		ID:             id,
		Type:           childType,
		Shutdown:       DefaultShutdownSequence(),
		InitAckTimeout: DefaultInitAckTimeout,
		argsTypeName:   fmt.Sprintf("%T", *new(A)),
	}
	for _, opt := range opts {
		opt(&cs)
	}

	spawnOpts := cs.spawnOpts
	requireInitAck := cs.RequireInitAck
	cs.start = func(sys *actor.System, linkTo actor.ID) (actor.ID, error) {
		arg, ok := argFactory()
		if !ok {
			return actor.ID{}, ErrArgsExhausted
		}

		opts := spawnOpts
		// Link to the supervisor at spawn time, before the runner
		// goroutine starts, so a child that crashes immediately is
		// still observed rather than silently lost (spec.md §4.5
		// step 2, "spawn with a link to the supervisor").
		opts.LinkTo = append(append([]actor.ID(nil), opts.LinkTo...), linkTo)
		// Pre-install the init-ack channel too, so a fast child can't
		// call Context.InitAckOK before startChild's later
		// AttachInitAck call.
		opts.RequireInitAck = requireInitAck
		return actor.Spawn(sys, behaviorFactory(arg), opts)
	}

	return cs
}

// ChildSummary is the admin/WhichChildren-facing snapshot of one child.
type ChildSummary struct {
	ID      ChildID
	ActorID actor.ID
	Type    ChildType
	Running bool
}
