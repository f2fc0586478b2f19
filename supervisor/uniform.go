package supervisor

import (
	"context"
	"time"

	"github.com/roasbeef/agner/actor"
)

// uniformCmdKind enumerates a uniform supervisor's message kinds,
// per spec.md §4.7.
type uniformCmdKind int

const (
	uCmdStart uniformCmdKind = iota
	uCmdStop

	// Internal-only, folded back from the spawning/stopping goroutines.
	uCmdChildStarted
	uCmdChildStopped
)

// UniformCommand is a uniform supervisor's message type: Start and Stop,
// grounded on the teacher's actorutil.Pool start/stop pair, generalized
// to the richer start-child/stop-child protocols of spec.md §4.5.
type UniformCommand[A any] struct {
	kind uniformCmdKind

	args       A
	startReply chan<- StartChildResult

	target    actor.ID
	stopReply chan<- error

	asyncActorID actor.ID
	asyncErr     error
}

// StartUniformChild requests a new child be spawned with args. reply may
// be nil if the caller does not need the outcome.
func StartUniformChild[A any](args A, reply chan<- StartChildResult) UniformCommand[A] {
	return UniformCommand[A]{kind: uCmdStart, args: args, startReply: reply}
}

// StopUniformChild requests that the child identified by target (its
// actor.ID, since a uniform supervisor hands out no separate ChildID) be
// stopped via its shutdown sequence. reply may be nil.
func StopUniformChild[A any](target actor.ID, reply chan<- error) UniformCommand[A] {
	return UniformCommand[A]{kind: uCmdStop, target: target, stopReply: reply}
}

// UniformOption configures a uniform supervisor.
type UniformOption func(*uniformOpts)

type uniformOpts struct {
	shutdown       ShutdownSequence
	requireInitAck bool
	initAckTimeout time.Duration
	spawnOpts      actor.SpawnOpts
}

// WithUniformShutdownSequence overrides DefaultShutdownSequence for every
// child this supervisor stops.
func WithUniformShutdownSequence(seq ShutdownSequence) UniformOption {
	return func(o *uniformOpts) { o.shutdown = seq }
}

// WithUniformInitAck enables the init-ack handshake for every started
// child.
func WithUniformInitAck(timeout time.Duration) UniformOption {
	return func(o *uniformOpts) {
		o.requireInitAck = true
		o.initAckTimeout = timeout
	}
}

// WithUniformSpawnOpts overrides the actor.SpawnOpts used for every
// started child.
func WithUniformSpawnOpts(opts actor.SpawnOpts) UniformOption {
	return func(o *uniformOpts) { o.spawnOpts = opts }
}

// uniformBehavior is a dynamic, homogeneous pool of children of a single
// behavior/argument type, started and stopped directly by callers rather
// than by a restart decider: per spec.md §4.7, a uniform supervisor
// never restarts a crashed child on its own, it only tracks which of its
// children are still alive.
type uniformBehavior[M any, A any] struct {
	behaviorFactory func(A) actor.Behavior[M]
	shutdown        ShutdownSequence
	requireInitAck  bool
	initAckTimeout  time.Duration
	spawnOpts       actor.SpawnOpts

	children map[actor.ID]struct{}
}

// NewUniformSupervisor creates a uniform supervisor whose children are
// all produced by behaviorFactory.
func NewUniformSupervisor[M any, A any](behaviorFactory func(A) actor.Behavior[M],
	opts ...UniformOption) actor.Behavior[UniformCommand[A]] {

	o := uniformOpts{
		shutdown:       DefaultShutdownSequence(),
		initAckTimeout: DefaultInitAckTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &uniformBehavior[M, A]{
		behaviorFactory: behaviorFactory,
		shutdown:        o.shutdown,
		requireInitAck:  o.requireInitAck,
		initAckTimeout:  o.initAckTimeout,
		spawnOpts:       o.spawnOpts,
		children:        make(map[actor.ID]struct{}),
	}
}

func (b *uniformBehavior[M, A]) Receive(ctx *actor.Context[UniformCommand[A]]) actor.ExitReason {
	ctx.TrapExit(true)

	for {
		ev, ok := ctx.Next(context.Background())
		if !ok {
			return ctx.PendingReason()
		}

		if ev.IsSignal {
			sig := ev.Signal
			if sig.From == ctx.Self() {
				b.shutdownAll(ctx)
				return sig.Reason
			}
			delete(b.children, sig.From)
			continue
		}

		msg := ev.Message
		switch msg.kind {
		case uCmdStart:
			b.launchStart(ctx, msg.args, msg.startReply)

		case uCmdStop:
			b.launchStop(ctx, msg.target, msg.stopReply)

		case uCmdChildStarted:
			if msg.asyncErr == nil {
				b.children[msg.asyncActorID] = struct{}{}
			}

		case uCmdChildStopped:
			delete(b.children, msg.target)
		}
	}
}

func (b *uniformBehavior[M, A]) launchStart(ctx *actor.Context[UniformCommand[A]],
	args A, reply chan<- StartChildResult) {

	sys := ctx.System()
	self := ctx.Self()
	requireInitAck := b.requireInitAck
	initAckTimeout := b.initAckTimeout
	behavior := b.behaviorFactory(args)
	shutdown := b.shutdown

	// Link to self at spawn time, not afterward: Spawn starts the
	// runner goroutine before it returns, so a separate, later Link
	// call can race a child that crashes immediately and lose it
	// forever.
	spawnOpts := b.spawnOpts
	spawnOpts.LinkTo = append(append([]actor.ID(nil), spawnOpts.LinkTo...), self)
	// Pre-install the init-ack channel too, so a fast child can't call
	// Context.InitAckOK before the AttachInitAck call below runs.
	spawnOpts.RequireInitAck = requireInitAck

	go func() {
		id, err := actor.Spawn(sys, behavior, spawnOpts)
		if err == nil && requireInitAck {
			if ch, ok := actor.AttachInitAck(sys, id); ok {
				timeout := initAckTimeout
				if timeout <= 0 {
					timeout = DefaultInitAckTimeout
				}
				select {
				case reported := <-ch:
					id = reported
				case <-time.After(timeout):
					log.WarnS(context.Background(), "child init-ack "+
						"timed out, running shutdown sequence",
						ErrInitAckTimeout, "actor_id", id.String(),
						"timeout", timeout)
					stopChild(sys, id, shutdown)
					err = ErrInitAckTimeout
				}
			}
		}
		if err == nil {
			actor.TrySend(sys, self, UniformCommand[A]{
				kind: uCmdChildStarted, asyncActorID: id,
			})
		}
		if reply != nil {
			reply <- StartChildResult{ID: id, Err: err}
		}
	}()
}

func (b *uniformBehavior[M, A]) launchStop(ctx *actor.Context[UniformCommand[A]],
	target actor.ID, reply chan<- error) {

	sys := ctx.System()
	self := ctx.Self()
	seq := b.shutdown

	go func() {
		reason := stopChild(sys, target, seq)
		actor.TrySend(sys, self, UniformCommand[A]{kind: uCmdChildStopped, target: target})
		if reply == nil {
			return
		}
		if reason.IsPropagating() {
			reply <- reason
		} else {
			reply <- nil
		}
	}()
}

func (b *uniformBehavior[M, A]) shutdownAll(ctx *actor.Context[UniformCommand[A]]) {
	sys := ctx.System()
	for id := range b.children {
		_ = stopChild(sys, id, b.shutdown)
	}
}
