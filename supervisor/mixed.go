package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/roasbeef/agner/actor"
)

type commandKind int

const (
	cmdStartChild commandKind = iota
	cmdTerminateChild
	cmdWhichChildren

	// Internal-only: folded back into the supervisor's own mailbox by
	// the goroutines that run the (blocking) start/stop protocols, so
	// the supervisor's event loop itself never blocks. Spec.md §9 calls
	// this out as "a private noop used to fold timed side tasks back
	// into the mailbox".
	cmdChildStarted
	cmdChildStopped
)

// StartChildResult is delivered on a StartChild command's reply channel
// once the start-child protocol completes (or fails).
type StartChildResult struct {
	ID  actor.ID
	Err error
}

// Command is a mixed supervisor's message type: StartChild, TerminateChild
// and WhichChildren per spec.md §4.5's common supervisor contract, built
// via the exported constructors below.
type Command struct {
	kind commandKind

	spec       ChildSpec
	startReply chan<- StartChildResult

	targetID  ChildID
	stopReply chan<- error

	whichReply chan<- []ChildSummary

	asyncChildID ChildID
	asyncActorID actor.ID
	asyncErr     error
	asyncReason  actor.ExitReason
}

// StartChild requests that spec be added and started under the
// supervisor. reply may be nil if the caller does not need the outcome.
func StartChild(spec ChildSpec, reply chan<- StartChildResult) Command {
	return Command{kind: cmdStartChild, spec: spec, startReply: reply}
}

// TerminateChild requests that id be stopped (via its shutdown sequence)
// and permanently removed from supervision. reply may be nil.
func TerminateChild(id ChildID, reply chan<- error) Command {
	return Command{kind: cmdTerminateChild, targetID: id, stopReply: reply}
}

// WhichChildren requests a snapshot of every currently supervised child.
func WhichChildren(reply chan<- []ChildSummary) Command {
	return Command{kind: cmdWhichChildren, whichReply: reply}
}

func childStartedCmd(id ChildID, aid actor.ID, err error) Command {
	return Command{kind: cmdChildStarted, asyncChildID: id, asyncActorID: aid, asyncErr: err}
}

func childStoppedCmd(id ChildID, reason actor.ExitReason) Command {
	return Command{kind: cmdChildStopped, asyncChildID: id, asyncReason: reason}
}

// mixedBehavior is the actor.Behavior driving a Decider: every mutation
// to supervision state happens on this actor's own goroutine, so the
// Decider itself never needs locking.
type mixedBehavior struct {
	decider *Decider

	pendingStart map[ChildID]chan<- StartChildResult
	pendingStop  map[ChildID]chan<- error
}

// NewMixedSupervisor creates an empty mixed supervisor: a dynamic,
// heterogeneous child set managed entirely through StartChild and
// TerminateChild commands, restarted per restartType within the given
// restart-intensity window (spec.md §4.6).
func NewMixedSupervisor(restartType RestartType, maxRestarts int, within time.Duration) actor.Behavior[Command] {
	return &mixedBehavior{
		decider:      NewDecider(restartType, maxRestarts, within),
		pendingStart: make(map[ChildID]chan<- StartChildResult),
		pendingStop:  make(map[ChildID]chan<- error),
	}
}

func (b *mixedBehavior) Receive(ctx *actor.Context[Command]) actor.ExitReason {
	ctx.TrapExit(true)

	if reason, shutdown := b.driveActions(ctx); shutdown {
		b.shutdownAll(ctx)
		return reason
	}

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

			b.decider.HandleExit(sig.From, sig.Reason, time.Now())
		} else {
			b.handleCommand(ctx, ev.Message)
		}

		if reason, shutdown := b.driveActions(ctx); shutdown {
			b.shutdownAll(ctx)
			return reason
		}
	}
}

func (b *mixedBehavior) handleCommand(ctx *actor.Context[Command], msg Command) {
	switch msg.kind {
	case cmdStartChild:
		b.decider.AddChild(msg.spec)
		if msg.startReply != nil {
			b.pendingStart[msg.spec.ID] = msg.startReply
		}

	case cmdTerminateChild:
		aid, ok := b.decider.ActorID(msg.targetID)
		if !ok {
			if msg.stopReply != nil {
				msg.stopReply <- fmt.Errorf("%w: %s", ErrUnknownChild, msg.targetID)
			}
			return
		}
		spec, _ := b.decider.Spec(msg.targetID)
		b.decider.MarkExpected(aid)
		if msg.stopReply != nil {
			b.pendingStop[msg.targetID] = msg.stopReply
		}
		b.launchStop(ctx, msg.targetID, aid, spec.Shutdown)
		b.decider.RemoveChild(msg.targetID)

	case cmdWhichChildren:
		if msg.whichReply != nil {
			msg.whichReply <- b.decider.Summaries()
		}

	case cmdChildStarted:
		reply, hasReply := b.pendingStart[msg.asyncChildID]
		delete(b.pendingStart, msg.asyncChildID)

		if msg.asyncErr != nil {
			b.decider.ConfirmStartFailed(msg.asyncChildID)
			if hasReply {
				reply <- StartChildResult{Err: msg.asyncErr}
			}
			return
		}
		b.decider.ConfirmStarted(msg.asyncChildID, msg.asyncActorID)
		// The child's exit signal can be handled before this confirmation
		// and dropped as an orphan. Wait with an already-cancelled context
		// returns a recorded termination without blocking, so such an exit
		// is applied here instead.
		doneCtx, cancel := context.WithCancel(context.Background())
		cancel()
		if reason, err := ctx.System().Wait(doneCtx, msg.asyncActorID); err == nil {
			b.decider.HandleExit(msg.asyncActorID, reason, time.Now())
		}
		if hasReply {
			reply <- StartChildResult{ID: msg.asyncActorID}
		}

	case cmdChildStopped:
		if reply, ok := b.pendingStop[msg.asyncChildID]; ok {
			delete(b.pendingStop, msg.asyncChildID)
			if msg.asyncReason.IsPropagating() {
				reply <- msg.asyncReason
			} else {
				reply <- nil
			}
		}
	}
}

// driveActions pulls every action the Decider currently has queued and
// launches the corresponding asynchronous protocol, so the event loop
// above never blocks on a single child's start or stop. Returns the
// shutdown reason and true once the restart-intensity window has been
// exceeded.
func (b *mixedBehavior) driveActions(ctx *actor.Context[Command]) (actor.ExitReason, bool) {
	if reason, shutdown := b.decider.ShuttingDown(); shutdown {
		return reason, true
	}

	for {
		id, ok := b.decider.NextToStop()
		if !ok {
			break
		}
		aid, ok := b.decider.ActorID(id)
		if !ok {
			continue
		}
		spec, _ := b.decider.Spec(id)
		b.decider.MarkExpected(aid)
		b.launchStop(ctx, id, aid, spec.Shutdown)
	}

	for {
		id, ok := b.decider.NextToStart()
		if !ok {
			break
		}
		spec, _ := b.decider.Spec(id)
		b.launchStart(ctx, id, spec)
	}

	return actor.ExitReason{}, false
}

func (b *mixedBehavior) launchStart(ctx *actor.Context[Command], id ChildID, spec ChildSpec) {
	sys := ctx.System()
	self := ctx.Self()
	go func() {
		// startChild links aid to self before its runner goroutine
		// starts, so a child that crashes immediately is still
		// observed instead of racing a separately-issued Link.
		aid, err := startChild(sys, spec, self)
		actor.TrySend(sys, self, childStartedCmd(id, aid, err))
	}()
}

func (b *mixedBehavior) launchStop(ctx *actor.Context[Command], id ChildID, aid actor.ID, seq ShutdownSequence) {
	sys := ctx.System()
	self := ctx.Self()
	go func() {
		reason := stopChild(sys, aid, seq)
		actor.TrySend(sys, self, childStoppedCmd(id, reason))
	}()
}

// shutdownAll stops every currently running child in reverse declaration
// order, as the final act before this supervisor itself terminates.
func (b *mixedBehavior) shutdownAll(ctx *actor.Context[Command]) {
	sys := ctx.System()
	children := b.decider.Children()
	for i := len(children) - 1; i >= 0; i-- {
		id := children[i]
		aid, ok := b.decider.ActorID(id)
		if !ok {
			continue
		}
		spec, _ := b.decider.Spec(id)
		_ = stopChild(sys, aid, spec.Shutdown)
	}
}
