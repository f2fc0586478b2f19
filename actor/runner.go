package actor

import (
	"context"
	"time"
)

// runner owns one actor's private state: its link set, trap-exit flag,
// and its three input pipes (message, signal and system-message inboxes).
// Unlike the spec's prose (which separates "the behavior" from "the
// runner" into two conceptually distinct tasks joined by select), this
// implementation merges them into the single goroutine launched by Spawn
// — an explicitly sanctioned implementation choice per spec.md §5
// ("joined by select internally or merged into a single task"). Because
// the two halves never run concurrently with each other, link-set/trap-exit
// mutation from Context methods needs no lock and no self-call channel.
type runner[M any] struct {
	id  ID
	sys *System

	msgPipe    *pipe[M]
	signalPipe *pipe[Signal]
	sysPipe    *pipe[sysMsg]

	entry *actorEntry

	linkSet  map[ID]struct{}
	trapExit bool

	// pendingExit is set by selfExit and consulted once the current
	// Next call (or the behavior's own return) completes. It models the
	// "pending-forever sentinel" of spec.md §5: once set, Next never
	// again yields a user event.
	pendingExit *ExitReason

	cleanupTimeout time.Duration
}

// next implements Context.Next: it drains and applies any pending system
// messages first, then returns the next available event, biased toward
// signals over messages, blocking only when neither is ready.
func (r *runner[M]) next(ctx context.Context) (Event[M], bool) {
	for {
		if r.pendingExit != nil {
			var zero Event[M]
			return zero, false
		}

		for {
			sm, ok := r.sysPipe.tryRecv()
			if !ok {
				break
			}
			r.handleSysMessage(sm)
		}
		if r.pendingExit != nil {
			var zero Event[M]
			return zero, false
		}

		if sig, ok := r.signalPipe.tryRecv(); ok {
			return Event[M]{Signal: sig, IsSignal: true}, true
		}
		if msg, ok := r.msgPipe.tryRecv(); ok {
			return Event[M]{Message: msg}, true
		}

		select {
		case sm, ok := <-r.sysPipe.ch:
			if ok {
				r.handleSysMessage(sm)
			}
			continue

		case sig, ok := <-r.signalPipe.ch:
			if !ok {
				continue
			}
			return Event[M]{Signal: sig, IsSignal: true}, true

		case msg, ok := <-r.msgPipe.ch:
			if !ok {
				continue
			}
			return Event[M]{Message: msg}, true

		case <-ctx.Done():
			var zero Event[M]
			return zero, false
		}
	}
}

// handleSysMessage applies one system message per the dispatch tables of
// spec.md §4.3 (link bookkeeping, trap-exit, exit-signal handling) and
// §4.4 (wait).
func (r *runner[M]) handleSysMessage(sm sysMsg) {
	switch sm.kind {
	case sysLink:
		r.linkSet[sm.peer] = struct{}{}
		r.publishLinks()
		r.ackIfSet(sm)

	case sysUnlink:
		delete(r.linkSet, sm.peer)
		r.publishLinks()
		r.ackIfSet(sm)

	case sysTrapExit:
		r.trapExit = sm.trap
		r.ackIfSet(sm)

	case sysWait:
		// System.Wait registers a watcher on the entry and does not
		// enqueue sysWait; a sysWait that does arrive is answered here
		// only once an exit is already pending.
		if r.pendingExit != nil {
			sm.waiter <- *r.pendingExit
		}

	case sysExit:
		r.applyExitSignal(sm.from, sm.reason)
	}
}

func (r *runner[M]) ackIfSet(sm sysMsg) {
	if sm.ack != nil {
		close(sm.ack)
	}
}

// applyExitSignal implements the exit-signal handling table of
// spec.md §4.3.
func (r *runner[M]) applyExitSignal(from ID, reason ExitReason) {
	selfTargeted := from == r.id

	switch {
	case reason.Kind() == ExitKill && selfTargeted:
		r.setPendingExit(Kill())

	case !r.trapExit && selfTargeted:
		r.setPendingExit(reason)

	case !r.trapExit && !reason.IsPropagating():
		// Normal/Shutdown(nil) from a linked peer does not cascade;
		// just drop the link silently (the peer already removed its
		// own side when it terminated).
		delete(r.linkSet, from)

	case !r.trapExit:
		r.setPendingExit(Linked(from, reason))

	default: // trapExit == true
		r.signalPipe.trySend(Signal{From: from, Reason: reason})
	}
}

func (r *runner[M]) setPendingExit(reason ExitReason) {
	if r.pendingExit == nil {
		r.pendingExit = &reason
	}
}

// selfLink implements spec.md §4.3 "link bookkeeping" from the A side.
func (r *runner[M]) selfLink(peer ID) {
	r.linkSet[peer] = struct{}{}
	r.publishLinks()

	if !r.sys.deliverSysMsg(peer, sysMsg{kind: sysLink, peer: r.id}) {
		r.sysPipe.trySend(sysMsg{
			kind: sysExit, from: peer, reason: NoActor(),
		})
	}
}

func (r *runner[M]) selfUnlink(peer ID) {
	delete(r.linkSet, peer)
	r.publishLinks()
	r.sys.deliverSysMsg(peer, sysMsg{kind: sysUnlink, peer: r.id})
}

// publishLinks pushes a snapshot of the current link set to the entry for
// GetActor to read, the only point where this runner's private linkSet is
// observed from outside its own goroutine.
func (r *runner[M]) publishLinks() {
	ids := make([]ID, 0, len(r.linkSet))
	for id := range r.linkSet {
		ids = append(ids, id)
	}
	r.entry.setLinks(ids)
}

func (r *runner[M]) selfTrapExit(trap bool) {
	r.trapExit = trap
}

func (r *runner[M]) selfExit(reason ExitReason) {
	r.setPendingExit(reason)
}

// run is the actor's goroutine body, launched by Spawn. It drives
// the behavior, then executes the termination sequence of spec.md §4.3.
func (r *runner[M]) run(behavior Behavior[M]) {
	log.DebugS(context.Background(), "actor starting", "actor_id", r.id.String())

	ctx := &Context[M]{r: r}
	reason := behavior.Receive(ctx)
	if r.pendingExit != nil {
		reason = *r.pendingExit
	}

	r.terminate(behavior, reason)
}

// terminate executes spec.md §4.3's five-step termination sequence.
func (r *runner[M]) terminate(behavior Behavior[M], reason ExitReason) {
	// 1. Close message inbox; drain remaining system-message inbox.
	r.msgPipe.close()
	for {
		sm, ok := r.sysPipe.tryRecv()
		if !ok {
			break
		}
		// Any further link/unlink/trap-exit requests are moot; only
		// honor a racing Wait so its caller is not left hanging.
		if sm.kind == sysWait {
			sm.waiter <- reason
		}
	}
	r.sysPipe.close()

	// 2. Notify linked peers.
	for peer := range r.linkSet {
		if reason.IsPropagating() {
			r.sys.deliverSysMsg(peer, sysMsg{
				kind: sysExit, from: r.id, reason: reason,
			})
		} else {
			r.sys.deliverSysMsg(peer, sysMsg{
				kind: sysUnlink, peer: r.id,
			})
		}
	}

	// 3 & 4. Transition the entry to terminated and notify waiters.
	r.sys.markTerminated(r.id, reason)

	// Run OnStop cleanup, if the behavior supports it, bounded by the
	// configured cleanup timeout.
	if stoppable, ok := behavior.(Stoppable); ok {
		cleanupCtx, cancel := context.WithTimeout(
			context.Background(), r.cleanupTimeout,
		)
		if err := stoppable.OnStop(cleanupCtx); err != nil {
			log.WarnS(context.Background(),
				"actor cleanup error during shutdown", err,
				"actor_id", r.id.String())
		}
		cancel()
	}

	// 5. Release the slot lease.
	r.entry.lse.release()

	log.DebugS(context.Background(), "actor terminated",
		"actor_id", r.id.String(), "reason", reason.Kind().String())
}
