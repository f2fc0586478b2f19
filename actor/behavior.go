package actor

import "context"

// Event is one item pulled from Context.Next: either a user message or a
// Signal, never both. Per spec.md §4.3, Next is signal-biased: when both
// are available, the signal is returned first.
type Event[M any] struct {
	Message  M
	Signal   Signal
	IsSignal bool
}

// Behavior defines an actor's logic. Unlike a single-shot message
// handler, Receive owns the actor's entire lifetime: it pulls events via
// Context.Next in a loop and returns the ExitReason the actor should
// terminate with once it is done (spec.md §4.3, "the behavior is a task
// that awaits next_event()").
type Behavior[M any] interface {
	Receive(ctx *Context[M]) ExitReason
}

// Stoppable is an optional interface a Behavior can implement to run
// cleanup after the event loop exits but before the actor is marked
// terminated, mirroring the teacher's ActorBehavior/Stoppable split in
// internal/baselib/actor/interface.go.
type Stoppable interface {
	// OnStop is called once Receive has returned, with a context bounded
	// by the actor's cleanup timeout.
	OnStop(ctx context.Context) error
}

// funcBehavior adapts a plain per-message handler into a full Behavior by
// looping over Context.Next internally. Signals are never passed to the
// handler: if the actor traps exits, each signal Next returns is dropped.
type funcBehavior[M any] struct {
	handle func(ctx *Context[M], msg M) error
}

// NewFunctionBehavior adapts a single per-message handler function into a
// Behavior, for the common case of an actor with no need to observe
// signals directly. Returning a non-nil error from handle terminates the
// actor: if the error is itself an ExitReason it is used verbatim,
// otherwise it is wrapped as Custom(err). Grounded on the teacher's
// NewFunctionBehavior (internal/baselib/actor), adapted from a
// single-call-per-message shape to the spec's actor-owns-its-loop shape.
func NewFunctionBehavior[M any](handle func(ctx *Context[M], msg M) error) Behavior[M] {
	return &funcBehavior[M]{handle: handle}
}

func (f *funcBehavior[M]) Receive(ctx *Context[M]) ExitReason {
	for {
		ev, ok := ctx.Next(context.Background())
		if !ok {
			return ctx.pendingOrNormal()
		}

		if ev.IsSignal {
			// A signal only reaches here if the handler opted into
			// trap-exit; funcBehavior has no hook to observe it, so
			// it is dropped. Actors that need to react to signals
			// should implement Behavior directly.
			continue
		}

		if err := f.handle(ctx, ev.Message); err != nil {
			if reason, ok := err.(ExitReason); ok {
				return reason
			}
			return Custom(err)
		}
	}
}
