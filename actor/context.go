package actor

import "context"

// Context is the handle a Behavior uses to pull events and to issue
// lifecycle self-calls (link, unlink, trap-exit, exit), per spec.md
// §4.3. It is created fresh for each actor by runner.run and must not be
// shared across actors.
type Context[M any] struct {
	r *runner[M]
}

// Self returns this actor's own ID.
func (c *Context[M]) Self() ID {
	return c.r.id
}

// System returns the System this actor was spawned into, so a behavior
// can itself spawn, send, or link against other actors.
func (c *Context[M]) System() *System {
	return c.r.sys
}

// Next blocks for the next message or signal, returning false once the
// actor has been asked to exit (via Exit, an untrapped link-exit, or ctx
// cancellation). Per spec.md §4.3, a pending signal is always returned
// ahead of a pending message.
func (c *Context[M]) Next(ctx context.Context) (Event[M], bool) {
	return c.r.next(ctx)
}

// Link establishes a bidirectional link to peer. If peer is not live,
// this actor observes an immediate Exit(peer, NoActor) signal/exit on its
// own next Next call, per spec.md §4.3.
func (c *Context[M]) Link(peer ID) {
	c.r.selfLink(peer)
}

// Unlink removes any link to peer. Idempotent.
func (c *Context[M]) Unlink(peer ID) {
	c.r.selfUnlink(peer)
}

// TrapExit sets whether incoming link-exit signals are delivered as
// observable Signal events (true) or terminate this actor (false, the
// default).
func (c *Context[M]) TrapExit(trap bool) {
	c.r.selfTrapExit(trap)
}

// Exit schedules this actor's own termination with the given reason. Any
// event already being processed finishes normally, but the next Next
// call (and the one this call itself may be nested under, once the
// Behavior returns control) reports no further events.
func (c *Context[M]) Exit(reason ExitReason) {
	c.r.selfExit(reason)
}

// pendingOrNormal returns the reason of a pending Exit call, or Normal if
// none was scheduled. Used by Behavior implementations (e.g.
// NewFunctionBehavior) that treat Next returning false as "time to
// return from Receive".
func (c *Context[M]) pendingOrNormal() ExitReason {
	return c.PendingReason()
}

// PendingReason returns the reason Next's next call would report the
// actor as exiting with: a pending Exit call's reason, an untrapped
// link-exit's propagated reason, or Normal if neither applies. A
// Behavior whose Receive loop exits when Next returns false should
// return this as its own final ExitReason, same as NewFunctionBehavior
// does internally.
func (c *Context[M]) PendingReason() ExitReason {
	if c.r.pendingExit != nil {
		return *c.r.pendingExit
	}
	return Normal()
}
