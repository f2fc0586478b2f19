package actor

// Signal is delivered on an actor's signal inbox, which the runner gives
// strict priority over the message inbox (spec.md §3/§4.3). Currently the
// only case is Exit, raised when a trap-exit actor observes a linked
// peer's termination instead of being torn down by it.
type Signal struct {
	// From is the actor whose exit produced this signal.
	From ID

	// Reason is the exit reason of From.
	Reason ExitReason
}
