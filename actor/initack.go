package actor

// initAckBagKey tags the one-shot init-ack channel a supervisor attaches
// to a child's entry, per spec.md §4.3's init-ack handshake.
type initAckBagKey struct{}

// AttachInitAck returns the receive end of id's init-ack channel. If id
// was spawned with SpawnOpts.RequireInitAck, the channel already exists
// (installed before the runner goroutine started, closing the race where
// a fast child calls Context.InitAckOK before its supervisor gets a
// chance to attach); otherwise one is installed now. A supervisor
// starting a child with init-ack required should always spawn with
// RequireInitAck set and call this immediately after, then wait on the
// returned channel with its own timeout. Returns nil, false if id is not
// live.
func AttachInitAck(sys *System, id ID) (<-chan ID, bool) {
	entry, ok := sys.lookupLive(id)
	if !ok {
		return nil, false
	}
	if ch, ok := bagGet[chan ID](entry.bag, initAckBagKey{}); ok {
		return ch, true
	}
	ch := make(chan ID, 1)
	bagSet[chan ID](entry.bag, initAckBagKey{}, ch)
	return ch, true
}

// InitAckOK reports reportedID as this actor's init-ack, typically its
// own Self() ID, or a delegate's ID when this actor is itself a proxy
// that spawned the real worker (spec.md §4.3: "a proxy actor spawns the
// real worker and reports the worker's identifier"). A no-op if no
// init-ack channel was attached (e.g. the supervisor did not request
// one). The channel is left in the bag rather than removed, so a
// supervisor whose AttachInitAck call has not yet run (a fast child can
// call this before its supervisor gets scheduled again) still observes
// the buffered ack instead of attaching a fresh channel nothing will
// ever write to; a second call is then naturally a no-op, since the
// channel's single buffer slot is already full.
func (c *Context[M]) InitAckOK(reportedID ID) {
	entry, ok := c.r.sys.lookupLive(c.r.id)
	if !ok {
		return
	}
	ch, ok := bagGet[chan ID](entry.bag, initAckBagKey{})
	if !ok {
		return
	}
	select {
	case ch <- reportedID:
	default:
	}
}
