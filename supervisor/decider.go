package supervisor

import (
	"context"
	"time"

	"github.com/roasbeef/agner/actor"
)

// RestartType selects which cohort of children is restarted when one of
// them crashes, per spec.md §4.6.
type RestartType int

const (
	// RestartOneForOne restarts only the crashed child.
	RestartOneForOne RestartType = iota

	// RestartAllForOne stops every other running child, then restarts
	// the whole set in declaration order.
	RestartAllForOne

	// RestartRestForOne stops every child declared after the crashed
	// one, then restarts the crashed child and that tail in declaration
	// order.
	RestartRestForOne
)

func (t RestartType) String() string {
	switch t {
	case RestartOneForOne:
		return "one_for_one"
	case RestartAllForOne:
		return "all_for_one"
	case RestartRestForOne:
		return "rest_for_one"
	default:
		return "unknown"
	}
}

type childState int

const (
	childToStart childState = iota
	// childStarting marks a child whose Start action has been handed to
	// the driver but not yet confirmed, so NextToStart's order-scan
	// fallback does not hand out the same child a second time while its
	// first start is still in flight.
	childStarting
	childRunning
	childStopped
)

type childRecord struct {
	spec    ChildSpec
	state   childState
	actorID actor.ID
}

// restartWindow is the sliding-window restart-intensity tracker of
// spec.md §4.6: at most maxRestarts restarts may be recorded within any
// `within`-wide trailing window before intensity is considered exceeded.
type restartWindow struct {
	maxRestarts int
	within      time.Duration
	stamps      []time.Time
}

// record appends now and reports whether the window now holds more than
// maxRestarts entries.
func (w *restartWindow) record(now time.Time) bool {
	w.stamps = append(w.stamps, now)

	cutoff := now.Add(-w.within)
	i := 0
	for i < len(w.stamps) && w.stamps[i].Before(cutoff) {
		i++
	}
	w.stamps = w.stamps[i:]

	return len(w.stamps) > w.maxRestarts
}

type deciderPhase int

const (
	phaseRunning deciderPhase = iota
	phaseShuttingDown
)

// Decider is the pull-driven restart state machine at the heart of every
// supervisor flavor, per spec.md §4.6. It is pure: it never spawns,
// sends, or waits on anything itself, which is what makes it unit
// testable without a live actor System (spec.md §9's design note on a
// "next_action" loop). A driver (mixedBehavior.driveActions) repeatedly
// pulls NextToStart/NextToStop and executes the corresponding protocol,
// then reports outcomes back via ConfirmStarted/HandleExit.
type Decider struct {
	restartType RestartType
	window      restartWindow

	order   []ChildID
	recs    map[ChildID]*childRecord
	byActor map[actor.ID]ChildID

	// expectedExits holds actor IDs whose termination was initiated by
	// this supervisor (a stop-child call or a cohort-restart stop), so
	// HandleExit does not mistake it for a crash.
	expectedExits map[actor.ID]struct{}

	// orphans collects actor IDs an exit signal arrived for but that no
	// longer map to any child record, e.g. a stray signal racing a
	// RemoveChild. Retained for diagnostics only.
	orphans []actor.ID

	toStop  []ChildID
	toStart []ChildID

	// restarting holds ChildIDs currently being stopped as part of an
	// in-flight cohort restart (RestartAllForOne/RestartRestForOne); once
	// every member's stop is confirmed, cohortStartQueue is flushed into
	// toStart as a whole, so the cohort restarts together in declaration
	// order rather than racing a start against its own pending stop.
	restarting          map[ChildID]struct{}
	cohortStopRemaining int
	cohortStartQueue    []ChildID

	// cohortRemove holds ChildIDs swept up in a cohort stop (by virtue of
	// being a sibling of the crashed child) that must not be restarted:
	// a Temporary child's exit permanently removes it from supervision
	// (spec.md §4.6), and a one_for_all/rest_for_one cascade is not an
	// exception to that rule, only a reason it stops sooner than it
	// otherwise would have.
	cohortRemove map[ChildID]struct{}

	phase          deciderPhase
	shutdownReason actor.ExitReason
}

// NewDecider creates a Decider with the given restart strategy and
// restart-intensity window.
func NewDecider(restartType RestartType, maxRestarts int, within time.Duration) *Decider {
	return &Decider{
		restartType:   restartType,
		window:        restartWindow{maxRestarts: maxRestarts, within: within},
		recs:          make(map[ChildID]*childRecord),
		byActor:       make(map[actor.ID]ChildID),
		expectedExits: make(map[actor.ID]struct{}),
		restarting:    make(map[ChildID]struct{}),
		cohortRemove:  make(map[ChildID]struct{}),
	}
}

// AddChild registers spec in ToStart state. Used both for a fixed
// supervisor's static init list and a mixed supervisor's dynamic
// StartChild command.
func (d *Decider) AddChild(spec ChildSpec) {
	d.order = append(d.order, spec.ID)
	d.recs[spec.ID] = &childRecord{spec: spec, state: childToStart}
}

// RemoveChild permanently drops id from supervision. Called once a
// deliberate TerminateChild's stop sequence has been issued (the
// decider does not wait for confirmation before forgetting it; the
// caller's reply channel is what actually waits).
func (d *Decider) RemoveChild(id ChildID) {
	rec, ok := d.recs[id]
	if !ok {
		return
	}
	if rec.actorID != (actor.ID{}) {
		delete(d.byActor, rec.actorID)
	}
	delete(d.recs, id)
	for i, cid := range d.order {
		if cid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// ConfirmStarted records that id's start-child protocol completed
// successfully as actor aid.
func (d *Decider) ConfirmStarted(id ChildID, aid actor.ID) {
	rec, ok := d.recs[id]
	if !ok {
		return
	}
	rec.actorID = aid
	rec.state = childRunning
	d.byActor[aid] = id
}

// ConfirmStartFailed records that id's start-child protocol failed. The
// child is left Stopped; nothing retries it automatically, matching a
// uniform/mixed supervisor's lack of a start-failure backoff policy.
func (d *Decider) ConfirmStartFailed(id ChildID) {
	if rec, ok := d.recs[id]; ok {
		rec.state = childStopped
	}
}

// NextToStart pops the next child needing a Start action issued, marking
// it Starting so a later call (before its outcome is confirmed) does not
// hand out the same child twice.
func (d *Decider) NextToStart() (ChildID, bool) {
	if len(d.toStart) > 0 {
		id := d.toStart[0]
		d.toStart = d.toStart[1:]
		if rec := d.recs[id]; rec != nil {
			rec.state = childStarting
		}
		return id, true
	}
	for _, id := range d.order {
		if rec := d.recs[id]; rec != nil && rec.state == childToStart {
			rec.state = childStarting
			return id, true
		}
	}
	return "", false
}

// NextToStop pops the next child needing a Stop action issued as part of
// an in-flight cohort restart, or ("", false) if none is pending.
func (d *Decider) NextToStop() (ChildID, bool) {
	if len(d.toStop) == 0 {
		return "", false
	}
	id := d.toStop[0]
	d.toStop = d.toStop[1:]
	return id, true
}

// MarkExpected records that aid's next exit was initiated by the
// supervisor, so HandleExit treats it as a confirmation rather than a
// crash. Must be called before the Exit signal is actually issued.
func (d *Decider) MarkExpected(aid actor.ID) {
	d.expectedExits[aid] = struct{}{}
}

// HandleExit processes an observed child termination and returns the
// owning ChildID (empty if unrecognized) plus whether the exit was
// expected (supervisor-initiated) rather than a crash. A crash updates
// restart-intensity bookkeeping and, if a restart is warranted, queues
// the cohort's stop/start actions; exceeding the restart-intensity
// window instead transitions the decider to ShuttingDown.
func (d *Decider) HandleExit(aid actor.ID, reason actor.ExitReason, now time.Time) (ChildID, bool) {
	if _, expected := d.expectedExits[aid]; expected {
		delete(d.expectedExits, aid)
		id := d.byActor[aid]
		delete(d.byActor, aid)
		if rec, ok := d.recs[id]; ok {
			rec.state = childStopped
			rec.actorID = actor.ID{}
		}
		d.resolveCohortStop(id)
		return id, true
	}

	id, ok := d.byActor[aid]
	if !ok {
		d.orphans = append(d.orphans, aid)
		return "", false
	}
	delete(d.byActor, aid)

	rec := d.recs[id]
	rec.state = childStopped
	rec.actorID = actor.ID{}

	switch {
	case rec.spec.Type == Temporary:
		d.RemoveChild(id)
		return id, false

	case rec.spec.Type == Transient && !reason.IsPropagating():
		return id, false
	}

	// Permanent, or Transient with an abnormal reason: restart, subject
	// to the restart-intensity window.
	if d.window.record(now) {
		log.ErrorS(context.Background(), "restart intensity exceeded, "+
			"shutting down", ErrMaxRestartIntensity,
			"child_id", id, "last_error", reason.Kind().String())
		d.phase = phaseShuttingDown
		d.shutdownReason = actor.ShutdownWithError(&RestartIntensityError{
			ChildID:   id,
			LastError: reason,
		})
		return id, false
	}

	log.DebugS(context.Background(), "restarting crashed child",
		"child_id", id, "reason", reason.Kind().String())
	d.scheduleRestart(id)
	return id, false
}

// scheduleRestart queues the stop/start actions for crashed's cohort,
// per the restart strategy in effect. For RestartOneForOne the crashed
// child (already exited) goes straight to toStart. For the cohort
// strategies, every other still-running member of the cohort is queued
// to stop first; the whole cohort is only flushed into toStart once
// every one of those stops has been confirmed, via resolveCohortStop, so
// a fresh instance never starts racing its own predecessor's shutdown.
// A Temporary sibling swept into the cohort is stopped along with
// everyone else but never restarted: its type permanently removes it
// from supervision regardless of why it stopped.
func (d *Decider) scheduleRestart(crashed ChildID) {
	d.recs[crashed].state = childToStart

	var members []ChildID

	switch d.restartType {
	case RestartOneForOne:
		d.toStart = append(d.toStart, crashed)
		return

	case RestartAllForOne:
		members = append(members, d.order...)

	case RestartRestForOne:
		idx := -1
		for i, id := range d.order {
			if id == crashed {
				idx = i
				break
			}
		}
		if idx < 0 {
			d.toStart = append(d.toStart, crashed)
			return
		}
		members = append(members, d.order[idx:]...)
	}

	var cohort []ChildID
	for _, id := range members {
		if rec := d.recs[id]; rec == nil || rec.spec.Type != Temporary {
			cohort = append(cohort, id)
		}
	}

	var stopNeeded []ChildID
	for i := len(members) - 1; i >= 0; i-- {
		id := members[i]
		if id == crashed {
			continue
		}
		rec := d.recs[id]
		if rec == nil || rec.state != childRunning {
			continue
		}
		stopNeeded = append(stopNeeded, id)
		if rec.spec.Type == Temporary {
			d.cohortRemove[id] = struct{}{}
		}
	}

	if len(stopNeeded) == 0 {
		d.toStart = append(d.toStart, cohort...)
		return
	}

	// The crashed child waits in Stopped with the rest of the cohort, so
	// NextToStart's order scan cannot start it before the barrier lifts.
	d.recs[crashed].state = childStopped

	for _, id := range stopNeeded {
		d.toStop = append(d.toStop, id)
		d.restarting[id] = struct{}{}
	}
	d.cohortStopRemaining = len(stopNeeded)
	d.cohortStartQueue = cohort
}

// resolveCohortStop is called once id's stop is confirmed. If id was
// part of an in-flight cohort restart, it decrements the outstanding
// count and, once every member has confirmed, flushes the whole cohort
// into toStart together. A Temporary member caught up in the cohort is
// removed from supervision here instead of being queued to restart.
func (d *Decider) resolveCohortStop(id ChildID) {
	if _, ok := d.restarting[id]; !ok {
		return
	}
	delete(d.restarting, id)
	if _, ok := d.cohortRemove[id]; ok {
		delete(d.cohortRemove, id)
		d.RemoveChild(id)
	}
	d.cohortStopRemaining--
	if d.cohortStopRemaining <= 0 && d.cohortStartQueue != nil {
		d.toStart = append(d.toStart, d.cohortStartQueue...)
		d.cohortStartQueue = nil
	}
}

// ShuttingDown reports whether the restart-intensity window has been
// exceeded, and if so the reason the owning supervisor should terminate
// itself with.
func (d *Decider) ShuttingDown() (actor.ExitReason, bool) {
	if d.phase == phaseShuttingDown {
		return d.shutdownReason, true
	}
	return actor.ExitReason{}, false
}

// Children returns every currently-registered ChildID in declaration
// order.
func (d *Decider) Children() []ChildID {
	return append([]ChildID(nil), d.order...)
}

// Spec returns id's ChildSpec.
func (d *Decider) Spec(id ChildID) (ChildSpec, bool) {
	rec, ok := d.recs[id]
	if !ok {
		return ChildSpec{}, false
	}
	return rec.spec, true
}

// ActorID returns id's current actor.ID, if it is running.
func (d *Decider) ActorID(id ChildID) (actor.ID, bool) {
	rec, ok := d.recs[id]
	if !ok || rec.actorID == (actor.ID{}) {
		return actor.ID{}, false
	}
	return rec.actorID, true
}

// Summaries returns an admin-facing snapshot of every child, in
// declaration order.
func (d *Decider) Summaries() []ChildSummary {
	out := make([]ChildSummary, 0, len(d.order))
	for _, id := range d.order {
		rec := d.recs[id]
		if rec == nil {
			continue
		}
		out = append(out, ChildSummary{
			ID:      id,
			ActorID: rec.actorID,
			Type:    rec.spec.Type,
			Running: rec.state == childRunning,
		})
	}
	return out
}
