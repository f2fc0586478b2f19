package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/agner/actor"
)

// testSpec builds a minimal ChildSpec for decider-only tests: no real
// start closure is ever invoked here, since the Decider itself never
// spawns anything.
func testSpec(id ChildID, typ ChildType) ChildSpec {
	return ChildSpec{
		ID:       id,
		Type:     typ,
		Shutdown: DefaultShutdownSequence(),
	}
}

func fakeActorID(slot uint32) actor.ID {
	return actor.ID{Sys: 1, Slot: slot, Seq: 1}
}

// startAndConfirm drives a freshly-added child through NextToStart and
// ConfirmStarted, as driveActions would.
func startAndConfirm(t *testing.T, d *Decider, id ChildID, aid actor.ID) {
	t.Helper()
	got, ok := d.NextToStart()
	require.True(t, ok)
	require.Equal(t, id, got)
	d.ConfirmStarted(id, aid)
}

func TestDecider_OneForOne_RestartsOnlyCrashed(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartOneForOne, 3, time.Minute)
	d.AddChild(testSpec("a", Permanent))
	d.AddChild(testSpec("b", Permanent))

	a1, b1 := fakeActorID(1), fakeActorID(2)
	startAndConfirm(t, d, "a", a1)
	startAndConfirm(t, d, "b", b1)

	_, toStop := d.NextToStop()
	assert.False(t, toStop)

	id, expected := d.HandleExit(a1, actor.Custom(assert.AnError), time.Now())
	assert.Equal(t, ChildID("a"), id)
	assert.False(t, expected)

	// b must not be queued to stop or restart; only a needs a restart.
	_, toStop = d.NextToStop()
	assert.False(t, toStop)

	started, ok := d.NextToStart()
	require.True(t, ok)
	assert.Equal(t, ChildID("a"), started)

	_, ok = d.NextToStart()
	assert.False(t, ok)
}

func TestDecider_AllForOne_StopsCohortBeforeRestarting(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartAllForOne, 3, time.Minute)
	d.AddChild(testSpec("a", Permanent))
	d.AddChild(testSpec("b", Permanent))
	d.AddChild(testSpec("c", Permanent))

	a1, b1, c1 := fakeActorID(1), fakeActorID(2), fakeActorID(3)
	startAndConfirm(t, d, "a", a1)
	startAndConfirm(t, d, "b", b1)
	startAndConfirm(t, d, "c", c1)

	d.HandleExit(b1, actor.Custom(assert.AnError), time.Now())

	// b crashed; a and c must be queued to stop before anyone restarts.
	stopped := map[ChildID]bool{}
	for {
		id, ok := d.NextToStop()
		if !ok {
			break
		}
		stopped[id] = true
	}
	assert.True(t, stopped["a"])
	assert.True(t, stopped["c"])
	assert.False(t, stopped["b"])

	// Nothing should be ready to start until every cohort stop is
	// confirmed.
	_, ok := d.NextToStart()
	assert.False(t, ok)

	d.MarkExpected(a1)
	d.HandleExit(a1, actor.Shutdown(), time.Now())
	_, ok = d.NextToStart()
	assert.False(t, ok, "cohort must not start until every member stops")

	d.MarkExpected(c1)
	d.HandleExit(c1, actor.Shutdown(), time.Now())

	// Now the whole cohort (a, b, c) should be queued, in declaration
	// order.
	var restarted []ChildID
	for {
		id, ok := d.NextToStart()
		if !ok {
			break
		}
		restarted = append(restarted, id)
	}
	assert.Equal(t, []ChildID{"a", "b", "c"}, restarted)
}

func TestDecider_AllForOne_TemporarySiblingStopsButNeverRestarts(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartAllForOne, 3, time.Minute)
	d.AddChild(testSpec("a", Permanent))
	d.AddChild(testSpec("b", Temporary))
	d.AddChild(testSpec("c", Permanent))

	a1, b1, c1 := fakeActorID(1), fakeActorID(2), fakeActorID(3)
	startAndConfirm(t, d, "a", a1)
	startAndConfirm(t, d, "b", b1)
	startAndConfirm(t, d, "c", c1)

	d.HandleExit(a1, actor.Custom(assert.AnError), time.Now())

	stopped := map[ChildID]bool{}
	for {
		id, ok := d.NextToStop()
		if !ok {
			break
		}
		stopped[id] = true
	}
	assert.True(t, stopped["b"], "a Temporary sibling is still stopped as part of the cohort")
	assert.True(t, stopped["c"])

	d.MarkExpected(b1)
	d.HandleExit(b1, actor.Shutdown(), time.Now())
	d.MarkExpected(c1)
	d.HandleExit(c1, actor.Shutdown(), time.Now())

	var restarted []ChildID
	for {
		id, ok := d.NextToStart()
		if !ok {
			break
		}
		restarted = append(restarted, id)
	}
	assert.Equal(t, []ChildID{"a", "c"}, restarted,
		"a Temporary cohort member must not be restarted")

	_, ok := d.Spec("b")
	assert.False(t, ok, "a Temporary cohort member is removed from supervision once stopped")
}

func TestDecider_RestForOne_OnlyStopsTail(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartRestForOne, 3, time.Minute)
	d.AddChild(testSpec("a", Permanent))
	d.AddChild(testSpec("b", Permanent))
	d.AddChild(testSpec("c", Permanent))

	a1, b1, c1 := fakeActorID(1), fakeActorID(2), fakeActorID(3)
	startAndConfirm(t, d, "a", a1)
	startAndConfirm(t, d, "b", b1)
	startAndConfirm(t, d, "c", c1)

	// b crashes: only c (declared after b) should be stopped. a, which
	// precedes b, must be left alone.
	d.HandleExit(b1, actor.Custom(assert.AnError), time.Now())

	stopped := map[ChildID]bool{}
	for {
		id, ok := d.NextToStop()
		if !ok {
			break
		}
		stopped[id] = true
	}
	assert.False(t, stopped["a"])
	assert.True(t, stopped["c"])

	d.MarkExpected(c1)
	d.HandleExit(c1, actor.Shutdown(), time.Now())

	var restarted []ChildID
	for {
		id, ok := d.NextToStart()
		if !ok {
			break
		}
		restarted = append(restarted, id)
	}
	assert.Equal(t, []ChildID{"b", "c"}, restarted)
}

func TestDecider_ChildTypeRules(t *testing.T) {
	t.Parallel()

	t.Run("permanent always restarts", func(t *testing.T) {
		t.Parallel()
		d := NewDecider(RestartOneForOne, 5, time.Minute)
		d.AddChild(testSpec("a", Permanent))
		aid := fakeActorID(1)
		startAndConfirm(t, d, "a", aid)

		d.HandleExit(aid, actor.Normal(), time.Now())
		_, ok := d.NextToStart()
		assert.True(t, ok, "permanent child restarts even on Normal exit")
	})

	t.Run("transient restarts only on abnormal exit", func(t *testing.T) {
		t.Parallel()
		d := NewDecider(RestartOneForOne, 5, time.Minute)
		d.AddChild(testSpec("a", Transient))
		aid := fakeActorID(1)
		startAndConfirm(t, d, "a", aid)

		d.HandleExit(aid, actor.Normal(), time.Now())
		_, ok := d.NextToStart()
		assert.False(t, ok, "transient child does not restart on Normal exit")

		// Not auto-restarted; simulate the child being manually started
		// again (e.g. a fresh StartChild call), then crash it abnormally.
		d.recs["a"].state = childToStart
		startAndConfirm(t, d, "a", fakeActorID(2))
		d.HandleExit(fakeActorID(2), actor.Custom(assert.AnError), time.Now())
		_, ok = d.NextToStart()
		assert.True(t, ok, "transient child restarts on abnormal exit")
	})

	t.Run("temporary never restarts and is removed", func(t *testing.T) {
		t.Parallel()
		d := NewDecider(RestartOneForOne, 5, time.Minute)
		d.AddChild(testSpec("a", Temporary))
		aid := fakeActorID(1)
		startAndConfirm(t, d, "a", aid)

		d.HandleExit(aid, actor.Custom(assert.AnError), time.Now())
		_, ok := d.NextToStart()
		assert.False(t, ok)

		_, ok = d.Spec("a")
		assert.False(t, ok, "temporary child is removed from supervision")
	})
}

func TestDecider_RestartIntensityExceeded(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartOneForOne, 2, time.Minute)
	d.AddChild(testSpec("a", Permanent))

	now := time.Now()
	aid := fakeActorID(1)
	startAndConfirm(t, d, "a", aid)

	for i := 0; i < 2; i++ {
		d.HandleExit(aid, actor.Custom(assert.AnError), now)
		_, ok := d.NextToStart()
		require.True(t, ok)
		aid = fakeActorID(uint32(i + 2))
		d.ConfirmStarted("a", aid)

		_, shuttingDown := d.ShuttingDown()
		assert.False(t, shuttingDown)
	}

	// Third crash within the window exceeds maxRestarts=2.
	d.HandleExit(aid, actor.Custom(assert.AnError), now)
	reason, shuttingDown := d.ShuttingDown()
	require.True(t, shuttingDown)
	assert.Equal(t, actor.ExitShutdown, reason.Kind())
	assert.ErrorIs(t, reason.ShutdownError(), ErrMaxRestartIntensity)

	var intensityErr *RestartIntensityError
	require.ErrorAs(t, reason.ShutdownError(), &intensityErr)
	assert.Equal(t, ChildID("a"), intensityErr.ChildID)
	assert.Equal(t, actor.ExitCustom, intensityErr.LastError.Kind())
}

func TestDecider_RestartIntensityWindowSlides(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartOneForOne, 1, 10*time.Second)
	d.AddChild(testSpec("a", Permanent))

	base := time.Now()
	aid := fakeActorID(1)
	startAndConfirm(t, d, "a", aid)

	d.HandleExit(aid, actor.Custom(assert.AnError), base)
	_, ok := d.NextToStart()
	require.True(t, ok)
	aid = fakeActorID(2)
	d.ConfirmStarted("a", aid)
	_, shuttingDown := d.ShuttingDown()
	require.False(t, shuttingDown)

	// A second crash long after the window has elapsed should not
	// combine with the first to exceed intensity.
	later := base.Add(time.Minute)
	d.HandleExit(aid, actor.Custom(assert.AnError), later)
	_, shuttingDown = d.ShuttingDown()
	assert.False(t, shuttingDown)
}

func TestDecider_NextToStart_NoDuplicateWhileInFlight(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartOneForOne, 5, time.Minute)
	d.AddChild(testSpec("a", Permanent))

	id, ok := d.NextToStart()
	require.True(t, ok)
	assert.Equal(t, ChildID("a"), id)

	// Starting is in flight; a second pull before confirmation must not
	// hand out the same child again.
	_, ok = d.NextToStart()
	assert.False(t, ok)

	d.ConfirmStarted("a", fakeActorID(1))
	_, ok = d.NextToStart()
	assert.False(t, ok, "a running child is not a start candidate")
}

func TestDecider_ConfirmStartFailed_AllowsRetry(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartOneForOne, 5, time.Minute)
	d.AddChild(testSpec("a", Permanent))

	id, ok := d.NextToStart()
	require.True(t, ok)
	require.Equal(t, ChildID("a"), id)

	d.ConfirmStartFailed("a")

	// Nothing auto-retries; a direct re-queue is required.
	_, ok = d.NextToStart()
	assert.False(t, ok)

	d.recs["a"].state = childToStart
	id, ok = d.NextToStart()
	require.True(t, ok)
	assert.Equal(t, ChildID("a"), id)
}

func TestDecider_TerminateChildViaRemoveChild(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartOneForOne, 5, time.Minute)
	d.AddChild(testSpec("a", Permanent))
	d.AddChild(testSpec("b", Permanent))
	startAndConfirm(t, d, "a", fakeActorID(1))
	startAndConfirm(t, d, "b", fakeActorID(2))

	d.RemoveChild("a")

	_, ok := d.Spec("a")
	assert.False(t, ok)
	assert.Equal(t, []ChildID{"b"}, d.Children())
}

func TestDecider_Summaries(t *testing.T) {
	t.Parallel()

	d := NewDecider(RestartOneForOne, 5, time.Minute)
	d.AddChild(testSpec("a", Permanent))
	d.AddChild(testSpec("b", Transient))
	startAndConfirm(t, d, "a", fakeActorID(1))

	summaries := d.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, ChildID("a"), summaries[0].ID)
	assert.True(t, summaries[0].Running)
	assert.Equal(t, ChildID("b"), summaries[1].ID)
	assert.False(t, summaries[1].Running)
}
