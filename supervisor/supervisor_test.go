package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roasbeef/agner/actor"
)

var errBoom = errors.New("boom")

type workerMsgKind int

const (
	workerPing workerMsgKind = iota
	workerCrash
)

type workerMsg struct {
	kind  workerMsgKind
	reply chan<- string
}

func pingMsg(reply chan<- string) workerMsg {
	return workerMsg{kind: workerPing, reply: reply}
}

func crashMsg() workerMsg {
	return workerMsg{kind: workerCrash}
}

func newWorkerBehavior() actor.Behavior[workerMsg] {
	return actor.NewFunctionBehavior(func(_ *actor.Context[workerMsg], msg workerMsg) error {
		switch msg.kind {
		case workerPing:
			msg.reply <- "pong"
			return nil
		case workerCrash:
			return actor.Custom(errBoom)
		}
		return nil
	})
}

func workerSpec(id ChildID, typ ChildType) ChildSpec {
	return NewChildSpec[workerMsg, struct{}](id, typ, CloneArg(struct{}{}),
		func(struct{}) actor.Behavior[workerMsg] { return newWorkerBehavior() })
}

func pingChild(t *testing.T, sys *actor.System, aid actor.ID) string {
	t.Helper()
	reply := make(chan string, 1)
	err := actor.Send(sys, context.Background(), aid, pingMsg(reply))
	require.NoError(t, err)
	select {
	case got := <-reply:
		return got
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ping reply")
		return ""
	}
}

func whichChildren(t *testing.T, sys *actor.System, sup actor.ID) []ChildSummary {
	t.Helper()
	reply := make(chan []ChildSummary, 1)
	err := actor.Send(sys, context.Background(), sup, WhichChildren(reply))
	require.NoError(t, err)
	select {
	case s := <-reply:
		return s
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for WhichChildren reply")
		return nil
	}
}

// findRunning polls WhichChildren until id shows Running, for the brief
// async window between a supervisor queuing a start and the goroutine
// running startChild confirming it.
func findRunning(t *testing.T, sys *actor.System, sup actor.ID, id ChildID) ChildSummary {
	t.Helper()
	for i := 0; i < 50; i++ {
		for _, s := range whichChildren(t, sys, sup) {
			if s.ID == id && s.Running {
				return s
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("child %s never reported running", id)
	return ChildSummary{}
}

func TestFixedSupervisor_StartsChildrenAndPings(t *testing.T) {
	t.Parallel()

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys, NewFixedSupervisor(
		[]ChildSpec{workerSpec("worker", Permanent)},
		RestartOneForOne, 3, time.Minute,
	), actor.SpawnOpts{})
	require.NoError(t, err)

	summary := findRunning(t, sys, sup, "worker")
	assert.Equal(t, "pong", pingChild(t, sys, summary.ActorID))
}

func TestFixedSupervisor_PermanentChildRestartsAfterCrash(t *testing.T) {
	t.Parallel()

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys, NewFixedSupervisor(
		[]ChildSpec{workerSpec("worker", Permanent)},
		RestartOneForOne, 5, time.Minute,
	), actor.SpawnOpts{})
	require.NoError(t, err)

	first := findRunning(t, sys, sup, "worker")

	err = actor.Send(sys, context.Background(), first.ActorID, crashMsg())
	require.NoError(t, err)

	// The restarted instance gets a brand new actor.ID.
	var second ChildSummary
	for i := 0; i < 50; i++ {
		for _, s := range whichChildren(t, sys, sup) {
			if s.ID == "worker" && s.Running && s.ActorID != first.ActorID {
				second = s
			}
		}
		if second.Running {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, second.Running, "worker must restart under a fresh actor.ID")
	assert.Equal(t, "pong", pingChild(t, sys, second.ActorID))
}

func TestFixedSupervisor_TemporaryChildNotRestarted(t *testing.T) {
	t.Parallel()

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys, NewFixedSupervisor(
		[]ChildSpec{workerSpec("worker", Temporary)},
		RestartOneForOne, 5, time.Minute,
	), actor.SpawnOpts{})
	require.NoError(t, err)

	first := findRunning(t, sys, sup, "worker")
	err = actor.Send(sys, context.Background(), first.ActorID, crashMsg())
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	for _, s := range whichChildren(t, sys, sup) {
		assert.NotEqual(t, ChildID("worker"), s.ID,
			"a temporary child must be removed from supervision, not restarted")
	}
}

// immediateCrashBehavior returns immediately with an abnormal reason,
// exercising the window between Spawn launching the runner goroutine and
// a supervisor's start-child call returning.
type immediateCrashBehavior struct{}

func (immediateCrashBehavior) Receive(*actor.Context[workerMsg]) actor.ExitReason {
	return actor.Custom(errBoom)
}

func newImmediateCrashBehavior() actor.Behavior[workerMsg] {
	return immediateCrashBehavior{}
}

func TestFixedSupervisor_ChildCrashingBeforeLinkStillRestarts(t *testing.T) {
	t.Parallel()

	spec := NewChildSpec[workerMsg, struct{}]("worker", Permanent,
		CloneArg(struct{}{}),
		func(struct{}) actor.Behavior[workerMsg] { return newImmediateCrashBehavior() })

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys, NewFixedSupervisor(
		[]ChildSpec{spec}, RestartOneForOne, 3, time.Minute,
	), actor.SpawnOpts{})
	require.NoError(t, err)

	// A child that crashes on its very first scheduling quantum races
	// any post-spawn Link call; the supervisor must still observe each
	// crash and restart, exhausting restart intensity rather than
	// silently dropping the child and staying up forever.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reason, err := sys.Wait(ctx, sup)
	require.NoError(t, err, "supervisor must exit once restart intensity is exceeded")
	assert.Equal(t, actor.ExitShutdown, reason.Kind())

	var intensityErr *RestartIntensityError
	require.ErrorAs(t, reason.ShutdownError(), &intensityErr)
	assert.Equal(t, ChildID("worker"), intensityErr.ChildID)
}

// fastAckBehavior reports its own init-ack before doing anything else,
// exercising the window between Spawn launching the runner goroutine and
// startChild's own AttachInitAck call.
type fastAckBehavior struct{}

func (fastAckBehavior) Receive(ctx *actor.Context[workerMsg]) actor.ExitReason {
	ctx.InitAckOK(ctx.Self())
	for {
		ev, ok := ctx.Next(context.Background())
		if !ok {
			return ctx.PendingReason()
		}
		if !ev.IsSignal && ev.Message.kind == workerPing {
			ev.Message.reply <- "pong"
		}
	}
}

func TestFixedSupervisor_FastInitAckIsNotLost(t *testing.T) {
	t.Parallel()

	spec := NewChildSpec[workerMsg, struct{}]("worker", Permanent,
		CloneArg(struct{}{}),
		func(struct{}) actor.Behavior[workerMsg] { return fastAckBehavior{} },
		WithInitAck(time.Second))

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys, NewFixedSupervisor(
		[]ChildSpec{spec}, RestartOneForOne, 3, time.Minute,
	), actor.SpawnOpts{})
	require.NoError(t, err)

	child := findRunning(t, sys, sup, "worker")
	assert.True(t, child.Running, "a child whose init-ack fires before "+
		"AttachInitAck is called must still be recorded as started")
	assert.Equal(t, "pong", pingChild(t, sys, child.ActorID))
}

func TestMixedSupervisor_StartAndTerminateChild(t *testing.T) {
	t.Parallel()

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys,
		NewMixedSupervisor(RestartOneForOne, 3, time.Minute),
		actor.SpawnOpts{})
	require.NoError(t, err)

	startReply := make(chan StartChildResult, 1)
	err = actor.Send(sys, context.Background(), sup,
		StartChild(workerSpec("dynamic", Permanent), startReply))
	require.NoError(t, err)

	var result StartChildResult
	select {
	case result = <-startReply:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for start-child reply")
	}
	require.NoError(t, result.Err)
	assert.Equal(t, "pong", pingChild(t, sys, result.ID))

	stopReply := make(chan error, 1)
	err = actor.Send(sys, context.Background(), sup, TerminateChild("dynamic", stopReply))
	require.NoError(t, err)

	select {
	case err = <-stopReply:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminate-child reply")
	}

	summaries := whichChildren(t, sys, sup)
	for _, s := range summaries {
		assert.NotEqual(t, ChildID("dynamic"), s.ID)
	}
}

func TestMixedSupervisor_UnknownChildTerminate(t *testing.T) {
	t.Parallel()

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys,
		NewMixedSupervisor(RestartOneForOne, 3, time.Minute),
		actor.SpawnOpts{})
	require.NoError(t, err)

	stopReply := make(chan error, 1)
	err = actor.Send(sys, context.Background(), sup, TerminateChild("missing", stopReply))
	require.NoError(t, err)

	select {
	case err = <-stopReply:
		assert.ErrorIs(t, err, ErrUnknownChild)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for terminate-child reply")
	}
}

func TestUniformSupervisor_StartAndStop(t *testing.T) {
	t.Parallel()

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys,
		NewUniformSupervisor(func(struct{}) actor.Behavior[workerMsg] {
			return newWorkerBehavior()
		}),
		actor.SpawnOpts{})
	require.NoError(t, err)

	startReply := make(chan StartChildResult, 1)
	err = actor.Send(sys, context.Background(), sup,
		StartUniformChild[struct{}](struct{}{}, startReply))
	require.NoError(t, err)

	var result StartChildResult
	select {
	case result = <-startReply:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for start reply")
	}
	require.NoError(t, result.Err)
	assert.Equal(t, "pong", pingChild(t, sys, result.ID))

	stopReply := make(chan error, 1)
	err = actor.Send(sys, context.Background(), sup,
		StopUniformChild[struct{}](result.ID, stopReply))
	require.NoError(t, err)

	select {
	case err = <-stopReply:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stop reply")
	}

	_, waitErr := sys.Wait(context.Background(), result.ID)
	assert.NoError(t, waitErr)
}

func TestUniformSupervisor_DoesNotAutoRestartCrashedChild(t *testing.T) {
	t.Parallel()

	sys := actor.NewSystemWithDefaults()
	sup, err := actor.Spawn(sys,
		NewUniformSupervisor(func(struct{}) actor.Behavior[workerMsg] {
			return newWorkerBehavior()
		}),
		actor.SpawnOpts{})
	require.NoError(t, err)

	startReply := make(chan StartChildResult, 1)
	err = actor.Send(sys, context.Background(), sup,
		StartUniformChild[struct{}](struct{}{}, startReply))
	require.NoError(t, err)
	result := <-startReply
	require.NoError(t, result.Err)

	err = actor.Send(sys, context.Background(), result.ID, crashMsg())
	require.NoError(t, err)

	reason, waitErr := sys.Wait(context.Background(), result.ID)
	require.NoError(t, waitErr)
	assert.Equal(t, actor.ExitCustom, reason.Kind())

	// A uniform supervisor never restarts on its own; give it a beat to
	// prove nothing comes back up in the crashed child's place.
	time.Sleep(50 * time.Millisecond)
	reply := make(chan string, 1)
	sendErr := actor.Send(sys, context.Background(), result.ID, pingMsg(reply))
	assert.Error(t, sendErr, "the crashed actor.ID must not resolve to a replacement")
}
