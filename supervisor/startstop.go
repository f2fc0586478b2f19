package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/roasbeef/agner/actor"
)

// startChild runs the start-child protocol of spec.md §4.5: spawn with a
// link to linkTo already in place, then (if requested) wait for the
// child's init-ack, reporting whichever actor.ID the child itself asks to
// be recorded under (ordinarily its own, occasionally a delegate's, for a
// proxy/worker split). Blocking; callers run it from its own goroutine and
// fold the result back into the supervisor's mailbox.
//
// The link is established inside spec.start, before the child's runner
// goroutine starts, so a child that crashes on its very first scheduling
// quantum is still linked and so still triggers a restart instead of
// silently vanishing.
func startChild(sys *actor.System, spec ChildSpec, linkTo actor.ID) (actor.ID, error) {
	id, err := spec.start(sys, linkTo)
	if err != nil {
		return actor.ID{}, err
	}

	if spec.argsTypeName != "" {
		actor.SetArgsType(sys, id, spec.argsTypeName)
	}

	if !spec.RequireInitAck {
		return id, nil
	}

	ch, ok := actor.AttachInitAck(sys, id)
	if !ok {
		// Already gone by the time we asked; report it. The link made
		// at spawn delivers its exit to the supervisor.
		return id, nil
	}

	timeout := spec.InitAckTimeout
	if timeout <= 0 {
		timeout = DefaultInitAckTimeout
	}

	select {
	case reported := <-ch:
		return reported, nil
	case <-time.After(timeout):
		log.WarnS(context.Background(), "child init-ack timed out, "+
			"running shutdown sequence", ErrInitAckTimeout,
			"actor_id", id.String(), "timeout", timeout)
		stopChild(sys, id, spec.Shutdown)
		return actor.ID{}, ErrInitAckTimeout
	}
}

// stopChild runs the stop-child/shutdown-sequence protocol of
// spec.md §4.5: issue each step's exit reason in turn, waiting up to its
// timeout for termination before escalating to the next step. Blocking;
// always returns, falling back to an unconditional Kill if every step in
// seq elapses without the child terminating.
func stopChild(sys *actor.System, id actor.ID, seq ShutdownSequence) actor.ExitReason {
	if len(seq) == 0 {
		seq = DefaultShutdownSequence()
	}

	for _, step := range seq {
		if err := sys.Exit(id, step.Reason); err != nil {
			// Already gone.
			return actor.NoActor()
		}

		ctx, cancel := context.WithTimeout(context.Background(), step.Timeout)
		reason, err := sys.Wait(ctx, id)
		cancel()
		if err == nil {
			return reason
		}

		log.DebugS(context.Background(), "child did not terminate within "+
			"shutdown step, escalating", "actor_id", id.String(),
			"reason", step.Reason.Kind().String(), "timeout", step.Timeout)
	}

	log.WarnS(context.Background(), "child ignored full shutdown "+
		"sequence, killing unconditionally",
		fmt.Errorf("shutdown sequence exhausted for %s", id),
		"actor_id", id.String())
	_ = sys.Exit(id, actor.Kill())
	reason, _ := sys.Wait(context.Background(), id)
	return reason
}
