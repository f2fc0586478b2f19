package supervisor

import (
	"time"

	"github.com/roasbeef/agner/actor"
)

// NewFixedSupervisor creates a supervisor whose initial child list is
// given at construction time (spec.md §4.8): specs are all queued for
// start before the first event loop iteration, and a mixed supervisor's
// restart decider governs their lifecycle thereafter. The returned
// behavior is a mixed supervisor's: StartChild and TerminateChild
// commands are not rejected and change its set of children exactly as
// they do for NewMixedSupervisor. WhichChildren works the same way too.
func NewFixedSupervisor(specs []ChildSpec, restartType RestartType,
	maxRestarts int, within time.Duration) actor.Behavior[Command] {

	b := &mixedBehavior{
		decider:      NewDecider(restartType, maxRestarts, within),
		pendingStart: make(map[ChildID]chan<- StartChildResult),
		pendingStop:  make(map[ChildID]chan<- error),
	}
	for _, spec := range specs {
		b.decider.AddChild(spec)
	}
	return b
}
