package supervisor

import (
	"errors"
	"fmt"
	"time"

	"github.com/roasbeef/agner/actor"
)

// DefaultInitAckTimeout bounds how long a start-child protocol waits for
// a child's InitAckOK before giving up, per spec.md §4.3's init-ack
// handshake (no figure is named there; 5s matches the teacher's
// CleanupTimeout default and the spec's own default shutdown-sequence
// step duration).
const DefaultInitAckTimeout = 5 * time.Second

// ErrArgsExhausted is returned by a start-child attempt whose ArgFactory
// has no more arguments to produce (e.g. a Unique factory invoked twice).
var ErrArgsExhausted = errors.New("supervisor: argument factory exhausted")

// ErrInitAckTimeout is returned when a child does not report InitAckOK
// within its configured timeout.
var ErrInitAckTimeout = errors.New("supervisor: init-ack timeout")

// ErrMaxRestartIntensity is the source error wrapped in the
// ExitReason a supervisor terminates itself with once its restart
// intensity window is exceeded, per spec.md §4.6.
var ErrMaxRestartIntensity = errors.New("supervisor: max restart intensity reached")

// ErrUnknownChild is returned when an operation names a ChildID the
// supervisor has no record of.
var ErrUnknownChild = errors.New("supervisor: unknown child")

// RestartIntensityError wraps ErrMaxRestartIntensity with the child and
// triggering exit that tipped the window over, so an operator reading the
// supervisor's own shutdown reason can diagnose the crash loop without
// digging through logs.
type RestartIntensityError struct {
	ChildID   ChildID
	LastError actor.ExitReason
}

func (e *RestartIntensityError) Error() string {
	return fmt.Sprintf("%s: child=%s last_error=%s",
		ErrMaxRestartIntensity, e.ChildID, e.LastError)
}

func (e *RestartIntensityError) Unwrap() error {
	return ErrMaxRestartIntensity
}
