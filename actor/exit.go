package actor

import "fmt"

// ExitKind enumerates the tagged variants of ExitReason described in
// spec.md §3.
type ExitKind int

const (
	// ExitNormal is clean, unremarkable completion.
	ExitNormal ExitKind = iota

	// ExitKill is unconditional and never trappable.
	ExitKill

	// ExitShutdown is a planned stop, optionally carrying a source
	// error.
	ExitShutdown

	// ExitLinked is propagated from a linked actor's termination.
	ExitLinked

	// ExitNoActor means the operation's target had no live entry.
	ExitNoActor

	// ExitBackendFailure is a runtime-internal failure: inbox overflow
	// or a closed channel.
	ExitBackendFailure

	// ExitCustom is a domain-specific error surfaced by the behavior.
	ExitCustom
)

// String implements fmt.Stringer for debug output and logging.
func (k ExitKind) String() string {
	switch k {
	case ExitNormal:
		return "normal"
	case ExitKill:
		return "kill"
	case ExitShutdown:
		return "shutdown"
	case ExitLinked:
		return "linked"
	case ExitNoActor:
		return "no_actor"
	case ExitBackendFailure:
		return "backend_failure"
	case ExitCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// BackendFailureKind distinguishes the two runtime-internal failure modes
// that can terminate an actor.
type BackendFailureKind int

const (
	// InboxFull means a bounded mailbox rejected a blocking send because
	// the runner's own route into it from outside saturated.
	InboxFull BackendFailureKind = iota

	// ChannelClosed means an internal channel was found closed when the
	// runner expected it to be open.
	ChannelClosed
)

func (k BackendFailureKind) String() string {
	if k == InboxFull {
		return "inbox_full"
	}
	return "channel_closed"
}

// ExitReason is the tagged exit-reason variant of spec.md §3. It is a
// plain struct rather than an interface so that cloning it (as required
// whenever the reason is fanned out to multiple waiters or linked peers)
// is a cheap value copy; the wrapped error chain, if any, is shared by
// reference since errors are immutable once constructed.
type ExitReason struct {
	kind ExitKind

	// shutdownErr is the optional source error of an ExitShutdown.
	shutdownErr error

	// linkedFrom/linkedReason hold the origin and nested reason of an
	// ExitLinked.
	linkedFrom   ID
	linkedReason *ExitReason

	// backendKind is set when kind == ExitBackendFailure.
	backendKind BackendFailureKind

	// customErr is set when kind == ExitCustom.
	customErr error
}

// Normal returns the clean-completion exit reason.
func Normal() ExitReason { return ExitReason{kind: ExitNormal} }

// Kill returns the unconditional, non-trappable exit reason.
func Kill() ExitReason { return ExitReason{kind: ExitKill} }

// Shutdown returns a planned-stop exit reason with no source error.
func Shutdown() ExitReason { return ExitReason{kind: ExitShutdown} }

// ShutdownWithError returns a planned-stop exit reason carrying a source
// error, e.g. MaxRestartIntensityReached.
func ShutdownWithError(err error) ExitReason {
	return ExitReason{kind: ExitShutdown, shutdownErr: err}
}

// Linked returns an exit reason propagated from a linked peer's
// termination.
func Linked(from ID, reason ExitReason) ExitReason {
	cp := reason
	return ExitReason{kind: ExitLinked, linkedFrom: from, linkedReason: &cp}
}

// NoActor returns the exit reason used when an operation targets an ID
// with no live entry.
func NoActor() ExitReason { return ExitReason{kind: ExitNoActor} }

// BackendFailure returns a runtime-internal exit reason.
func BackendFailure(kind BackendFailureKind) ExitReason {
	return ExitReason{kind: ExitBackendFailure, backendKind: kind}
}

// Custom returns a domain-specific exit reason wrapping a behavior error.
func Custom(err error) ExitReason {
	return ExitReason{kind: ExitCustom, customErr: err}
}

// Kind returns the tagged variant.
func (e ExitReason) Kind() ExitKind { return e.kind }

// ShutdownError returns the optional source error of an ExitShutdown, or
// nil if there is none or e is not an ExitShutdown.
func (e ExitReason) ShutdownError() error { return e.shutdownErr }

// LinkedOrigin returns the actor whose termination this reason was
// propagated from, valid only when Kind() == ExitLinked.
func (e ExitReason) LinkedOrigin() ID { return e.linkedFrom }

// LinkedReason returns the nested reason that was propagated, valid only
// when Kind() == ExitLinked.
func (e ExitReason) LinkedReason() ExitReason {
	if e.linkedReason == nil {
		return ExitReason{}
	}
	return *e.linkedReason
}

// BackendFailureKind returns which runtime-internal failure occurred,
// valid only when Kind() == ExitBackendFailure.
func (e ExitReason) BackendFailureKind() BackendFailureKind {
	return e.backendKind
}

// CustomError returns the wrapped domain error, valid only when
// Kind() == ExitCustom.
func (e ExitReason) CustomError() error { return e.customErr }

// IsPropagating reports whether this reason should cascade to a linked
// peer that does not trap exits. Per spec.md §3/§4.3: Normal and
// Shutdown-without-source-error are non-propagating; everything else is.
// ExitLinked(_, Normal) is itself treated as planned/non-propagating (see
// DESIGN.md's resolution of the spec's noted Open Question on this
// point).
func (e ExitReason) IsPropagating() bool {
	switch e.kind {
	case ExitNormal:
		return false
	case ExitShutdown:
		return e.shutdownErr != nil
	case ExitLinked:
		return e.linkedReason != nil && e.linkedReason.IsPropagating()
	default:
		return true
	}
}

// Error implements the error interface so an ExitReason can be returned
// directly from call sites that expect a Go error (e.g. Behavior.Receive).
func (e ExitReason) Error() string {
	switch e.kind {
	case ExitShutdown:
		if e.shutdownErr != nil {
			return fmt.Sprintf("shutdown: %v", e.shutdownErr)
		}
		return "shutdown"
	case ExitLinked:
		return fmt.Sprintf("linked exit from %s: %v", e.linkedFrom,
			e.LinkedReason())
	case ExitBackendFailure:
		return fmt.Sprintf("backend failure: %s", e.backendKind)
	case ExitCustom:
		return fmt.Sprintf("custom: %v", e.customErr)
	default:
		return e.kind.String()
	}
}
