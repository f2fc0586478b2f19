package actor

import "context"

// ExitInfo is the record passed to an ExitHandler for one terminated
// actor: its final reason plus the type names captured at spawn time
// (the entry itself is gone by the time Handle runs).
type ExitInfo struct {
	ID          ID
	Reason      ExitReason
	Behaviour   string
	MessageType string
}

// ExitHandler is the process-wide, pluggable strategy invoked for every
// actor that terminates, per spec.md §7. Unlike the teacher's dead-letter
// office (which stores undeliverable messages), this observes completed
// lifecycles: it never sees mailbox contents, live or otherwise.
type ExitHandler interface {
	// Handle is called once per terminated actor, after its watchers have
	// already been notified.
	Handle(info ExitInfo)
}

// loggingExitHandler is the default ExitHandler: it logs every non-Normal,
// non-planned-Shutdown exit at warn level and the rest at debug level, matching
// the teacher's DLO default of logging-and-dropping.
type loggingExitHandler struct{}

// NewLoggingExitHandler returns the default ExitHandler.
func NewLoggingExitHandler() ExitHandler {
	return loggingExitHandler{}
}

func (loggingExitHandler) Handle(info ExitInfo) {
	if !info.Reason.IsPropagating() {
		log.DebugS(context.Background(), "actor exited",
			"actor_id", info.ID.String(),
			"reason", info.Reason.Kind().String())
		return
	}
	log.WarnS(context.Background(), "actor exited abnormally", info.Reason,
		"actor_id", info.ID.String(),
		"reason", info.Reason.Kind().String())
}

// ExitHandlerFunc adapts a plain function into an ExitHandler.
type ExitHandlerFunc func(info ExitInfo)

func (f ExitHandlerFunc) Handle(info ExitInfo) {
	f(info)
}

// ChainExitHandlers returns an ExitHandler that invokes each of handlers
// in order, for processes that want to combine e.g. logging, an admin
// event stream, and durable audit storage.
func ChainExitHandlers(handlers ...ExitHandler) ExitHandler {
	return ExitHandlerFunc(func(info ExitInfo) {
		for _, h := range handlers {
			h.Handle(info)
		}
	})
}

// SilentExitHandler ignores every exit. Useful for tests that assert on
// Wait results directly and don't want exit-handler log noise.
func SilentExitHandler() ExitHandler {
	return ExitHandlerFunc(func(ExitInfo) {})
}
