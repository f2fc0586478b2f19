package actor

// sysMsgKind enumerates the lifecycle commands the system registry and
// peer actors deliver to an actor's system-message inbox, per spec.md
// §4.3/§4.4.
type sysMsgKind int

const (
	sysLink sysMsgKind = iota
	sysUnlink
	sysExit
	sysWait
	sysTrapExit
)

// sysMsg is one entry on an actor's system-message inbox. Only the fields
// relevant to kind are populated.
type sysMsg struct {
	kind sysMsgKind

	// peer is the other actor involved in a Link/Unlink command.
	peer ID

	// from/reason carry the origin and reason of an Exit command.
	from   ID
	reason ExitReason

	// waiter receives a clone of the final exit reason for a Wait
	// command, once the actor terminates.
	waiter chan<- ExitReason

	// trap is the new trap-exit flag value for a TrapExit command.
	trap bool

	// ack, if non-nil, is closed once the command has been applied,
	// letting a synchronous caller (e.g. System.TrapExit) know the
	// runner's state actually changed before proceeding.
	ack chan<- struct{}
}
