package actor

import "time"

const (
	// DefaultMessageInboxCapacity is the default bound on an actor's
	// message mailbox (spec.md §3/§6).
	DefaultMessageInboxCapacity = 1024

	// DefaultSignalInboxCapacity is the default bound on an actor's
	// signal mailbox (spec.md §3/§6).
	DefaultSignalInboxCapacity = 16

	// defaultSysInboxCapacity bounds the internal lifecycle-command
	// inbox. The spec does not name a specific figure for this queue
	// (it only specifies the message and signal inboxes); a small
	// capacity well above realistic link/unlink/exit fan-in is used so
	// a busy actor's own bookkeeping never contends with its message
	// throughput.
	defaultSysInboxCapacity = 32

	// DefaultCleanupTimeout bounds how long OnStop may run during
	// shutdown (matches the teacher's ActorConfig.CleanupTimeout
	// default of 5s).
	DefaultCleanupTimeout = 5 * time.Second
)

// SpawnOpts configures a single spawn call. The zero value is valid and
// resolves every field to its default.
type SpawnOpts struct {
	// MessageInboxCapacity bounds the message mailbox. Zero selects
	// DefaultMessageInboxCapacity.
	MessageInboxCapacity int

	// SignalInboxCapacity bounds the signal mailbox. Zero selects
	// DefaultSignalInboxCapacity.
	SignalInboxCapacity int

	// CleanupTimeout bounds Stoppable.OnStop during termination. Zero
	// selects DefaultCleanupTimeout.
	CleanupTimeout time.Duration

	// TrapExit sets the actor's initial trap-exit flag (default false).
	TrapExit bool

	// LinkTo names peers to link to before the actor's runner goroutine
	// starts, so the link is in place for both sides even if the new
	// actor crashes on its very first scheduling quantum. A supervisor
	// must use this instead of spawning and then calling System.Link
	// separately, which leaves a window in which a Permanent child can
	// terminate before the link exists and so never trigger a restart.
	LinkTo []ID

	// RequireInitAck pre-installs the init-ack channel before the
	// runner goroutine starts, so a caller that calls Context.InitAckOK
	// immediately cannot race ahead of a separate, later AttachInitAck
	// call and have its ack silently dropped. A supervisor waiting on
	// an init-ack must set this instead of calling AttachInitAck only
	// after Spawn returns.
	RequireInitAck bool
}

func (o SpawnOpts) withDefaults() SpawnOpts {
	if o.MessageInboxCapacity <= 0 {
		o.MessageInboxCapacity = DefaultMessageInboxCapacity
	}
	if o.SignalInboxCapacity <= 0 {
		o.SignalInboxCapacity = DefaultSignalInboxCapacity
	}
	if o.CleanupTimeout <= 0 {
		o.CleanupTimeout = DefaultCleanupTimeout
	}
	return o
}
