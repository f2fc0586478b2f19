package actor

import "github.com/btcsuite/btclog/v2"

// log is the package-wide logger used by the actor runtime. It defaults to a
// no-op logger so the package is silent until a caller installs its own via
// UseLogger, matching the lnd-style per-subsystem logger convention.
var log btclog.Logger = btclog.Disabled

// UseLogger sets the package-wide logger used by the actor runtime. Callers
// that want the runtime's debug/trace output (actor start/stop, mailbox
// close, link bookkeeping) should call this once during process
// initialization, before any System is created.
func UseLogger(logger btclog.Logger) {
	log = logger
}
