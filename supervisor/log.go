// Package supervisor implements the OTP-style restart strategies of
// spec.md §4.5-§4.8 on top of the actor package: a supervisor is itself
// an actor whose behavior drives a pull-based restart decider instead of
// reacting to messages one at a time.
package supervisor

import "github.com/btcsuite/btclog/v2"

// log is this package's subsystem logger, installed via UseLogger.
// Disabled by default, matching the teacher's per-package logging idiom.
var log btclog.Logger = btclog.Disabled

// UseLogger installs logger as this package's subsystem logger.
func UseLogger(logger btclog.Logger) {
	log = logger
}
