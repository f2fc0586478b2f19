package build

import (
	"os"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// LoggingConfig configures the dual-stream (console + rotating file)
// logging setup shared by cmd/actorctl's daemon commands.
type LoggingConfig struct {
	// LogDir is the directory rotated log files are written to. Empty
	// disables file logging; only the console handler is installed.
	LogDir string

	MaxLogFiles    int
	MaxLogFileSize int
}

// SubsystemLogger is satisfied by every package that exposes the
// btclog per-package UseLogger convention (actor, supervisor).
type SubsystemLogger func(logger btclogv2.Logger)

// SetupLoggers builds the combined console/file handler described by cfg
// and installs a prefixed logger into each of the given subsystems, e.g.:
//
//	build.SetupLoggers(cfg, map[string]build.SubsystemLogger{
//	    "ACTR": actor.UseLogger,
//	    "SUPV": supervisor.UseLogger,
//	})
//
// It returns the RotatingLogWriter so the caller can defer its Close, or
// nil if file logging was not enabled.
func SetupLoggers(cfg LoggingConfig,
	subsystems map[string]SubsystemLogger) (*RotatingLogWriter, error) {

	var logRotator *RotatingLogWriter
	if cfg.LogDir != "" {
		logRotator = NewRotatingLogWriter()
		if err := logRotator.InitLogRotator(&LogRotatorConfig{
			LogDir:         cfg.LogDir,
			MaxLogFiles:    cfg.MaxLogFiles,
			MaxLogFileSize: cfg.MaxLogFileSize,
		}); err != nil {
			return nil, err
		}
	}

	var handlers []btclogv2.Handler
	handlers = append(handlers, btclog.NewDefaultHandler(os.Stderr))
	if logRotator != nil {
		handlers = append(handlers, btclog.NewDefaultHandler(logRotator))
	}

	combined := NewHandlerSet(handlers...)
	base := btclog.NewSLogger(combined)

	for tag, useLogger := range subsystems {
		useLogger(base.WithPrefix(tag))
	}

	return logRotator, nil
}
