// Package commands implements actorctl's cobra command tree, grounded on
// the teacher's cmd/substrate/commands layout (a package-level rootCmd,
// one file per command, Execute called from main).
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// dbPath is the SQLite database used by the audit store.
	dbPath string

	// adminAddr is the admin HTTP server's listen address.
	adminAddr string

	// logDir is the directory rotated log files are written to.
	logDir string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "actorctl",
	Short: "Control and inspect an actor system",
	Long: `actorctl runs an actor system's admin surface and provides
commands for inspecting its live actors and restart history.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dbPath, "db", "~/.actorctl/audit.db",
		"Path to the audit SQLite database",
	)
	rootCmd.PersistentFlags().StringVar(
		&adminAddr, "admin-addr", ":8090",
		"Admin HTTP server listen address",
	)
	rootCmd.PersistentFlags().StringVar(
		&logDir, "log-dir", "",
		"Directory for rotated log files (empty disables file logging)",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(actorsCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}
