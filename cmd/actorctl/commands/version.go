package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roasbeef/agner/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("actorctl version %s", build.Version())
	if build.Commit != "" {
		fmt.Printf(" commit=%s", build.Commit)
	}
	if build.GoVersion != "" {
		fmt.Printf(" go=%s", build.GoVersion)
	}
	fmt.Println()
}
