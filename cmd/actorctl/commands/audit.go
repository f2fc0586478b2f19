package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roasbeef/agner/internal/auditstore"
)

var auditTailLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the terminated-actor audit log",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recently terminated actors",
	RunE:  runAuditTail,
}

func init() {
	auditTailCmd.Flags().IntVar(&auditTailLimit, "limit", 20,
		"Number of records to show")
	auditCmd.AddCommand(auditTailCmd)
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	store, err := auditstore.Open(auditstore.Config{
		DatabaseFileName: expandHome(dbPath),
	})
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), auditTailLimit)
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Printf("%s  %-20s %-12s %-10s %s\n",
			rec.FinishedAt.Format("2006-01-02T15:04:05Z"),
			rec.ActorID, rec.Behaviour, rec.ExitKind, rec.Detail)
	}
	return nil
}
