package commands

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roasbeef/agner/actor"
	"github.com/roasbeef/agner/internal/adminhttp"
	"github.com/roasbeef/agner/internal/auditstore"
	"github.com/roasbeef/agner/internal/build"
	"github.com/roasbeef/agner/supervisor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the actor system and its admin HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	dbPathExpanded := expandHome(dbPath)
	logDirExpanded := expandHome(logDir)

	logRotator, err := build.SetupLoggers(build.LoggingConfig{
		LogDir:         logDirExpanded,
		MaxLogFiles:    build.DefaultMaxLogFiles,
		MaxLogFileSize: build.DefaultMaxLogFileSize,
	}, map[string]build.SubsystemLogger{
		"ACTR": actor.UseLogger,
		"SUPV": supervisor.UseLogger,
	})
	if err != nil {
		log.Printf("failed to init log rotator: %v (continuing without file logging)", err)
	}
	if logRotator != nil {
		defer logRotator.Close()
	}

	store, err := auditstore.Open(auditstore.Config{DatabaseFileName: dbPathExpanded})
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer store.Close()

	sys := actor.NewSystemWithDefaults()

	admin := adminhttp.NewServer(sys, adminhttp.Config{
		Addr:         adminAddr,
		EnableEvents: true,
	})

	handlers := []actor.ExitHandler{actor.NewLoggingExitHandler(), store.ExitHandler()}
	if hub := admin.Hub(); hub != nil {
		handlers = append(handlers, hub.ExitHandler())
	}
	sys.SetExitHandler(actor.ChainExitHandlers(handlers...))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received %v, shutting down", sig)
		cancel()
	}()

	go func() {
		log.Printf("admin server listening on %s", adminAddr)
		if err := admin.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("admin server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := admin.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin server shutdown error: %v", err)
	}
	if err := sys.Shutdown(shutdownCtx); err != nil {
		log.Printf("actor system shutdown incomplete: %v", err)
	}
	return nil
}
