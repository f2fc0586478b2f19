package auditstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roasbeef/agner/actor"
)

const (
	defaultMaxConns        = 25
	defaultConnMaxLifetime = 10 * time.Minute
)

// Config holds the configuration needed to open a Store.
type Config struct {
	// DatabaseFileName is the full path of the SQLite database file.
	DatabaseFileName string
}

// Store persists terminated-actor records, per spec.md §7's logging
// exit-handler extended to a durable sink.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at
// cfg.DatabaseFileName, applies migrations, and returns a ready Store.
func Open(cfg Config) (*Store, error) {
	dir := filepath.Dir(cfg.DatabaseFileName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		cfg.DatabaseFileName,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxConns)
	db.SetMaxIdleConns(defaultMaxConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one terminated-actor row. It is safe to use directly as
// the body of an actor.ExitHandler via Store.ExitHandler.
func (s *Store) Record(ctx context.Context, id actor.ID, behaviour,
	msgType string, reason actor.ExitReason) error {

	detail := ""
	switch reason.Kind() {
	case actor.ExitShutdown:
		if err := reason.ShutdownError(); err != nil {
			detail = err.Error()
		}
	case actor.ExitCustom:
		if err := reason.CustomError(); err != nil {
			detail = err.Error()
		}
	case actor.ExitLinked:
		detail = fmt.Sprintf("from=%s reason=%s", reason.LinkedOrigin(),
			reason.LinkedReason().Kind())
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO terminated_actors
			(id, sys, slot, seq, behaviour, message_type,
			 exit_kind, detail, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), id.Sys, id.Slot, id.Seq, behaviour, msgType,
		reason.Kind().String(), detail, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording terminated actor %s: %w", id, err)
	}
	return nil
}

// ExitHandler adapts the Store into an actor.ExitHandler, so every
// terminated actor is recorded automatically. Recording errors are
// discarded: ExitHandler has no return path to report them, matching the
// actor.ExitHandler interface.
func (s *Store) ExitHandler() actor.ExitHandler {
	return actor.ExitHandlerFunc(func(info actor.ExitInfo) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Record(ctx, info.ID, info.Behaviour, info.MessageType, info.Reason)
	})
}

// TerminatedRecord is one row read back from the audit store.
type TerminatedRecord struct {
	ActorID     string
	Behaviour   string
	MessageType string
	ExitKind    string
	Detail      string
	FinishedAt  time.Time
}

// Recent returns the most recently terminated actors, newest first,
// bounded by limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]TerminatedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, behaviour, message_type, exit_kind, detail, finished_at
		FROM terminated_actors
		ORDER BY finished_at DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying terminated actors: %w", err)
	}
	defer rows.Close()

	var out []TerminatedRecord
	for rows.Next() {
		var (
			rec        TerminatedRecord
			finishedAt int64
		)
		if err := rows.Scan(&rec.ActorID, &rec.Behaviour, &rec.MessageType,
			&rec.ExitKind, &rec.Detail, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning terminated actor row: %w", err)
		}
		rec.FinishedAt = time.Unix(finishedAt, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
