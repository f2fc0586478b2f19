// Package auditstore persists a record of every actor's completed exit
// reason to SQLite, via golang-migrate and mattn/go-sqlite3, grounded on
// the teacher's internal/db package. This is distinct from the runtime's
// mailbox storage (spec.md's non-goals explicitly rule out persisting
// live mailbox contents): by the time a record lands here the actor has
// already terminated and its mailbox no longer exists.
package auditstore

import "embed"

// sqlMigrations is the embedded set of SQL migration files applied on
// startup.
//
//go:embed migrations/*.sql
var sqlMigrations embed.FS
