// Package sqlite provides a SQLite-based implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database connection backs:
//
//   - DocumentStore: document records keyed by (owner, id)
//   - SummaryStore: one summary per (owner, document)
//   - IndexStore: serialised vector index plus chunk list, written in one transaction
//   - ConversationStore: expiring chat history blobs
//
// # Schema
//
// The schema is managed through numbered migrations embedded from the
// migrations/ directory (NNN_name.up.sql). Applied versions are recorded in
// schema_migrations.
//
// # Data Location
//
// The database is stored at <data dir>/metadata.db, by default ~/.docqa/data/metadata.db.
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
