/*
store.go - Document store interface consumed by the engine

PURPOSE:
  Defines the narrow interface between the ledger and the external
  append-only, bitemporal document store. Different implementations can
  target SQLite, an in-memory store, or a remote document database.

APPEND-ONLY CONTRACT:
  - Commit(): The ONLY write operation. Atomic multi-document append.
  - No Update() or Delete() methods exist. A "mutation" is a new version
    of a document; prior versions remain readable via History().

COMPARE-AND-SWAP:
  Every Put carries a version expectation. The engine conditions account
  mutations on the version it read, so two concurrent writers cannot both
  commit against the same stale balance. A mismatch fails the whole
  write-set with ErrVersionConflict and nothing is written.

IMPLEMENTATIONS:
  - ledger/docstore/memory.go: In-memory, for tests and dev
  - store/sqlite/sqlite.go:    SQLite-backed, versioned rows

SEE ALSO:
  - engine.go: Builds write-sets against this interface
  - history.go: Reads History() and Query() results
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// DOCUMENTS
// =============================================================================

// Document is the raw store representation of an entity. Values are limited
// to string and int64 so every backend round-trips them identically.
type Document map[string]any

// Entry is one stored version of a document. Version starts at 1 and
// increases by 1 per committed version of the same id. TxTime is the
// transaction time the store assigned to the commit.
type Entry struct {
	Doc     Document
	Version int64
	TxTime  time.Time
}

// Version expectations for Put.
const (
	// ExpectAny skips the version check for this put.
	ExpectAny int64 = -1
	// ExpectAbsent requires that no document exists for the id.
	ExpectAbsent int64 = 0
)

// Put is one document in a write-set, with its version expectation:
// ExpectAny, ExpectAbsent, or a positive version that must equal the
// current head version of the document.
type Put struct {
	Doc    Document
	Expect int64
}

// =============================================================================
// QUERIES
// =============================================================================

// Clause is an equality condition on a document field.
type Clause struct {
	Field string
	Value any
}

// Query selects current documents by kind and field equality. Results are
// document ids in store-defined order; callers impose their own ordering.
type Query struct {
	Kind  string
	Where []Clause
}

// =============================================================================
// DOC STORE - Interface for the external document store
// =============================================================================

// DocStore is the ledger's view of the document store. It is the only
// shared mutable resource in the system; the engine holds no state of
// its own. Implementations must be safe for concurrent use.
type DocStore interface {
	// Commit appends all puts as one atomic transaction. Either every
	// document version is written or none is. Returns the transaction
	// time assigned to the commit, strictly monotonic per store.
	// Fails with ErrVersionConflict if any put's expectation does not
	// match the current head.
	Commit(ctx context.Context, puts []Put) (time.Time, error)

	// Get returns the current version of the document, or ErrNoDocument.
	Get(ctx context.Context, id string) (Entry, error)

	// History returns every version of the document with its body and
	// transaction time, newest first. Empty if the id never existed.
	History(ctx context.Context, id string) ([]Entry, error)

	// Query returns the ids of current documents matching q.
	Query(ctx context.Context, q Query) ([]string, error)
}
