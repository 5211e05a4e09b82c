/*
Package sqlite provides a SQLite-backed implementation of ledger.DocStore.

PURPOSE:
  Implements the append-only, bitemporal document store contract on top of
  SQLite. Documents are stored as JSON bodies in a versioned table; the
  current version of each document is tracked in a heads table.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on document_versions
  - No DELETE statements anywhere
  - A "mutation" inserts a new (doc_id, version) row and moves the head

KEY TABLES:
  document_versions: Every version of every document, with its tx time
  document_heads:    Current version pointer per document

COMPARE-AND-SWAP:
  Commit checks each put's version expectation against document_heads
  inside the same SQLite transaction that writes the new versions, so a
  conflicting put rolls back the whole write-set.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging): readers don't
  block, a single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store)

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/docstore/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/ledger-engine/ledger"
)

const txTimeLayout = time.RFC3339Nano

// Store implements ledger.DocStore using SQLite.
type Store struct {
	db *sql.DB

	// mu serializes commits: SQLite allows one writer at a time, and the
	// monotonic tx-time guard needs the same ordering.
	mu     sync.Mutex
	lastTx time.Time
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer, and ":memory:"
	// databases exist per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Every committed version of every document (append-only)
	CREATE TABLE IF NOT EXISTS document_versions (
		doc_id  TEXT NOT NULL,
		version INTEGER NOT NULL,
		kind    TEXT NOT NULL,
		body    TEXT NOT NULL,
		tx_time TEXT NOT NULL,
		PRIMARY KEY (doc_id, version)
	);

	-- Current version pointer per document
	CREATE TABLE IF NOT EXISTS document_heads (
		doc_id  TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		kind    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_document_heads_kind ON document_heads(kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DOC STORE IMPLEMENTATION
// =============================================================================

// Commit appends all puts as one SQLite transaction. Either every version
// row is written or none is.
func (s *Store) Commit(ctx context.Context, puts []ledger.Put) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	txTime := s.nextTxTimeLocked()

	for _, put := range puts {
		if err := s.applyPut(ctx, tx, put, txTime); err != nil {
			return time.Time{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("commit write-set: %w", err)
	}
	return txTime, nil
}

func (s *Store) applyPut(ctx context.Context, tx *sql.Tx, put ledger.Put, txTime time.Time) error {
	id, ok := put.Doc[ledger.FieldID].(string)
	if !ok || id == "" {
		return fmt.Errorf("document has no id field")
	}
	kind, _ := put.Doc[ledger.FieldKind].(string)

	var current int64
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM document_heads WHERE doc_id = ?`, id).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read head for %s: %w", id, err)
	}

	switch put.Expect {
	case ledger.ExpectAny:
	case ledger.ExpectAbsent:
		if current != 0 {
			return ledger.ErrVersionConflict
		}
	default:
		if current != put.Expect {
			return ledger.ErrVersionConflict
		}
	}

	body, err := json.Marshal(put.Doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", id, err)
	}

	next := current + 1
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO document_versions (doc_id, version, kind, body, tx_time) VALUES (?, ?, ?, ?, ?)`,
		id, next, kind, string(body), txTime.Format(txTimeLayout)); err != nil {
		return fmt.Errorf("append version for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO document_heads (doc_id, version, kind) VALUES (?, ?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET version = excluded.version, kind = excluded.kind`,
		id, next, kind); err != nil {
		return fmt.Errorf("move head for %s: %w", id, err)
	}
	return nil
}

// Get returns the current version of the document.
func (s *Store) Get(ctx context.Context, id string) (ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT v.body, v.version, v.tx_time
		FROM document_heads h
		JOIN document_versions v ON v.doc_id = h.doc_id AND v.version = h.version
		WHERE h.doc_id = ?`, id)

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return ledger.Entry{}, ledger.ErrNoDocument
	}
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return entry, nil
}

// History returns every version of the document, newest first.
func (s *Store) History(ctx context.Context, id string) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body, version, tx_time
		FROM document_versions
		WHERE doc_id = ?
		ORDER BY version DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", id, err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("load history for %s: %w", id, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Query returns the ids of current documents matching q. Equality clauses
// are evaluated with json_extract against the head version's body.
func (s *Store) Query(ctx context.Context, q ledger.Query) ([]string, error) {
	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "h.kind = ?")
		args = append(args, q.Kind)
	}
	for _, c := range q.Where {
		if !validField(c.Field) {
			return nil, fmt.Errorf("invalid query field %q", c.Field)
		}
		where = append(where, fmt.Sprintf("json_extract(v.body, '$.%s') = ?", c.Field))
		args = append(args, c.Value)
	}

	query := `
		SELECT h.doc_id
		FROM document_heads h
		JOIN document_versions v ON v.doc_id = h.doc_id AND v.version = h.version`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("query documents: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// INTERNALS
// =============================================================================

// nextTxTimeLocked keeps transaction times strictly monotonic even when
// two commits land within clock resolution.
func (s *Store) nextTxTimeLocked() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastTx) {
		now = s.lastTx.Add(time.Nanosecond)
	}
	s.lastTx = now
	return now
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (ledger.Entry, error) {
	var (
		body    string
		version int64
		rawTime string
	)
	if err := row.Scan(&body, &version, &rawTime); err != nil {
		return ledger.Entry{}, err
	}

	doc, err := decodeBody(body)
	if err != nil {
		return ledger.Entry{}, err
	}
	txTime, err := time.Parse(txTimeLayout, rawTime)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("bad tx_time %q: %w", rawTime, err)
	}
	return ledger.Entry{Doc: doc, Version: version, TxTime: txTime}, nil
}

// decodeBody unmarshals a JSON body back into a Document, restoring the
// string/int64 value contract (encoding/json alone would produce float64).
func decodeBody(body string) (ledger.Document, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document body: %w", err)
	}

	doc := make(ledger.Document, len(raw))
	for k, v := range raw {
		if num, ok := v.(json.Number); ok {
			n, err := num.Int64()
			if err != nil {
				return nil, fmt.Errorf("field %q: non-integer number %q", k, num)
			}
			doc[k] = n
			continue
		}
		doc[k] = v
	}
	return doc, nil
}

var fieldNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func validField(field string) bool {
	return fieldNamePattern.MatchString(field)
}
