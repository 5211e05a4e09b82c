// Package docstore provides an in-memory DocStore implementation.
package docstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an append-only, versioned document store held in process
// memory. It mirrors the semantics of the SQLite store: atomic write-sets,
// compare-and-swap expectations, full version history, strictly monotonic
// transaction times.
type Memory struct {
	mu       sync.RWMutex
	versions map[string][]ledger.Entry // oldest first
	lastTx   time.Time

	// Clock supplies transaction times. Overridable in tests.
	Clock func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		versions: make(map[string][]ledger.Entry),
		Clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Commit appends all puts atomically. Expectations are checked before
// anything is written, so a conflict on any put leaves the store untouched.
func (m *Memory) Commit(_ context.Context, puts []ledger.Put) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all expectations first (atomic check)
	for _, put := range puts {
		id, err := docID(put.Doc)
		if err != nil {
			return time.Time{}, err
		}
		if err := m.checkExpectLocked(id, put.Expect); err != nil {
			return time.Time{}, err
		}
	}

	txTime := m.nextTxTimeLocked()
	for _, put := range puts {
		id, _ := docID(put.Doc)
		m.versions[id] = append(m.versions[id], ledger.Entry{
			Doc:     copyDoc(put.Doc),
			Version: int64(len(m.versions[id])) + 1,
			TxTime:  txTime,
		})
	}
	return txTime, nil
}

func (m *Memory) Get(_ context.Context, id string) (ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.versions[id]
	if len(versions) == 0 {
		return ledger.Entry{}, ledger.ErrNoDocument
	}
	head := versions[len(versions)-1]
	head.Doc = copyDoc(head.Doc)
	return head, nil
}

func (m *Memory) History(_ context.Context, id string) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	versions := m.versions[id]
	result := make([]ledger.Entry, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- { // newest first
		entry := versions[i]
		entry.Doc = copyDoc(entry.Doc)
		result = append(result, entry)
	}
	return result, nil
}

func (m *Memory) Query(_ context.Context, q ledger.Query) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, versions := range m.versions {
		head := versions[len(versions)-1].Doc
		if q.Kind != "" && head[ledger.FieldKind] != q.Kind {
			continue
		}
		if matchesClauses(head, q.Where) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

func (m *Memory) checkExpectLocked(id string, expect int64) error {
	current := int64(len(m.versions[id]))
	switch expect {
	case ledger.ExpectAny:
		return nil
	case ledger.ExpectAbsent:
		if current != 0 {
			return ledger.ErrVersionConflict
		}
	default:
		if current != expect {
			return ledger.ErrVersionConflict
		}
	}
	return nil
}

// nextTxTimeLocked keeps transaction times strictly monotonic even when the
// clock resolution cannot separate two commits.
func (m *Memory) nextTxTimeLocked() time.Time {
	now := m.Clock()
	if !now.After(m.lastTx) {
		now = m.lastTx.Add(time.Nanosecond)
	}
	m.lastTx = now
	return now
}

func docID(doc ledger.Document) (string, error) {
	id, ok := doc[ledger.FieldID].(string)
	if !ok || id == "" {
		return "", errors.New("document has no id field")
	}
	return id, nil
}

func matchesClauses(doc ledger.Document, clauses []ledger.Clause) bool {
	for _, c := range clauses {
		if doc[c.Field] != c.Value {
			return false
		}
	}
	return true
}

func copyDoc(doc ledger.Document) ledger.Document {
	out := make(ledger.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
