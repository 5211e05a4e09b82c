/*
history.go - Point-in-time and audit views over the document store

PURPOSE:
  Converts the store's raw version history and query results into ordered
  account snapshots and operation audit lists. Read-only; never writes.

ORDERING:
  - AccountHistory: newest first, as the store's history reports it.
  - AccountOperations: the store leaves query order undefined, so the
    reconstructor imposes commit-time ascending, ties broken by id.

SEE ALSO:
  - engine.go: The write side
  - codec.go: Document decoding
*/
package ledger

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"
)

// operationFetchWorkers bounds concurrent document resolution when turning
// query matches into full operation records.
const operationFetchWorkers = 8

// History reconstructs read-only views. Like the engine, it holds no state
// beyond the injected store and is safe to share.
type History struct {
	Store DocStore
}

// NewHistory creates a reconstructor over the given store.
func NewHistory(store DocStore) *History {
	return &History{Store: store}
}

// AccountHistory returns every version of the account, newest first, each
// paired with the transaction time at which it became current. An id that
// never existed fails with NotFound; an account with no mutations since
// creation returns a single element. The result reflects store state at
// request time and is not restartable against new writes.
func (h *History) AccountHistory(ctx context.Context, id string) ([]HistoryElement, error) {
	if err := validateID("account_id", id); err != nil {
		return nil, err
	}

	entries, err := h.Store.History(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "history", Err: err}
	}
	if len(entries) == 0 {
		return nil, &NotFoundError{AccountID: id}
	}

	elements := make([]HistoryElement, 0, len(entries))
	for _, entry := range entries {
		account, err := DecodeAccount(HistoryDoc(entry))
		if err != nil {
			return nil, &StoreError{Op: "decode history", Err: err}
		}
		elements = append(elements, HistoryElement{Account: account, TxTime: entry.TxTime})
	}
	return elements, nil
}

// AccountOperations returns every operation whose source account is id,
// ordered by commit time ascending (ties by operation id). Fails with
// NotFound if the account does not exist; an account with only its create
// operation returns that single record.
func (h *History) AccountOperations(ctx context.Context, id string) ([]Operation, error) {
	if err := validateID("account_id", id); err != nil {
		return nil, err
	}
	if _, err := h.Store.Get(ctx, id); err != nil {
		if errors.Is(err, ErrNoDocument) {
			return nil, &NotFoundError{AccountID: id}
		}
		return nil, &StoreError{Op: "get document", Err: err}
	}

	ids, err := h.Store.Query(ctx, Query{
		Kind:  KindOperation,
		Where: []Clause{{Field: FieldSourceID, Value: id}},
	})
	if err != nil {
		return nil, &StoreError{Op: "query operations", Err: err}
	}

	ops, err := h.resolveOperations(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.Slice(ops, func(i, j int) bool {
		if !ops[i].TxTime.Equal(ops[j].TxTime) {
			return ops[i].TxTime.Before(ops[j].TxTime)
		}
		return ops[i].ID < ops[j].ID
	})
	return ops, nil
}

// resolveOperations fetches and decodes each matched id. Fetches run
// concurrently; results keep the slot of their input id until sorted by
// the caller.
func (h *History) resolveOperations(ctx context.Context, ids []string) ([]Operation, error) {
	ops := make([]Operation, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(operationFetchWorkers)
	for i, opID := range ids {
		i, opID := i, opID
		g.Go(func() error {
			entry, err := h.Store.Get(ctx, opID)
			if err != nil {
				return &StoreError{Op: "get operation", Err: err}
			}
			op, err := DecodeOperation(entry.Doc)
			if err != nil {
				return &StoreError{Op: "decode operation", Err: err}
			}
			ops[i] = op
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ops, nil
}
