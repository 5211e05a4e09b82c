package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/docstore"
)

func accountDoc(id string, balance int64) ledger.Document {
	return ledger.Document{
		ledger.FieldID:      id,
		ledger.FieldKind:    ledger.KindAccount,
		ledger.FieldBalance: balance,
	}
}

// =============================================================================
// COMMIT / GET
// =============================================================================

func TestMemory_CommitThenGet(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()

	_, err := store.Commit(ctx, []ledger.Put{
		{Doc: accountDoc("acc-1", 100), Expect: ledger.ExpectAbsent},
	})
	require.NoError(t, err)

	entry, err := store.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Version)
	assert.Equal(t, int64(100), entry.Doc[ledger.FieldBalance])
}

func TestMemory_Get_Absent(t *testing.T) {
	store := docstore.NewMemory()

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ledger.ErrNoDocument)
}

func TestMemory_Commit_VersionConflict_WritesNothing(t *testing.T) {
	// GIVEN: A document at version 1
	store := docstore.NewMemory()
	ctx := context.Background()

	_, err := store.Commit(ctx, []ledger.Put{
		{Doc: accountDoc("acc-1", 100), Expect: ledger.ExpectAbsent},
	})
	require.NoError(t, err)

	// WHEN: A write-set where the second put carries a stale expectation
	_, err = store.Commit(ctx, []ledger.Put{
		{Doc: accountDoc("acc-2", 5), Expect: ledger.ExpectAbsent},
		{Doc: accountDoc("acc-1", 200), Expect: 7},
	})

	// THEN: The whole write-set is rejected; neither document changed
	assert.ErrorIs(t, err, ledger.ErrVersionConflict)

	_, err = store.Get(ctx, "acc-2")
	assert.ErrorIs(t, err, ledger.ErrNoDocument)

	entry, err := store.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), entry.Doc[ledger.FieldBalance])
	assert.Equal(t, int64(1), entry.Version)
}

func TestMemory_Commit_ExpectAbsent_ExistingDoc(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()

	_, err := store.Commit(ctx, []ledger.Put{
		{Doc: accountDoc("acc-1", 1), Expect: ledger.ExpectAbsent},
	})
	require.NoError(t, err)

	_, err = store.Commit(ctx, []ledger.Put{
		{Doc: accountDoc("acc-1", 2), Expect: ledger.ExpectAbsent},
	})
	assert.ErrorIs(t, err, ledger.ErrVersionConflict)
}

func TestMemory_Commit_CopiesDocuments(t *testing.T) {
	// Mutating the caller's document after commit must not leak into the store.
	store := docstore.NewMemory()
	ctx := context.Background()

	doc := accountDoc("acc-1", 100)
	_, err := store.Commit(ctx, []ledger.Put{{Doc: doc, Expect: ledger.ExpectAbsent}})
	require.NoError(t, err)

	doc[ledger.FieldBalance] = int64(999)

	entry, err := store.Get(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), entry.Doc[ledger.FieldBalance])
}

// =============================================================================
// HISTORY
// =============================================================================

func TestMemory_History_NewestFirst_StrictlyMonotonic(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		expect := i - 1
		if expect == 0 {
			expect = ledger.ExpectAbsent
		}
		_, err := store.Commit(ctx, []ledger.Put{
			{Doc: accountDoc("acc-1", i*10), Expect: expect},
		})
		require.NoError(t, err)
	}

	entries, err := store.History(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, int64(3), entries[0].Version)
	assert.Equal(t, int64(30), entries[0].Doc[ledger.FieldBalance])
	assert.Equal(t, int64(1), entries[2].Version)

	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].TxTime.After(entries[i].TxTime))
	}
}

func TestMemory_History_UnknownDoc_Empty(t *testing.T) {
	store := docstore.NewMemory()

	entries, err := store.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// =============================================================================
// QUERY
// =============================================================================

func TestMemory_Query_ByKindAndField(t *testing.T) {
	store := docstore.NewMemory()
	ctx := context.Background()

	opDoc := ledger.Document{
		ledger.FieldID:       "op-1",
		ledger.FieldKind:     ledger.KindOperation,
		ledger.FieldOpType:   "deposit",
		ledger.FieldAmount:   int64(10),
		ledger.FieldSourceID: "acc-1",
		ledger.FieldTxTime:   "2026-03-01T00:00:00Z",
	}
	_, err := store.Commit(ctx, []ledger.Put{
		{Doc: accountDoc("acc-1", 100), Expect: ledger.ExpectAbsent},
		{Doc: opDoc, Expect: ledger.ExpectAbsent},
	})
	require.NoError(t, err)

	ids, err := store.Query(ctx, ledger.Query{
		Kind:  ledger.KindOperation,
		Where: []ledger.Clause{{Field: ledger.FieldSourceID, Value: "acc-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"op-1"}, ids)

	// Account documents don't match the operation query
	ids, err = store.Query(ctx, ledger.Query{
		Kind:  ledger.KindOperation,
		Where: []ledger.Clause{{Field: ledger.FieldSourceID, Value: "acc-2"}},
	})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
