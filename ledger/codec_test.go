package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// ROUND-TRIP TESTS
// =============================================================================

func TestCodec_Account_RoundTrip(t *testing.T) {
	account := ledger.Account{
		ID:      "b6f1a6b0-9a35-4a6e-b9e1-6f5f2b3c4d5e",
		Balance: 12345,
	}

	decoded, err := ledger.DecodeAccount(ledger.CurrentDoc(ledger.EncodeAccount(account)))
	require.NoError(t, err)
	assert.Equal(t, account, decoded)
}

func TestCodec_Account_ZeroBalance_RoundTrip(t *testing.T) {
	account := ledger.Account{ID: "b6f1a6b0-9a35-4a6e-b9e1-6f5f2b3c4d5e"}

	decoded, err := ledger.DecodeAccount(ledger.CurrentDoc(ledger.EncodeAccount(account)))
	require.NoError(t, err)
	assert.Equal(t, account, decoded)
}

func TestCodec_Operation_Transfer_RoundTrip(t *testing.T) {
	target := "9f8e7d6c-5b4a-4817-9c2d-1e0f9a8b7c6d"
	op := ledger.Operation{
		ID:       "0a1b2c3d-4e5f-4a7b-8c9d-0e1f2a3b4c5d",
		Type:     ledger.OpTransfer,
		Amount:   40,
		SourceID: "b6f1a6b0-9a35-4a6e-b9e1-6f5f2b3c4d5e",
		TargetID: &target,
		TxTime:   time.Date(2026, time.March, 1, 12, 30, 0, 123456789, time.UTC),
	}

	decoded, err := ledger.DecodeOperation(ledger.EncodeOperation(op))
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
}

func TestCodec_Operation_NoTarget_RoundTrip(t *testing.T) {
	// GIVEN: A deposit operation, which carries no target account
	op := ledger.Operation{
		ID:       "0a1b2c3d-4e5f-4a7b-8c9d-0e1f2a3b4c5d",
		Type:     ledger.OpDeposit,
		Amount:   75,
		SourceID: "b6f1a6b0-9a35-4a6e-b9e1-6f5f2b3c4d5e",
		TxTime:   time.Date(2026, time.March, 1, 12, 30, 0, 0, time.UTC),
	}

	// WHEN: Encoding and decoding
	doc := ledger.EncodeOperation(op)
	decoded, err := ledger.DecodeOperation(doc)

	// THEN: The absent target stays absent - no sentinel, no field
	require.NoError(t, err)
	assert.Equal(t, op, decoded)
	assert.Nil(t, decoded.TargetID)
	_, present := doc[ledger.FieldTargetID]
	assert.False(t, present, "absent target should not produce a field")
}

// =============================================================================
// DECODE FAILURES
// =============================================================================

func TestCodec_DecodeAccount_WrongKind(t *testing.T) {
	doc := ledger.Document{
		ledger.FieldID:   "b6f1a6b0-9a35-4a6e-b9e1-6f5f2b3c4d5e",
		ledger.FieldKind: ledger.KindOperation,
	}

	_, err := ledger.DecodeAccount(ledger.CurrentDoc(doc))
	assert.Error(t, err)
}

func TestCodec_DecodeAccount_MissingBalance(t *testing.T) {
	doc := ledger.Document{
		ledger.FieldID:   "b6f1a6b0-9a35-4a6e-b9e1-6f5f2b3c4d5e",
		ledger.FieldKind: ledger.KindAccount,
	}

	_, err := ledger.DecodeAccount(ledger.CurrentDoc(doc))
	assert.Error(t, err)
}

func TestCodec_DecodeOperation_UnknownType(t *testing.T) {
	op := ledger.Operation{
		ID:       "0a1b2c3d-4e5f-4a7b-8c9d-0e1f2a3b4c5d",
		Type:     ledger.OpDeposit,
		Amount:   10,
		SourceID: "b6f1a6b0-9a35-4a6e-b9e1-6f5f2b3c4d5e",
		TxTime:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	doc := ledger.EncodeOperation(op)
	doc[ledger.FieldOpType] = "split"

	_, err := ledger.DecodeOperation(doc)
	assert.Error(t, err)
}

func TestCodec_DecodeOperation_BadTxTime(t *testing.T) {
	op := ledger.Operation{
		ID:       "0a1b2c3d-4e5f-4a7b-8c9d-0e1f2a3b4c5d",
		Type:     ledger.OpDeposit,
		Amount:   10,
		SourceID: "b6f1a6b0-9a35-4a6e-b9e1-6f5f2b3c4d5e",
		TxTime:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	doc := ledger.EncodeOperation(op)
	doc[ledger.FieldTxTime] = "yesterday"

	_, err := ledger.DecodeOperation(doc)
	assert.Error(t, err)
}
