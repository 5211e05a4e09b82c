/*
codec.go - Entity <-> document mapping

PURPOSE:
  Stateless, bidirectional mapping between ledger entities (Account,
  Operation) and store documents. The field names below are the stable,
  versionless contract with the document store; they never change.

FIELD CONTRACT:
  id, kind, balance              - account documents
  id, kind, op_type, amount,
  source_id, target_id, tx_time  - operation documents

VALUE TYPES:
  Documents hold only string and int64 values. tx_time is RFC3339Nano
  text so every backend stores and round-trips it identically.

DECODE SOURCES:
  An account document can originate from a current-entity read or from a
  history element. Both go through the same DecodeAccount function via a
  tagged AccountSource, instead of a separate ad hoc conversion per call
  site. The round-trip property decode(encode(x)) == x holds for every
  valid entity, including operations with no target.

SEE ALSO:
  - store.go: Document and Entry types
  - engine.go, history.go: The only callers
*/
package ledger

import (
	"fmt"
	"time"
)

// Document field names. This is the persisted contract; do not rename.
const (
	FieldID       = "id"
	FieldKind     = "kind"
	FieldBalance  = "balance"
	FieldOpType   = "op_type"
	FieldAmount   = "amount"
	FieldSourceID = "source_id"
	FieldTargetID = "target_id"
	FieldTxTime   = "tx_time"
)

// Document kinds.
const (
	KindAccount   = "account"
	KindOperation = "operation"
)

// txTimeLayout is the wire format for operation timestamps.
const txTimeLayout = time.RFC3339Nano

// =============================================================================
// ACCOUNT CODEC
// =============================================================================

// EncodeAccount maps an account to its document form.
func EncodeAccount(a Account) Document {
	return Document{
		FieldID:      a.ID,
		FieldKind:    KindAccount,
		FieldBalance: a.Balance,
	}
}

// accountOrigin tags where a raw account document was read from.
type accountOrigin int

const (
	originEntity accountOrigin = iota
	originHistory
)

// AccountSource is a tagged account document awaiting decode. Construct it
// with CurrentDoc or HistoryDoc depending on where the document came from.
type AccountSource struct {
	origin accountOrigin
	doc    Document
}

// CurrentDoc wraps a document returned by a current-entity read.
func CurrentDoc(doc Document) AccountSource {
	return AccountSource{origin: originEntity, doc: doc}
}

// HistoryDoc wraps the document body of a history entry.
func HistoryDoc(e Entry) AccountSource {
	return AccountSource{origin: originHistory, doc: e.Doc}
}

// DecodeAccount decodes an account from any source. Both origins carry the
// same field contract today; the tag keeps new origins from growing their
// own conversion paths.
func DecodeAccount(src AccountSource) (Account, error) {
	if err := checkKind(src.doc, KindAccount); err != nil {
		return Account{}, err
	}
	id, err := docString(src.doc, FieldID)
	if err != nil {
		return Account{}, err
	}
	balance, err := docInt64(src.doc, FieldBalance)
	if err != nil {
		return Account{}, err
	}
	return Account{ID: id, Balance: balance}, nil
}

// =============================================================================
// OPERATION CODEC
// =============================================================================

// EncodeOperation maps an operation to its document form. A nil TargetID
// produces no target_id field at all, not an empty value.
func EncodeOperation(op Operation) Document {
	doc := Document{
		FieldID:       op.ID,
		FieldKind:     KindOperation,
		FieldOpType:   string(op.Type),
		FieldAmount:   op.Amount,
		FieldSourceID: op.SourceID,
		FieldTxTime:   op.TxTime.Format(txTimeLayout),
	}
	if op.TargetID != nil {
		doc[FieldTargetID] = *op.TargetID
	}
	return doc
}

// DecodeOperation decodes an operation document. A missing target_id
// decodes to nil, never a sentinel value.
func DecodeOperation(doc Document) (Operation, error) {
	if err := checkKind(doc, KindOperation); err != nil {
		return Operation{}, err
	}
	id, err := docString(doc, FieldID)
	if err != nil {
		return Operation{}, err
	}
	opType, err := docString(doc, FieldOpType)
	if err != nil {
		return Operation{}, err
	}
	switch OperationType(opType) {
	case OpCreate, OpDeposit, OpWithdraw, OpTransfer:
	default:
		return Operation{}, fmt.Errorf("document %s: unknown op_type %q", id, opType)
	}
	amount, err := docInt64(doc, FieldAmount)
	if err != nil {
		return Operation{}, err
	}
	sourceID, err := docString(doc, FieldSourceID)
	if err != nil {
		return Operation{}, err
	}
	raw, err := docString(doc, FieldTxTime)
	if err != nil {
		return Operation{}, err
	}
	txTime, err := time.Parse(txTimeLayout, raw)
	if err != nil {
		return Operation{}, fmt.Errorf("document %s: bad tx_time %q: %w", id, raw, err)
	}

	op := Operation{
		ID:       id,
		Type:     OperationType(opType),
		Amount:   amount,
		SourceID: sourceID,
		TxTime:   txTime,
	}
	if _, ok := doc[FieldTargetID]; ok {
		target, err := docString(doc, FieldTargetID)
		if err != nil {
			return Operation{}, err
		}
		op.TargetID = &target
	}
	return op, nil
}

// =============================================================================
// FIELD HELPERS
// =============================================================================

func checkKind(doc Document, want string) error {
	kind, err := docString(doc, FieldKind)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("document kind %q, want %q", kind, want)
	}
	return nil
}

func docString(doc Document, field string) (string, error) {
	v, ok := doc[field]
	if !ok {
		return "", fmt.Errorf("document missing field %q", field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("document field %q: got %T, want string", field, v)
	}
	return s, nil
}

func docInt64(doc Document, field string) (int64, error) {
	v, ok := doc[field]
	if !ok {
		return 0, fmt.Errorf("document missing field %q", field)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("document field %q: got %T, want int64", field, v)
	}
	return n, nil
}
