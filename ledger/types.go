/*
Package ledger provides the core ledger transaction engine.

PURPOSE:
  This package contains the types and algorithms for recording accounts and
  money-movement operations against an append-only, bitemporal document store,
  and for reconstructing account state and audit history from that store.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: The single mutable entity; a new document version per mutation
  - Operation: An immutable audit record describing one ledger mutation
  - HistoryElement: An account snapshot paired with its commit time
  - OperationType: The four kinds of ledger mutations

DESIGN PRINCIPLES:
  1. Single system of record: The document store holds all state; the engine
     re-reads authoritative state on every invocation and never caches.
  2. Append-only audit: Every mutation writes exactly one Operation record
     in the same atomic commit as the account change.
  3. Exact arithmetic: Balances and amounts are int64 in the smallest unit.
     No floating point anywhere near money.

SEE ALSO:
  - engine.go: Validation and atomic write-set construction
  - history.go: Point-in-time and full-history views
  - codec.go: Entity <-> document mapping
  - store.go: Document store interface
*/
package ledger

import "time"

// =============================================================================
// ACCOUNT - The mutable ledger entity
// =============================================================================

// Account is a ledger account. Balance is a non-negative integer in the
// smallest currency unit. Accounts are never deleted; every mutation writes
// a new version of the account document.
type Account struct {
	ID      string
	Balance int64
}

// =============================================================================
// OPERATION - Immutable audit record
// =============================================================================

type OperationType string

const (
	OpCreate   OperationType = "create"   // Account creation, amount = initial balance
	OpDeposit  OperationType = "deposit"  // Funds added to an account
	OpWithdraw OperationType = "withdraw" // Funds removed from an account
	OpTransfer OperationType = "transfer" // Funds moved between two accounts
)

// Operation records one committed ledger mutation. Operations are immutable
// once written and form the append-only audit log.
type Operation struct {
	ID       string
	Type     OperationType
	Amount   int64
	SourceID string
	TargetID *string // Set only for transfers; nil otherwise.
	TxTime   time.Time
}

// =============================================================================
// HISTORY ELEMENT - Read-only projection
// =============================================================================

// HistoryElement is one version of an account paired with the transaction
// time at which that version became current. It is a view over the document
// store's native version history and is never persisted on its own.
type HistoryElement struct {
	Account Account
	TxTime  time.Time
}
