/*
engine.go - Ledger transaction engine

PURPOSE:
  Validates and executes create/deposit/withdraw/transfer. Each operation
  reads current state from the document store, validates the request,
  builds the atomic write-set (account mutation(s) plus exactly one
  Operation audit record), and commits it in a single store transaction.

CRITICAL INVARIANTS:
  1. Balance >= 0 after every committed operation
  2. One successful mutation = exactly one atomic commit
  3. Validation always runs against state read in the same invocation
  4. Failures before commit leave no observable write

CONCURRENCY:
  The engine holds no cache and no locks. Every mutation is conditioned on
  the account version read in the same invocation (compare-and-swap on
  Commit); on a version conflict the whole read-validate-write cycle is
  retried a bounded number of times before surfacing a StoreError. Any
  number of engine instances may run against the same store.

SEE ALSO:
  - store.go: DocStore interface and Put expectations
  - history.go: Read-side views
  - errors.go: Error taxonomy
*/
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultConflictRetries bounds how many times a mutation is re-read and
// re-committed after a version conflict before giving up.
const DefaultConflictRetries = 3

// =============================================================================
// ENGINE
// =============================================================================

// Engine executes ledger mutations against a document store. The store is
// injected at construction; engines are cheap and safe to share across
// request workers.
type Engine struct {
	Store DocStore

	// Clock stamps operation records. Overridable in tests.
	Clock func() time.Time

	// NewID generates account and operation ids. Overridable in tests.
	NewID func() string

	// ConflictRetries bounds retries after a version conflict.
	ConflictRetries int
}

// NewEngine creates an engine with production defaults.
func NewEngine(store DocStore) *Engine {
	return &Engine{
		Store:           store,
		Clock:           func() time.Time { return time.Now().UTC() },
		NewID:           uuid.NewString,
		ConflictRetries: DefaultConflictRetries,
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateAccount creates a fresh account with the given balance and records
// a create operation, committed together. No pre-existing state is read.
func (e *Engine) CreateAccount(ctx context.Context, initialBalance int64) (Account, error) {
	if initialBalance < 0 {
		return Account{}, &InvalidArgumentError{Field: "initial_balance", Reason: "must not be negative"}
	}

	account := Account{ID: e.NewID(), Balance: initialBalance}
	op := Operation{
		ID:       e.NewID(),
		Type:     OpCreate,
		Amount:   initialBalance,
		SourceID: account.ID,
		TxTime:   e.Clock(),
	}

	puts := []Put{
		{Doc: EncodeAccount(account), Expect: ExpectAbsent},
		{Doc: EncodeOperation(op), Expect: ExpectAbsent},
	}
	if _, err := e.Store.Commit(ctx, puts); err != nil {
		return Account{}, &StoreError{Op: "create account", Err: err}
	}
	return account, nil
}

// GetAccount returns the current state of an account.
func (e *Engine) GetAccount(ctx context.Context, id string) (Account, error) {
	if err := validateID("account_id", id); err != nil {
		return Account{}, err
	}
	account, _, err := e.readAccount(ctx, id)
	return account, err
}

// Deposit adds amount to the account and records a deposit operation.
func (e *Engine) Deposit(ctx context.Context, id string, amount int64) (Account, error) {
	if err := validateAmount(amount); err != nil {
		return Account{}, err
	}
	if err := validateID("account_id", id); err != nil {
		return Account{}, err
	}

	return e.mutate(ctx, "deposit", func(ctx context.Context) ([]Put, Account, error) {
		account, version, err := e.readAccount(ctx, id)
		if err != nil {
			return nil, Account{}, err
		}
		account.Balance += amount

		op := Operation{
			ID:       e.NewID(),
			Type:     OpDeposit,
			Amount:   amount,
			SourceID: account.ID,
			TxTime:   e.Clock(),
		}
		puts := []Put{
			{Doc: EncodeAccount(account), Expect: version},
			{Doc: EncodeOperation(op), Expect: ExpectAbsent},
		}
		return puts, account, nil
	})
}

// Withdraw removes amount from the account and records a withdraw
// operation. Fails with InsufficientFunds before any write if the balance
// cannot cover the amount.
func (e *Engine) Withdraw(ctx context.Context, id string, amount int64) (Account, error) {
	if err := validateAmount(amount); err != nil {
		return Account{}, err
	}
	if err := validateID("account_id", id); err != nil {
		return Account{}, err
	}

	return e.mutate(ctx, "withdraw", func(ctx context.Context) ([]Put, Account, error) {
		account, version, err := e.readAccount(ctx, id)
		if err != nil {
			return nil, Account{}, err
		}
		if account.Balance < amount {
			return nil, Account{}, &InsufficientFundsError{
				AccountID: account.ID,
				Balance:   account.Balance,
				Requested: amount,
			}
		}
		account.Balance -= amount

		op := Operation{
			ID:       e.NewID(),
			Type:     OpWithdraw,
			Amount:   amount,
			SourceID: account.ID,
			TxTime:   e.Clock(),
		}
		puts := []Put{
			{Doc: EncodeAccount(account), Expect: version},
			{Doc: EncodeOperation(op), Expect: ExpectAbsent},
		}
		return puts, account, nil
	})
}

// Transfer moves amount from the source account to the target account and
// records a single transfer operation. All three documents commit together.
// Returns the updated source account.
//
// Read order matters: the source is read and checked for funds first, then
// the target. A missing target aborts before any write, leaving the source
// untouched.
func (e *Engine) Transfer(ctx context.Context, sourceID, targetID string, amount int64) (Account, error) {
	if err := validateAmount(amount); err != nil {
		return Account{}, err
	}
	if err := validateID("source_account_id", sourceID); err != nil {
		return Account{}, err
	}
	if err := validateID("target_account_id", targetID); err != nil {
		return Account{}, err
	}
	if sourceID == targetID {
		return Account{}, &InvalidArgumentError{Field: "target_account_id", Reason: "must differ from source account"}
	}

	return e.mutate(ctx, "transfer", func(ctx context.Context) ([]Put, Account, error) {
		source, sourceVersion, err := e.readAccount(ctx, sourceID)
		if err != nil {
			return nil, Account{}, err
		}
		if source.Balance < amount {
			return nil, Account{}, &InsufficientFundsError{
				AccountID: source.ID,
				Balance:   source.Balance,
				Requested: amount,
			}
		}
		target, targetVersion, err := e.readAccount(ctx, targetID)
		if err != nil {
			return nil, Account{}, err
		}

		source.Balance -= amount
		target.Balance += amount

		op := Operation{
			ID:       e.NewID(),
			Type:     OpTransfer,
			Amount:   amount,
			SourceID: source.ID,
			TargetID: &target.ID,
			TxTime:   e.Clock(),
		}
		puts := []Put{
			{Doc: EncodeAccount(source), Expect: sourceVersion},
			{Doc: EncodeAccount(target), Expect: targetVersion},
			{Doc: EncodeOperation(op), Expect: ExpectAbsent},
		}
		return puts, source, nil
	})
}

// =============================================================================
// INTERNALS
// =============================================================================

// mutate runs one read-validate-build cycle and commits its write-set,
// retrying the whole cycle on version conflicts up to ConflictRetries.
func (e *Engine) mutate(ctx context.Context, opName string, build func(context.Context) ([]Put, Account, error)) (Account, error) {
	var lastErr error
	for attempt := 0; attempt <= e.ConflictRetries; attempt++ {
		puts, account, err := build(ctx)
		if err != nil {
			return Account{}, err
		}
		if _, err := e.Store.Commit(ctx, puts); err != nil {
			if IsRetryable(err) {
				lastErr = err
				continue
			}
			return Account{}, &StoreError{Op: opName, Err: err}
		}
		return account, nil
	}
	return Account{}, &StoreError{Op: opName, Err: lastErr}
}

// readAccount fetches and decodes the current account document, returning
// the head version for compare-and-swap.
func (e *Engine) readAccount(ctx context.Context, id string) (Account, int64, error) {
	entry, err := e.Store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return Account{}, 0, &NotFoundError{AccountID: id}
		}
		return Account{}, 0, &StoreError{Op: "get document", Err: err}
	}
	account, err := DecodeAccount(CurrentDoc(entry.Doc))
	if err != nil {
		return Account{}, 0, &StoreError{Op: "decode account", Err: err}
	}
	return account, entry.Version, nil
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return &InvalidArgumentError{Field: "amount", Reason: "must be positive"}
	}
	return nil
}

func validateID(field, id string) error {
	if uuid.Validate(id) != nil {
		return &InvalidArgumentError{Field: field, Reason: "must be a valid uuid"}
	}
	return nil
}
