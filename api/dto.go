/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  DTOs are pure data carriers; validation happens in the engine, which
  rejects bad input before touching the store.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateAccountRequest opens a new account.
type CreateAccountRequest struct {
	InitialBalance int64 `json:"initial_balance"`
}

// AmountRequest carries the amount for deposits and withdrawals.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// TransferRequest moves funds to another account.
type TransferRequest struct {
	Amount          int64  `json:"amount"`
	TargetAccountID string `json:"target_account_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AccountDTO represents an account in API responses.
type AccountDTO struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}

// HistoryElementDTO is one account snapshot with its commit time.
type HistoryElementDTO struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
	Time    string `json:"time"`
}

// OperationDTO represents an audit record in API responses.
type OperationDTO struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Amount          int64   `json:"amount"`
	SourceAccountID string  `json:"source_account_id"`
	TargetAccountID *string `json:"target_account_id,omitempty"`
	Time            string  `json:"time"`
}

// ErrorResponse is the JSON body for all error statuses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{ID: a.ID, Balance: a.Balance}
}

func toHistoryDTOs(elements []ledger.HistoryElement) []HistoryElementDTO {
	dtos := make([]HistoryElementDTO, len(elements))
	for i, el := range elements {
		dtos[i] = HistoryElementDTO{
			ID:      el.Account.ID,
			Balance: el.Account.Balance,
			Time:    el.TxTime.Format(time.RFC3339Nano),
		}
	}
	return dtos
}

func toOperationDTOs(ops []ledger.Operation) []OperationDTO {
	dtos := make([]OperationDTO, len(ops))
	for i, op := range ops {
		dtos[i] = OperationDTO{
			ID:              op.ID,
			Type:            string(op.Type),
			Amount:          op.Amount,
			SourceAccountID: op.SourceID,
			TargetAccountID: op.TargetID,
			Time:            op.TxTime.Format(time.RFC3339Nano),
		}
	}
	return dtos
}
