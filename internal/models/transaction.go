package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tells whether a transaction puts money in or takes money out.
type Kind string

const (
	Deposit  Kind = "deposit"
	Withdraw Kind = "withdraw"
)

// ParseKind converts an untyped operation string into a Kind.
// Anything other than the two known operations is rejected.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Deposit, Withdraw:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown operation kind %q", s)
}

// Outcome records whether the attempted operation moved any funds.
// Failed withdrawals keep their row; the outcome is how they are told apart.
type Outcome string

const (
	Success Outcome = "success"
	Failure Outcome = "failure"
)

func (o Outcome) Valid() bool {
	return o == Success || o == Failure
}

// TransactionRecord is a single row of the append-only ledger.
// Records are never updated or deleted after creation.
type TransactionRecord struct {
	ID         uuid.UUID       `json:"id"`
	Owner      uuid.UUID       `json:"owner"`
	Kind       Kind            `json:"kind"`
	Amount     decimal.Decimal `json:"amount"`
	Outcome    Outcome         `json:"outcome"`
	OccurredAt time.Time       `json:"occurred_at"`
}
