package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionRecorded is emitted after a ledger row has been appended,
// including failed withdrawal attempts.
type TransactionRecorded struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	Owner         uuid.UUID       `json:"owner"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	Outcome       string          `json:"outcome"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
