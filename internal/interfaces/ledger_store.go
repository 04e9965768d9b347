package interfaces

import (
	"context"

	"github.com/google/uuid"

	"github.com/moneyapp/ledger/internal/models"
)

// LedgerStore is the persistence contract for the append-only ledger.
// There are deliberately no update or delete operations.
type LedgerStore interface {
	Append(ctx context.Context, record models.TransactionRecord) error
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.TransactionRecord, error)
}

// UserStore persists account holders for the auth layer.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
}
