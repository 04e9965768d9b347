package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/moneyapp/ledger/internal/interfaces"
	"github.com/moneyapp/ledger/internal/models"
	"github.com/moneyapp/ledger/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL REFERENCES users(id),
	kind TEXT NOT NULL,
	amount NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
	outcome TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions(owner_id);
`

type Store struct {
	db *sql.DB
}

// Open connects to postgres with the lib/pq driver and bootstraps the schema.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Append(ctx context.Context, record models.TransactionRecord) error {
	const query = `INSERT INTO transactions (id, owner_id, kind, amount, outcome, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.Owner, string(record.Kind),
		record.Amount, string(record.Outcome), record.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("%w: append record: %v", storage.ErrPersistence, err)
	}
	return nil
}

func (s *Store) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.TransactionRecord, error) {
	const query = `SELECT id, owner_id, kind, amount, outcome, occurred_at
	FROM transactions WHERE owner_id = $1`

	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: list records: %v", storage.ErrPersistence, err)
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var r models.TransactionRecord
		var kind, outcome string
		if err := rows.Scan(&r.ID, &r.Owner, &kind, &r.Amount, &outcome, &r.OccurredAt); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", storage.ErrPersistence, err)
		}
		r.Kind = models.Kind(kind)
		r.Outcome = models.Outcome(outcome)
		if !r.Outcome.Valid() {
			return nil, fmt.Errorf("%w: record %s has outcome %q", storage.ErrPersistence, r.ID, outcome)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list records: %v", storage.ErrPersistence, err)
	}
	return records, nil
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	const query = `INSERT INTO users (id, username, password_hash, created_at)
	VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		// 23505 is unique_violation
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return storage.ErrUsernameTaken
		}
		return fmt.Errorf("%w: create user: %v", storage.ErrPersistence, err)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	const query = `SELECT id, username, password_hash, created_at FROM users WHERE username = $1`

	var user models.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, storage.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: get user: %v", storage.ErrPersistence, err)
	}
	return user, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var (
	_ interfaces.LedgerStore = (*Store)(nil)
	_ interfaces.UserStore   = (*Store)(nil)
)
