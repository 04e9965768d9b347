package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/moneyapp/ledger/internal/interfaces"
	"github.com/moneyapp/ledger/internal/models"
	"github.com/moneyapp/ledger/internal/storage"
)

// Store is an in-memory implementation of interfaces.LedgerStore and
// interfaces.UserStore. It is safe for concurrent use and is the backing
// store for tests and for running the server without a database.
type Store struct {
	mu      sync.Mutex
	records []models.TransactionRecord
	users   map[string]models.User // keyed by username
}

func NewStore() *Store {
	return &Store{
		records: make([]models.TransactionRecord, 0),
		users:   make(map[string]models.User),
	}
}

// Append stores a new ledger record. Records are never modified afterwards.
func (s *Store) Append(ctx context.Context, record models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	return nil
}

// ListByOwner returns copies of all records belonging to owner, in
// insertion order. Display ordering is the caller's concern.
func (s *Store) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.TransactionRecord
	for _, r := range s.records {
		if r.Owner == owner {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return storage.ErrUsernameTaken
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return models.User{}, storage.ErrUserNotFound
	}
	return user, nil
}

// Compile-time checks: Store implements both store interfaces.
var (
	_ interfaces.LedgerStore = (*Store)(nil)
	_ interfaces.UserStore   = (*Store)(nil)
)
