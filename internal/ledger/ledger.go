package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moneyapp/ledger/internal/interfaces"
	"github.com/moneyapp/ledger/internal/models"
	"github.com/moneyapp/ledger/internal/models/events"
)

// ErrValidation indicates a malformed deposit/withdraw request.
// Nothing is written to the store when it is returned.
var ErrValidation = errors.New("invalid operation request")

// Ledger validates deposit/withdraw requests, gates withdrawals on the
// owner's balance and appends the resulting record to the store.
type Ledger struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher // optional, nil when events are disabled
	now       func() time.Time

	muMap map[uuid.UUID]*sync.Mutex // per-owner lock, serializes balance read + append
	mapMu sync.Mutex                // protects muMap itself
}

func NewLedger(store interfaces.LedgerStore, publisher interfaces.EventPublisher) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
		now:       time.Now,
		muMap:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (l *Ledger) ownerLock(owner uuid.UUID) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[owner]; !exists {
		l.muMap[owner] = &sync.Mutex{}
	}
	return l.muMap[owner]
}

// Result is what a processed operation reports back: the appended record
// and the owner's balance recomputed after the append.
type Result struct {
	Record  models.TransactionRecord
	Balance decimal.Decimal
}

// Process handles a single deposit/withdraw request.
//
// The raw amount and operation kind arrive untyped from the HTTP layer.
// A request that fails validation writes nothing. A withdrawal that
// exceeds the current balance is still appended, marked as a failure, so
// the attempt stays visible in the history.
func (l *Ledger) Process(ctx context.Context, owner uuid.UUID, rawAmount, rawKind string) (Result, error) {
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return Result{}, err
	}

	kind, err := models.ParseKind(rawKind)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Holding the owner lock across the balance read and the append keeps
	// two concurrent withdrawals from both passing the sufficiency check.
	lock := l.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	outcome := models.Success
	if kind == models.Withdraw {
		balance, err := l.Balance(ctx, owner)
		if err != nil {
			return Result{}, err
		}
		if balance.LessThan(amount) {
			outcome = models.Failure
		}
	}

	record := models.TransactionRecord{
		ID:         uuid.New(),
		Owner:      owner,
		Kind:       kind,
		Amount:     amount,
		Outcome:    outcome,
		OccurredAt: l.now(),
	}

	if err := l.store.Append(ctx, record); err != nil {
		return Result{}, err
	}

	l.publish(ctx, record)

	balance, err := l.Balance(ctx, owner)
	if err != nil {
		return Result{}, err
	}
	return Result{Record: record, Balance: balance}, nil
}

// Balance derives the owner's current balance by replaying successful
// records: deposits add, withdrawals subtract. Failure rows are ignored.
func (l *Ledger) Balance(ctx context.Context, owner uuid.UUID) (decimal.Decimal, error) {
	records, err := l.store.ListByOwner(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, r := range records {
		if r.Outcome != models.Success {
			continue
		}
		switch r.Kind {
		case models.Deposit:
			balance = balance.Add(r.Amount)
		case models.Withdraw:
			balance = balance.Sub(r.Amount)
		}
	}
	return balance, nil
}

// History returns the owner's records, newest first.
func (l *Ledger) History(ctx context.Context, owner uuid.UUID) ([]models.TransactionRecord, error) {
	records, err := l.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].OccurredAt.After(records[j].OccurredAt)
	})
	return records, nil
}

func (l *Ledger) publish(ctx context.Context, record models.TransactionRecord) {
	if l.publisher == nil {
		return
	}

	event := events.TransactionRecorded{
		TransactionID: record.ID,
		Owner:         record.Owner,
		Kind:          string(record.Kind),
		Amount:        record.Amount,
		Outcome:       string(record.Outcome),
		OccurredAt:    record.OccurredAt,
	}
	// Best effort: a dead broker must not fail the request.
	if err := l.publisher.Publish(ctx, event); err != nil {
		slog.Warn("publish transaction event failed", "transaction_id", record.ID, "error", err)
	}
}

// parseAmount turns the raw request amount into a positive decimal with
// two-decimal precision. Amounts with more precision are rounded the way
// the stored column would round them.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not a number", ErrValidation, raw)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return amount.Round(2), nil
}
