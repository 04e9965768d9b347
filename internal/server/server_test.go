package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moneyapp/ledger/internal/auth"
	"github.com/moneyapp/ledger/internal/exchange"
	"github.com/moneyapp/ledger/internal/ledger"
	"github.com/moneyapp/ledger/internal/models"
	"github.com/moneyapp/ledger/internal/storage"
	"github.com/moneyapp/ledger/internal/storage/memory"
)

func newTestServer(t *testing.T, feedURL string) *httptest.Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	ledgerSvc := ledger.NewLedger(store, nil)
	authSvc := auth.NewService(store, []byte("test-secret"), time.Hour)
	exchangeClient := exchange.NewClient(feedURL, time.Second)

	srv := httptest.NewServer(NewRouter(authSvc, ledgerSvc, exchangeClient))
	t.Cleanup(srv.Close)
	return srv
}

// doJSON posts body as JSON (with an optional bearer token), checks the
// status code and decodes the response into out when out is non-nil.
func doJSON(t *testing.T, method, url, token string, body any, wantCode int, out any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, wantCode, resp.StatusCode)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func registerAndLogin(t *testing.T, baseURL, username string) string {
	t.Helper()

	creds := map[string]string{"username": username, "password": "hunter2"}
	doJSON(t, http.MethodPost, baseURL+"/register", "", creds, http.StatusCreated, nil)

	var login struct {
		Token string `json:"token"`
	}
	doJSON(t, http.MethodPost, baseURL+"/login", "", creds, http.StatusOK, &login)
	require.NotEmpty(t, login.Token)
	return login.Token
}

type balanceResponse struct {
	Username string          `json:"username"`
	Balance  decimal.Decimal `json:"balance"`
}

type operationResponse struct {
	Balance     decimal.Decimal          `json:"balance"`
	Transaction models.TransactionRecord `json:"transaction"`
}

func TestRegisterDuplicateConflict(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "http://127.0.0.1:0")
	creds := map[string]string{"username": "alice", "password": "pw"}

	doJSON(t, http.MethodPost, srv.URL+"/register", "", creds, http.StatusCreated, nil)
	doJSON(t, http.MethodPost, srv.URL+"/register", "", creds, http.StatusConflict, nil)
}

func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "http://127.0.0.1:0")
	doJSON(t, http.MethodPost, srv.URL+"/register", "",
		map[string]string{"username": "alice", "password": "pw"}, http.StatusCreated, nil)

	doJSON(t, http.MethodPost, srv.URL+"/login", "",
		map[string]string{"username": "alice", "password": "wrong"}, http.StatusUnauthorized, nil)
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "http://127.0.0.1:0")

	doJSON(t, http.MethodGet, srv.URL+"/balance", "", nil, http.StatusUnauthorized, nil)
	doJSON(t, http.MethodGet, srv.URL+"/balance", "garbage", nil, http.StatusUnauthorized, nil)
}

func TestDepositAndWithdrawFlow(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "http://127.0.0.1:0")
	token := registerAndLogin(t, srv.URL, "alice")

	// Amount as a JSON number.
	var dep operationResponse
	doJSON(t, http.MethodPost, srv.URL+"/operations", token,
		map[string]any{"amount": 100.50, "operation": "deposit"}, http.StatusOK, &dep)
	assert.True(t, dep.Balance.Equal(decimal.RequireFromString("100.50")), "balance = %s", dep.Balance)
	assert.Equal(t, models.Success, dep.Transaction.Outcome)

	// Amount as a JSON string.
	var wd operationResponse
	doJSON(t, http.MethodPost, srv.URL+"/operations", token,
		map[string]any{"amount": "30.25", "operation": "withdraw"}, http.StatusOK, &wd)
	assert.True(t, wd.Balance.Equal(decimal.RequireFromString("70.25")), "balance = %s", wd.Balance)

	var bal balanceResponse
	doJSON(t, http.MethodGet, srv.URL+"/balance", token, nil, http.StatusOK, &bal)
	assert.Equal(t, "alice", bal.Username)
	assert.True(t, bal.Balance.Equal(decimal.RequireFromString("70.25")))
}

func TestInvalidOperationLeavesBalanceUnchanged(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "http://127.0.0.1:0")
	token := registerAndLogin(t, srv.URL, "alice")

	doJSON(t, http.MethodPost, srv.URL+"/operations", token,
		map[string]any{"amount": "50.00", "operation": "deposit"}, http.StatusOK, nil)

	var rejected balanceResponse
	doJSON(t, http.MethodPost, srv.URL+"/operations", token,
		map[string]any{"amount": "abc", "operation": "deposit"}, http.StatusBadRequest, &rejected)
	assert.True(t, rejected.Balance.Equal(decimal.RequireFromString("50.00")))

	doJSON(t, http.MethodPost, srv.URL+"/operations", token,
		map[string]any{"amount": "10.00", "operation": "transfer"}, http.StatusBadRequest, nil)

	var history struct {
		Transactions []models.TransactionRecord `json:"transactions"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/history", token, nil, http.StatusOK, &history)
	assert.Len(t, history.Transactions, 1, "rejected requests must not write records")
}

func TestOverdraftRecordedInHistory(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "http://127.0.0.1:0")
	token := registerAndLogin(t, srv.URL, "alice")

	doJSON(t, http.MethodPost, srv.URL+"/operations", token,
		map[string]any{"amount": "10.00", "operation": "deposit"}, http.StatusOK, nil)

	var wd operationResponse
	doJSON(t, http.MethodPost, srv.URL+"/operations", token,
		map[string]any{"amount": "50.00", "operation": "withdraw"}, http.StatusOK, &wd)
	assert.Equal(t, models.Failure, wd.Transaction.Outcome)
	assert.True(t, wd.Balance.Equal(decimal.RequireFromString("10.00")))

	var history struct {
		Transactions []models.TransactionRecord `json:"transactions"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/history", token, nil, http.StatusOK, &history)
	require.Len(t, history.Transactions, 2)
}

func TestBalancesAreScopedToOwner(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "http://127.0.0.1:0")
	alice := registerAndLogin(t, srv.URL, "alice")
	bob := registerAndLogin(t, srv.URL, "bob")

	doJSON(t, http.MethodPost, srv.URL+"/operations", alice,
		map[string]any{"amount": "100.00", "operation": "deposit"}, http.StatusOK, nil)

	var bal balanceResponse
	doJSON(t, http.MethodGet, srv.URL+"/balance", bob, nil, http.StatusOK, &bal)
	assert.True(t, bal.Balance.IsZero())
}

func TestExchangeConversion(t *testing.T) {
	t.Parallel()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"EUR": 0.9}`))
	}))
	t.Cleanup(feed.Close)

	srv := newTestServer(t, feed.URL)
	token := registerAndLogin(t, srv.URL, "alice")

	var resp struct {
		ConvertedAmount *decimal.Decimal `json:"converted_amount"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/exchange", token,
		map[string]any{"amount": 100, "currency": "EUR"}, http.StatusOK, &resp)
	require.NotNil(t, resp.ConvertedAmount)
	assert.True(t, resp.ConvertedAmount.Equal(decimal.RequireFromString("90.00")))

	// Unknown currency code comes back as a null result.
	resp.ConvertedAmount = nil
	doJSON(t, http.MethodPost, srv.URL+"/exchange", token,
		map[string]any{"amount": 100, "currency": "XYZ"}, http.StatusOK, &resp)
	assert.Nil(t, resp.ConvertedAmount)
}

func TestExchangeFeedDown(t *testing.T) {
	t.Parallel()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(feed.Close)

	srv := newTestServer(t, feed.URL)
	token := registerAndLogin(t, srv.URL, "alice")

	var resp struct {
		ConvertedAmount *decimal.Decimal `json:"converted_amount"`
	}
	doJSON(t, http.MethodPost, srv.URL+"/exchange", token,
		map[string]any{"amount": 100, "currency": "EUR"}, http.StatusOK, &resp)
	assert.Nil(t, resp.ConvertedAmount)

	var rates struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/exchange", token, nil, http.StatusOK, &rates)
	assert.Empty(t, rates.Rates)
}

// brokenLedgerStore fails every ledger operation while leaving the user
// store working, so auth still issues tokens.
type brokenLedgerStore struct {
	*memory.Store
}

func (b *brokenLedgerStore) Append(ctx context.Context, record models.TransactionRecord) error {
	return fmt.Errorf("%w: database down", storage.ErrPersistence)
}

func (b *brokenLedgerStore) ListByOwner(ctx context.Context, owner uuid.UUID) ([]models.TransactionRecord, error) {
	return nil, fmt.Errorf("%w: database down", storage.ErrPersistence)
}

func TestPersistenceFailureIsRequestFailure(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)

	users := memory.NewStore()
	broken := &brokenLedgerStore{Store: users}
	ledgerSvc := ledger.NewLedger(broken, nil)
	authSvc := auth.NewService(users, []byte("test-secret"), time.Hour)
	exchangeClient := exchange.NewClient("http://127.0.0.1:0", time.Second)

	srv := httptest.NewServer(NewRouter(authSvc, ledgerSvc, exchangeClient))
	t.Cleanup(srv.Close)

	token := registerAndLogin(t, srv.URL, "alice")

	doJSON(t, http.MethodPost, srv.URL+"/operations", token,
		map[string]any{"amount": "10.00", "operation": "deposit"}, http.StatusInternalServerError, nil)
	doJSON(t, http.MethodGet, srv.URL+"/balance", token, nil, http.StatusInternalServerError, nil)
	doJSON(t, http.MethodGet, srv.URL+"/history", token, nil, http.StatusInternalServerError, nil)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, "http://127.0.0.1:0")
	doJSON(t, http.MethodGet, srv.URL+"/health", "", nil, http.StatusOK, nil)
}
