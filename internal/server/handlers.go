package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/moneyapp/ledger/internal/auth"
	"github.com/moneyapp/ledger/internal/exchange"
	"github.com/moneyapp/ledger/internal/ledger"
	"github.com/moneyapp/ledger/internal/storage"
)

type Handler struct {
	Auth     *auth.Service
	Ledger   *ledger.Ledger
	Exchange *exchange.Client
}

// StringOrNumber accepts both "12.50" and 12.50 in a JSON body. Form
// clients post amounts as strings, API clients tend to send numbers.
type StringOrNumber string

func (s *StringOrNumber) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*s = StringOrNumber(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return err
	}
	*s = StringOrNumber(asNumber.String())
	return nil
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, storage.ErrUsernameTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username})
}

func (h *Handler) Login(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	token, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) Balance(c *gin.Context) {
	identity := identityFrom(c)

	balance, err := h.Ledger.Balance(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": identity.Username, "balance": balance})
}

func (h *Handler) History(c *gin.Context) {
	identity := identityFrom(c)

	records, err := h.Ledger.History(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": identity.Username, "transactions": records})
}

type operationRequest struct {
	Amount    StringOrNumber `json:"amount"`
	Operation string         `json:"operation"`
}

// Operations handles a deposit/withdraw request. A request that fails
// validation answers 400 with the unchanged balance so the caller can
// re-render the current state.
func (h *Handler) Operations(c *gin.Context) {
	identity := identityFrom(c)

	var req operationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.rejectOperation(c, "invalid request body")
		return
	}

	result, err := h.Ledger.Process(c.Request.Context(), identity.UserID, string(req.Amount), req.Operation)
	if errors.Is(err, ledger.ErrValidation) {
		h.rejectOperation(c, "invalid amount or operation")
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record transaction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":     result.Balance,
		"transaction": result.Record,
	})
}

// rejectOperation answers 400 with the owner's current balance so the
// caller can re-render unchanged state.
func (h *Handler) rejectOperation(c *gin.Context, msg string) {
	identity := identityFrom(c)

	balance, err := h.Ledger.Balance(c.Request.Context(), identity.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute balance"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "balance": balance})
}

func (h *Handler) Rates(c *gin.Context) {
	rates, err := h.Exchange.Rates(c.Request.Context())
	if errors.Is(err, exchange.ErrUnavailable) {
		c.JSON(http.StatusOK, gin.H{"rates": nil})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch rates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

type exchangeRequest struct {
	Amount   StringOrNumber `json:"amount"`
	Currency string         `json:"currency"`
}

// Convert exchanges an amount into another currency using a fresh rate
// fetch. Unknown codes and an unreachable feed both come back as a null
// result rather than an error.
func (h *Handler) Convert(c *gin.Context) {
	var req exchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	amount, err := decimal.NewFromString(string(req.Amount))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"converted_amount": nil})
		return
	}

	converted, ok, err := h.Exchange.Convert(c.Request.Context(), amount, req.Currency)
	if errors.Is(err, exchange.ErrUnavailable) {
		c.JSON(http.StatusOK, gin.H{"converted_amount": nil})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "conversion failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"converted_amount": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amount":           amount,
		"currency":         req.Currency,
		"converted_amount": converted,
	})
}
