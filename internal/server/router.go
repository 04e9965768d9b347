package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moneyapp/ledger/internal/auth"
	"github.com/moneyapp/ledger/internal/exchange"
	"github.com/moneyapp/ledger/internal/ledger"
)

// NewRouter wires the public auth routes and the token-protected ledger
// and exchange routes.
func NewRouter(authSvc *auth.Service, ledgerSvc *ledger.Ledger, exchangeClient *exchange.Client) *gin.Engine {
	h := &Handler{
		Auth:     authSvc,
		Ledger:   ledgerSvc,
		Exchange: exchangeClient,
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)

	// Protected
	authRequired := r.Group("/")
	authRequired.Use(RequireAuth(authSvc))
	{
		authRequired.GET("/balance", h.Balance)
		authRequired.GET("/history", h.History)
		authRequired.POST("/operations", h.Operations)
		authRequired.GET("/exchange", h.Rates)
		authRequired.POST("/exchange", h.Convert)
	}

	return r
}
