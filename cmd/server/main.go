package main

import (
	"log/slog"
	"os"

	"github.com/moneyapp/ledger/internal/auth"
	"github.com/moneyapp/ledger/internal/config"
	"github.com/moneyapp/ledger/internal/events/kafka"
	"github.com/moneyapp/ledger/internal/exchange"
	"github.com/moneyapp/ledger/internal/interfaces"
	"github.com/moneyapp/ledger/internal/ledger"
	"github.com/moneyapp/ledger/internal/server"
	"github.com/moneyapp/ledger/internal/storage/memory"
	"github.com/moneyapp/ledger/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Stores: postgres when DATABASE_URL is set, in-memory otherwise.
	var ledgerStore interfaces.LedgerStore
	var userStore interfaces.UserStore
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		ledgerStore, userStore = pg, pg
		slog.Info("using postgres store")
	} else {
		mem := memory.NewStore()
		ledgerStore, userStore = mem, mem
		slog.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Events are optional; without brokers the ledger simply skips publishing.
	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		slog.Info("publishing transaction events", "topic", cfg.KafkaTopic)
	}

	ledgerSvc := ledger.NewLedger(ledgerStore, publisher)
	authSvc := auth.NewService(userStore, []byte(cfg.JWTSecret), cfg.TokenTTL)
	exchangeClient := exchange.NewClient(cfg.ExchangeAPIURL, cfg.ExchangeTimeout)

	router := server.NewRouter(authSvc, ledgerSvc, exchangeClient)

	slog.Info("starting server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
