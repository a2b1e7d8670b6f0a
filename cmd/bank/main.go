// A participating bank: verifies proof envelopes from the central API,
// lets its users confirm and settle payments, and accepts relayed credits.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"paygate/internal/audit"
	"paygate/internal/directory"
	"paygate/internal/envelope"
	"paygate/internal/jwtauth"
	"paygate/internal/ledger"
	ledgerHandler "paygate/internal/ledger/handler"
	"paygate/internal/payment"
	"paygate/internal/platform/config"
	"paygate/internal/platform/httpserver"
	"paygate/internal/platform/logger"
	platformredis "paygate/internal/platform/redis"
	"paygate/internal/state"
	"paygate/internal/transfer"
	transferHandler "paygate/internal/transfer/handler"
	"paygate/internal/transfer/metrics"
	httptransport "paygate/internal/transport/http"
)

func main() {
	cfg, err := config.FromEnv()
	log := logger.New()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.BankName == "" || cfg.BankSwiftCode == "" || cfg.BankCountry == "" {
		log.Error("bank identity is not configured")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	privateKey, err := envelope.ParsePrivateKey([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		log.Error("invalid private key", "error", err)
		os.Exit(1)
	}
	centralKey, err := envelope.ParsePublicKey([]byte(cfg.CentralPublicKeyPEM))
	if err != nil {
		log.Error("invalid central public key", "error", err)
		os.Exit(1)
	}

	identity := payment.BankIdentity{
		Name:      cfg.BankName,
		SwiftCode: cfg.BankSwiftCode,
		Country:   cfg.BankCountry,
	}

	// Startup registration check against the central directory. A bank the
	// directory cannot resolve will never receive forwarded payments.
	if cfg.DirectoryBaseURL != "" {
		dirClient := directory.NewClient(cfg.DirectoryBaseURL)
		if _, err := dirClient.ResolveBank(ctx, identity.Name, identity.SwiftCode, identity.Country); err != nil {
			log.Warn("bank not resolvable in central directory",
				"swift_code", identity.SwiftCode,
				"error", err,
			)
		}
	}

	var ledgerStore ledger.Store
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := ledger.NewPostgresStore(db)
		if err := pg.Schema(ctx); err != nil {
			log.Error("prepare ledger schema", "error", err)
			os.Exit(1)
		}
		ledgerStore = pg
	} else {
		log.Warn("no postgres configured, ledger is in-memory")
		ledgerStore = ledger.NewInMemoryStore()
	}

	var states state.Store
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		states = state.NewRedisStore(redisClient.Client)
	} else {
		log.Warn("no redis configured, payment state is in-memory")
		states = state.NewInMemoryStore()
	}

	var auditStore audit.Store
	if cfg.KafkaSeeds != "" {
		ks, err := audit.NewKafkaStore(ctx, strings.Split(cfg.KafkaSeeds, ","))
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer ks.Close()
		async := audit.NewAsyncStore(ks, 256)
		go func() {
			if err := async.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("audit worker stopped", "error", err)
			}
		}()
		auditStore = async
	} else {
		auditStore = audit.NewInMemoryStore()
	}

	relayURL := strings.TrimRight(cfg.DirectoryBaseURL, "/") + "/transfers/receive"
	bank := transfer.NewBankService(
		privateKey,
		centralKey,
		identity,
		ledgerStore,
		states,
		config.StateValidity,
		transfer.NewHTTPEnvelopeSender(10*time.Second),
		relayURL,
		audit.NewPublisher(auditStore),
		metrics.New(),
		log,
	)

	jwtService := jwtauth.NewService(cfg.JWTSigningKey, cfg.BankSwiftCode)
	router := httptransport.NewBankRouter(httptransport.BankDeps{
		Payments:  transferHandler.NewBank(bank, config.StateValidity, log),
		Ledger:    ledgerHandler.New(ledgerStore, log),
		Validator: jwtService,
		Logger:    log,
		Health: func() error {
			if db != nil {
				return db.PingContext(ctx)
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("bank listening", "addr", cfg.Addr, "swift_code", cfg.BankSwiftCode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shut down cleanly")
}
