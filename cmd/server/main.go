// The central payment API: accepts merchant envelopes, serves the bank
// directory, and relays settled transfers between banks.
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
	directoryHandler "paygate/internal/directory/handler"
	"paygate/internal/envelope"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	privateKey, err := envelope.ParsePrivateKey([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		log.Error("invalid private key", "error", err)
		os.Exit(1)
	}
	merchantKey, err := envelope.ParsePublicKey([]byte(cfg.MerchantPublicKeyPEM))
	if err != nil {
		log.Error("invalid merchant public key", "error", err)
		os.Exit(1)
	}

	// Directory store: postgres when configured, seeded memory otherwise.
	var dirStore directory.Store
	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := directory.NewPostgresStore(db)
		if err := pg.Schema(ctx); err != nil {
			log.Error("prepare directory schema", "error", err)
			os.Exit(1)
		}
		dirStore = pg
	} else {
		log.Warn("no postgres configured, directory is in-memory")
		dirStore = directory.NewInMemoryStore()
	}

	// Signed-state store: redis when configured so a restart does not drop
	// in-flight payments.
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

	dirService := directory.NewService(dirStore)
	central := transfer.NewCentralService(
		privateKey,
		merchantKey,
		dirService,
		states,
		config.StateValidity,
		transfer.NewHTTPEnvelopeSender(10*time.Second),
		audit.NewPublisher(auditStore),
		metrics.New(),
		log,
	)

	router := httptransport.NewCentralRouter(httptransport.CentralDeps{
		Payments:  transferHandler.NewCentral(central, config.StateValidity, log),
		Directory: directoryHandler.New(dirService, log),
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
		log.Info("central payment api listening", "addr", cfg.Addr)
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
