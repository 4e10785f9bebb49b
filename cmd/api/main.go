package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wastepay/payment-service/internal/api"
	"github.com/wastepay/payment-service/internal/config"
	"github.com/wastepay/payment-service/internal/db"
	"github.com/wastepay/payment-service/internal/gateway"
	"github.com/wastepay/payment-service/internal/logger"
	"github.com/wastepay/payment-service/internal/metrics"
	"github.com/wastepay/payment-service/internal/queue"
	"github.com/wastepay/payment-service/internal/repository/postgres"
	"github.com/wastepay/payment-service/internal/services"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, dbPool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	// Everything is wired here, once; no package-level singletons.
	repos := postgres.NewRepositories(dbPool)
	gw := gateway.NewRazorpayClient(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)

	walletSvc := services.NewWalletService(repos.Wallets, repos.Transactions, gw, cfg.GatewayCurrency)
	collectionSvc := services.NewCollectionPaymentService(repos.Wallets, repos.CollectionPayments, gw, cfg.GatewayCurrency)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	guard := queue.NewDedupGuard(rdb, 24*time.Hour)

	consumers := []*queue.Consumer{
		queue.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, queue.TopicUserCreated,
			queue.NewUserCreatedHandler(walletSvc), guard, log),
		queue.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, queue.TopicCollectionCancelled,
			queue.NewCollectionCancelledHandler(collectionSvc), guard, log),
	}
	for _, c := range consumers {
		go func(c *queue.Consumer) {
			if err := c.Run(ctx); err != nil {
				log.Error("consumer stopped", "err", err)
			}
		}(c)
	}

	metrics.Init()
	r := api.NewRouter(cfg, walletSvc, collectionSvc)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
