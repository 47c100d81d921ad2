package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stitchmart/stitchmart-backend/internal/config"
	"github.com/stitchmart/stitchmart-backend/internal/kafka"
	"github.com/stitchmart/stitchmart-backend/internal/modules/analytics"
	"github.com/stitchmart/stitchmart-backend/internal/modules/billing"
	"github.com/stitchmart/stitchmart-backend/internal/modules/dispatch"
	"github.com/stitchmart/stitchmart-backend/internal/modules/inventory"
	"github.com/stitchmart/stitchmart-backend/internal/modules/notification"
	"github.com/stitchmart/stitchmart-backend/internal/modules/order"
	"github.com/stitchmart/stitchmart-backend/internal/modules/payment"
	"github.com/stitchmart/stitchmart-backend/internal/modules/promo"
	"github.com/stitchmart/stitchmart-backend/internal/modules/sequence"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}
	logger.Info("connected to database")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 1024, logger)
	producer.Start(ctx)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	router.Handle("/metrics", promhttp.Handler())

	// ── Phase 1: Durable Stores ─────────────────────────────
	orderRepo := order.NewPostgresRepository(db)
	inventoryRepo := inventory.NewPostgresRepository(db)
	sequenceRepo := sequence.NewPostgresRepository(db)
	promoRepo := promo.NewPostgresRepository(db)

	// ── Phase 2: Core Services ──────────────────────────────
	sequenceService := sequence.NewService(sequenceRepo)

	inventoryService := inventory.NewService(inventoryRepo, logger)
	inventory.NewHandler(inventoryService).RegisterRoutes(router)

	billingService := billing.NewService(orderRepo, sequenceService, logger)

	promoService := promo.NewService(promoRepo, logger)

	// ── Phase 3: Settlement Side Effects ────────────────────
	recorder := analytics.NewRecorder(rdb, logger)
	mailer := notification.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, logger)

	dispatcher := dispatch.New(orderRepo, billingService, promoService,
		recorder, mailer, producer, logger)

	// ── Phase 4: Payment Verification & Orders ──────────────
	paymentService := payment.NewService(orderRepo, inventoryService, dispatcher,
		cfg.PaymentSecret, cfg.WebhookSecret, logger)
	payment.NewHandler(paymentService, logger).RegisterRoutes(router)

	orderService := order.NewService(orderRepo, inventoryService, paymentService, logger)

	// Order and billing endpoints share one /api/v1/orders subrouter; two
	// separate mounts for the same prefix would shadow each other.
	router.Route("/api/v1/orders", func(r chi.Router) {
		order.NewHandler(orderService).RegisterRoutes(r)
		billing.NewHandler(billingService).RegisterRoutes(r)
	})

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: router}
	go func() {
		logger.Info("starting server", zap.String("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	producer.WaitClosed()
}
