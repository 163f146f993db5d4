package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"subscription-commerce/internal/config"
	"subscription-commerce/internal/infra/adapters/mercadopago"
	"subscription-commerce/internal/infra/api"
	pg "subscription-commerce/internal/infra/db/postgres"
	"subscription-commerce/internal/infra/logging"
	"subscription-commerce/internal/infra/metrics"
	red "subscription-commerce/internal/infra/redis"
	"subscription-commerce/internal/infra/sched"
	"subscription-commerce/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)
	subRepo := pg.NewSubscriptionRepo(pool)
	attemptRepo := pg.NewAttemptRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	couponRepo := pg.NewCouponRepo(pool)
	auditRepo := pg.NewFinancialLogRepo(pool)

	// ---- Gateway ----
	creds := cfg.Gateway.Credentials()
	tokens := mercadopago.NewTokenCache(creds.ClientID, creds.ClientSecret, cfg.Gateway.BaseURL)
	gateway := mercadopago.NewClient(cfg.Gateway.BaseURL, tokens)

	// ---- Use cases ----
	resolver := usecase.NewPlanResolver(planRepo, logger)
	reconcileUC := usecase.NewReconcileUseCase(
		gateway, resolver, attemptRepo, subRepo, paymentRepo, couponRepo, auditRepo, txManager, logger)
	checkoutUC := usecase.NewCheckoutUseCase(
		userRepo, planRepo, couponRepo, attemptRepo, gateway,
		usecase.CheckoutURLs{
			Success: cfg.Checkout.SuccessURL,
			Failure: cfg.Checkout.FailureURL,
			Pending: cfg.Checkout.PendingURL,
		}, logger)
	planUC := usecase.NewPlanUseCase(planRepo)
	statsUC := usecase.NewStatsUseCase(subRepo, paymentRepo, logger)

	// ---- Background sweep for lost webhooks ----
	reconciler := sched.NewAttemptReconciler(
		reconcileUC, attemptRepo, gateway, locker,
		cfg.Reconciler.Interval, cfg.Reconciler.StaleAge, logger)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.TokenTTL)
	webhook := api.NewWebhookHandler(reconcileUC, cfg.Gateway.WebhookSecret, logger)
	server := api.NewServer(cfg, webhook, auth, checkoutUC, planUC, statsUC, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server stopped")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}
