package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dartsight/internal/billing"
	"dartsight/internal/common/auth"
	commonaws "dartsight/internal/common/aws"
	"dartsight/internal/common/config"
	"dartsight/internal/common/database"
	"dartsight/internal/common/logger"
	"dartsight/internal/common/observability"
	"dartsight/internal/jobs"
	"dartsight/internal/notify"
	"dartsight/internal/profile"
	"dartsight/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting api server",
		zap.String("environment", cfg.App.Environment),
		zap.String("address", cfg.Server.Address),
	)

	obs := observability.New("dartsight-api")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Notification channel (optional) ---
	var notifier billing.Notifier
	if cfg.Notifications.Email.Enabled {
		sesClient, err := commonaws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		notifier = notify.NewEmailNotifier(sesClient, cfg.Notifications, log)
		zapLog.Info("email notifications enabled")
	}

	// --- Assemble components ---
	verifier := auth.NewSupabaseClient(cfg.Supabase.URL, cfg.Supabase.AnonKey)
	profiles := profile.NewPostgresStore(pg.GetDB(), log)
	billingSvc := billing.NewService(cfg.Stripe, cfg.App.BaseURL, profiles, log)
	webhooks := billing.NewWebhookDispatcher(
		cfg.Stripe.WebhookSecret, cfg.Stripe.PlanLimits, profiles, rdb.GetClient(), notifier, log,
	)
	backend := jobs.NewClient(cfg.Backend, log)
	statusCache := jobs.NewStatusCache(
		config.GetDuration(cfg.Cache.TTL), cfg.Cache.MaxEntries, cfg.Cache.EvictBatch, time.Now,
	)

	srv := server.New(server.Options{
		Config:   cfg,
		Verifier: verifier,
		Profiles: profiles,
		Billing:  billingSvc,
		Webhooks: webhooks,
		Backend:  backend,
		Cache:    statusCache,
		Obs:      obs,
		Logger:   log,
		Ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := pg.Ping(pingCtx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			return rdb.Ping(pingCtx)
		},
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Routes(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown not clean", zap.Error(err))
	}
	zapLog.Info("stopped")
}
