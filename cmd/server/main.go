package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"imeigate/internal/audit"
	"imeigate/internal/imeicheck"
	"imeigate/internal/membership/metrics"
	"imeigate/internal/membership/service"
	"imeigate/internal/membership/store"
	"imeigate/internal/platform/config"
	"imeigate/internal/platform/httpserver"
	"imeigate/internal/platform/logger"
	httptransport "imeigate/internal/transport/http"
	telegramtransport "imeigate/internal/transport/telegram"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.AppTitle, cfg.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var users store.UserStore
	var admins store.AdminStore
	if cfg.DatabaseURL != "" {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := store.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		users = store.NewPostgresUserStore(db)
		admins = store.NewPostgresAdminStore(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		users = store.NewInMemoryUserStore()
		admins = store.NewInMemoryAdminStore()
	}

	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("failed to create kafka audit sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		sink = audit.NewMemorySink()
	}
	publisher := audit.NewQueuePublisher(256)
	worker := audit.NewWorker(sink, publisher.Inbox(), log)

	m := metrics.New()
	admission, err := service.New(users, admins,
		service.WithLogger(log),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build admission service", "error", err)
		os.Exit(1)
	}

	verifier := imeicheck.NewHTTPClient(cfg.IMEICheckURL, cfg.VerifyToken(), cfg.VerifyTimeout)

	handler := httptransport.New(admission, verifier, cfg.APIToken, log,
		httptransport.WithRetryPolicy(imeicheck.RetryPolicy{
			Attempts: cfg.APIRetryAttempts,
			Backoff:  cfg.RetryBackoff,
		}),
		httptransport.WithServiceID(cfg.DefaultService),
		httptransport.WithMetrics(m),
	)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.TelegramBotToken != "" {
		bot, err := telegramtransport.New(cfg.TelegramBotToken, admission, verifier, log,
			telegramtransport.WithRetryPolicy(imeicheck.RetryPolicy{
				Attempts: cfg.BotRetryAttempts,
				Backoff:  cfg.RetryBackoff,
			}),
			telegramtransport.WithServiceID(cfg.DefaultService),
		)
		if err != nil {
			log.Error("failed to start telegram bot", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return bot.Run(ctx)
		})
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, chat front-end disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
