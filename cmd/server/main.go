package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitcrush/config"
	"fitcrush/internal/database"
	"fitcrush/internal/logger"
	"fitcrush/internal/middleware"
	"fitcrush/internal/mq"
	"fitcrush/internal/repository"
	"fitcrush/internal/router"
	"fitcrush/internal/service"
	"fitcrush/internal/worker"
	"fitcrush/pkg/cloudinary"
	"fitcrush/pkg/limits"
	"fitcrush/pkg/mail"
	"fitcrush/pkg/payment"

	"github.com/bwmarrin/snowflake"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	var configFile string
	root := &cobra.Command{
		Use:          "fitcrush",
		Short:        "FitCrush API server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./config.yaml)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox dispatcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(configFile)
		},
	}
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			slog.Info("migrations applied", "driver", cfg.Database.Driver)
			return nil
		},
	}
	root.AddCommand(serve, migrate)
	root.RunE = serve.RunE

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap(configFile string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger.New(cfg.Log.Level))
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	return cfg, db, nil
}

func runServe(configFile string) error {
	cfg, db, err := bootstrap(configFile)
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, closeDeps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDeps()

	app, err := router.Setup(cfg, db, deps.Deps)
	if err != nil {
		return err
	}

	dispatcher := worker.NewDispatcher(repository.NewOutboxRepository(db), app.Notifications, deps.publisher, cfg.Worker)
	go dispatcher.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	slog.Info("shutting down")

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

type serverDeps struct {
	router.Deps
	publisher mq.Publisher
}

// buildDeps connects the optional external services. Anything not configured
// falls back to the in-process implementation chosen by router.Setup.
func buildDeps(ctx context.Context, cfg *config.Config) (*serverDeps, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	d := &serverDeps{}

	if cfg.Cloudinary.CloudName != "" {
		cloud, err := cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			return nil, closeAll, fmt.Errorf("cloudinary: %w", err)
		}
		d.Cloud = cloud
	} else {
		slog.Warn("cloudinary not configured, photo uploads disabled")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, closeAll, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		d.Counter = limits.NewRedisCounter(client, "fitcrush:")
		d.Limiter = middleware.NewCounterRateLimiter(d.Counter, cfg.Server.RateLimit, time.Minute)
		slog.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := mq.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() { _ = pub.Close() })
		d.publisher = pub
	}

	switch cfg.Payment.Provider {
	case "checkout":
		d.Provider = payment.NewCheckoutProvider(cfg.Payment.BaseURL, cfg.Payment.APIKey)
	default:
		d.Provider = &payment.StubProvider{}
	}
	if cfg.Payment.WebhookSecret == "" {
		slog.Warn("payment.webhook_secret is empty; every payment webhook will be rejected")
	}

	if cfg.Mail.Endpoint != "" {
		d.Mailer = mail.NewHTTPSender(cfg.Mail.Endpoint, cfg.Mail.APIKey, cfg.Mail.From)
	}
	if fcm := service.NewFCMService(ctx, cfg.Firebase.CredentialsFile); fcm != nil {
		d.Pusher = fcm
		slog.Info("push notifications enabled")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		closeAll()
		return nil, func() {}, err
	}
	d.IDs = node
	return d, closeAll, nil
}
