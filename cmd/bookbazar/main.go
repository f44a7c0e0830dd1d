// Package main запускает HTTP-сервер магазина BookBazar.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/bookbazar/internal/catalog"
	"github.com/mmeshcher/bookbazar/internal/cloud"
	"github.com/mmeshcher/bookbazar/internal/config"
	"github.com/mmeshcher/bookbazar/internal/handler"
	"github.com/mmeshcher/bookbazar/internal/middleware"
	"github.com/mmeshcher/bookbazar/internal/notify"
	"github.com/mmeshcher/bookbazar/internal/repository"
	"github.com/mmeshcher/bookbazar/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	return cfg.Build()
}

func main() {
	// .env необязателен: при его отсутствии используются переменные окружения процесса.
	envErr := godotenv.Load()

	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger initialization error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		sugar.Warnw("failed to load .env file", "error", envErr)
	}

	loc, err := cfg.Location()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.Open(ctx, cfg.DatabaseURI, repository.Options{MongoDatabase: cfg.MongoDatabase})
	if err != nil {
		sugar.Fatalw("storage initialization error", "error", err)
	}
	sugar.Infow("storage ready", "backend", repo.Name())

	var awsCfg aws.Config
	if cfg.CatalogBucket != "" || cfg.SNSTopicARN != "" {
		awsCfg, err = cloud.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			sugar.Fatalw("aws initialization error", "error", err)
		}
	}

	var src catalog.Source
	if cfg.CatalogBucket != "" {
		src = catalog.NewS3SourceFromConfig(awsCfg, cfg.CatalogBucket, cfg.CatalogKey)
	} else {
		if cfg.CatalogSeed {
			created, err := catalog.SeedFile(cfg.CatalogPath)
			if err != nil {
				sugar.Warnw("catalog seeding failed", "path", cfg.CatalogPath, "error", err)
			} else if created {
				sugar.Infow("catalog file seeded", "path", cfg.CatalogPath)
			}
		}
		src = catalog.FileSource{Path: cfg.CatalogPath}
	}
	books := catalog.Load(ctx, src, logger)

	var publishers []notify.Publisher
	if cfg.SNSTopicARN != "" {
		publishers = append(publishers, notify.NewSNSPublisherFromConfig(awsCfg, cfg.SNSTopicARN))
	}
	if cfg.WebhookURL != "" {
		publishers = append(publishers, notify.NewWebhookPublisher(cfg.WebhookURL))
	}
	if len(publishers) == 0 {
		publishers = append(publishers, notify.NewLogPublisher(logger))
	}

	dispatcherOpts := []notify.Option{notify.WithTimeout(cfg.NotifyTimeout)}
	if cfg.SMTPHost != "" {
		dispatcherOpts = append(dispatcherOpts, notify.WithMailer(
			notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailSender),
		))
	}
	dispatcher := notify.NewDispatcher(logger, publishers, dispatcherOpts...)
	sugar.Infow("notifications ready", "sinks", dispatcher.Sinks())

	svc := service.NewService(repo, books, dispatcher,
		service.WithPasswordMinLength(cfg.PasswordMinLength),
		service.WithLocation(loc),
	)

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is not set, sessions will not survive a restart")
	}
	sessions := middleware.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL)
	h := handler.NewHandler(svc, logger, sessions)

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера
	g.Go(func() error {
		sugar.Infow("starting bookbazar server", "addr", cfg.RunAddress, "catalog", books.Source())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var err error
		if sErr := server.Shutdown(shutdownCtx); sErr != nil {
			err = multierr.Append(err, fmt.Errorf("server shutdown error: %w", sErr))
		}
		if dErr := dispatcher.Close(shutdownCtx); dErr != nil {
			err = multierr.Append(err, fmt.Errorf("notification drain error: %w", dErr))
		}
		if cErr := repo.Close(); cErr != nil {
			err = multierr.Append(err, fmt.Errorf("storage close error: %w", cErr))
		}
		if err != nil {
			return err
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
