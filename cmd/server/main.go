package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/api"
	"github.com/clinical-reasoning-server/internal/cache"
	"github.com/clinical-reasoning-server/internal/config"
	"github.com/clinical-reasoning-server/internal/database"
	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
	"github.com/clinical-reasoning-server/internal/notify"
	"github.com/clinical-reasoning-server/internal/repository"
	"github.com/clinical-reasoning-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(&cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, pool, err := buildStore(ctx, configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize report store")
	}
	defer store.Close()
	if pool != nil {
		defer pool.Close()
	}

	reports, err := cache.NewReportCache(cfg.Cache.ReportCacheSize)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize report cache")
	}

	var notifier domain.Notifier = notify.NewLogNotifier(logger)
	if cfg.Cache.RedisEnabled {
		redisNotifier, err := notify.NewRedisNotifier(cfg.Cache.RedisURL, cfg.Cache.EventChannel, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis notifier unavailable, falling back to log notifier")
		} else {
			defer redisNotifier.Close()
			notifier = redisNotifier
		}
	}

	var hook domain.ReasoningHook
	if cfg.Pipeline.Hook.Enabled {
		hook = service.NewRemoteReasoningHook(&cfg.Pipeline.Hook, logger)
	}

	pipeline := service.NewPipeline(
		service.NewEvidenceAggregator(logger),
		service.NewDiagnosisEngine(knowledge.DefaultRuleTable(), logger),
		service.NewRiskStratifier(logger),
		service.NewTreatmentPlanner(knowledge.DefaultGuidelineTable(), logger),
		service.NewSafetyChecker(knowledge.DefaultInteractionTable(), knowledge.DefaultMedicationRegistry(), logger),
		service.NewPrescriptionDrafter(knowledge.DefaultMedicationRegistry(), knowledge.DefaultInteractionTable(), logger),
		hook,
		notifier,
		logger,
	)

	server := api.NewServer(&cfg.Server, pipeline, store, reports, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Clinical reasoning server starting")

	if err := server.Start(); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

// buildStore creates the configured report store. For Postgres it also
// establishes the health-check pool and runs migrations.
func buildStore(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) (domain.ReportStore, *database.DB, error) {
	cfg := configManager.GetDatabaseConfig()

	switch cfg.Driver {
	case "sqlite":
		store, err := repository.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("path", cfg.Path).Info("SQLite report store ready")
		return store, nil, nil

	case "postgres":
		pool, err := database.NewConnection(ctx, database.Config{
			Host:        cfg.Host,
			Port:        cfg.Port,
			Database:    cfg.Database,
			Username:    cfg.Username,
			Password:    cfg.Password,
			SSLMode:     cfg.SSLMode,
			MaxConns:    int32(cfg.MaxOpenConns),
			MinConns:    int32(cfg.MaxIdleConns),
			MaxConnLife: cfg.ConnMaxLifetime,
			MaxConnIdle: cfg.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, nil, err
		}

		if cfg.AutoMigrate {
			url := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)
			runner, err := database.NewMigrationRunner(url, "migrations", logger)
			if err != nil {
				pool.Close()
				return nil, nil, err
			}
			if err := runner.Up(); err != nil {
				runner.Close()
				pool.Close()
				return nil, nil, err
			}
			runner.Close()
		}

		store, err := repository.NewPostgresStore(configManager.GetDatabaseConnectionString(), cfg)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool, nil

	default:
		return nil, nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func newLogger(cfg *domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return logger
}
