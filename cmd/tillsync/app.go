package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"github.com/vipul43/tillsync/internal/api"
	"github.com/vipul43/tillsync/internal/config"
	"github.com/vipul43/tillsync/internal/database"
	"github.com/vipul43/tillsync/internal/metrics"
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
	"github.com/vipul43/tillsync/internal/repository"
	"github.com/vipul43/tillsync/internal/service"
	"github.com/vipul43/tillsync/internal/syncer"
	"github.com/vipul43/tillsync/internal/watcher"
)

// app holds everything the commands share once configuration is loaded
type app struct {
	cfg          *config.Config
	db           *gorm.DB
	ops          *repository.PendingOperationRepository
	meta         *repository.SyncMetadataRepository
	orchestrator *syncer.Orchestrator
	watcher      *watcher.Watcher
	registry     *prometheus.Registry
	// records is the write path the status API exposes
	records *api.Records
}

func setupLogging(cfg *config.Config) {
	if cfg.LogFile == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}))
}

func policyFrom(cfg *config.Config) syncer.Policy {
	return syncer.Policy{
		MaxFailedAttempts:   cfg.MaxFailedAttempts,
		FullSyncThreshold:   cfg.FullSyncThreshold(),
		IncrementalBuffer:   cfg.IncrementalBuffer(),
		MaxPullAttempts:     cfg.MaxIncrementalRetries,
		BackoffUnit:         cfg.RetryBackoff(),
		MaxCleanupDeletions: cfg.MaxCleanupDeletions,
	}
}

// openDB connects and applies pending migrations
func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Println("Database connected successfully")

	log.Println("Running database migrations...")
	if err := database.RunMigrations(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	log.Println("Migrations completed successfully")
	return db, nil
}

func newApp(cfg *config.Config) (*app, error) {
	setupLogging(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	client, err := remote.NewClient(cfg.RemoteBaseURL, cfg.RemoteToken, time.Duration(cfg.HTTPTimeout)*time.Second)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to create remote client: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	ops := repository.NewPendingOperationRepository(db)
	meta := repository.NewSyncMetadataRepository(db)
	deps := syncer.Deps{
		Client:   client,
		Log:      ops,
		Metadata: meta,
		Policy:   policyFrom(cfg),
		Metrics:  m,
	}

	billings := repository.NewBillingRepository(db)
	stocks := repository.NewCacheRepository[models.Stock](db, "stock")
	customers := repository.NewCacheRepository[models.Customer](db, "customer")
	transactions := repository.NewCacheRepository[models.Transaction](db, "transaction")
	payments := repository.NewCacheRepository[models.BulkCreditPayment](db, "bulk credit payment")

	orchestrator := syncer.NewOrchestrator(ops, cfg.SyncParallelism, nil, m,
		syncer.NewBillingService(deps, billings),
		syncer.NewStockService(deps, stocks),
		syncer.NewCustomerService(deps, customers),
		syncer.NewTransactionService(deps, transactions),
		syncer.NewBulkCreditPaymentService(deps, payments),
	)

	return &app{
		cfg:          cfg,
		db:           db,
		ops:          ops,
		meta:         meta,
		orchestrator: orchestrator,
		watcher:      watcher.New(cfg, orchestrator),
		registry:     registry,
		records: &api.Records{
			Stocks:             service.NewStockService(db, stocks),
			Billings:           service.NewBillingService(db, billings),
			Customers:          service.NewCustomerService(db, customers),
			Transactions:       service.NewTransactionService(db, transactions),
			BulkCreditPayments: service.NewBulkCreditPaymentService(db, payments),
		},
	}, nil
}

func (a *app) Close() {
	if err := database.Close(a.db); err != nil {
		log.Printf("Warning: failed to close database: %v", err)
	}
}
