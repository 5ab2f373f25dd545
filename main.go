// Package main provides the entry point of the quote-core pricing and extraction-improvement service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/quote-core/analysis"
	"github.com/amirphl/quote-core/app/handlers"
	"github.com/amirphl/quote-core/app/middleware"
	"github.com/amirphl/quote-core/app/router"
	"github.com/amirphl/quote-core/app/scheduler"
	"github.com/amirphl/quote-core/app/services"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/logging"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/repository"
	"github.com/amirphl/quote-core/routing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	logger    *zap.Logger
	db        *gorm.DB
	redis     *redis.Client
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	logger.Info("starting quote-core",
		zap.String("environment", cfg.Deployment.Environment),
		zap.String("version", cfg.Deployment.Version),
		zap.String("commit", cfg.Deployment.CommitHash),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeApplication(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	logger.Info("shutting down gracefully")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if sqlDB, err := app.db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("server stopped")
}

// initializeApplication wires storage, flows, handlers, router and schedulers
func initializeApplication(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.AutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("database schema migrated")
	}

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	app := &Application{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  rc,
	}
	if rc != nil {
		app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(ctx, rc, cfg.Cache.CleanupInterval, logger))
	}

	// Repositories
	factorRepo := repository.NewPricingFactorRepository(db)
	companyRepo := repository.NewCompanyConfigRepository(db)
	adjustmentRepo := repository.NewDynamicAdjustmentRepository(db)
	materialRepo := repository.NewMaterialCatalogRepository(db)
	surchargeRepo := repository.NewSurchargeRuleRepository(db)
	calculationRepo := repository.NewPriceCalculationRepository(db)
	extractionRepo := repository.NewExtractionFieldResultRepository(db)
	patternRepo := repository.NewFailurePatternRepository(db)
	proposalRepo := repository.NewFixProposalRepository(db)
	auditRepo := repository.NewFixProposalAuditRepository(db)
	knowledgeRepo := repository.NewKnowledgeEntryRepository(db)
	runRepo := repository.NewAnalysisRunRepository(db)

	// Redis backed services (no-ops without Redis)
	factorCache := services.NewFactorCache(rc, cfg.Cache, cfg.Pricing.FactorCacheTTL)
	deployLocker := services.NewDeployLocker(rc, cfg.Cache, cfg.Pipeline.DeployLockTTL)
	verificationQueue := services.NewVerificationQueue(rc, cfg.Cache)

	tokenService, err := services.NewTokenService(cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.UseRSAKeys, cfg.JWT.PublicKey, cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	policy, err := routing.ParsePolicy(cfg.Routing.HumanReviewPolicy)
	if err != nil {
		return nil, err
	}
	gates, err := pipelineGates(cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	// Business flows
	snapshots := businessflow.NewSnapshotLoader(factorRepo, companyRepo, adjustmentRepo, materialRepo, surchargeRepo, factorCache, logger)
	calculationFlow := businessflow.NewCalculationFlow(snapshots, calculationRepo, policy, logger)
	extractionFlow := businessflow.NewExtractionFlow(extractionRepo, proposalRepo, verificationQueue, cfg.Routing.QueueEnabled, logger)
	ruleFlow := businessflow.NewRuleFlow(nil, logger)
	analysisFlow := businessflow.NewPatternAnalysisFlow(extractionRepo, patternRepo, proposalRepo, runRepo, db, businessflow.AnalysisOptions{
		Lookback:            cfg.Scheduler.AnalysisWindow,
		Concurrency:         cfg.Scheduler.AnalysisConcurrency,
		AutoProposeSeverity: analysis.Severity(cfg.Scheduler.AutoProposeSeverity),
	}, logger)
	proposalFlow := businessflow.NewFixProposalFlow(proposalRepo, auditRepo, knowledgeRepo, patternRepo, extractionRepo,
		deployment.NewPipeline(gates), deployLocker, db, logger)
	adminFlow := businessflow.NewPricingAdminFlow(factorRepo, companyRepo, adjustmentRepo, materialRepo, surchargeRepo,
		factorCache, cfg.Pricing.DefaultCurrency, db, logger)

	if err := seedPricingFactors(ctx, cfg.Pricing.FactorsSeedFile, adminFlow, logger); err != nil {
		return nil, err
	}

	// Handlers and router
	app.router = router.NewFiberRouter(cfg, router.Handlers{
		Calculation:  handlers.NewCalculationHandler(calculationFlow, logger),
		Extraction:   handlers.NewExtractionHandler(extractionFlow, logger),
		Rule:         handlers.NewRuleHandler(ruleFlow, logger),
		Analysis:     handlers.NewAnalysisHandler(analysisFlow, logger),
		FixProposal:  handlers.NewFixProposalHandler(proposalFlow, logger),
		PricingAdmin: handlers.NewPricingAdminHandler(adminFlow, logger),
	}, middleware.NewAuthMiddleware(tokenService), db, rc, logger)

	// Schedulers
	if cfg.Scheduler.AnalysisEnabled {
		s := scheduler.NewAnalysisScheduler(analysisFlow, cfg.Scheduler.AnalysisInterval, logger)
		app.stopFuncs = append(app.stopFuncs, s.Start(ctx))
	}
	if cfg.Scheduler.MonitoringEnabled {
		s := scheduler.NewMonitoringScheduler(proposalFlow, cfg.Scheduler.MonitoringInterval, logger)
		app.stopFuncs = append(app.stopFuncs, s.Start(ctx))
	}

	return app, nil
}

// pipelineGates builds the deployment gates from configuration
func pipelineGates(cfg config.PipelineConfig) (deployment.Gates, error) {
	window, err := deployment.NewWindow(cfg.WindowTimezone, cfg.WindowWeekdays, cfg.WindowStartHour, cfg.WindowEndHour)
	if err != nil {
		return deployment.Gates{}, err
	}
	return deployment.Gates{
		MinTestSuccessRate:   cfg.MinTestSuccessRate,
		MinConfidenceScore:   cfg.MinConfidenceScore,
		MonitoringWindow:     cfg.MonitoringWindow,
		RollbackWindow:       cfg.RollbackWindow,
		MinPostDeploySamples: cfg.MinPostDeploySamples,
		Window:               window,
	}, nil
}

// seedPricingFactors upserts the TIER 1 factors of the configured seed file, if any
func seedPricingFactors(ctx context.Context, path string, flow businessflow.PricingAdminFlow, logger *zap.Logger) error {
	if path == "" {
		return nil
	}
	seed, err := config.LoadPricingSeed(path)
	if err != nil {
		return err
	}
	n, err := flow.SeedPricingFactors(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to seed pricing factors: %w", err)
	}
	logger.Info("pricing factors seeded", zap.String("file", path), zap.Int("factors", n))
	return nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)
	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		logger.Info("redis disabled; factor cache, verification queue and deploy lock are no-ops")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis connection established", zap.Int("db", cfg.RedisDB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to detect connectivity issues.
// The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}
