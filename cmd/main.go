package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"repairhub/internal/config"
	httpapi "repairhub/internal/http"
	"repairhub/internal/logger"
	"repairhub/internal/notify"
	"repairhub/internal/repository"
	"repairhub/internal/service"

	_ "repairhub/docs"
)

// @title repairhub API
// @version 1.0
// @description Appliance repair, donation and refurbished sales platform.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("service stopped with error", zap.Error(err))
	}
}

// stores хранилища выбранного драйвера и их закрытие
type stores struct {
	cases    repository.CaseRepository
	accounts repository.LoyaltyRepository
	tx       repository.TxManager
	ready    func(ctx context.Context) error
	close    func() error
}

func openStores(cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Database.Driver == config.DriverMemory {
		mem := repository.NewMemoryStore()
		log.Warn("using in-memory store, data is lost on restart")
		return &stores{
			cases:    mem,
			accounts: repository.NewMemoryLoyalty(mem),
			tx:       repository.NewMemoryTx(mem),
			close:    func() error { return nil },
		}, nil
	}

	db, err := repository.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	gs := repository.NewGormStore(db)
	log.Info("database connected", zap.String("driver", cfg.Database.Driver))
	return &stores{cases: gs, accounts: gs, tx: gs, ready: sqlDB.PingContext, close: sqlDB.Close}, nil
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	retry := repository.RetryConfig{
		MaxRetries:        cfg.Store.MaxRetries,
		InitialBackoff:    cfg.Store.InitialBackoff,
		MaxBackoff:        cfg.Store.MaxBackoff,
		BackoffMultiplier: cfg.Store.BackoffMultiplier,
	}
	cases := repository.NewRetryingCases(st.cases, retry, log)
	accounts := repository.NewRetryingLoyalty(st.accounts, retry, log)
	tx := repository.NewRetryingTx(st.tx, retry, log)

	var notifier service.Notifier = notify.NewLogNotifier(log)
	if cfg.Redis.Enabled {
		client, err := notify.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		notifier = notify.Multi{notifier, notify.NewRedisNotifier(client, cfg.Redis.Channel)}
		log.Info("publishing case events to redis", zap.String("channel", cfg.Redis.Channel))
	}

	catalog, err := service.NewCatalog(cfg.Loyalty.Catalog)
	if err != nil {
		return fmt.Errorf("invalid rewards catalog: %w", err)
	}
	eligibility := service.NewEligibility(cfg.ServiceArea.PostalCodes)
	loyaltySvc := service.NewLoyaltyService(accounts, tx, catalog, cfg.Loyalty.Rates, log)
	casesSvc := service.NewCaseService(cases, tx, loyaltySvc, service.NewPriceTable(cfg.Pricing), eligibility, notifier, log)
	scheduler := service.NewScheduler(cases, tx, log)

	gin.SetMode(cfg.Server.Mode)
	srv := httpapi.NewServer(httpapi.Deps{
		Cases:       casesSvc,
		Scheduler:   scheduler,
		Loyalty:     loyaltySvc,
		Eligibility: eligibility,
		Log:         log,
		JWT:         cfg.JWT,
		RateLimit:   cfg.RateLimit,
		Ready:       st.ready,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}
	casesSvc.WaitNotifications()
	return nil
}
