package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	apperrors "github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/errors"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/logger"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/middleware"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/config"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/controllers"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/database"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/network"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/notify"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/repository"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/routes"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/pos-service/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceName = "pos-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	// --- Logging ---
	cwLogs, cwErr := awspkg.NewCloudWatchLogsClient(ctx, serviceName, cfg.TerminalID)
	if cwErr != nil || !cwLogs.IsEnabled() {
		logger.Initialize(cfg.Env)
	} else {
		logger.InitializeWithWriter(cfg.Env, cwLogs)
	}
	log := logger.Log.With(zap.String("service", serviceName), zap.String("terminal_id", cfg.TerminalID))
	defer log.Sync()
	if cwErr != nil {
		log.Warn("CloudWatch Logs init failed (non-fatal)", zap.Error(cwErr))
	}

	// --- Local storage ---
	var store database.Store
	var redisClient *redis.Client
	switch cfg.Store {
	case config.StoreRedis:
		client, err := database.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("Redis connection failed", zap.Error(err))
		}
		redisClient = client
		store = database.NewRedisStore(client, cfg.TerminalID)
	default:
		fileStore, err := database.NewFileStore(cfg.DataDir)
		if err != nil {
			log.Fatal("Local data directory unavailable", zap.Error(err))
		}
		store = fileStore
		log.Info("Using file store", zap.String("dir", cfg.DataDir))
	}

	metricsClient, err := awspkg.NewMetricsClient(ctx)
	if err != nil {
		log.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	// --- Notifications ---
	hub := notify.NewHub(log)
	notifiers := notify.Multi{hub, notify.NewLogNotifier(log)}
	if cfg.SNSTopicArn != "" {
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Warn("AWS config unavailable, SNS alerts disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, notify.NewSNSNotifier(awspkg.NewSNSClient(awsCfg, cfg.TerminalID), cfg.SNSTopicArn, cfg.TerminalID, log))
		}
	}

	// --- Dependency injection ---
	queueRepo := repository.NewQueueRepository(store, log)
	reviewRepo := repository.NewReviewRepository(store, log)
	cartRepo := repository.NewCartRepository(store, log)

	orderClient := services.NewHTTPOrderClient(cfg.OrderServiceURL, cfg.CommitTimeout, cfg.TerminalID, cfg.CashierID, log)
	monitor := network.NewMonitor(network.NewHTTPProbe(cfg.HealthURL, cfg.ProbeInterval), cfg.SyncDebounce, log)

	cartService := services.NewCartService(cartRepo, log)
	checkoutService := services.NewCheckoutService(cartService, queueRepo, orderClient, monitor, notifiers, metricsClient, log, cfg.CashierID)
	syncService := services.NewSyncService(queueRepo, reviewRepo, orderClient, notifiers, metricsClient, log, services.SyncConfig{
		MaxRejections: cfg.SyncMaxRejections,
		Rate:          cfg.SyncRate,
		Burst:         1,
	})

	monitor.Subscribe(services.ConnectivityEvents(ctx, notifiers))
	monitor.OnReconnect(func() { syncService.Trigger(ctx) })

	// --- Background workers ---
	var wg sync.WaitGroup
	start := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	start(func() { hub.Run(ctx) })

	if monitor.Init(ctx) == network.Online {
		if n, err := queueRepo.Len(ctx); err == nil && n > 0 {
			log.Info("Pending offline orders found at startup", zap.Int("queued", n))
			syncService.Trigger(ctx)
		}
	}
	start(func() { monitor.Run(ctx, cfg.ProbeInterval) })
	start(func() { syncService.RunPeriodic(ctx, cfg.SyncInterval, monitor.IsOnline) })

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log, "/health", "/offline/status"))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterPOSRoutes(r,
		controllers.NewCartController(cartService, checkoutService),
		controllers.NewOfflineController(syncService, monitor, hub),
	)
	routes.RegisterCustomerRoutes(r, controllers.NewCustomerController(services.NewCustomerService(orderClient, monitor, log)))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info("POS Service started", zap.String("port", cfg.Port), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	wg.Wait()
	syncService.Wait()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Redis close error", zap.Error(err))
		}
	}
	log.Info("POS Service stopped gracefully")
}
