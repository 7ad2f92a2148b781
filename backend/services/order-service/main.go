package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	awspkg "github.com/bambudeliciascafe2025/systemPOSPlus/backend/pkg/aws"
	apperrors "github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/errors"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/logger"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/common/middleware"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/controllers"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/database"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/kafka"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/models"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/repository"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/routes"
	"github.com/bambudeliciascafe2025/systemPOSPlus/backend/services/order-service/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "order-service"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Logging ---
	env := os.Getenv("APP_ENV")
	cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, serviceName, "")
	if err != nil || !cwLogs.IsEnabled() {
		logger.Initialize(env)
	} else {
		logger.InitializeWithWriter(env, cwLogs)
	}
	log := logger.Log.With(zap.String("service", serviceName))
	defer log.Sync()
	if err != nil {
		log.Warn("CloudWatch Logs init failed (non-fatal)", zap.Error(err))
	}

	cfg, err := LoadConfig(log)
	if err != nil {
		log.Fatal("Config load failed", zap.Error(err))
	}

	// --- Database ---
	db, err := database.ConnectPostgres(cfg.Postgres, log,
		&models.Product{}, &models.Order{}, &models.OrderItem{}, &models.StockMovement{},
		&models.Customer{}, &models.RejectedCommit{})
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}

	// --- CloudWatch metrics (non-fatal) ---
	metricsClient, err := awspkg.NewMetricsClient(ctx)
	if err != nil {
		log.Warn("CloudWatch metrics client init failed (non-fatal)", zap.Error(err))
	}

	// --- Events ---
	var events kafka.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		events = kafka.NewProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic, log)
	} else {
		log.Info("KAFKA_BROKERS not set, order events disabled")
	}

	// --- Dependency injection ---
	orderRepo := repository.NewGormOrderRepository(db)
	orderService := services.NewOrderService(orderRepo, events, metricsClient, log)
	orderController := controllers.NewOrderController(orderService)
	productController := controllers.NewProductController(
		services.NewProductService(repository.NewGormProductRepository(db), log),
	)
	customerController := controllers.NewCustomerController(
		services.NewCustomerService(repository.NewGormCustomerRepository(db), log),
	)
	rejectedRepo := repository.NewGormRejectedCommitRepository(db)
	rejectedController := controllers.NewRejectedCommitController(services.NewRejectedCommitService(rejectedRepo, log))

	var commitLimiter *middleware.RateLimiter
	if cfg.CommitRatePerMinute > 0 {
		commitLimiter = middleware.NewRateLimiter(ctx, rate.Every(time.Minute/time.Duration(cfg.CommitRatePerMinute)), cfg.CommitRatePerMinute/2+1, 10*time.Minute)
	}

	// --- HTTP router ---
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log, "/health"))
	r.Use(middleware.MetricsMiddleware(metricsClient, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware())
	r.Use(apperrors.ErrorMiddleware())

	// Request timeout middleware
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})

	routes.RegisterOrderRoutes(r, orderController, commitLimiter)
	routes.RegisterProductRoutes(r, productController)
	routes.RegisterCustomerRoutes(r, customerController)
	routes.RegisterRejectedCommitRoutes(r, rejectedController)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			_ = c.Error(apperrors.Wrap(apperrors.ErrServiceUnavailable, err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	})

	// --- Commit queue consumer ---
	var wg sync.WaitGroup
	if cfg.CommitQueueURL != "" {
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatal("Failed to load AWS config", zap.Error(err))
		}
		consumer := services.NewSQSCommitConsumer(awspkg.NewSQSQueue(awsCfg, cfg.CommitQueueURL, log), orderService, rejectedRepo, metricsClient, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(ctx)
		}()
	}

	// --- HTTP server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Info("Order Service started", zap.String("port", cfg.Port))
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

	if events != nil {
		if err := events.Close(); err != nil {
			log.Error("Kafka producer close error", zap.Error(err))
		}
	}
	if err := database.Close(db); err != nil {
		log.Error("Database close error", zap.Error(err))
	}

	log.Info("Order Service stopped gracefully")
}
