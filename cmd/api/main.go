package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsconsole/shipping-service/internal/application"
	"github.com/opsconsole/shipping-service/internal/infrastructure/browserprint"
	"github.com/opsconsole/shipping-service/internal/infrastructure/events"
	mongoRepo "github.com/opsconsole/shipping-service/internal/infrastructure/mongodb"
	"github.com/opsconsole/shipping-service/pkg/errors"
	"github.com/opsconsole/shipping-service/pkg/kafka"
	"github.com/opsconsole/shipping-service/pkg/logging"
	"github.com/opsconsole/shipping-service/pkg/metrics"
	"github.com/opsconsole/shipping-service/pkg/middleware"
	"github.com/opsconsole/shipping-service/pkg/mongodb"
)

const serviceName = "shipping-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting shipping-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer behind a circuit breaker
	kafkaProducer := kafka.NewProducer(config.Kafka)
	cbProducer := kafka.NewCircuitBreakerProducer(kafkaProducer, logger)
	defer cbProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	publisher := events.NewKafkaPublisher(cbProducer, "/"+serviceName, logger, m)

	// Initialize repositories and the printer bridge client
	repo := mongoRepo.NewRowRepository(mongoClient.Database(), logger, m)
	bridge := browserprint.NewClient(config.BrowserPrintURL)

	// Initialize application services
	rowService := application.NewRowService(repo, publisher, logger)
	allocationService := application.NewAllocationService(repo, publisher, logger, m)
	printService := application.NewPrintService(repo, bridge, publisher, logger, m)

	// Setup Gin router with middleware
	router := gin.New()

	// Apply standard middleware (includes recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes - Shipment rows
	api := router.Group("/api/v1/shipments")
	{
		api.POST("", createRowHandler(rowService, logger))
		api.GET("", searchRowsHandler(rowService, logger))
		api.GET("/:billingDocument", getRowHandler(rowService, logger))
		api.PUT("/:billingDocument", updateRowHandler(rowService, logger))
	}

	// API v1 routes - Transport runs and printing
	router.POST("/api/v1/transport-runs", allocateHandler(allocationService, logger))
	router.POST("/api/v1/labels/print", printLabelsHandler(printService, logger))
	router.GET("/api/v1/printers", printerStatusHandler(printService))

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr      string
	BrowserPrintURL string
	MongoDB         *mongodb.Config
	Kafka           *kafka.Config
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", "shipping_db")

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = []string{getEnv("KAFKA_BROKERS", "localhost:9092")}
	kafkaConfig.ClientID = serviceName

	return &Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8007"),
		BrowserPrintURL: getEnv("BROWSER_PRINT_URL", browserprint.DefaultBaseURL),
		MongoDB:         mongoConfig,
		Kafka:           kafkaConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// HTTP Handlers
func createRowHandler(service *application.RowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req application.RowInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		row, err := service.CreateRow(c.Request.Context(), application.CreateRowCommand{Row: req})
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusCreated, row)
	}
}

func updateRowHandler(service *application.RowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req application.RowInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.UpdateRowCommand{
			BillingDocument: c.Param("billingDocument"),
			Row:             req,
		}

		row, err := service.UpdateRow(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, row)
	}
}

func getRowHandler(service *application.RowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.GetRowQuery{BillingDocument: c.Param("billingDocument")}

		row, err := service.GetRow(c.Request.Context(), query)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, row)
	}
}

func searchRowsHandler(service *application.RowService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		start, err := time.Parse("2006-01-02", c.Query("start_date"))
		if err != nil {
			responder.RespondBadRequest("start_date must be formatted as YYYY-MM-DD")
			return
		}
		end, err := time.Parse("2006-01-02", c.Query("end_date"))
		if err != nil {
			responder.RespondBadRequest("end_date must be formatted as YYYY-MM-DD")
			return
		}

		query := application.SearchRowsQuery{
			StartDate:   start,
			EndDate:     end.Add(24*time.Hour - time.Nanosecond),
			ExcludeBulk: c.Query("exclude_bulk") == "true",
		}

		rows, err := service.SearchRows(c.Request.Context(), query)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
	}
}

func allocateHandler(service *application.AllocationService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			StartDate string `json:"startDate" binding:"required"`
			EndDate   string `json:"endDate" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			responder.RespondBadRequest("startDate must be formatted as YYYY-MM-DD")
			return
		}
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			responder.RespondBadRequest("endDate must be formatted as YYYY-MM-DD")
			return
		}

		cmd := application.AllocateTransportNumbersCommand{
			StartDate: start,
			EndDate:   end.Add(24*time.Hour - time.Nanosecond),
		}

		batches, err := service.Run(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"batches": batches, "count": len(batches)})
	}
}

func printLabelsHandler(service *application.PrintService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var cmd application.PrintLabelsCommand
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := service.PrintLabels(c.Request.Context(), cmd)
		if err != nil {
			respondError(responder, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func printerStatusHandler(service *application.PrintService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, service.PrinterStatus(c.Request.Context()))
	}
}

func respondError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondWithError(err)
}
