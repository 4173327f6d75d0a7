package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/fieldops-be/internal/api/handler"
	"github.com/cuongbtq/fieldops-be/internal/api/router"
	"github.com/cuongbtq/fieldops-be/internal/bootstrap"
	"github.com/cuongbtq/fieldops-be/internal/config"
	"github.com/cuongbtq/fieldops-be/internal/queue"
	"github.com/cuongbtq/fieldops-be/shared/logger"
	"github.com/cuongbtq/fieldops-be/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Open the store and build the services over it
	services, err := bootstrap.Open(context.Background(), cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer services.Close()

	appLogger.Info("Store ready", slog.String("driver", cfg.Database.Driver))

	// RabbitMQ is optional for the API; without it queued updates are refused
	var rabbitClient *rabbitmq.Client
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err = bootstrap.ConnectRabbitMQ(cfg, appLogger.Logger)
		if err != nil {
			return err
		}
		defer rabbitClient.Close()

		appLogger.Info("RabbitMQ connection established")
	} else {
		appLogger.Warn("RabbitMQ disabled, queued status updates are unavailable")
	}

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, services, rabbitClient)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		appLogger.Error("Server failed", slog.Any("error", err))
		return err
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, services *bootstrap.Services, rabbitClient *rabbitmq.Client) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	deps := &handler.Dependencies{
		Logger:        logger,
		Store:         services.Store,
		Jobs:          services.Jobs,
		Engine:        services.Engine,
		Notifications: services.Notifications,
		HealthChecks:  map[string]handler.HealthCheck{},
		ServiceName:   cfg.App.Name,
	}

	if services.DB != nil {
		deps.HealthChecks["database"] = services.DB.HealthCheck
	}
	if rabbitClient != nil {
		deps.Publisher = queue.NewRabbitPublisher(rabbitClient)
		deps.HealthChecks["rabbitmq"] = bootstrap.RabbitHealthCheck(rabbitClient)
	}

	return router.SetupRouter(deps)
}
