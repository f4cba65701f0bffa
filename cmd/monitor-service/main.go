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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/tsflow/pipeline-monitor/internal/api/handler"
	"github.com/tsflow/pipeline-monitor/internal/api/router"
	"github.com/tsflow/pipeline-monitor/internal/config"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/catalog"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/events"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/registry"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/status"
	"github.com/tsflow/pipeline-monitor/internal/pipeline/trigger"
	"github.com/tsflow/pipeline-monitor/shared/logger"
	"github.com/tsflow/pipeline-monitor/shared/storepool"
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
	defaultConfigPath := os.Getenv("MONITOR_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/monitor-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting monitor service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Store pool registry. Stores are dialed lazily on first use, so a
	// store that is down at startup degrades its views instead of
	// blocking the whole service from coming up.
	pools := initStorePools(cfg, appLogger.Logger)
	defer pools.Close()

	appLogger.Info("Store pool registry ready",
		slog.Any("stores", pools.Names()),
	)

	// Initialize router over the pipeline components
	r := initRouter(cfg, appLogger.Logger, pools)

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

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Monitor service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

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

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initStorePools builds the per-store connection pool registry
func initStorePools(cfg *config.Config, logger *slog.Logger) *storepool.Registry {
	stores := make(map[string]storepool.StoreConfig, len(cfg.Stores))
	for name, store := range cfg.Stores {
		stores[name] = storepool.StoreConfig{
			Driver:   store.Driver,
			Host:     store.Host,
			Port:     store.Port,
			User:     store.User,
			Password: store.Password,
			Database: store.Database,
			SSLMode:  store.SSLMode,
			Path:     store.Path,
		}
	}

	return storepool.NewRegistry(stores, storepool.PoolConfig{
		MinConns:        cfg.Pool.MinConns,
		MaxConns:        cfg.Pool.MaxConns,
		ConnectTimeout:  cfg.Pool.ConnectTimeout,
		AcquireTimeout:  cfg.Pool.AcquireTimeout,
		ConnMaxLifetime: cfg.Pool.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Pool.ConnMaxIdleTime,
	}, logger)
}

// initRouter wires the pipeline components and returns the Gin router
func initRouter(cfg *config.Config, logger *slog.Logger, pools *storepool.Registry) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// The registry reader and trigger client share the status store pool.
	statusStorage := registry.NewStorage(pools)

	handlerDeps := &handler.Dependencies{
		Logger: logger,
		Status: status.NewAggregator(pools, cfg.Dashboard.QueryTimeout, logger),
		Jobs:   registry.NewReader(statusStorage, cfg.Dashboard.HistoryLimit, cfg.Dashboard.MaxHistoryLimit, logger),
		Trigger: trigger.NewClient(trigger.Config{
			BaseURL:        cfg.Services.Ingestion.BaseURL,
			RequestTimeout: cfg.Services.Ingestion.RequestTimeout,
			Interval:       cfg.Services.Ingestion.Interval,
			Period:         cfg.Services.Ingestion.Period,
		}, statusStorage, logger),
		Catalog: catalog.NewReader(pools, cfg.Dashboard.QueryTimeout, logger),
		Events: events.NewMonitor(events.Config{
			Enabled:        cfg.Events.Enabled,
			Host:           cfg.Events.Host,
			Port:           cfg.Events.Port,
			User:           cfg.Events.User,
			Password:       cfg.Events.Password,
			VHost:          cfg.Events.VHost,
			Queues:         cfg.Events.Queues,
			Heartbeat:      cfg.Events.Connection.Heartbeat,
			ConnectTimeout: cfg.Events.Connection.ConnectionTimeout,
		}, logger),
		Stores:  pools,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
	}

	// Setup router
	return router.SetupRouter(handlerDeps)
}
