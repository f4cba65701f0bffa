package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/tsflow/pipeline-monitor/internal/config"
	"github.com/tsflow/pipeline-monitor/shared/logger"
	"github.com/tsflow/pipeline-monitor/shared/storepool"
	"golang.org/x/sync/errgroup"
)

// dbhealth pings every configured pipeline store through the pool
// registry and reports per-store reachability. Exit code 1 when any
// store is down, so it slots into deploy checks and cron alerts.
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

	defaultConfigPath := os.Getenv("MONITOR_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/monitor-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	timeout := flag.Duration("timeout", 10*time.Second, "Overall health check timeout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

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

	pools := storepool.NewRegistry(stores, storepool.PoolConfig{
		MinConns:       cfg.Pool.MinConns,
		MaxConns:       cfg.Pool.MaxConns,
		ConnectTimeout: cfg.Pool.ConnectTimeout,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
	}, appLogger.Logger)
	defer pools.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	names := pools.Names()
	failures := make([]error, len(names))

	// All stores are checked in parallel so one dead store costs a
	// single connect timeout.
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			client, err := pools.Client(name)
			if err == nil {
				err = client.HealthCheck(ctx)
			}
			failures[i] = err
			return nil
		})
	}
	g.Wait()

	healthy := true
	for i, name := range names {
		if failures[i] != nil {
			healthy = false
			appLogger.Error("Store unreachable",
				slog.String("store", name),
				slog.Any("error", failures[i]),
			)
			fmt.Printf("%-15s DOWN  %v\n", name, failures[i])
			continue
		}
		fmt.Printf("%-15s OK\n", name)
	}

	if !healthy {
		os.Exit(1)
	}
	return nil
}
