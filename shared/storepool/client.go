package storepool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	// ErrStoreUnavailable is returned when a store cannot be dialed or pinged
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrPoolExhausted is returned when no connection frees up within the acquire timeout
	ErrPoolExhausted = errors.New("connection pool exhausted")
)

// StoreConfig holds the connection settings for one logical store
type StoreConfig struct {
	Driver   string // postgres (default) or sqlite
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Path     string // sqlite DSN, e.g. file:monitor.db
}

// PoolConfig bounds every pool created from it
type PoolConfig struct {
	MinConns        int
	MaxConns        int
	ConnectTimeout  time.Duration
	AcquireTimeout  time.Duration
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

const (
	defaultMinConns       = 1
	defaultMaxConns       = 10
	defaultConnectTimeout = 10 * time.Second
	defaultAcquireTimeout = 5 * time.Second
)

// withDefaults fills in zero-valued bounds
func (p PoolConfig) withDefaults() PoolConfig {
	if p.MinConns <= 0 {
		p.MinConns = defaultMinConns
	}
	if p.MaxConns <= 0 {
		p.MaxConns = defaultMaxConns
	}
	if p.MinConns > p.MaxConns {
		p.MinConns = p.MaxConns
	}
	if p.ConnectTimeout <= 0 {
		p.ConnectTimeout = defaultConnectTimeout
	}
	if p.AcquireTimeout <= 0 {
		p.AcquireTimeout = defaultAcquireTimeout
	}
	return p
}

// Client is a bounded connection pool for one logical store
type Client struct {
	name   string
	db     *sqlx.DB
	pool   PoolConfig
	logger *slog.Logger
}

// Open dials one store and verifies it within the connect timeout. A store
// that cannot be reached fails fast with ErrStoreUnavailable; the caller
// decides whether and when to try again.
func Open(name string, store StoreConfig, pool PoolConfig, logger *slog.Logger) (*Client, error) {
	pool = pool.withDefaults()

	driver, dsn, err := buildDSN(store, pool.ConnectTimeout)
	if err != nil {
		return nil, err
	}

	logger.Info("Connecting to store",
		slog.String("store", name),
		slog.String("driver", driver),
	)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, name, err)
	}

	// Pool bounds. database/sql has no hard minimum; idle capacity is the
	// closest control it offers.
	db.SetMaxOpenConns(pool.MaxConns)
	db.SetMaxIdleConns(pool.MinConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pool.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Store ping failed",
			slog.String("store", name),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, name, err)
	}

	logger.Info("Store connection established",
		slog.String("store", name),
		slog.Int("max_conns", pool.MaxConns),
		slog.Int("min_conns", pool.MinConns),
	)

	return &Client{
		name:   name,
		db:     db,
		pool:   pool,
		logger: logger,
	}, nil
}

// buildDSN maps a store config onto a driver name and DSN
func buildDSN(store StoreConfig, connectTimeout time.Duration) (string, string, error) {
	driver := store.Driver
	if driver == "" {
		driver = "postgres"
	}

	switch driver {
	case "postgres":
		sslMode := store.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
			store.Host,
			store.Port,
			store.User,
			store.Password,
			store.Database,
			sslMode,
			int(connectTimeout.Seconds()),
		)
		return driver, dsn, nil
	case "sqlite":
		if store.Path == "" {
			return "", "", fmt.Errorf("sqlite store requires a path")
		}
		return driver, store.Path, nil
	default:
		return "", "", fmt.Errorf("unsupported store driver %q", driver)
	}
}

// Name returns the logical store name this pool serves
func (c *Client) Name() string {
	return c.name
}

// GetDB returns the underlying sqlx.DB instance
func (c *Client) GetDB() *sqlx.DB {
	return c.db
}

// Acquire checks one connection out of the pool. When the pool is saturated
// it blocks until a connection is released or the acquire timeout elapses,
// then fails with ErrPoolExhausted. The caller owns the returned connection
// and must Close it on every exit path; prefer WithConn.
func (c *Client) Acquire(ctx context.Context) (*sqlx.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, c.pool.AcquireTimeout)
	defer cancel()

	conn, err := c.db.Connx(acquireCtx)
	if err == nil {
		return conn, nil
	}

	switch {
	case ctx.Err() != nil:
		// The caller gave up while waiting; not a pool fault.
		return nil, fmt.Errorf("acquire %s connection: %w", c.name, ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s (max %d, waited %s)",
			ErrPoolExhausted, c.name, c.pool.MaxConns, c.pool.AcquireTimeout)
	default:
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, c.name, err)
	}
}

// WithConn runs fn on a pooled connection and releases it on every exit
// path, including errors and panics inside fn.
func (c *Client) WithConn(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	conn, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

// Close closes the pool and all its connections
func (c *Client) Close() error {
	c.logger.Info("Closing store pool", slog.String("store", c.name))

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close store pool",
				slog.String("store", c.name),
				slog.Any("error", err),
			)
			return err
		}
	}
	return nil
}

// Ping checks the store connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Stats returns pool statistics for diagnostics
func (c *Client) Stats() string {
	stats := c.db.Stats()
	return fmt.Sprintf(
		"MaxOpenConns: %d, OpenConns: %d, InUse: %d, Idle: %d, WaitCount: %d, WaitDuration: %s",
		stats.MaxOpenConnections,
		stats.OpenConnections,
		stats.InUse,
		stats.Idle,
		stats.WaitCount,
		stats.WaitDuration,
	)
}

// HealthCheck pings the store and runs a trivial query
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("%s health check failed: %w", c.name, err)
	}

	var result int
	if err := c.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
		return fmt.Errorf("%s query health check failed: %w", c.name, err)
	}

	return nil
}
