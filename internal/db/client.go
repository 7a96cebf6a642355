// Package db stores document graphs and batch runs in SurrealDB.
package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

const (
	defaultPoolSize  = 8
	reconnectTimeout = 5 * time.Second
)

func init() {
	// WebSocket upgrades fail when ALPN negotiates HTTP/2 on wss://.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection settings.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
	// PoolSize bounds concurrent write sessions. Zero means 8.
	PoolSize int
}

func (c Config) auth() surrealdb.Auth {
	if c.AuthLevel == "database" {
		return surrealdb.Auth{
			Namespace: c.Namespace,
			Database:  c.Database,
			Username:  c.Username,
			Password:  c.Password,
		}
	}
	return surrealdb.Auth{Username: c.Username, Password: c.Password}
}

// baseURL strips the /rpc suffix; gorillaws appends it itself.
func (c Config) baseURL() string {
	return strings.TrimSuffix(c.URL, "/rpc")
}

// Client is the graph store backed by one auto-reconnecting SurrealDB
// connection. Writers share the connection through a bounded session pool.
type Client struct {
	conn     *rews.Connection[*gorillaws.Connection]
	db       *surrealdb.DB
	logger   logger.Logger
	sessions *semaphore.Weighted
}

// NewClient connects, signs in and selects the namespace and database.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	sdkLogger := logger.New(log.Handler())

	conn := dial(cfg, sdkLogger)
	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, wrapQueryError(err))
	}

	sdb, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	if _, err := sdb.SignIn(ctx, cfg.auth()); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin as %s (%s): %w", cfg.Username, cfg.AuthLevel, err)
	}
	if err := sdb.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	sdkLogger.Info("SurrealDB ready",
		"namespace", cfg.Namespace,
		"database", cfg.Database,
		"pool_size", poolSize)

	return &Client{
		conn:     conn,
		db:       sdb,
		logger:   sdkLogger,
		sessions: semaphore.NewWeighted(int64(poolSize)),
	}, nil
}

// dial builds the reconnecting transport. Reconnects back off from 1s to 30s.
func dial(cfg Config, sdkLogger logger.Logger) *rews.Connection[*gorillaws.Connection] {
	codec := surrealcbor.New()
	conn := rews.New(
		func(context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     cfg.baseURL(),
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			}), nil
		},
		reconnectTimeout,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer
	return conn
}

// Close closes the connection.
func (c *Client) Close(ctx context.Context) error {
	c.logger.Info("closing SurrealDB connection")
	return c.conn.Close(ctx)
}

// DB exposes the SurrealDB handle for ad hoc queries.
func (c *Client) DB() *surrealdb.DB {
	return c.db
}

// InitSchema defines the graph and run tables if they do not exist yet.
func (c *Client) InitSchema(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, c.db, SchemaSQL, nil); err != nil {
		return fmt.Errorf("init schema: %w", wrapQueryError(err))
	}
	c.logger.Debug("schema ready", "tables", len(nodeTables)+2)
	return nil
}

// WipeData deletes every graph and run record but keeps the schema. Tests only.
func (c *Client) WipeData(ctx context.Context) error {
	// Relations first so no edge outlives its endpoints.
	tables := append([]string{"relates"}, nodeTables...)
	tables = append(tables, "batch_run")

	for _, table := range tables {
		if _, err := surrealdb.Query[any](ctx, c.db, "DELETE "+table, nil); err != nil {
			return fmt.Errorf("delete %s: %w", table, wrapQueryError(err))
		}
	}
	c.logger.Warn("wiped database", "tables", len(tables))
	return nil
}
