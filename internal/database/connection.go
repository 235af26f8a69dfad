// Package database manages the Postgres connection pool and schema
// migrations for the report store. The pool backs health checks and
// pool statistics; report CRUD goes through internal/repository.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Config carries the pool's connection settings.
type Config struct {
	Host        string
	Port        int
	Database    string
	Username    string
	Password    string
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
	SSLMode     string
}

// dsn renders the keyword/value connection string pgx parses.
func (c Config) dsn() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.Host, c.Port, c.Database, c.Username, c.Password, c.SSLMode,
	)
}

// DB owns the pgx connection pool for the report database.
type DB struct {
	Pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewConnection builds the pool and verifies connectivity with a ping
// before returning it. A pool that cannot reach the database is never
// handed to callers.
func NewConnection(ctx context.Context, config Config, logger *logrus.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.dsn())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.MaxConnLife
	poolConfig.MaxConnIdleTime = config.MaxConnIdle

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":      config.Host,
		"port":      config.Port,
		"database":  config.Database,
		"max_conns": config.MaxConns,
	}).Info("Report database pool established")

	return &DB{Pool: pool, log: logger}, nil
}

// Close releases the pool. Safe on a DB whose pool is already nil.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.log.Info("Report database pool closed")
	}
}

// Health pings the database, for the server's health endpoint.
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Stats exposes pool statistics for diagnostics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}
