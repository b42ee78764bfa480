// Copyright 2023 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package postgresql implements storage.Store on top of a pgx connection pool.
package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EagleChen/mapmutex"
	lru "github.com/hashicorp/golang-lru"
	"github.com/heptiolabs/healthcheck"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/storage"
	"github.com/ngutech21/moviecatalog/internal"
	"go.uber.org/zap"
)

// DefaultMaxConnections is the pool size used when the configuration does not set one
const DefaultMaxConnections = 5

// genreIdCacheSize bounds the number of genre name to id mappings kept in memory
const genreIdCacheSize = 1000

// PgxIface is the subset of *pgxpool.Pool used by Connection. pgxmock implements it as well.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Config holds everything needed to open the pool
type Config struct {
	DSN            string
	MaxConnections int32
}

// Connection is the postgres backed storage.Store.
// It is safe for concurrent use, the pool does all the synchronisation.
type Connection struct {
	db    PgxIface
	locks *mapmutex.Mutex
	// genreIdCache maps genre names to ids of committed genre rows
	genreIdCache *lru.ARCCache
}

var _ storage.Store = (*Connection)(nil)

// NewConnection wraps an already established pool
func NewConnection(db PgxIface) (*Connection, error) {
	genreIdCache, err := lru.NewARC(genreIdCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create genre id cache: %w", err)
	}
	return &Connection{
		db: db,
		// maxRetry 50, maxDelay 0.05 second, baseDelay 10 nanoseconds
		locks:        mapmutex.NewCustomizedMapMutex(50, 50000000, 10, 1.1, 0.2),
		genreIdCache: genreIdCache,
	}, nil
}

// Open connects to postgres and verifies the connection with a ping
func Open(ctx context.Context, cfg Config) (*Connection, error) {
	if cfg.DSN == "" {
		return nil, errors.New("no postgres connection string configured")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns <= 0 {
		poolConfig.MaxConns = DefaultMaxConnections
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.BeforeClose = func(conn *pgx.Conn) {
		zap.S().Debugf("Closing postgres connection (pid %d)", conn.PgConn().PID())
	}

	connectCtx, connectCncl := context.WithTimeout(ctx, internal.FiveSeconds)
	defer connectCncl()
	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection to postgres database: %w", err)
	}
	if err = pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres not available: %w", err)
	}
	zap.S().Infof("Connected to %s:%d/%s [max %d connections]",
		poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port, poolConfig.ConnConfig.Database, poolConfig.MaxConns)
	conn, err := NewConnection(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return conn, nil
}

// Ping checks whether the database answers
func (c *Connection) Ping(ctx context.Context) error {
	if c.db == nil {
		return storage.Wrap("ping", errors.New("database is nil"))
	}
	return storage.Wrap("ping", c.db.Ping(ctx))
}

// Close closes all connections of the pool
func (c *Connection) Close() {
	zap.S().Infof("Closing database connection")
	c.db.Close()
}

// HealthCheck returns a check usable for readiness and liveness probes
func (c *Connection) HealthCheck() healthcheck.Check {
	return func() error {
		ctx, cncl := context.WithTimeout(context.Background(), internal.OneSecond)
		defer cncl()
		if err := c.Ping(ctx); err != nil {
			return fmt.Errorf("healthcheck failed to reach database: %w", err)
		}
		return nil
	}
}

// fail logs a failed statement and turns err into a storage error
func (c *Connection) fail(op string, sqlStatement string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		zap.S().Errorw(
			"PostgreSQL failed",
			"operation", op,
			"error", err,
			"code", pgErr.Code,
			"constraint", pgErr.ConstraintName,
			"sqlStatement", sqlStatement,
		)
	} else {
		zap.S().Errorw(
			"PostgreSQL failed",
			"operation", op,
			"error", err,
			"sqlStatement", sqlStatement,
		)
	}
	return storage.Wrap(op, err)
}

// inTransaction runs fn inside a transaction. The transaction is committed only if fn
// returns nil, any error rolls it back. fn is expected to return classified errors.
func (c *Connection) inTransaction(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return c.fail(op, "BEGIN", err)
	}
	if err = fn(tx); err != nil {
		rollback(tx, op)
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return c.fail(op, "COMMIT", err)
	}
	return nil
}

func rollback(tx pgx.Tx, op string) {
	// the request context might already be cancelled, rollback still has to reach the server
	rollbackCtx, rollbackCncl := context.WithTimeout(context.Background(), internal.FiveSeconds)
	defer rollbackCncl()
	if err := tx.Rollback(rollbackCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		zap.S().Errorf("Failed to rollback transaction: %s (%s)", err, op)
	}
}
