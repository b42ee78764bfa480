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

// Package migrations creates and upgrades the movie catalog schema.
//
// Every file in sql/ is one migration. Files are applied in lexical order, each inside its own
// transaction, and recorded in the schema_migrations table so that they run only once.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/ngutech21/moviecatalog/internal"
	"github.com/omeid/pgerror"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

const (
	createVersionTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT now())`
	selectVersionsSQL     = `SELECT version FROM schema_migrations`
	insertVersionSQL      = `INSERT INTO schema_migrations (version) VALUES ($1)`
)

// maxAttempts bounds the retries while postgres is still starting up
const maxAttempts = 10

type Migration struct {
	Version string
	SQL     string
}

// Load returns all embedded migrations sorted by version
func Load() ([]Migration, error) {
	entries, err := fs.ReadDir(files, "sql")
	if err != nil {
		return nil, err
	}
	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(files, path.Join("sql", entry.Name()))
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(entry.Name(), ".sql"),
			SQL:     string(content),
		})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// OpenDB opens a database/sql handle for running migrations and waits until postgres answers
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	db.SetMaxOpenConns(2)

	if err = retry(ctx, "ping", func() error {
		pingCtx, pingCncl := context.WithTimeout(ctx, internal.FiveSeconds)
		defer pingCncl()
		return db.PingContext(pingCtx)
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres not yet available: %w", err)
	}
	return db, nil
}

// Migrate applies every migration that is not yet recorded and returns how many ran
func Migrate(ctx context.Context, db *sql.DB) (int, error) {
	migrations, err := Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}
	return apply(ctx, db, migrations)
}

func apply(ctx context.Context, db *sql.DB, migrations []Migration) (int, error) {
	if err := retry(ctx, "create version table", func() error {
		_, err := db.ExecContext(ctx, createVersionTableSQL)
		return err
	}); err != nil {
		return 0, err
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			zap.S().Debugf("Migration %s already applied", m.Version)
			continue
		}
		zap.S().Infof("Applying migration %s", m.Version)
		if err = applyOne(ctx, db, m); err != nil {
			return count, fmt.Errorf("migration %s: %w", m.Version, err)
		}
		count++
	}
	zap.S().Infof("Database schema is up to date (%d migrations applied)", count)
	return count, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, selectVersionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err = rows.Scan(&version); err != nil {
			return nil, err
		}
		versions[version] = struct{}{}
	}
	return versions, rows.Err()
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err = tx.ExecContext(ctx, insertVersionSQL, m.Version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// retry repeats fn while postgres reports a connection problem
func retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil || !IsConnectionError(err) {
			return err
		}
		zap.S().Debugf("Failed to connect to database: %s [retrying %s]", err, op)
		if sleepErr := internal.SleepBackedOff(ctx, attempt, 50*time.Millisecond, 2*time.Second); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

// IsConnectionError reports whether err is a postgres error of the connection exception class
// or one sent while the server is starting or shutting down
func IsConnectionError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pgerror.ConnectionException(pqErr) != nil ||
		pgerror.ConnectionDoesNotExist(pqErr) != nil ||
		pgerror.ConnectionFailure(pqErr) != nil ||
		pgerror.SQLclientUnableToEstablishSQLconnection(pqErr) != nil ||
		pgerror.CannotConnectNow(pqErr) != nil ||
		pgerror.AdminShutdown(pqErr) != nil
}
