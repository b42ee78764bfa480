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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/controllers"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/migrations"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/postgresql"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/storage"
	"github.com/ngutech21/moviecatalog/internal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"
)

var buildtime string

func main() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	log := logger.New(logLevel)
	defer func(logger *zap.SugaredLogger) {
		_ = logger.Sync()
	}(log)

	zap.S().Infof("This is moviecatalog build date: %s", buildtime)

	cfg, err := LoadConfig()
	if err != nil {
		zap.S().Fatal(err)
	}

	health := setupHealthcheck(cfg.HealthcheckAddress)
	setupMetrics(cfg.MetricsAddress)

	ctx := context.Background()
	migrateDatabase(ctx, cfg.DatabaseURL)

	conn, err := postgresql.Open(ctx, postgresql.Config{
		DSN:            cfg.DatabaseURL,
		MaxConnections: int32(cfg.MaxConnections),
	})
	if err != nil {
		zap.S().Fatalf("Failed to connect to postgres: %s", err)
	}
	health.AddReadinessCheck("database", conn.HealthCheck())
	health.AddLivenessCheck("database", healthcheck.Timeout(conn.HealthCheck(), internal.FiveSeconds))

	store := storage.Instrumented(conn, prometheus.DefaultRegisterer)

	gin.SetMode(gin.ReleaseMode)
	router := SetupRestAPI(cfg, controllers.NewMovieController(store, controllers.FixtureFromFile(cfg.FixturePath)))
	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: internal.FiveSeconds,
	}

	gs := internal.NewGracefulShutdown(func(ctx context.Context) error {
		err := server.Shutdown(ctx)
		store.Close()
		return err
	}, internal.ShutdownTimeout)
	health.AddReadinessCheck("shutdown", func() error {
		if gs.ShuttingDown() {
			return errors.New("shutting down")
		}
		return nil
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(server, gs)
	}()

	waitErr := gs.Wait()
	// ListenAndServe has returned once Wait does, the shutdown task closed the server
	if listenErr := <-serveErr; listenErr != nil || waitErr != nil {
		_ = log.Sync()
		os.Exit(1)
	}
}

// listenAndServe blocks until server stops. Any error other than a regular close triggers a shutdown
// and is returned so the process can exit non-zero.
func listenAndServe(server *http.Server, gs internal.GracefulShutdownHandler) error {
	zap.S().Infof("Listening on %s", server.Addr)
	err := server.ListenAndServe()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	zap.S().Errorf("Error starting http server: %s", err)
	gs.Shutdown()
	return err
}

func setupHealthcheck(address string) healthcheck.Handler {
	zap.S().Debugf("Setting up healthcheck on %s", address)

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000000))
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe(address, health)
		if err != nil {
			zap.S().Errorf("Error starting healthcheck: %s", err)
		}
	}()
	return health
}

func setupMetrics(address string) {
	metricsPath := "/metrics"
	zap.S().Debugf("Setting up metrics %s %v", metricsPath, address)

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.Handler())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe(address, mux)
		if err != nil {
			zap.S().Errorf("Error starting metrics: %s", err)
		}
	}()
}

// migrateDatabase brings the schema up to date before the pool is opened
func migrateDatabase(ctx context.Context, dsn string) {
	db, err := migrations.OpenDB(ctx, dsn)
	if err != nil {
		zap.S().Fatalf("Failed to open database for migrations: %s", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			zap.S().Errorf("Error closing migration connection: %s", err)
		}
	}()

	if _, err = migrations.Migrate(ctx, db); err != nil {
		zap.S().Fatalf("Failed to migrate database: %s", err)
	}
}
