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
	"errors"
	"fmt"
	"math"

	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/postgresql"
	"github.com/united-manufacturing-hub/umh-utils/env"
)

type Config struct {
	DatabaseURL        string
	MaxConnections     int
	HTTPAddress        string
	HealthcheckAddress string
	MetricsAddress     string
	StaticDir          string
	FixturePath        string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// LoadConfig reads the configuration from the environment
func LoadConfig() (Config, error) {
	var cfg Config
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	cfg.DatabaseURL, err = env.GetAsString("DATABASE_URL", true, "")
	collect(err)
	cfg.MaxConnections, err = env.GetAsInt("DB_MAX_CONNECTIONS", false, postgresql.DefaultMaxConnections)
	collect(err)
	cfg.HTTPAddress, err = env.GetAsString("HTTP_ADDRESS", false, "[::]:8080")
	collect(err)
	cfg.HealthcheckAddress, err = env.GetAsString("HEALTHCHECK_ADDRESS", false, "0.0.0.0:8086")
	collect(err)
	cfg.MetricsAddress, err = env.GetAsString("METRICS_ADDRESS", false, ":2112")
	collect(err)
	cfg.StaticDir, err = env.GetAsString("STATIC_DIR", false, "frontend/dist/spa")
	collect(err)
	cfg.FixturePath, err = env.GetAsString("MOVIE_FIXTURE_PATH", false, "")
	collect(err)
	cfg.RateLimitRPS, err = env.GetAsFloat64("RATE_LIMIT_RPS", false, 0)
	collect(err)
	cfg.RateLimitBurst, err = env.GetAsInt("RATE_LIMIT_BURST", false, 0)
	collect(err)

	if cfg.DatabaseURL == "" && len(errs) == 0 {
		errs = append(errs, errors.New("DATABASE_URL must not be empty"))
	}
	if cfg.MaxConnections < 1 || cfg.MaxConnections > math.MaxInt32 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNECTIONS must be a positive number. got: %d", cfg.MaxConnections))
	}
	if cfg.RateLimitRPS < 0 || cfg.RateLimitBurst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative"))
	}
	return cfg, errors.Join(errs...)
}

// RateLimitEnabled reports whether requests should be throttled
func (c Config) RateLimitEnabled() bool {
	return c.RateLimitRPS > 0
}

// Burst returns the configured burst, at least one request
func (c Config) Burst() int {
	if c.RateLimitBurst > 0 {
		return c.RateLimitBurst
	}
	return int(math.Max(1, math.Ceil(c.RateLimitRPS)))
}
