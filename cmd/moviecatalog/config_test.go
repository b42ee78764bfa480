package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://movies:secret@db:5432/movies")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Config{
		DatabaseURL:        "postgres://movies:secret@db:5432/movies",
		MaxConnections:     5,
		HTTPAddress:        "[::]:8080",
		HealthcheckAddress: "0.0.0.0:8086",
		MetricsAddress:     ":2112",
		StaticDir:          "frontend/dist/spa",
	}, cfg)
	assert.False(t, cfg.RateLimitEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/movies")
	t.Setenv("DB_MAX_CONNECTIONS", "12")
	t.Setenv("HTTP_ADDRESS", ":9000")
	t.Setenv("STATIC_DIR", "")
	t.Setenv("MOVIE_FIXTURE_PATH", "/data/movies.json")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.MaxConnections)
	assert.Equal(t, ":9000", cfg.HTTPAddress)
	assert.Empty(t, cfg.StaticDir)
	assert.Equal(t, "/data/movies.json", cfg.FixturePath)
	assert.True(t, cfg.RateLimitEnabled())
	assert.Equal(t, 3, cfg.Burst())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tcs := []struct {
		name string
		env  map[string]string
	}{
		{"empty database url", map[string]string{"DATABASE_URL": ""}},
		{"zero connections", map[string]string{"DATABASE_URL": "postgres://db", "DB_MAX_CONNECTIONS": "0"}},
		{"connections not a number", map[string]string{"DATABASE_URL": "postgres://db", "DB_MAX_CONNECTIONS": "many"}},
		{"negative burst", map[string]string{"DATABASE_URL": "postgres://db", "RATE_LIMIT_BURST": "-1"}},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestBurst(t *testing.T) {
	assert.Equal(t, 1, Config{RateLimitRPS: 0.2}.Burst())
	assert.Equal(t, 7, Config{RateLimitRPS: 0.2, RateLimitBurst: 7}.Burst())
}
