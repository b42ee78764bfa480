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
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/controllers"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/helpers"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const apiPrefix = "/api/v1"

// SetupRestAPI builds the router serving the movie API and, if present, the single page application
func SetupRestAPI(cfg Config, movies *controllers.MovieController) *gin.Engine {
	router := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - Logs to stdout.
	//   - RFC3339 with UTC time format.
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))

	router.Use(requestID())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:   []string{requestIDHeader},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	if cfg.RateLimitEnabled() {
		zap.S().Infof("Rate limiting requests to %.2f/s (burst %d)", cfg.RateLimitRPS, cfg.Burst())
		router.Use(rateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.Burst())))
	}

	movies.Register(router.Group(apiPrefix))

	if isDir(cfg.StaticDir) {
		zap.S().Infof("Serving frontend from %s", cfg.StaticDir)
		router.NoRoute(spaHandler(cfg.StaticDir))
	} else {
		// Healthcheck
		router.GET("/", func(c *gin.Context) {
			c.String(http.StatusOK, "online")
		})
		router.NoRoute(func(c *gin.Context) {
			helpers.HandleNotFound(c, "Route not found")
		})
	}

	return router
}

// spaHandler serves files from dir and falls back to index.html, so that client side routes resolve
func spaHandler(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, apiPrefix+"/") || c.Request.Method != http.MethodGet {
			helpers.HandleNotFound(c, "Route not found")
			return
		}
		// Clean on a rooted path can not escape dir
		file := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+c.Request.URL.Path)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	}
}

func isDir(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
