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
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/helpers"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-ID"

// requestID tags every request with an id, reusing the one sent by the client if it is sane
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		} else if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(helpers.RequestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// rateLimit rejects requests once the token bucket is empty
func rateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			helpers.HandleTooManyRequests(c)
			return
		}
		c.Next()
	}
}
