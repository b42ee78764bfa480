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

package helpers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/storage"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key holding the id of the current request
const RequestIDKey = "request-id"

const internalServerErrorMessage = "The server had an internal error."

// sanitize removes line breaks so that user input can not forge log lines
func sanitize(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

func HandleInternalServerError(c *gin.Context, err error) {
	if c == nil {
		panic("HandleInternalServerError: c is nil")
	}
	if err == nil {
		err = errors.New("unknown error")
	}

	zap.S().Errorw(
		"Internal server error",
		"error", err,
		"route", c.FullPath(),
		"requestId", c.GetString(RequestIDKey),
	)

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": internalServerErrorMessage})
}

func HandleInvalidInputError(c *gin.Context, err error) {
	if c == nil {
		panic("HandleInvalidInputError: c is nil")
	}
	if err == nil {
		err = errors.New("unknown error")
	}
	erx := sanitize(err.Error())
	zap.S().Debugw(
		"Invalid input error",
		"error", erx,
		"route", c.FullPath(),
	)

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": erx})
}

func HandleNotFound(c *gin.Context, message string) {
	if c == nil {
		panic("HandleNotFound: c is nil")
	}
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": message})
}

func HandleTooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please retry later."})
}

// HandleStorageError answers with the status matching the error returned by a storage.Store
func HandleStorageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		HandleNotFound(c, "Movie not found")
	case storage.IsInvalidInput(err):
		HandleInvalidInputError(c, err)
	case errors.Is(err, storage.ErrBusy):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "The movie is being modified by another request, please retry."})
	default:
		HandleInternalServerError(c, err)
	}
}
