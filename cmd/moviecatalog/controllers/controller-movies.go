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

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/helpers"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/models"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/storage"
	"github.com/ngutech21/moviecatalog/pkg/datamodel"
	"go.uber.org/zap"
)

// FixtureLoader returns the movies seeded by the import route
type FixtureLoader func() ([]datamodel.Movie, error)

// FixtureFromFile loads the seed movies from path, or the embedded fixture if path is empty
func FixtureFromFile(path string) FixtureLoader {
	if path == "" {
		return datamodel.DefaultMovies
	}
	return func() ([]datamodel.Movie, error) {
		return datamodel.LoadMoviesFile(path)
	}
}

type MovieController struct {
	store    storage.Store
	fixtures FixtureLoader
}

func NewMovieController(store storage.Store, fixtures FixtureLoader) *MovieController {
	if fixtures == nil {
		fixtures = datamodel.DefaultMovies
	}
	return &MovieController{store: store, fixtures: fixtures}
}

// Register adds all movie routes to the group
func (mc *MovieController) Register(group gin.IRoutes) {
	group.GET("/movies", mc.GetMoviesHandler)
	group.POST("/movies", mc.PostMovieHandler)
	group.DELETE("/movies", mc.DeleteMoviesHandler)
	group.GET("/movie/:id", mc.GetMovieHandler)
	group.PUT("/movie/:id", mc.PutMovieHandler)
	group.DELETE("/movie/:id", mc.DeleteMovieHandler)
	group.GET("/import_movies", mc.ImportMoviesHandler)
}

func (mc *MovieController) GetMoviesHandler(c *gin.Context) {
	var request models.SearchMoviesRequest

	err := c.ShouldBindQuery(&request)
	if err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	var movies []datamodel.Movie
	if filter := request.Filter(); filter.IsZero() {
		movies, err = mc.store.GetAll(c.Request.Context())
	} else {
		movies, err = mc.store.Search(c.Request.Context(), filter)
	}
	if err != nil {
		helpers.HandleStorageError(c, err)
		return
	}
	if movies == nil {
		movies = []datamodel.Movie{}
	}

	c.JSON(http.StatusOK, movies)
}

func (mc *MovieController) GetMovieHandler(c *gin.Context) {
	var request models.GetMovieRequest

	err := c.ShouldBindUri(&request)
	if err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	movie, found, err := mc.store.GetOne(c.Request.Context(), request.ID)
	if err != nil {
		helpers.HandleStorageError(c, err)
		return
	}
	if !found {
		helpers.HandleNotFound(c, "Movie not found")
		return
	}

	c.JSON(http.StatusOK, movie)
}

func (mc *MovieController) PostMovieHandler(c *gin.Context) {
	var movie datamodel.Movie

	err := c.ShouldBindJSON(&movie)
	if err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	inserted, err := mc.store.Insert(c.Request.Context(), movie)
	if err != nil {
		helpers.HandleStorageError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inserted)
}

func (mc *MovieController) PutMovieHandler(c *gin.Context) {
	var request models.GetMovieRequest
	var movie datamodel.Movie

	err := c.ShouldBindUri(&request)
	if err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}
	err = c.ShouldBindJSON(&movie)
	if err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	updated, err := mc.store.Update(c.Request.Context(), movie.WithID(request.ID))
	if err != nil {
		helpers.HandleStorageError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (mc *MovieController) DeleteMovieHandler(c *gin.Context) {
	var request models.GetMovieRequest

	err := c.ShouldBindUri(&request)
	if err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	err = mc.store.Delete(c.Request.Context(), request.ID)
	if err != nil {
		helpers.HandleStorageError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (mc *MovieController) DeleteMoviesHandler(c *gin.Context) {
	err := mc.store.DeleteAll(c.Request.Context())
	if err != nil {
		helpers.HandleStorageError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (mc *MovieController) ImportMoviesHandler(c *gin.Context) {
	movies, err := mc.fixtures()
	if err != nil {
		helpers.HandleInternalServerError(c, err)
		return
	}

	imported, err := mc.store.ImportMany(c.Request.Context(), movies)
	if err != nil {
		helpers.HandleStorageError(c, err)
		return
	}
	zap.S().Infof("Imported %d movies", imported)

	c.JSON(http.StatusOK, models.ImportMoviesResponse{Imported: imported})
}
