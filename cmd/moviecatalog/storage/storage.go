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

// Package storage defines the operations the HTTP handlers need from a movie store,
// independent of the engine behind it.
package storage

import (
	"context"
	"strings"

	"github.com/ngutech21/moviecatalog/pkg/datamodel"
)

// Store is implemented by the postgresql Connection and by MemoryStore.
// A Store is shared by all request goroutines and must be safe for concurrent use.
type Store interface {
	// GetAll returns every movie with its genres, ordered by id
	GetAll(ctx context.Context) ([]datamodel.Movie, error)
	// Search returns the movies matching the filter. A zero Filter matches everything.
	Search(ctx context.Context, filter Filter) ([]datamodel.Movie, error)
	// GetOne returns the movie with the given id. found is false if there is no such movie,
	// which is not an error.
	GetOne(ctx context.Context, id int32) (movie datamodel.Movie, found bool, err error)
	// Insert persists a movie that has no id yet and returns it with the assigned id
	Insert(ctx context.Context, movie datamodel.Movie) (datamodel.Movie, error)
	// Update replaces title, release year and genres of the movie identified by movie.ID.
	// It returns ErrNotFound if no movie has that id.
	Update(ctx context.Context, movie datamodel.Movie) (datamodel.Movie, error)
	// Delete removes a single movie, ErrNotFound if it does not exist
	Delete(ctx context.Context, id int32) error
	// DeleteAll removes every movie
	DeleteAll(ctx context.Context) error
	// ImportMany inserts all movies in one transaction: either all of them are stored or none
	ImportMany(ctx context.Context, movies []datamodel.Movie) (int, error)
	// Ping checks that the store can serve requests
	Ping(ctx context.Context) error
	// Close releases the resources held by the store
	Close()
}

// Filter narrows down Search results. Empty fields are ignored.
type Filter struct {
	Title string // case-insensitive substring of the title
	Genre string // case-insensitive genre name
	Year  *int16 // exact release year
}

// IsZero reports whether the filter matches every movie
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Title) == "" && strings.TrimSpace(f.Genre) == "" && f.Year == nil
}

// Matches applies the filter to a movie in memory
func (f Filter) Matches(m datamodel.Movie) bool {
	if title := strings.TrimSpace(f.Title); title != "" &&
		!strings.Contains(strings.ToLower(m.Title), strings.ToLower(title)) {
		return false
	}
	if f.Year != nil && (m.ReleaseYear == nil || *m.ReleaseYear != *f.Year) {
		return false
	}
	if genre := strings.TrimSpace(f.Genre); genre != "" {
		for _, g := range m.Genres {
			if strings.EqualFold(g.Name, genre) {
				return true
			}
		}
		return false
	}
	return true
}
