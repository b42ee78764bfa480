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

package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ngutech21/moviecatalog/pkg/datamodel"
)

var _ Store = (*MemoryStore)(nil)

type memoryMovie struct {
	title       string
	releaseYear *int16
	genreIDs    []int32
}

type memoryState struct {
	movies      map[int32]memoryMovie
	genreByName map[string]int32
	genreNames  map[int32]string
	nextMovieID int32
	nextGenreID int32
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		movies:      make(map[int32]memoryMovie, len(s.movies)),
		genreByName: make(map[string]int32, len(s.genreByName)),
		genreNames:  make(map[int32]string, len(s.genreNames)),
		nextMovieID: s.nextMovieID,
		nextGenreID: s.nextGenreID,
	}
	for id, m := range s.movies {
		m.genreIDs = append([]int32(nil), m.genreIDs...)
		c.movies[id] = m
	}
	for name, id := range s.genreByName {
		c.genreByName[name] = id
	}
	for id, name := range s.genreNames {
		c.genreNames[id] = name
	}
	return c
}

// MemoryStore keeps movies in process memory. It follows the semantics of the postgresql
// store (id sequences, genres unique by name, all-or-nothing imports) and is used in tests
// and for running the API without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memoryState
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		movies:      make(map[int32]memoryMovie),
		genreByName: make(map[string]int32),
		genreNames:  make(map[int32]string),
	}}
}

func (s *MemoryStore) GetAll(ctx context.Context) ([]datamodel.Movie, error) {
	return s.Search(ctx, Filter{})
}

func (s *MemoryStore) Search(ctx context.Context, filter Filter) ([]datamodel.Movie, error) {
	if err := ctx.Err(); err != nil {
		return nil, Wrap("search", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	movies := make([]datamodel.Movie, 0, len(s.state.movies))
	for id := range s.state.movies {
		m := s.state.materialize(id)
		if filter.Matches(m) {
			movies = append(movies, m)
		}
	}
	sort.Slice(movies, func(i, j int) bool {
		return *movies[i].ID < *movies[j].ID
	})
	return movies, nil
}

func (s *MemoryStore) GetOne(ctx context.Context, id int32) (datamodel.Movie, bool, error) {
	if err := ctx.Err(); err != nil {
		return datamodel.Movie{}, false, Wrap("get one", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.state.movies[id]; !ok {
		return datamodel.Movie{}, false, nil
	}
	return s.state.materialize(id), true, nil
}

func (s *MemoryStore) Insert(ctx context.Context, movie datamodel.Movie) (datamodel.Movie, error) {
	if err := ctx.Err(); err != nil {
		return datamodel.Movie{}, Wrap("insert", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.state.insert(movie)
	if err != nil {
		return datamodel.Movie{}, Wrap("insert", err)
	}
	return s.state.materialize(id), nil
}

func (s *MemoryStore) Update(ctx context.Context, movie datamodel.Movie) (datamodel.Movie, error) {
	if err := ctx.Err(); err != nil {
		return datamodel.Movie{}, Wrap("update", err)
	}
	if movie.ID == nil {
		return datamodel.Movie{}, Wrap("update", ErrMissingID)
	}
	if err := movie.Validate(); err != nil {
		return datamodel.Movie{}, Wrap("update", fmt.Errorf("%w: %s", ErrInvalidMovie, err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := *movie.ID
	if _, ok := s.state.movies[id]; !ok {
		return datamodel.Movie{}, ErrNotFound
	}
	s.state.movies[id] = memoryMovie{
		title:       movie.Title,
		releaseYear: datamodel.CopyInt16Ptr(movie.ReleaseYear),
		genreIDs:    s.state.genreIDs(movie.GenreNames()),
	}
	return s.state.materialize(id), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id int32) error {
	if err := ctx.Err(); err != nil {
		return Wrap("delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.movies[id]; !ok {
		return ErrNotFound
	}
	delete(s.state.movies, id)
	return nil
}

func (s *MemoryStore) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return Wrap("delete all", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.movies = make(map[int32]memoryMovie)
	return nil
}

// ImportMany applies the inserts to a copy of the state and only publishes the copy
// once every insert succeeded.
func (s *MemoryStore) ImportMany(ctx context.Context, movies []datamodel.Movie) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, Wrap("import", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	for i, movie := range movies {
		if _, err := next.insert(movie); err != nil {
			return 0, Wrap("import", fmt.Errorf("movie #%d (%q): %w", i, movie.Title, err))
		}
	}
	s.state = next
	return len(movies), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return Wrap("ping", ctx.Err())
}

func (s *MemoryStore) Close() {}

func (s *memoryState) insert(movie datamodel.Movie) (int32, error) {
	if movie.ID != nil {
		return 0, ErrIDAssigned
	}
	if err := movie.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidMovie, err)
	}
	s.nextMovieID++
	id := s.nextMovieID
	s.movies[id] = memoryMovie{
		title:       movie.Title,
		releaseYear: datamodel.CopyInt16Ptr(movie.ReleaseYear),
		genreIDs:    s.genreIDs(movie.GenreNames()),
	}
	return id, nil
}

// genreIDs returns the ids of the named genres, creating the ones that do not exist yet
func (s *memoryState) genreIDs(names []string) []int32 {
	ids := make([]int32, 0, len(names))
	for _, name := range names {
		id, ok := s.genreByName[name]
		if !ok {
			s.nextGenreID++
			id = s.nextGenreID
			s.genreByName[name] = id
			s.genreNames[id] = name
		}
		ids = append(ids, id)
	}
	return ids
}

// materialize builds the movie through the same aggregation the relational store uses
func (s *memoryState) materialize(id int32) datamodel.Movie {
	m := s.movies[id]
	rows := make([]MovieGenreRow, 0, len(m.genreIDs)+1)
	if len(m.genreIDs) == 0 {
		rows = append(rows, MovieGenreRow{MovieID: id, Title: m.title, ReleaseYear: m.releaseYear})
	}
	for _, genreID := range m.genreIDs {
		genreID := genreID
		name := s.genreNames[genreID]
		rows = append(rows, MovieGenreRow{
			MovieID:     id,
			Title:       m.title,
			ReleaseYear: m.releaseYear,
			GenreID:     &genreID,
			GenreName:   &name,
		})
	}
	return Aggregate(rows)[0]
}
