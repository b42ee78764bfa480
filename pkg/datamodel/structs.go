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

package datamodel

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrEmptyTitle is returned by Validate when a movie has no title
var ErrEmptyTitle = errors.New("title must not be empty")

// Genre is a named category a movie belongs to.
// Two genres are the same genre iff both ID and Name match.
type Genre struct {
	ID   int32  `json:"id"`   // unique integer ID of the genre, 0 when not yet persisted
	Name string `json:"name"` // genre label (drama, horror, etc)
}

// UnmarshalJSON accepts either a genre object or a bare genre name
func (g *Genre) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*g = Genre{Name: name}
		return nil
	}
	type genreAlias Genre
	var alias genreAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("genre must be a name or an object: %w", err)
	}
	*g = Genre(alias)
	return nil
}

// Movie is the only entity served by moviecatalog
type Movie struct {
	ID          *int32  `json:"id,omitempty"`           // unique integer ID, nil until the store assigned one
	Title       string  `json:"title"`                  // movie title
	ReleaseYear *int16  `json:"release_year,omitempty"` // movie release year, optional
	Genres      []Genre `json:"genres"`                 // genres for the movie
}

// MarshalJSON always emits genres as a list, even when the movie has none
func (m Movie) MarshalJSON() ([]byte, error) {
	type movieAlias Movie
	out := movieAlias(m)
	if out.Genres == nil {
		out.Genres = []Genre{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a movie payload. "year" is accepted as an alias of "release_year",
// which is the spelling used by the fixture files.
func (m *Movie) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          *int32  `json:"id"`
		Title       string  `json:"title"`
		ReleaseYear *int16  `json:"release_year"`
		Year        *int16  `json:"year"`
		Genres      []Genre `json:"genres"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.Title = raw.Title
	m.ReleaseYear = raw.ReleaseYear
	if m.ReleaseYear == nil {
		m.ReleaseYear = raw.Year
	}
	m.Genres = raw.Genres
	return nil
}

// Validate checks the fields a client is responsible for
func (m Movie) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrEmptyTitle
	}
	for i, g := range m.Genres {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("genre #%d has no name", i)
		}
	}
	return nil
}

// GenreNames returns the trimmed genre names without duplicates, in the order they first appear
func (m Movie) GenreNames() []string {
	names := make([]string, 0, len(m.Genres))
	seen := make(map[string]struct{}, len(m.Genres))
	for _, g := range m.Genres {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// WithID returns a copy of the movie carrying the given id
func (m Movie) WithID(id int32) Movie {
	m.ID = Int32Ptr(id)
	return m
}

// SortGenres orders genres by name, then by id
func SortGenres(genres []Genre) {
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].Name != genres[j].Name {
			return genres[i].Name < genres[j].Name
		}
		return genres[i].ID < genres[j].ID
	})
}
