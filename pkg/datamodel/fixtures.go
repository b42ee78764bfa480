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
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

//go:embed fixtures/movies.json
var defaultMoviesJSON []byte

// LoadMovies decodes a JSON list of movies. Ids present in the input are dropped,
// the store assigns new ones on import.
func LoadMovies(r io.Reader) ([]Movie, error) {
	var movies []Movie
	if err := json.NewDecoder(r).Decode(&movies); err != nil {
		return nil, fmt.Errorf("decode movie fixtures: %w", err)
	}
	for i := range movies {
		movies[i].ID = nil
	}
	return movies, nil
}

// LoadMoviesFile reads the movie fixtures stored at path
func LoadMoviesFile(path string) ([]Movie, error) {
	/* #nosec G304 -- the path comes from the service configuration */
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open movie fixtures: %w", err)
	}
	defer f.Close()
	return LoadMovies(f)
}

// DefaultMovies returns the fixtures compiled into the binary
func DefaultMovies() ([]Movie, error) {
	return LoadMovies(bytes.NewReader(defaultMoviesJSON))
}
