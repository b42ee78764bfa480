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
	"sort"

	"github.com/ngutech21/moviecatalog/pkg/datamodel"
	"golang.org/x/exp/maps"
)

// MovieGenreRow is one row of movies LEFT JOIN movie_genres LEFT JOIN genres.
// GenreID and GenreName are nil for a movie without genres.
type MovieGenreRow struct {
	MovieID     int32
	Title       string
	ReleaseYear *int16
	GenreID     *int32
	GenreName   *string
}

// Aggregate folds join rows into one movie per distinct MovieID.
//
// The first row of a movie provides title and release year. A row adds a genre only if both
// genre columns are set; repeated (id, name) pairs collapse into one genre. Movies without any
// genre row are kept with an empty genre list. The result is ordered by movie id, genres by name,
// so the output does not depend on the order of the rows.
func Aggregate(rows []MovieGenreRow) []datamodel.Movie {
	type entry struct {
		movie  datamodel.Movie
		genres map[datamodel.Genre]struct{}
	}
	byID := make(map[int32]*entry, len(rows))
	for _, row := range rows {
		e, ok := byID[row.MovieID]
		if !ok {
			e = &entry{
				movie: datamodel.Movie{
					ID:          datamodel.Int32Ptr(row.MovieID),
					Title:       row.Title,
					ReleaseYear: datamodel.CopyInt16Ptr(row.ReleaseYear),
				},
				genres: make(map[datamodel.Genre]struct{}),
			}
			byID[row.MovieID] = e
		}
		if row.GenreID == nil || row.GenreName == nil {
			continue
		}
		e.genres[datamodel.Genre{ID: *row.GenreID, Name: *row.GenreName}] = struct{}{}
	}

	movies := make([]datamodel.Movie, 0, len(byID))
	for _, e := range byID {
		genres := maps.Keys(e.genres)
		datamodel.SortGenres(genres)
		e.movie.Genres = genres
		movies = append(movies, e.movie)
	}
	sort.Slice(movies, func(i, j int) bool {
		return *movies[i].ID < *movies[j].ID
	})
	return movies
}
