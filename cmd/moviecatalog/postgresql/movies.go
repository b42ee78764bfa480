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

package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ngutech21/moviecatalog/cmd/moviecatalog/storage"
	"github.com/ngutech21/moviecatalog/pkg/datamodel"
)

/*
	CREATE TABLE movies (
	    id           INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	    title        TEXT NOT NULL CHECK (btrim(title) <> ''),
	    release_year SMALLINT
	);
	CREATE TABLE genres (
	    id   INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	    name TEXT NOT NULL UNIQUE
	);
	CREATE TABLE movie_genres (
	    movie_id INTEGER NOT NULL REFERENCES movies (id) ON DELETE CASCADE,
	    genre_id INTEGER NOT NULL REFERENCES genres (id) ON DELETE CASCADE,
	    PRIMARY KEY (movie_id, genre_id)
	);
*/

const selectMovieRowsSQL = `
SELECT m.id, m.title, m.release_year, g.id, g.name
FROM movies m
LEFT JOIN movie_genres mg ON mg.movie_id = m.id
LEFT JOIN genres g ON g.id = mg.genre_id`

const (
	getAllSQL = selectMovieRowsSQL + `
ORDER BY m.id, g.name`

	getOneSQL = selectMovieRowsSQL + `
WHERE m.id = $1
ORDER BY g.name`

	// Every predicate is disabled by an empty parameter, so one statement serves all filters
	searchSQL = selectMovieRowsSQL + `
WHERE ($1 = '' OR m.title ILIKE '%' || $1 || '%')
  AND ($2::smallint IS NULL OR m.release_year = $2)
  AND ($3 = '' OR EXISTS (
      SELECT 1 FROM movie_genres fmg
      JOIN genres fg ON fg.id = fmg.genre_id
      WHERE fmg.movie_id = m.id AND lower(fg.name) = lower($3)))
ORDER BY m.id, g.name`

	insertMovieSQL  = `INSERT INTO movies (title, release_year) VALUES ($1, $2) RETURNING id`
	upsertGenreSQL  = `INSERT INTO genres (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`
	linkGenreSQL    = `INSERT INTO movie_genres (movie_id, genre_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	updateMovieSQL  = `UPDATE movies SET title = $1, release_year = $2 WHERE id = $3`
	unlinkGenresSQL = `DELETE FROM movie_genres WHERE movie_id = $1`
	deleteMovieSQL  = `DELETE FROM movies WHERE id = $1`
	deleteAllSQL    = `DELETE FROM movies`
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (c *Connection) GetAll(ctx context.Context) ([]datamodel.Movie, error) {
	return c.queryMovies(ctx, "get all", getAllSQL)
}

func (c *Connection) Search(ctx context.Context, filter storage.Filter) ([]datamodel.Movie, error) {
	if filter.IsZero() {
		return c.GetAll(ctx)
	}
	return c.queryMovies(ctx, "search", searchSQL,
		likeEscaper.Replace(strings.TrimSpace(filter.Title)),
		filter.Year,
		strings.TrimSpace(filter.Genre))
}

func (c *Connection) GetOne(ctx context.Context, id int32) (datamodel.Movie, bool, error) {
	movies, err := c.queryMovies(ctx, "get one", getOneSQL, id)
	if err != nil {
		return datamodel.Movie{}, false, err
	}
	if len(movies) == 0 {
		return datamodel.Movie{}, false, nil
	}
	return movies[0], true, nil
}

func (c *Connection) Insert(ctx context.Context, movie datamodel.Movie) (datamodel.Movie, error) {
	var inserted datamodel.Movie
	resolved := make(map[string]int32)
	err := c.inTransaction(ctx, "insert", func(tx pgx.Tx) error {
		var err error
		inserted, err = c.insertMovie(ctx, tx, "insert", movie, resolved)
		return err
	})
	if err != nil {
		return datamodel.Movie{}, err
	}
	c.rememberGenreIds(resolved)
	return inserted, nil
}

func (c *Connection) ImportMany(ctx context.Context, movies []datamodel.Movie) (int, error) {
	var names []string
	for _, movie := range movies {
		names = append(names, movie.GenreNames()...)
	}
	resolved := make(map[string]int32)
	err := c.inTransaction(ctx, "import", func(tx pgx.Tx) error {
		// every genre row of the batch is locked up front, in name order
		if err := c.resolveGenreIds(ctx, tx, "import", names, resolved); err != nil {
			return err
		}
		for i, movie := range movies {
			if _, err := c.insertMovie(ctx, tx, "import", movie, resolved); err != nil {
				return storage.Wrap("import", fmt.Errorf("movie #%d (%q): %w", i, movie.Title, err))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	c.rememberGenreIds(resolved)
	return len(movies), nil
}

func (c *Connection) Update(ctx context.Context, movie datamodel.Movie) (datamodel.Movie, error) {
	if movie.ID == nil {
		return datamodel.Movie{}, storage.Wrap("update", storage.ErrMissingID)
	}
	if err := movie.Validate(); err != nil {
		return datamodel.Movie{}, storage.Wrap("update", fmt.Errorf("%w: %s", storage.ErrInvalidMovie, err))
	}
	id := *movie.ID
	if !c.locks.TryLock(id) {
		return datamodel.Movie{}, storage.Wrap("update", storage.ErrBusy)
	}
	defer c.locks.Unlock(id)

	var genres []datamodel.Genre
	resolved := make(map[string]int32)
	err := c.inTransaction(ctx, "update", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateMovieSQL, movie.Title, movie.ReleaseYear, id)
		if err != nil {
			return c.fail("update", updateMovieSQL, err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		if _, err = tx.Exec(ctx, unlinkGenresSQL, id); err != nil {
			return c.fail("update", unlinkGenresSQL, err)
		}
		genres, err = c.linkGenres(ctx, tx, "update", id, movie.GenreNames(), resolved)
		return err
	})
	if err != nil {
		return datamodel.Movie{}, err
	}
	c.rememberGenreIds(resolved)
	return datamodel.Movie{
		ID:          datamodel.Int32Ptr(id),
		Title:       movie.Title,
		ReleaseYear: datamodel.CopyInt16Ptr(movie.ReleaseYear),
		Genres:      genres,
	}, nil
}

func (c *Connection) Delete(ctx context.Context, id int32) error {
	if !c.locks.TryLock(id) {
		return storage.Wrap("delete", storage.ErrBusy)
	}
	defer c.locks.Unlock(id)

	tag, err := c.db.Exec(ctx, deleteMovieSQL, id)
	if err != nil {
		return c.fail("delete", deleteMovieSQL, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *Connection) DeleteAll(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, deleteAllSQL); err != nil {
		return c.fail("delete all", deleteAllSQL, err)
	}
	return nil
}

// insertMovie stores one movie and its genre links inside tx
func (c *Connection) insertMovie(ctx context.Context, tx pgx.Tx, op string, movie datamodel.Movie, resolved map[string]int32) (datamodel.Movie, error) {
	if movie.ID != nil {
		return datamodel.Movie{}, storage.Wrap(op, storage.ErrIDAssigned)
	}
	if err := movie.Validate(); err != nil {
		return datamodel.Movie{}, storage.Wrap(op, fmt.Errorf("%w: %s", storage.ErrInvalidMovie, err))
	}

	var id int32
	if err := tx.QueryRow(ctx, insertMovieSQL, movie.Title, movie.ReleaseYear).Scan(&id); err != nil {
		return datamodel.Movie{}, c.fail(op, insertMovieSQL, err)
	}
	genres, err := c.linkGenres(ctx, tx, op, id, movie.GenreNames(), resolved)
	if err != nil {
		return datamodel.Movie{}, err
	}
	return datamodel.Movie{
		ID:          datamodel.Int32Ptr(id),
		Title:       movie.Title,
		ReleaseYear: datamodel.CopyInt16Ptr(movie.ReleaseYear),
		Genres:      genres,
	}, nil
}

// linkGenres makes sure every named genre exists and links it to the movie
func (c *Connection) linkGenres(ctx context.Context, tx pgx.Tx, op string, movieID int32, names []string, resolved map[string]int32) ([]datamodel.Genre, error) {
	if err := c.resolveGenreIds(ctx, tx, op, names, resolved); err != nil {
		return nil, err
	}
	genres := make([]datamodel.Genre, 0, len(names))
	for _, name := range names {
		genreID := resolved[name]
		if _, err := tx.Exec(ctx, linkGenreSQL, movieID, genreID); err != nil {
			return nil, c.fail(op, linkGenreSQL, err)
		}
		genres = append(genres, datamodel.Genre{ID: genreID, Name: name})
	}
	datamodel.SortGenres(genres)
	return genres, nil
}

// resolveGenreIds fills resolved with an id for every name, from the cache or by upserting the genre.
// Upserts run in name order so concurrent transactions lock genre rows in the same order.
// Nothing is cached here, see rememberGenreIds.
func (c *Connection) resolveGenreIds(ctx context.Context, tx pgx.Tx, op string, names []string, resolved map[string]int32) error {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	for _, name := range sorted {
		if _, ok := resolved[name]; ok {
			continue
		}
		if genreID, ok := c.cachedGenreId(name); ok {
			resolved[name] = genreID
			continue
		}
		var genreID int32
		if err := tx.QueryRow(ctx, upsertGenreSQL, name).Scan(&genreID); err != nil {
			return c.fail(op, upsertGenreSQL, err)
		}
		resolved[name] = genreID
	}
	return nil
}

func (c *Connection) cachedGenreId(name string) (int32, bool) {
	value, ok := c.genreIdCache.Get(name)
	if !ok {
		return 0, false
	}
	genreID, ok := value.(int32)
	return genreID, ok
}

// rememberGenreIds must only be called after the transaction that resolved the ids has committed
func (c *Connection) rememberGenreIds(resolved map[string]int32) {
	for name, genreID := range resolved {
		c.genreIdCache.Add(name, genreID)
	}
}

func (c *Connection) queryMovies(ctx context.Context, op string, sqlStatement string, args ...any) ([]datamodel.Movie, error) {
	rows, err := c.db.Query(ctx, sqlStatement, args...)
	if err != nil {
		return nil, c.fail(op, sqlStatement, err)
	}
	movieRows, err := scanMovieRows(rows)
	if err != nil {
		return nil, c.fail(op, sqlStatement, err)
	}
	return storage.Aggregate(movieRows), nil
}

func scanMovieRows(rows pgx.Rows) ([]storage.MovieGenreRow, error) {
	defer rows.Close()

	var result []storage.MovieGenreRow
	for rows.Next() {
		var (
			row       storage.MovieGenreRow
			year      sql.NullInt16
			genreID   sql.NullInt32
			genreName sql.NullString
		)
		if err := rows.Scan(&row.MovieID, &row.Title, &year, &genreID, &genreName); err != nil {
			return nil, err
		}
		if year.Valid {
			row.ReleaseYear = &year.Int16
		}
		if genreID.Valid && genreName.Valid {
			row.GenreID = &genreID.Int32
			row.GenreName = &genreName.String
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
