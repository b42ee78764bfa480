package datamodel

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovieUnmarshalAcceptsGenreNamesAndObjects(t *testing.T) {
	var m Movie
	err := json.Unmarshal([]byte(`{"title":"Alien","release_year":1979,"genres":["Horror",{"id":4,"name":"Sci-Fi"}]}`), &m)
	require.NoError(t, err)

	assert.Nil(t, m.ID)
	assert.Equal(t, "Alien", m.Title)
	require.NotNil(t, m.ReleaseYear)
	assert.Equal(t, int16(1979), *m.ReleaseYear)
	assert.Equal(t, []Genre{{Name: "Horror"}, {ID: 4, Name: "Sci-Fi"}}, m.Genres)
}

func TestMovieUnmarshalYearAlias(t *testing.T) {
	var m Movie
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Heat","year":1995}`), &m))
	require.NotNil(t, m.ReleaseYear)
	assert.Equal(t, int16(1995), *m.ReleaseYear)

	// release_year wins over the alias
	require.NoError(t, json.Unmarshal([]byte(`{"title":"Heat","year":1995,"release_year":1996}`), &m))
	assert.Equal(t, int16(1996), *m.ReleaseYear)
}

func TestMovieUnmarshalRejectsBadGenre(t *testing.T) {
	var m Movie
	err := json.Unmarshal([]byte(`{"title":"Heat","genres":[42]}`), &m)
	assert.Error(t, err)
}

func TestMovieMarshal(t *testing.T) {
	m := Movie{Title: "Nosferatu"}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Nosferatu","genres":[]}`, string(data))

	m = Movie{ID: Int32Ptr(3), Title: "Alien", ReleaseYear: Int16Ptr(1979), Genres: []Genre{{ID: 1, Name: "Horror"}}}
	data, err = json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"title":"Alien","release_year":1979,"genres":[{"id":1,"name":"Horror"}]}`, string(data))
}

func TestMovieValidate(t *testing.T) {
	assert.NoError(t, Movie{Title: "Alien"}.Validate())
	assert.ErrorIs(t, Movie{Title: "   "}.Validate(), ErrEmptyTitle)
	assert.Error(t, Movie{Title: "Alien", Genres: []Genre{{Name: " "}}}.Validate())
}

func TestGenreNames(t *testing.T) {
	m := Movie{Genres: []Genre{{Name: "Horror"}, {Name: " Sci-Fi "}, {ID: 2, Name: "Horror"}, {Name: ""}}}
	assert.Equal(t, []string{"Horror", "Sci-Fi"}, m.GenreNames())
	assert.Empty(t, Movie{}.GenreNames())
}

func TestWithIDDoesNotTouchOriginal(t *testing.T) {
	m := Movie{Title: "Alien"}
	withID := m.WithID(7)
	assert.Nil(t, m.ID)
	require.NotNil(t, withID.ID)
	assert.Equal(t, int32(7), *withID.ID)
}

func TestSortGenres(t *testing.T) {
	genres := []Genre{{ID: 3, Name: "Sci-Fi"}, {ID: 2, Name: "Horror"}, {ID: 1, Name: "Horror"}}
	SortGenres(genres)
	assert.Equal(t, []Genre{{ID: 1, Name: "Horror"}, {ID: 2, Name: "Horror"}, {ID: 3, Name: "Sci-Fi"}}, genres)
}

func TestLoadMovies(t *testing.T) {
	movies, err := LoadMovies(strings.NewReader(`[{"id":9,"title":"Heat","year":1995,"cast":["Al Pacino"],"genres":["Crime"]}]`))
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Nil(t, movies[0].ID)
	assert.Equal(t, "Heat", movies[0].Title)
	assert.Equal(t, []Genre{{Name: "Crime"}}, movies[0].Genres)

	_, err = LoadMovies(strings.NewReader(`{"title":"not a list"}`))
	assert.Error(t, err)
}

func TestDefaultMovies(t *testing.T) {
	movies, err := DefaultMovies()
	require.NoError(t, err)
	assert.NotEmpty(t, movies)
	for _, m := range movies {
		assert.NoError(t, m.Validate(), m.Title)
		assert.Nil(t, m.ID)
	}
}

func TestLoadMoviesFileMissing(t *testing.T) {
	_, err := LoadMoviesFile("does/not/exist.json")
	assert.Error(t, err)
}

func TestCopyInt16Ptr(t *testing.T) {
	assert.Nil(t, CopyInt16Ptr(nil))

	year := Int16Ptr(1979)
	copied := CopyInt16Ptr(year)
	assert.Equal(t, year, copied)
	assert.NotSame(t, year, copied)
}
