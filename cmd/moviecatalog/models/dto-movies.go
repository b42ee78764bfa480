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

package models

import "github.com/ngutech21/moviecatalog/cmd/moviecatalog/storage"

type GetMovieRequest struct {
	ID int32 `uri:"id" binding:"required,min=1"`
}

type SearchMoviesRequest struct {
	Title string `form:"title"`
	Genre string `form:"genre"`
	Year  *int16 `form:"year"`
}

// Filter converts the query parameters into a storage.Filter
func (r SearchMoviesRequest) Filter() storage.Filter {
	return storage.Filter{
		Title: r.Title,
		Genre: r.Genre,
		Year:  r.Year,
	}
}

type ImportMoviesResponse struct {
	Imported int `json:"imported"`
}
