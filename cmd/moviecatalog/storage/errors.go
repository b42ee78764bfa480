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
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an id-keyed operation matched no movie
	ErrNotFound = errors.New("movie not found")
	// ErrIDAssigned is returned when a movie passed to Insert or ImportMany already has an id
	ErrIDAssigned = errors.New("movie already has an id")
	// ErrMissingID is returned when a movie passed to Update has no id
	ErrMissingID = errors.New("movie has no id")
	// ErrInvalidMovie is returned when a movie fails validation
	ErrInvalidMovie = errors.New("invalid movie")
	// ErrBusy is returned when another request holds the lock of the same movie for too long
	ErrBusy = errors.New("movie is locked by another request")
)

// Error wraps any failure reported by the backing engine (connectivity, constraints, queries,
// transactions). Handlers translate it into an internal server error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *Error for operation op. Errors that already are an *Error or
// ErrNotFound are returned unchanged, nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsStorageError reports whether err is, or wraps, an *Error
func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// IsInvalidInput reports whether the error was caused by the caller's payload rather than the engine
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidMovie) || errors.Is(err, ErrIDAssigned) || errors.Is(err, ErrMissingID)
}
