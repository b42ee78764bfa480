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
	"errors"
	"time"

	"github.com/ngutech21/moviecatalog/pkg/datamodel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// InstrumentedStore records duration and failures of every operation of the wrapped Store
type InstrumentedStore struct {
	next     Store
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

var _ Store = (*InstrumentedStore)(nil)

// Instrumented wraps next and registers its collectors with reg
func Instrumented(next Store, reg prometheus.Registerer) *InstrumentedStore {
	factory := promauto.With(reg)
	return &InstrumentedStore{
		next: next,
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "moviecatalog",
			Subsystem: "storage",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moviecatalog",
			Subsystem: "storage",
			Name:      "operation_errors_total",
			Help:      "Storage operations that failed. Absence of a movie is not counted.",
		}, []string{"operation"}),
	}
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	s.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.errors.WithLabelValues(operation).Inc()
	}
}

func (s *InstrumentedStore) GetAll(ctx context.Context) (movies []datamodel.Movie, err error) {
	defer func(start time.Time) { s.observe("get_all", start, err) }(time.Now())
	return s.next.GetAll(ctx)
}

func (s *InstrumentedStore) Search(ctx context.Context, filter Filter) (movies []datamodel.Movie, err error) {
	defer func(start time.Time) { s.observe("search", start, err) }(time.Now())
	return s.next.Search(ctx, filter)
}

func (s *InstrumentedStore) GetOne(ctx context.Context, id int32) (movie datamodel.Movie, found bool, err error) {
	defer func(start time.Time) { s.observe("get_one", start, err) }(time.Now())
	return s.next.GetOne(ctx, id)
}

func (s *InstrumentedStore) Insert(ctx context.Context, movie datamodel.Movie) (inserted datamodel.Movie, err error) {
	defer func(start time.Time) { s.observe("insert", start, err) }(time.Now())
	return s.next.Insert(ctx, movie)
}

func (s *InstrumentedStore) Update(ctx context.Context, movie datamodel.Movie) (updated datamodel.Movie, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())
	return s.next.Update(ctx, movie)
}

func (s *InstrumentedStore) Delete(ctx context.Context, id int32) (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())
	return s.next.Delete(ctx, id)
}

func (s *InstrumentedStore) DeleteAll(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("delete_all", start, err) }(time.Now())
	return s.next.DeleteAll(ctx)
}

func (s *InstrumentedStore) ImportMany(ctx context.Context, movies []datamodel.Movie) (n int, err error) {
	defer func(start time.Time) { s.observe("import_many", start, err) }(time.Now())
	return s.next.ImportMany(ctx, movies)
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *InstrumentedStore) Close() {
	s.next.Close()
}
