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

package internal

import (
	"context"
	"math/rand"
	"time"
)

// BackoffTime returns a random wait in [0, (2^attempt - 1) * slotTime], capped at maximum.
// Attempt 0 never waits.
func BackoffTime(attempt int, slotTime time.Duration, maximum time.Duration) time.Duration {
	if slotTime <= 0 || attempt <= 0 {
		return 0
	}
	// beyond 62 doublings the slot count no longer fits into an int64
	if attempt > 62 {
		return maximum
	}
	slots := int64(1) << attempt
	n := rand.Int63n(slots) // #nosec G404 -- jitter only

	if n > int64(maximum/slotTime) {
		return maximum
	}
	backoff := time.Duration(n) * slotTime
	if backoff > maximum {
		return maximum
	}
	return backoff
}

// SleepBackedOff waits for BackoffTime or until ctx is done, whichever comes first
func SleepBackedOff(ctx context.Context, attempt int, slotTime time.Duration, maximum time.Duration) error {
	timer := time.NewTimer(BackoffTime(attempt, slotTime, maximum))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
