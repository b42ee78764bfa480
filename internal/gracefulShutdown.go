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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ErrShutdownTimeout is returned by Wait when the shutdown tasks did not finish in time
var ErrShutdownTimeout = errors.New("shutdown tasks did not complete in time")

type GracefulShutdownHandler interface {
	Shutdown()          // Triggers a graceful shutdown programmatically.
	ShuttingDown() bool // Quickly checks if a shutdown is in progress.
	Wait() error        // Blocks until shutdown tasks are complete.
}

type gracefulShutdown struct {
	quit         chan os.Signal
	shuttingDown atomic.Bool
	wg           sync.WaitGroup
	err          error
}

// NewGracefulShutdown starts listening for SIGINT/SIGTERM. Once a signal arrives (or Shutdown is
// called) onShutdown runs with a context that expires after timeout.
func NewGracefulShutdown(onShutdown func(ctx context.Context) error, timeout time.Duration) GracefulShutdownHandler {
	gs := &gracefulShutdown{
		quit: make(chan os.Signal, 1),
	}
	signal.Notify(gs.quit, syscall.SIGINT, syscall.SIGTERM)
	gs.wg.Add(1)

	go func() {
		defer gs.wg.Done()
		defer signal.Stop(gs.quit)

		sig := <-gs.quit
		gs.shuttingDown.Store(true)
		zap.S().Infow("Received signal, shutting down", "signal", sig.String())
		if onShutdown == nil {
			return
		}

		zap.S().Infow("Waiting for shutdown tasks to complete", "timeout", timeout)
		ctx, cncl := context.WithTimeout(context.Background(), timeout)
		defer cncl()

		done := make(chan error, 1)
		go func() {
			done <- onShutdown(ctx)
		}()
		select {
		case err := <-done:
			if err != nil {
				zap.S().Errorw("Error during shutdown", "error", err)
				gs.err = err
				return
			}
			zap.S().Info("Shutdown tasks completed. Ready to exit.")
		case <-ctx.Done():
			zap.S().Errorw("Shutdown tasks did not complete in time", "timeout", timeout)
			gs.err = fmt.Errorf("%w (%s)", ErrShutdownTimeout, timeout)
		}
	}()

	return gs
}

func (gs *gracefulShutdown) ShuttingDown() bool {
	return gs.shuttingDown.Load()
}

func (gs *gracefulShutdown) Shutdown() {
	if gs.shuttingDown.Load() {
		return
	}
	select {
	case gs.quit <- syscall.SIGTERM:
	default:
		// a signal is already queued
	}
}

func (gs *gracefulShutdown) Wait() error {
	gs.wg.Wait()
	return gs.err
}
