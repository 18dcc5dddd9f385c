// Package tasks runs fire-and-forget background work under supervision. A
// detached task must never take down the process: errors are logged at the
// task boundary and panics are recovered and recorded.
package tasks

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Supervisor spawns detached goroutines and keeps enough state to let tests
// wait for them and assert that none panicked.
type Supervisor struct {
	logger zerolog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	panics []string
}

// NewSupervisor creates a supervisor logging through the given logger
func NewSupervisor(logger zerolog.Logger) *Supervisor {
	return &Supervisor{logger: logger}
}

// Go runs fn in a detached goroutine. The returned error is logged, not
// propagated; a panic is recovered, logged, and recorded for Panics().
func (s *Supervisor) Go(name string, fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				msg := fmt.Sprintf("%s: %v", name, r)
				s.mu.Lock()
				s.panics = append(s.panics, msg)
				s.mu.Unlock()
				s.logger.Error().Str("task", name).Interface("panic", r).Msg("background task panicked")
			}
		}()

		if err := fn(); err != nil {
			s.logger.Warn().Str("task", name).Err(err).Msg("background task failed")
		}
	}()
}

// Wait blocks until every spawned task has finished. Test hook; the serving
// path never calls it.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// Panics returns the recorded panic messages. Test hook: a test run asserts
// this is empty.
func (s *Supervisor) Panics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.panics))
	copy(out, s.panics)
	return out
}
