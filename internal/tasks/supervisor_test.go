package tasks

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func TestSupervisor_RunsTasks(t *testing.T) {
	s := NewSupervisor(zerolog.Nop())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		s.Go("count", func() error {
			ran.Add(1)
			return nil
		})
	}
	s.Wait()

	if ran.Load() != 5 {
		t.Errorf("Expected 5 tasks to run, got %d", ran.Load())
	}

	if len(s.Panics()) != 0 {
		t.Errorf("Expected no panics, got %v", s.Panics())
	}
}

func TestSupervisor_ErrorsAreSwallowed(t *testing.T) {
	s := NewSupervisor(zerolog.Nop())

	s.Go("failing", func() error {
		return errors.New("save failed")
	})
	s.Wait()

	// An error is logged, not recorded as a panic
	if len(s.Panics()) != 0 {
		t.Errorf("Expected errors not to count as panics, got %v", s.Panics())
	}
}

func TestSupervisor_RecoversPanics(t *testing.T) {
	s := NewSupervisor(zerolog.Nop())

	s.Go("exploding", func() error {
		panic("nil map write")
	})
	s.Wait()

	panics := s.Panics()
	if len(panics) != 1 {
		t.Fatalf("Expected 1 recorded panic, got %d", len(panics))
	}

	if panics[0] != "exploding: nil map write" {
		t.Errorf("Unexpected panic record: %s", panics[0])
	}
}
