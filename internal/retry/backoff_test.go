package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func quietConfig(maxRetries int) Config {
	return Config{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     false,
		LogRetries: false,
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxRetries != 4 {
		t.Errorf("Expected MaxRetries=4, got %d", config.MaxRetries)
	}

	if config.BaseDelay != 3*time.Second {
		t.Errorf("Expected BaseDelay=3s, got %v", config.BaseDelay)
	}

	if config.MaxDelay != 180*time.Second {
		t.Errorf("Expected MaxDelay=180s, got %v", config.MaxDelay)
	}

	if config.Multiplier != 2.0 {
		t.Errorf("Expected Multiplier=2.0, got %f", config.Multiplier)
	}

	if !config.Jitter {
		t.Error("Expected Jitter=true")
	}
}

func TestDo_Success(t *testing.T) {
	result := Do(context.Background(), quietConfig(2), func() (error, string) {
		return nil, ""
	}, zerolog.Nop())

	if !result.Success {
		t.Error("Expected success=true")
	}

	if result.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", result.Attempts)
	}

	if result.LastError != nil {
		t.Errorf("Expected no error, got %v", result.LastError)
	}
}

func TestDo_EventualSuccess(t *testing.T) {
	attempts := 0
	result := Do(context.Background(), quietConfig(2), func() (error, string) {
		attempts++
		if attempts < 3 {
			return errors.New("backend failed"), "model is loading"
		}
		return nil, ""
	}, zerolog.Nop())

	if !result.Success {
		t.Error("Expected success=true")
	}

	if result.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}

	if len(result.RetryReasons) != 2 {
		t.Errorf("Expected 2 retry reasons, got %d", len(result.RetryReasons))
	}

	for i, reason := range result.RetryReasons {
		if reason != "model_loading" {
			t.Errorf("Expected retry reason %d to be model_loading, got %s", i, reason)
		}
	}
}

func TestDo_Exhaustion(t *testing.T) {
	attempts := 0
	result := Do(context.Background(), quietConfig(2), func() (error, string) {
		attempts++
		return errors.New("request timed out"), ""
	}, zerolog.Nop())

	if result.Success {
		t.Error("Expected success=false")
	}

	if result.Attempts != 3 { // MaxRetries + 1
		t.Errorf("Expected 3 attempts, got %d", result.Attempts)
	}

	if result.LastError == nil {
		t.Fatal("Expected a classified error")
	}

	if result.LastError.Kind != KindTimeout {
		t.Errorf("Expected last error kind=timeout, got %s", result.LastError.Kind)
	}
}

func TestDo_FatalShortCircuit(t *testing.T) {
	attempts := 0
	original := errors.New("unknown field in request")
	result := Do(context.Background(), quietConfig(5), func() (error, string) {
		attempts++
		return original, ""
	}, zerolog.Nop())

	if result.Success {
		t.Error("Expected success=false")
	}

	if result.Attempts != 1 {
		t.Errorf("Expected exactly 1 attempt for fatal error, got %d", result.Attempts)
	}

	if result.LastError.Kind != KindFatal {
		t.Errorf("Expected kind=fatal, got %s", result.LastError.Kind)
	}

	// The original error must propagate unchanged through the wrapper
	if !errors.Is(result.LastError, original) {
		t.Error("Expected classified error to unwrap to the original error")
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	config := quietConfig(5)
	config.BaseDelay = 100 * time.Millisecond
	config.MaxDelay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := Do(ctx, config, func() (error, string) {
		return errors.New("worker is not ready"), ""
	}, zerolog.Nop())

	if result.Success {
		t.Error("Expected success=false due to context cancellation")
	}

	if result.Attempts > 2 {
		t.Errorf("Expected few attempts due to quick timeout, got %d", result.Attempts)
	}
}

func TestComputeDelay(t *testing.T) {
	config := Config{
		BaseDelay:  3 * time.Second,
		MaxDelay:   180 * time.Second,
		Multiplier: 2.0,
		Jitter:     false,
	}

	delay0 := computeDelay(config, 0)
	delay1 := computeDelay(config, 1)
	delay2 := computeDelay(config, 2)

	if delay0 != 3*time.Second {
		t.Errorf("Expected delay0=3s, got %v", delay0)
	}

	if delay1 != 6*time.Second {
		t.Errorf("Expected delay1=6s, got %v", delay1)
	}

	if delay2 != 12*time.Second {
		t.Errorf("Expected delay2=12s, got %v", delay2)
	}

	// Max delay cap
	delay10 := computeDelay(config, 10)
	if delay10 != 180*time.Second {
		t.Errorf("Expected delay10=180s (capped), got %v", delay10)
	}
}

func TestComputeDelay_JitterBounds(t *testing.T) {
	config := Config{
		BaseDelay:  3 * time.Second,
		MaxDelay:   180 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}

	// Jitter scales by uniform(0.5, 1.0): attempt 0 lands in [1.5s, 3s],
	// attempt 1 in [3s, 6s].
	for i := 0; i < 100; i++ {
		d0 := computeDelay(config, 0)
		if d0 < 1500*time.Millisecond || d0 > 3*time.Second {
			t.Fatalf("delay for attempt 0 out of bounds: %v", d0)
		}

		d1 := computeDelay(config, 1)
		if d1 < 3*time.Second || d1 > 6*time.Second {
			t.Fatalf("delay for attempt 1 out of bounds: %v", d1)
		}
	}
}
