package retry

import (
	"testing"
	"time"
)

func TestExponentialBackoff_DelayGrowth(t *testing.T) {
	b := NewExponentialBackoff(5,
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(time.Second),
		WithJitter(0))

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second}, // capped
		{5, time.Second}, // stays capped
	}
	for _, tc := range cases {
		if got := b.NextDelay(tc.attempt); got != tc.want {
			t.Errorf("Attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestExponentialBackoff_JitterBounds(t *testing.T) {
	// Deterministic jitter at the extremes of [0, 1).
	for _, random := range []float64{0.0, 0.5, 0.999} {
		b := NewExponentialBackoff(3,
			WithInitialDelay(100*time.Millisecond),
			WithJitter(0.1),
			WithJitterFunc(func() float64 { return random }))

		delay := b.NextDelay(0)
		if delay < 90*time.Millisecond || delay > 110*time.Millisecond {
			t.Errorf("Jitter %v: delay %v outside +/- 10%% band", random, delay)
		}
	}
}

func TestExponentialBackoff_Defaults(t *testing.T) {
	b := NewExponentialBackoff(3)

	if b.MaxAttempts() != 3 {
		t.Errorf("Expected 3 attempts, got %d", b.MaxAttempts())
	}
	if b.initialDelay != 100*time.Millisecond {
		t.Errorf("Expected 100ms initial delay, got %v", b.initialDelay)
	}
	if b.maxDelay != 30*time.Second {
		t.Errorf("Expected 30s max delay, got %v", b.maxDelay)
	}
}
