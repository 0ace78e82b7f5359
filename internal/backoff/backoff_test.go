package backoff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponential(t *testing.T) {
	tests := []struct {
		name     string
		base     time.Duration
		attempt  int
		expected time.Duration
	}{
		{name: "attempt 0 returns base", base: 100 * time.Millisecond, attempt: 0, expected: 100 * time.Millisecond},
		{name: "attempt 1 doubles base", base: 100 * time.Millisecond, attempt: 1, expected: 200 * time.Millisecond},
		{name: "attempt 3 is 8x base", base: 100 * time.Millisecond, attempt: 3, expected: 800 * time.Millisecond},
		{name: "negative attempt treated as 0", base: 50 * time.Millisecond, attempt: -3, expected: 50 * time.Millisecond},
		{name: "zero base returns 0", base: 0, attempt: 5, expected: 0},
		{name: "huge attempt saturates", base: time.Hour, attempt: 62, expected: time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Exponential(tt.base, tt.attempt))
		})
	}
}

func TestFullJitter(t *testing.T) {
	assert.Equal(t, time.Duration(0), FullJitter(0))
	assert.Equal(t, time.Duration(0), FullJitter(-time.Second))

	for i := 0; i < 100; i++ {
		d := FullJitter(time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Second)
	}
}

func TestExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 6; attempt++ {
		upper := Exponential(100*time.Millisecond, attempt)
		for i := 0; i < 20; i++ {
			d := ExponentialWithJitter(100*time.Millisecond, attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.Less(t, d, upper)
		}
	}
}
