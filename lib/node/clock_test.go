package node

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockMonotonic(t *testing.T) {
	clock := NewClock()

	prev := clock.Next()
	for i := 0; i < 100000; i++ {
		ts := clock.Next()
		require.Greater(t, ts, prev, "timestamps must be strictly increasing")
		prev = ts
	}
}

func TestClockConcurrent(t *testing.T) {
	const (
		goroutines = 8
		perRoutine = 10000
	)

	clock := NewClock()
	timestamps := make([][]uint64, goroutines)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			out := make([]uint64, perRoutine)
			for i := range out {
				out[i] = clock.Next()
			}
			timestamps[g] = out
		}(g)
	}
	wg.Wait()

	// no two goroutines may ever have drawn the same timestamp
	seen := make(map[uint64]struct{}, goroutines*perRoutine)
	for _, out := range timestamps {
		for _, ts := range out {
			_, dup := seen[ts]
			assert.False(t, dup, "timestamp %d issued twice", ts)
			seen[ts] = struct{}{}
		}
	}
	require.Len(t, seen, goroutines*perRoutine)
}
