package testing

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/hivecache/hivecache/lib/cache"
)

// RunEngineBenchmarks runs all benchmarks for an engine implementation
func RunEngineBenchmarks(b *testing.B, name string, factory EngineFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(Config{}))
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory(Config{}))
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory(Config{}))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(Config{}))
		})

		b.Run("Merge", func(b *testing.B) {
			benchmarkMerge(b, factory(Config{}))
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory(Config{}))
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory(Config{}))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

var benchTS atomic.Uint64

func benchmarkSet(b *testing.B, engine cache.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := fmt.Sprintf("key-%d", counter.Add(1))
			engine.Set(key, value, benchTS.Add(1), "bench-node", 0)
		}
	})
}

func benchmarkSetExisting(b *testing.B, engine cache.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	engine.Set("key", value, benchTS.Add(1), "bench-node", 0)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			engine.Set("key", value, benchTS.Add(1), "bench-node", 0)
		}
	})
}

func benchmarkSetLargeValue(b *testing.B, engine cache.Engine) {
	defer engine.Close()

	value := make([]byte, 1<<20)
	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := fmt.Sprintf("key-%d", counter.Add(1)%64)
			engine.Set(key, value, benchTS.Add(1), "bench-node", 0)
		}
	})
}

func benchmarkGet(b *testing.B, engine cache.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	for i := 0; i < 1000; i++ {
		engine.Set(fmt.Sprintf("key-%d", i), value, benchTS.Add(1), "bench-node", 0)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			engine.Get(fmt.Sprintf("key-%d", r.Intn(1000)))
		}
	})
}

func benchmarkMerge(b *testing.B, engine cache.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := fmt.Sprintf("key-%d", r.Intn(1000))
			engine.Merge(key, value, benchTS.Add(1), "bench-node", 0)
		}
	})
}

func benchmarkDelete(b *testing.B, engine cache.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	var counter atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := fmt.Sprintf("key-%d", counter.Add(1))
			engine.Set(key, value, benchTS.Add(1), "bench-node", 0)
			engine.Delete(key, benchTS.Add(1), "bench-node")
		}
	})
}

func benchmarkMixedUsage(b *testing.B, engine cache.Engine) {
	defer engine.Close()

	value := []byte("benchmark-value")
	for i := 0; i < 1000; i++ {
		engine.Set(fmt.Sprintf("key-%d", i), value, benchTS.Add(1), "bench-node", 0)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := fmt.Sprintf("key-%d", r.Intn(1000))
			switch r.Intn(10) {
			case 0:
				engine.Delete(key, benchTS.Add(1), "bench-node")
			case 1, 2:
				engine.Set(key, value, benchTS.Add(1), "bench-node", 0)
			default:
				engine.Get(key)
			}
		}
	})
}
