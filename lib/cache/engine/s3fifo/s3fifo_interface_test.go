package s3fifo

import (
	"testing"

	"github.com/hivecache/hivecache/lib/cache"
	cachetesting "github.com/hivecache/hivecache/lib/cache/testing"
)

func Test(t *testing.T) {
	cachetesting.RunEngineTests(t, "S3FIFO", func(cfg cachetesting.Config) cache.Engine {
		return New(&Options{
			CapacityBytes:    cfg.CapacityBytes,
			SmallFraction:    cfg.SmallFraction,
			GhostEntries:     cfg.GhostEntries,
			TombstoneEntries: cfg.TombstoneEntries,
			NumShards:        cfg.NumShards,
			Now:              cfg.Now,
		})
	})
}

func Benchmark(b *testing.B) {
	cachetesting.RunEngineBenchmarks(b, "S3FIFO", func(cfg cachetesting.Config) cache.Engine {
		return New(&Options{
			CapacityBytes:    cfg.CapacityBytes,
			SmallFraction:    cfg.SmallFraction,
			GhostEntries:     cfg.GhostEntries,
			TombstoneEntries: cfg.TombstoneEntries,
			NumShards:        cfg.NumShards,
			Now:              cfg.Now,
		})
	})
}
