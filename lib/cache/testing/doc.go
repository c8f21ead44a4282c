// Package testing provides a shared conformance suite for cache.Engine
// implementations. An engine package runs the whole suite with a single call:
//
//	func Test(t *testing.T) {
//		cachetesting.RunEngineTests(t, "S3FIFO", func(cfg cachetesting.Config) cache.Engine {
//			return s3fifo.New(...)
//		})
//	}
//
// The suite covers the read/write surface, lazy expiry, queue movement
// (probation, promotion, ghost readmission), capacity enforcement, conflict
// resolution of replicated writes, deletion markers and snapshot export.
// Benchmarks for the same surface live in engine_benchmarks.go.
package testing
