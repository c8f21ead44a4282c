package perf

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hivecache/hivecache/cmd/util"
	"github.com/hivecache/hivecache/lib/node"
	"github.com/hivecache/hivecache/wire/transport/inmem"
)

var (
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the cache engine",
		Long:    "Benchmark the local cache engine (put, get, delete, mixed) on a single in-process node and report throughput and latency percentiles.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix   = "__perf"
	perfValueSizeKB = 1
	perfNumThreads  = 10
	perfKeySpread   = 100
	perfCapacityMB  = int64(64)
	perfSkip        = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	PerfCmd.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	PerfCmd.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "value-size"
	PerfCmd.PersistentFlags().Int(key, 1, util.WrapString("How large the values should be (in KB)"))
	key = "keys"
	PerfCmd.PersistentFlags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "capacity-mb"
	PerfCmd.PersistentFlags().Int64(key, 64, util.WrapString("Cache capacity in megabytes"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfValueSizeKB = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfCapacityMB = viper.GetInt64("capacity-mb")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

// result combines the throughput numbers from testing.Benchmark with the
// latency distribution recorded alongside it
type result struct {
	name      string
	bench     testing.BenchmarkResult
	latencies gometrics.Timer
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for the cache engine")
	fmt.Println()
	fmt.Printf("Threads:    %d\n", perfNumThreads)
	fmt.Printf("Keys:       %d\n", perfKeySpread)
	fmt.Printf("Value size: %d KB\n", perfValueSizeKB)
	fmt.Printf("Capacity:   %d MB\n", perfCapacityMB)
	fmt.Println()

	// the node runs on the in-memory transport so no sockets are opened
	config := node.DefaultConfig()
	config.ID = "perf"
	config.BindAddr = "perf-local"
	config.CapacityBytes = perfCapacityMB * 1024 * 1024
	n, err := node.New(config, inmem.NewNetwork().Transport(config.BindAddr))
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}
	defer n.Close()

	value := make([]byte, perfValueSizeKB*1024)
	results := make([]result, 0)

	results = append(results, runBenchmark("put", func(counter int) {
		n.Put(perfKey("put", counter), value)
	}))

	// pre-populate for the read benchmarks
	for i := 0; i < perfKeySpread; i++ {
		n.Put(perfKey("get", i), value)
	}

	results = append(results, runBenchmark("get", func(counter int) {
		n.Get(perfKey("get", counter))
	}))

	results = append(results, runBenchmark("get-miss", func(counter int) {
		n.Get(perfKey("missing", counter))
	}))

	results = append(results, runBenchmark("delete", func(counter int) {
		n.Delete(perfKey("delete", counter))
	}))

	results = append(results, runBenchmark("mixed", func(counter int) {
		switch counter % 10 {
		case 0:
			n.Put(perfKey("mixed", counter), value)
		case 1:
			n.Delete(perfKey("mixed", counter))
		default:
			n.Get(perfKey("mixed", counter))
		}
	}))

	fmt.Println()
	for _, r := range results {
		printResult(r)
	}

	if path := viper.GetString("csv"); path != "" {
		if err := writeCSV(path, results); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		fmt.Printf("\nResults saved to %s\n", path)
	}

	return nil
}

// runBenchmark measures op with testing.Benchmark while feeding each
// operation's duration into a latency timer
func runBenchmark(name string, op func(counter int)) result {
	timer := gometrics.NewTimer()

	bench := testing.Benchmark(func(b *testing.B) {
		if shouldSkip(name) {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				op(counter)
				timer.UpdateSince(start)
				counter++
			}
		})
	})

	fmt.Printf("%s done (%d ops)\n", name, bench.N)
	return result{name: name, bench: bench, latencies: timer}
}

func printResult(r result) {
	if r.bench.N <= 1 {
		fmt.Printf("%-10s skipped\n", r.name)
		return
	}

	opsPerSec := float64(r.bench.N) / r.bench.T.Seconds()
	fmt.Printf("%-10s %12.0f ops/s    p50 %8s    p95 %8s    p99 %8s\n",
		r.name,
		opsPerSec,
		time.Duration(r.latencies.Percentile(0.50)),
		time.Duration(r.latencies.Percentile(0.95)),
		time.Duration(r.latencies.Percentile(0.99)),
	)
}

func writeCSV(path string, results []result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"benchmark", "ops", "ns_per_op", "p50_ns", "p95_ns", "p99_ns"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.name,
			strconv.Itoa(r.bench.N),
			strconv.FormatInt(r.bench.NsPerOp(), 10),
			strconv.FormatFloat(r.latencies.Percentile(0.50), 'f', 0, 64),
			strconv.FormatFloat(r.latencies.Percentile(0.95), 'f', 0, 64),
			strconv.FormatFloat(r.latencies.Percentile(0.99), 'f', 0, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func perfKey(benchmark string, counter int) string {
	return fmt.Sprintf("%s/%s-%d", perfKeyPrefix, benchmark, counter%perfKeySpread)
}

func shouldSkip(name string) bool {
	for _, s := range perfSkip {
		if strings.TrimSpace(s) == name {
			return true
		}
	}
	return false
}
