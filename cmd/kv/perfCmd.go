package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/pKV/cmd/util"
	"github.com/ValentinKolb/pKV/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for pKV servers",
		Long:    "Runs pipelined benchmarks against a pKV server. Every worker uses its own connection and sends --pipeline requests before reading the responses.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__perf"
	perfValueSize  = 16
	perfNumThreads = 4
	perfKeySpread  = 1000
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 4, util.WrapString("Number of connections per CPU used for the benchmark"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("Size of the values written by the benchmark (in bytes)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfValueSize = viper.GetInt("value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread <= 0 {
		return fmt.Errorf("keys must be positive, got %d", perfKeySpread)
	}
	if perfNumThreads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", perfNumThreads)
	}
	return nil
}

// perfResult is the outcome of one benchmark
type perfResult struct {
	testing.BenchmarkResult
	Errors int64
}

func runPerf(_ *cobra.Command, _ []string) error {
	config := util.GetClientConfig()

	fmt.Println("Performance testing tool for pKV servers")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	keys := perfKeys()
	value := make([]byte, perfValueSize)

	// every worker starts on the same keys, the store only sees perfKeySpread keys
	benchmarks := []struct {
		name    string
		prepare bool
		request func(i int) *common.Request
	}{
		{"set", false, func(i int) *common.Request {
			return common.NewSetRequest(keys[i%perfKeySpread], value)
		}},
		{"get", true, func(i int) *common.Request {
			return common.NewGetRequest(keys[i%perfKeySpread])
		}},
		{"get-missing", false, func(i int) *common.Request {
			return common.NewGetRequest(fmt.Sprintf("%s/missing-%d", perfKeyPrefix, i%100))
		}},
		{"has", true, func(i int) *common.Request {
			return common.NewHasRequest(keys[i%perfKeySpread])
		}},
		{"mixed", true, func(i int) *common.Request {
			key := keys[i%perfKeySpread]
			switch i % 4 {
			case 0:
				return common.NewSetRequest(key, value)
			case 1:
				return common.NewGetRequest(key)
			case 2:
				return common.NewDelRequest(key)
			default:
				return common.NewHasRequest(key)
			}
		}},
	}

	fmt.Println("starting tests...")
	results := make(map[string]perfResult)

	for _, bench := range benchmarks {
		if shouldSkip(bench.name) {
			results[bench.name] = perfResult{}
			printResult(bench.name, perfResult{})
			continue
		}

		if bench.prepare {
			if err := writeKeys(keys, value); err != nil {
				return fmt.Errorf("failed to prepare keys for %s: %w", bench.name, err)
			}
		}

		result := runBenchmark(bench.request)
		results[bench.name] = result
		printResult(bench.name, result)

		if err := deleteKeys(keys); err != nil {
			log.Printf("(%s) - error deleting keys: %v\n", bench.name, err)
		}
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark measures request throughput with one connection per worker
func runBenchmark(request func(i int) *common.Request) perfResult {
	errCount := xsync.NewCounter()

	result := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			kv, err := newKVClient()
			if err != nil {
				log.Printf("error connecting worker: %v\n", err)
				for pb.Next() {
					errCount.Inc()
				}
				return
			}
			defer kv.Close()

			pipeline := max(util.GetClientConfig().Pipeline, 1)
			batch := make([]*common.Request, 0, pipeline)

			flush := func() {
				resps, err := kv.Batch(batch)
				if err != nil {
					errCount.Add(int64(len(batch)))
				}
				for _, resp := range resps {
					if resp.Status == common.StatusErr {
						errCount.Inc()
					}
				}
				batch = batch[:0]
			}

			counter := 0
			for pb.Next() {
				batch = append(batch, request(counter))
				counter++
				if len(batch) == pipeline {
					flush()
				}
			}
			if len(batch) > 0 {
				flush()
			}
		})
	})

	return perfResult{BenchmarkResult: result, Errors: errCount.Value()}
}

func perfKeys() []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%d", perfKeyPrefix, i)
	}
	return keys
}

// writeKeys sets all keys in one pipelined batch
func writeKeys(keys []string, value []byte) error {
	reqs := make([]*common.Request, len(keys))
	for i, key := range keys {
		reqs[i] = common.NewSetRequest(key, value)
	}
	_, err := rpcStore.Batch(reqs)
	return err
}

// deleteKeys removes all keys in one pipelined batch
func deleteKeys(keys []string) error {
	reqs := make([]*common.Request, len(keys))
	for i, key := range keys {
		reqs[i] = common.NewDelRequest(key)
	}
	_, err := rpcStore.Batch(reqs)
	return err
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

func printResult(test string, result perfResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
	if result.Errors > 0 {
		fmt.Printf("\t%d errors", result.Errors)
	}
	fmt.Println()
}

func writeResultsToCSV(csvPath string, results map[string]perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Errors", "Skipped",
		"Transport", "Endpoint", "TimeoutSec", "Pipeline",
		"Threads", "ValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		skipped := "true"

		if result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			strconv.FormatInt(result.Errors, 10),
			skipped,
			config.Transport,
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Pipeline),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", test, err)
		}
	}

	return nil
}
