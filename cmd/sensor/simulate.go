package sensor

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/store"
	libUtil "github.com/ValentinKolb/sKV/lib/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	simulateCmd = &cobra.Command{
		Use:     "simulate",
		Short:   "Load test: concurrent sensors ingest and read random readings",
		Long:    "Every worker plays one sensor. It ingests --readings random values, reads each of them back and optionally deletes them again. Latencies are reported per operation together with the key distribution over the storage nodes.",
		PreRunE: processSimulateConfig,
		RunE:    runSimulate,
	}

	simWorkers  = 10
	simReadings = 100
	simMin      = 40.0
	simMax      = 70.0
	simPrefix   = "sim"
	simCleanup  = true
)

// simOps is the fixed order in which results are printed
var simOps = []string{"ingest", "get", "delete"}

func init() {
	key := "workers"
	simulateCmd.Flags().Int(key, simWorkers, util.WrapString("Number of concurrent simulated sensors"))
	key = "readings"
	simulateCmd.Flags().Int(key, simReadings, util.WrapString("Readings ingested by every sensor"))
	key = "min"
	simulateCmd.Flags().Float64(key, simMin, util.WrapString("Lower bound of the random values"))
	key = "max"
	simulateCmd.Flags().Float64(key, simMax, util.WrapString("Upper bound of the random values"))
	key = "prefix"
	simulateCmd.Flags().String(key, simPrefix, util.WrapString("Prefix of the simulated sensor ids"))
	key = "cleanup"
	simulateCmd.Flags().Bool(key, simCleanup, util.WrapString("Delete the simulated readings afterwards"))
	key = "csv"
	simulateCmd.Flags().String(key, "", util.WrapString("Optional path to save the results as CSV"))
}

func processSimulateConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	simWorkers = viper.GetInt("workers")
	simReadings = viper.GetInt("readings")
	simMin = viper.GetFloat64("min")
	simMax = viper.GetFloat64("max")
	simPrefix = viper.GetString("prefix")
	simCleanup = viper.GetBool("cleanup")

	if simWorkers < 1 || simReadings < 1 {
		return fmt.Errorf("workers and readings must be positive")
	}
	if simMin > simMax {
		return fmt.Errorf("min must not be greater than max")
	}
	return nil
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	fmt.Println("Sensor load simulation")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Workers: %d, readings per worker: %d\n\n", simWorkers, simReadings)

	timers := make(map[string]gometrics.Timer, len(simOps))
	failures := make(map[string]gometrics.Counter, len(simOps))
	for _, op := range simOps {
		timers[op] = gometrics.NewTimer()
		failures[op] = gometrics.NewCounter()
	}

	ctx := cmd.Context()
	start := time.Now()
	base := start.Truncate(time.Second)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < simWorkers; w++ {
		sensorID := fmt.Sprintf("%s%d", simPrefix, w)
		g.Go(func() error {
			return simulateSensor(gctx, sensorID, base, timers, failures)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	for _, op := range simOps {
		printSimResult(op, timers[op], failures[op].Count())
	}
	fmt.Printf("\ntotal %s\n", elapsed.Round(time.Millisecond))

	// placement is measured before the cleanup removes the keys
	if nodes, err := skvClient.NodesStatus(ctx); err != nil {
		fmt.Printf("could not read node status: %v\n", err)
	} else {
		printDistribution(nodes)
	}

	if simCleanup {
		cleanupStart := time.Now()
		for w := 0; w < simWorkers; w++ {
			for i := 0; i < simReadings; i++ {
				key := store.JoinKey(fmt.Sprintf("%s%d", simPrefix, w), simTimestamp(base, i))
				t := time.Now()
				if err := skvClient.Delete(ctx, key); err != nil {
					failures["delete"].Inc(1)
				}
				timers["delete"].UpdateSince(t)
			}
		}
		printSimResult("delete", timers["delete"], failures["delete"].Count())
		fmt.Printf("cleanup took %s\n", time.Since(cleanupStart).Round(time.Millisecond))
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeSimResultsToCSV(csvPath, timers, failures); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// simulateSensor ingests and reads back the readings of one sensor.
// Request errors are counted, only a cancelled context stops the worker.
func simulateSensor(ctx context.Context, sensorID string, base time.Time, timers map[string]gometrics.Timer, failures map[string]gometrics.Counter) error {
	for i := 0; i < simReadings; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		value := math.Round((simMin+rand.Float64()*(simMax-simMin))*100) / 100

		t := time.Now()
		if err := skvClient.Ingest(ctx, sensorID, simTimestamp(base, i), value); err != nil {
			failures["ingest"].Inc(1)
		}
		timers["ingest"].UpdateSince(t)
	}

	for i := 0; i < simReadings; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := time.Now()
		if _, err := skvClient.Measurement(ctx, store.JoinKey(sensorID, simTimestamp(base, i))); err != nil {
			failures["get"].Inc(1)
		}
		timers["get"].UpdateSince(t)
	}
	return nil
}

// simTimestamp returns the timestamp of the i-th reading, one second apart
func simTimestamp(base time.Time, i int) string {
	return store.FormatTimestamp(base.Add(time.Duration(i) * time.Second))
}

// printSimResult prints the latency summary of one operation
func printSimResult(op string, timer gometrics.Timer, failed int64) {
	if timer.Count() == 0 {
		fmt.Printf("%-10sskipped\n", op)
		return
	}
	ps := timer.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-10s%6d ops  mean %-12s p50 %-12s p99 %-12s %.0f ops/sec  %d failed\n",
		op,
		timer.Count(),
		time.Duration(timer.Mean()).Round(time.Microsecond),
		time.Duration(ps[0]).Round(time.Microsecond),
		time.Duration(ps[1]).Round(time.Microsecond),
		timer.RateMean(),
		failed,
	)
}

// printDistribution prints how evenly the keys are spread over the alive nodes
func printDistribution(nodes []store.NodeStatus) {
	counts := make([]float64, 0, len(nodes))
	for _, n := range nodes {
		if n.Alive {
			counts = append(counts, float64(n.KeyCount))
		}
	}
	if len(counts) == 0 {
		fmt.Println("no alive nodes")
		return
	}
	d := libUtil.NewDistributionStats(counts)
	fmt.Printf("\nkeys per node: mean %.1f  std %.1f  min %.0f  max %.0f  quality %.3f\n",
		d.Mean, d.StdDeviation, d.Min, d.Max, d.DistributionQuality)
}

// writeSimResultsToCSV writes the latency summary to a CSV file
func writeSimResultsToCSV(csvPath string, timers map[string]gometrics.Timer, failures map[string]gometrics.Counter) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Operation", "Count", "Failed", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec",
		"Endpoint", "Workers", "Readings",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	config := util.GetClientConfig()
	for _, op := range simOps {
		timer := timers[op]
		ps := timer.Percentiles([]float64{0.5, 0.99})
		row := []string{
			op,
			strconv.FormatInt(timer.Count(), 10),
			strconv.FormatInt(failures[op].Count(), 10),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.1f", timer.RateMean()),
			config.Endpoint,
			strconv.Itoa(simWorkers),
			strconv.Itoa(simReadings),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %v", op, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
