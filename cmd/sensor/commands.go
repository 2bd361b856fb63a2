package sensor

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/spf13/cobra"
)

var (
	ingestCmd = &cobra.Command{
		Use:   "ingest [sensor] [value]",
		Short: "Stores a measurement (the timestamp defaults to now)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("value must be a number: %w", err)
			}
			timestamp, _ := cmd.Flags().GetString("timestamp")
			if timestamp == "" {
				timestamp = store.FormatTimestamp(time.Now())
			}
			if err := skvClient.Ingest(cmd.Context(), args[0], timestamp, value); err != nil {
				return err
			}
			fmt.Printf("stored %s\n", store.JoinKey(args[0], timestamp))
			return nil
		},
	}
	bulkCmd = &cobra.Command{
		Use:   "bulk",
		Short: "Lets the server simulate sensors sending random readings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sensors, _ := cmd.Flags().GetInt("sensors")
			iterations, _ := cmd.Flags().GetInt("iterations")
			delay, _ := cmd.Flags().GetInt("delay-ms")

			resp, err := skvClient.IngestBulk(cmd.Context(), common.BulkIngestRequest{
				Sensors:     sensors,
				Iterations:  iterations,
				DelayMillis: delay,
			})
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(resp)
			}
			fmt.Printf("%s (%d stored, %d failed)\n", resp.Message, resp.Stored, resp.Failed)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads a measurement (key format sensor:timestamp)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := skvClient.Measurement(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(m)
			}
			fmt.Printf("%s = %g (%s)\n", m.Key, m.Value, m.Message)
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "Deletes a measurement from all alive nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := skvClient.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("deleted successfully")
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all measurements held by alive nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := skvClient.Measurements(cmd.Context())
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(all)
			}
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("%-40s %g\n", k, all[k])
			}
			fmt.Printf("%d measurements\n", len(keys))
			return nil
		},
	}
	recentCmd = &cobra.Command{
		Use:   "recent",
		Short: "Lists the most recent writes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recent, err := skvClient.RecentMeasurements(cmd.Context())
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(recent)
			}
			for _, m := range recent {
				fmt.Printf("%s  %-40s %g\n", m.ObservedAt.Format(time.RFC3339), m.Key, m.Value)
			}
			return nil
		},
	}
	historyCmd = &cobra.Command{
		Use:   "history [sensor]",
		Short: "Lists all measurements of a sensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := skvClient.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(history)
			}
			for _, m := range history {
				fmt.Printf("%-40s %g\n", m.Key, m.Value)
			}
			return nil
		},
	}
	meanCmd = &cobra.Command{
		Use:   "mean [sensor]",
		Short: "Prints the (cached) mean of a sensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mean, cached, err := skvClient.Mean(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStat("mean", args[0], mean, cached)
			return nil
		},
	}
	stdCmd = &cobra.Command{
		Use:   "std [sensor]",
		Short: "Prints the (cached) sample standard deviation of a sensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			std, cached, err := skvClient.Std(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printStat("std", args[0], std, cached)
			return nil
		},
	}
	summaryCmd = &cobra.Command{
		Use:   "summary [sensor]",
		Short: "Prints count, mean, std, min and max of a sensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := skvClient.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(s)
			}
			fmt.Printf("count %d  mean %.3f  std %.3f  min %g  max %g\n", s.Count, s.Mean, s.StdDeviation, s.Min, s.Max)
			return nil
		},
	}
)

func init() {
	ingestCmd.Flags().String("timestamp", "", util.WrapString("Timestamp of the reading (e.g. 2024-03-04T10:00:00), defaults to now"))

	bulkCmd.Flags().Int("sensors", common.DefaultBulkSensors, util.WrapString("Number of simulated sensors"))
	bulkCmd.Flags().Int("iterations", common.DefaultBulkIterations, util.WrapString("Readings per sensor"))
	bulkCmd.Flags().Int("delay-ms", common.DefaultBulkDelayMillis, util.WrapString("Delay between iterations in milliseconds"))
}

func printStat(name, sensorID string, value float64, cached bool) {
	if util.RawOutput() {
		_ = util.PrintJSON(map[string]any{"sensor_id": sensorID, name: value, "cached": cached})
		return
	}
	source := "computed"
	if cached {
		source = "cached"
	}
	fmt.Printf("%s of %s: %.4f (%s)\n", name, sensorID, value, source)
}
