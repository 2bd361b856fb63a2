package alert

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/sKV/cmd/util"
	libAlert "github.com/ValentinKolb/sKV/lib/alert"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	skvClient *client.Client

	// AlertCommands represents the threshold and alert command group
	AlertCommands = &cobra.Command{
		Use:               "alert",
		Short:             "Configure thresholds and read triggered alerts",
		PersistentPreRunE: util.SetupClient(&skvClient),
	}

	setCmd = &cobra.Command{
		Use:   "set [sensor] [threshold]",
		Short: "Sets the base threshold of a sensor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := parseThreshold(args[1])
			if err != nil {
				return err
			}
			if err := skvClient.SetThreshold(cmd.Context(), args[0], threshold); err != nil {
				return err
			}
			fmt.Printf("threshold for %s set to %g\n", args[0], threshold)
			return nil
		},
	}

	weekdayCmd = &cobra.Command{
		Use:   "weekday [sensor] [day] [threshold]",
		Short: "Sets the threshold of a sensor for one weekday (e.g. Monday)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := parseThreshold(args[2])
			if err != nil {
				return err
			}
			if err := skvClient.SetWeekdayThreshold(cmd.Context(), args[0], args[1], threshold); err != nil {
				return err
			}
			fmt.Printf("threshold for %s on %s set to %g\n", args[0], args[1], threshold)
			return nil
		},
	}

	hourlyCmd = &cobra.Command{
		Use:   "hourly [sensor] [start-hour] [end-hour] [threshold]",
		Short: "Sets the threshold of a sensor for the hours [start, end)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("start hour must be an integer: %w", err)
			}
			end, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("end hour must be an integer: %w", err)
			}
			threshold, err := parseThreshold(args[3])
			if err != nil {
				return err
			}
			if err := skvClient.SetHourlyThreshold(cmd.Context(), args[0], start, end, threshold); err != nil {
				return err
			}
			fmt.Printf("threshold for %s between %02d:00 and %02d:00 set to %g\n", args[0], start, end, threshold)
			return nil
		},
	}

	thresholdsCmd = &cobra.Command{
		Use:   "thresholds [sensor]",
		Short: "Prints all thresholds of a sensor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := skvClient.Thresholds(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(set)
			}
			if set.Base != nil {
				fmt.Printf("base      %g\n", *set.Base)
			}
			for day, t := range set.ByWeekday {
				fmt.Printf("%-9s %g\n", day, t)
			}
			for _, h := range set.ByHour {
				fmt.Printf("%02d-%02d     %g\n", h.StartHour, h.EndHour, h.Threshold)
			}
			return nil
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all triggered alerts, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			alerts, err := skvClient.Alerts(cmd.Context())
			if err != nil {
				return err
			}
			return printAlerts(alerts)
		},
	}

	recentCmd = &cobra.Command{
		Use:   "recent",
		Short: "Lists the most recent alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			alerts, err := skvClient.RecentAlerts(cmd.Context())
			if err != nil {
				return err
			}
			return printAlerts(alerts)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupClientFlags(AlertCommands)

	AlertCommands.AddCommand(setCmd)
	AlertCommands.AddCommand(weekdayCmd)
	AlertCommands.AddCommand(hourlyCmd)
	AlertCommands.AddCommand(thresholdsCmd)
	AlertCommands.AddCommand(listCmd)
	AlertCommands.AddCommand(recentCmd)
}

func parseThreshold(s string) (float64, error) {
	t, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("threshold must be a number: %w", err)
	}
	return t, nil
}

func printAlerts(alerts []libAlert.AlertEvent) error {
	if util.RawOutput() {
		return util.PrintJSON(alerts)
	}
	if len(alerts) == 0 {
		fmt.Println("no alerts")
		return nil
	}
	for _, a := range alerts {
		fmt.Printf("%s  %-12s %-20s value %g > %g (%s)\n",
			a.TriggeredAt.Format(time.RFC3339), a.SensorID, a.Timestamp, a.Value, a.Threshold, a.Rule)
	}
	return nil
}
