package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/sKV/cmd/alert"
	"github.com/ValentinKolb/sKV/cmd/node"
	"github.com/ValentinKolb/sKV/cmd/relay"
	"github.com/ValentinKolb/sKV/cmd/sensor"
	"github.com/ValentinKolb/sKV/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "skv",
		Short: "replicated sensor measurement store",
		Long: fmt.Sprintf(`sKV (v%s)

An in-memory store for energy sensor readings written in Go. Measurements
are replicated over simulated storage nodes (full or partitioned on a
consistent hash ring) and checked against per sensor thresholds.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sKV v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(relay.RelayCmd)
	RootCmd.AddCommand(sensor.SensorCommands)
	RootCmd.AddCommand(node.NodeCommands)
	RootCmd.AddCommand(alert.AlertCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
