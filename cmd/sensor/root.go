package sensor

import (
	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	skvClient *client.Client

	// SensorCommands represents the measurement command group
	SensorCommands = &cobra.Command{
		Use:               "sensor",
		Short:             "Store, read and analyse sensor measurements",
		PersistentPreRunE: util.SetupClient(&skvClient),
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupClientFlags(SensorCommands)

	SensorCommands.AddCommand(ingestCmd)
	SensorCommands.AddCommand(bulkCmd)
	SensorCommands.AddCommand(getCmd)
	SensorCommands.AddCommand(deleteCmd)
	SensorCommands.AddCommand(listCmd)
	SensorCommands.AddCommand(recentCmd)
	SensorCommands.AddCommand(historyCmd)
	SensorCommands.AddCommand(meanCmd)
	SensorCommands.AddCommand(stdCmd)
	SensorCommands.AddCommand(summaryCmd)
	SensorCommands.AddCommand(simulateCmd)
}
