package node

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	skvClient *client.Client

	// NodeCommands represents the cluster administration command group
	NodeCommands = &cobra.Command{
		Use:               "node",
		Short:             "Inspect storage nodes and control replication",
		PersistentPreRunE: util.SetupClient(&skvClient),
	}

	failCmd = &cobra.Command{
		Use:   "fail [node-id]",
		Short: "Simulates the failure of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			if err := skvClient.FailNode(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("node %d marked as failed\n", id)
			return nil
		},
	}

	recoverCmd = &cobra.Command{
		Use:   "recover [node-id]",
		Short: "Brings a failed node back and resynchronises its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			if err := skvClient.RecoverNode(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("node %d recovered\n", id)
			return nil
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Lists all nodes with their state and key count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nodes, err := skvClient.NodesStatus(cmd.Context())
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(nodes)
			}
			printNodes(nodes)
			return nil
		},
	}

	replicasCmd = &cobra.Command{
		Use:   "replicas [key]",
		Short: "Lists the nodes responsible for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := skvClient.ReplicaNodes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(nodes)
			}
			printNodes(nodes)
			return nil
		},
	}

	configureCmd = &cobra.Command{
		Use:   "configure [strategy]",
		Short: "Switches the replication strategy (full, partitioned)",
		Long:  "Switches the replication strategy. Existing data is redistributed over the alive nodes. Without --factor the current replication factor is kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var factor *int
			if cmd.Flags().Changed("factor") {
				f, _ := cmd.Flags().GetInt("factor")
				factor = &f
			}
			msg, err := skvClient.ConfigureReplication(cmd.Context(), args[0], factor)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Prints the active replication configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := skvClient.Replication(cmd.Context())
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(cfg)
			}
			fmt.Printf("strategy %s, replication factor %d, %d nodes, %d virtual nodes per node\n",
				cfg.Strategy, cfg.ReplicationFactor, cfg.Nodes, cfg.VirtualNodes)
			return nil
		},
	}

	debugCmd = &cobra.Command{
		Use:   "debug [node-id]",
		Short: "Dumps the contents of a node (also works for failed nodes)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNodeID(args[0])
			if err != nil {
				return err
			}
			contents, err := skvClient.NodeContents(cmd.Context(), id)
			if err != nil {
				return err
			}
			if util.RawOutput() {
				return util.PrintJSON(contents)
			}
			printNodes([]store.NodeStatus{contents.NodeStatus})
			for _, m := range contents.Measurements {
				fmt.Printf("  %-40s %g\n", m.Key, m.Value)
			}
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupClientFlags(NodeCommands)

	configureCmd.Flags().Int("factor", 0, util.WrapString("Replication factor of the partitioned strategy"))

	NodeCommands.AddCommand(failCmd)
	NodeCommands.AddCommand(recoverCmd)
	NodeCommands.AddCommand(statusCmd)
	NodeCommands.AddCommand(replicasCmd)
	NodeCommands.AddCommand(configureCmd)
	NodeCommands.AddCommand(configCmd)
	NodeCommands.AddCommand(debugCmd)
}

func parseNodeID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid node id %q", s)
	}
	return id, nil
}

func printNodes(nodes []store.NodeStatus) {
	for _, n := range nodes {
		state := "alive"
		if !n.Alive {
			state = "failed"
		}
		fmt.Printf("node %-3d port %-6d %-7s %d keys\n", n.NodeID, n.Port, state, n.KeyCount)
	}
}
