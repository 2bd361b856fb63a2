package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/lib/alert"
	"github.com/ValentinKolb/sKV/lib/stats"
	"github.com/ValentinKolb/sKV/lib/store"
	"github.com/ValentinKolb/sKV/lib/store/replicated"
	"github.com/ValentinKolb/sKV/rpc/broker"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// evictionInterval is how often expired statistics are dropped from the cache
const evictionInterval = time.Minute

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the sKV server",
		Long:    `Start the sKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is SKV_<flag> (e.g. SKV_REPLICATION_FACTOR=2)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	// api
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen"))

	key = "api-token"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Bearer token required by all routes except /health and /metrics. Empty disables authentication"))

	key = "rate-limit"
	ServeCmd.PersistentFlags().Float64(key, 0, cmdUtil.WrapString("Requests per second accepted by the API. 0 disables the limiter"))

	key = "rate-burst"
	ServeCmd.PersistentFlags().Int(key, 50, cmdUtil.WrapString("Burst size of the rate limiter"))

	// storage
	key = "nodes"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("Number of in-memory storage nodes"))

	key = "base-port"
	ServeCmd.PersistentFlags().Int(key, 5000, cmdUtil.WrapString("Descriptive port of node 0, node i reports base-port+i"))

	key = "strategy"
	ServeCmd.PersistentFlags().String(key, string(store.StrategyFull), cmdUtil.WrapString("Initial replication strategy (full, partitioned)"))

	key = "replication-factor"
	ServeCmd.PersistentFlags().Int(key, 3, cmdUtil.WrapString("Number of replicas per key for the partitioned strategy"))

	key = "virtual-nodes"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("Virtual nodes per storage node on the hash ring"))

	key = "recent-limit"
	ServeCmd.PersistentFlags().Int(key, replicated.DefaultRecentLimit, cmdUtil.WrapString("Number of recent writes kept for /measurements/recent"))

	// alerts & statistics
	key = "recent-alerts"
	ServeCmd.PersistentFlags().Int(key, alert.DefaultRecentAlerts, cmdUtil.WrapString("Number of alerts returned by /alerts/recent"))

	key = "stats-ttl"
	ServeCmd.PersistentFlags().Int(key, 300, cmdUtil.WrapString("Seconds a computed mean or standard deviation stays cached"))

	// broker
	cmdUtil.SetupBrokerFlags(ServeCmd, false)

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.APIToken = viper.GetString("api-token")
	serveCmdConfig.RateLimit = viper.GetFloat64("rate-limit")
	serveCmdConfig.RateBurst = viper.GetInt("rate-burst")
	serveCmdConfig.Nodes = viper.GetInt("nodes")
	serveCmdConfig.BasePort = viper.GetInt("base-port")
	serveCmdConfig.Strategy = viper.GetString("strategy")
	serveCmdConfig.ReplicationFactor = viper.GetInt("replication-factor")
	serveCmdConfig.VirtualNodes = viper.GetInt("virtual-nodes")
	serveCmdConfig.RecentLimit = viper.GetInt("recent-limit")
	serveCmdConfig.RecentAlerts = viper.GetInt("recent-alerts")
	serveCmdConfig.StatsTTLSecond = viper.GetInt("stats-ttl")
	serveCmdConfig.Broker = cmdUtil.GetBrokerConfig()
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.Nodes < 1 {
		return fmt.Errorf("at least one node is required, got %d", serveCmdConfig.Nodes)
	}
	if err := serveCmdConfig.Broker.Validate(); err != nil {
		return err
	}
	if serveCmdConfig.StatsTTLSecond < 1 {
		return fmt.Errorf("stats-ttl must be positive, got %d", serveCmdConfig.StatsTTLSecond)
	}
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// newPublisher creates the broker publisher of the configured type (nil for none)
func newPublisher(ctx context.Context, cfg common.BrokerConfig) (broker.IPublisher, error) {
	switch cfg.Type {
	case common.BrokerTypeLog:
		return broker.NewLogPublisher(), nil
	case common.BrokerTypeNATS:
		s, err := serializer.ByName(cfg.Serializer)
		if err != nil {
			return nil, err
		}
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
		defer cancel()
		return broker.NewJetStreamPublisher(connectCtx, broker.JetStreamConfig{
			URL:     cfg.URL,
			Stream:  cfg.Stream,
			Subject: cfg.Subject,
			Name:    "skv-server",
		}, s)
	default:
		return nil, nil
	}
}

// run starts the sKV server
func run(cmd *cobra.Command, _ []string) error {
	fmt.Println(serveCmdConfig.String())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher, err := newPublisher(ctx, serveCmdConfig.Broker)
	if err != nil {
		return err
	}

	// the manager must not see a typed nil publisher
	var events store.IEventPublisher
	var dispatcher *broker.Dispatcher
	if publisher != nil {
		dispatcher = broker.NewDispatcher(publisher, serveCmdConfig.Broker.Timeout(), broker.DefaultRetries)
		events = dispatcher
	}

	alerts := alert.NewManager(serveCmdConfig.RecentAlerts)
	manager, err := replicated.NewManager(serveCmdConfig.ToReplicationConfig(), alerts, events)
	if err != nil {
		return err
	}
	statsService := stats.NewService(manager, serveCmdConfig.StatsTTL())
	srv := server.NewServer(*serveCmdConfig, manager, alerts, statsService)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		statsService.Run(gctx, evictionInterval)
		return nil
	})
	err = g.Wait()

	if dispatcher != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		if closeErr := dispatcher.Close(closeCtx); closeErr != nil {
			fmt.Printf("failed to flush broker events: %v\n", closeErr)
		}
		st := dispatcher.Stats()
		fmt.Printf("broker: %d published, %d failed, %d pending\n", st.Published, st.Failed, st.Pending)
	}

	return err
}
