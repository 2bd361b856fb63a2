package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/sKV/cmd/util"
	"github.com/ValentinKolb/sKV/rpc/broker"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/ValentinKolb/sKV/rpc/sink"
	"github.com/VictoriaMetrics/metrics"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var (
	relayCmdConfig = &common.RelayConfig{}
	metricsAddr    string

	RelayCmd = &cobra.Command{
		Use:     "relay",
		Short:   "Forward published measurements from NATS JetStream to InfluxDB",
		Long:    `Consume the measurement events the server publishes with --broker=nats and write them to an InfluxDB v2 bucket. A message is acknowledged only after InfluxDB stored it. The configuration can be set via command line flags or environment variables (SKV_<flag>, e.g. SKV_INFLUX_TOKEN).`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	cmdUtil.SetupBrokerFlags(RelayCmd, true)

	key := "influx-url"
	RelayCmd.PersistentFlags().String(key, "http://localhost:8086", cmdUtil.WrapString("URL of the InfluxDB server"))

	key = "influx-token"
	RelayCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("InfluxDB API token"))

	key = "influx-org"
	RelayCmd.PersistentFlags().String(key, "skv", cmdUtil.WrapString("InfluxDB organisation"))

	key = "influx-bucket"
	RelayCmd.PersistentFlags().String(key, "energy", cmdUtil.WrapString("InfluxDB bucket the points are written to"))

	key = "metrics-endpoint"
	RelayCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the Prometheus /metrics endpoint of the relay. Empty disables it"))

	key = "log-level"
	RelayCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	relayCmdConfig.Broker = cmdUtil.GetBrokerConfig()
	relayCmdConfig.Broker.Type = common.BrokerTypeNATS
	relayCmdConfig.Influx = common.InfluxConfig{
		URL:    viper.GetString("influx-url"),
		Token:  viper.GetString("influx-token"),
		Org:    viper.GetString("influx-org"),
		Bucket: viper.GetString("influx-bucket"),
	}
	relayCmdConfig.LogLevel = viper.GetString("log-level")
	metricsAddr = viper.GetString("metrics-endpoint")

	if err := relayCmdConfig.Broker.Validate(); err != nil {
		return err
	}
	if relayCmdConfig.Broker.Durable == "" {
		return fmt.Errorf("broker-durable is required")
	}
	return common.InitLoggers(relayCmdConfig.LogLevel)
}

func run(cmd *cobra.Command, _ []string) error {
	fmt.Println(relayCmdConfig.String())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fallback, err := serializer.ByName(relayCmdConfig.Broker.Serializer)
	if err != nil {
		return err
	}

	influx := sink.NewInfluxSink(
		relayCmdConfig.Influx.URL,
		relayCmdConfig.Influx.Token,
		relayCmdConfig.Influx.Org,
		relayCmdConfig.Influx.Bucket,
	)
	defer influx.Close()

	pingCtx, cancel := context.WithTimeout(ctx, relayCmdConfig.Broker.Timeout())
	err = influx.Ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}

	consumer := broker.NewConsumer(broker.ConsumerConfig{
		JetStreamConfig: broker.JetStreamConfig{
			URL:     relayCmdConfig.Broker.URL,
			Stream:  relayCmdConfig.Broker.Stream,
			Subject: relayCmdConfig.Broker.Subject,
			Name:    "skv-relay",
		},
		Durable:      relayCmdConfig.Broker.Durable,
		Fallback:     fallback,
		WriteTimeout: relayCmdConfig.Broker.Timeout(),
	}, influx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	if metricsAddr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, metricsAddr)
		})
	}
	return g.Wait()
}

// serveMetrics exposes the relay counters until ctx is done
func serveMetrics(ctx context.Context, addr string) error {
	router := mux.NewRouter()
	router.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	}).Methods(http.MethodGet)

	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics endpoint failed: %w", err)
	}
	return nil
}
