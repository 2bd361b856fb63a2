package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/ValentinKolb/sKV/rpc/common"
	"github.com/ValentinKolb/sKV/rpc/serializer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. SKV_ENDPOINT)
	EnvPrefix = "skv"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and binds SKV_* environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Broker
// --------------------------------------------------------------------------

// SetupBrokerFlags adds the flags of the event broker to a command.
// The relay always reads from NATS and additionally needs a durable consumer name.
func SetupBrokerFlags(cmd *cobra.Command, relay bool) {
	key := "broker"
	if !relay {
		cmd.PersistentFlags().String(key, string(common.BrokerTypeNone), WrapString("Where stored measurements are published (none, log, nats)"))
	}

	key = "broker-url"
	cmd.PersistentFlags().String(key, "nats://localhost:4222", WrapString("URL of the NATS server"))

	key = "broker-stream"
	cmd.PersistentFlags().String(key, "SKV", WrapString("JetStream stream, created if missing"))

	key = "broker-subject"
	cmd.PersistentFlags().String(key, "skv.measurements", WrapString("Subject measurement events are published to"))

	key = "broker-serializer"
	cmd.PersistentFlags().String(key, serializer.FormatJSON, WrapString("Wire format of published events (json, gob, binary). The relay uses it for messages without format header"))

	key = "broker-timeout"
	cmd.PersistentFlags().Int(key, 5, WrapString("Timeout in seconds of a single publish or sink write"))

	if relay {
		key = "broker-durable"
		cmd.PersistentFlags().String(key, "skv-relay", WrapString("Name of the durable JetStream consumer"))
	}
}

// GetBrokerConfig reads the broker configuration from viper
func GetBrokerConfig() common.BrokerConfig {
	return common.BrokerConfig{
		Type:          common.BrokerType(viper.GetString("broker")),
		URL:           viper.GetString("broker-url"),
		Stream:        viper.GetString("broker-stream"),
		Subject:       viper.GetString("broker-subject"),
		Durable:       viper.GetString("broker-durable"),
		Serializer:    viper.GetString("broker-serializer"),
		TimeoutSecond: viper.GetInt("broker-timeout"),
	}
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// SetupClientFlags adds the connection flags of the HTTP client to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("The address of the sKV server"))

	key = "api-token"
	cmd.PersistentFlags().String(key, "", WrapString("Bearer token sent with every request"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of a single request"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a request on transport errors"))

	key = "json"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print raw JSON instead of formatted output"))
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		APIToken:      viper.GetString("api-token"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
	}
}

// SetupClient binds the flags of cmd and creates a client from the resulting config.
// It is meant to be used as PersistentPreRunE of a command group.
func SetupClient(target **client.Client) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if err := BindCommandFlags(cmd); err != nil {
			return err
		}
		*target = client.NewClient(*GetClientConfig())
		return nil
	}
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// RawOutput reports whether --json was given
func RawOutput() bool {
	return viper.GetBool("json")
}
