package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/sKV/lib/store/replicated"
)

// --------------------------------------------------------------------------
// helper functions to build the core configuration (for the server util)
// --------------------------------------------------------------------------

// ToReplicationConfig converts the ServerConfig to the replication manager config
func (c *ServerConfig) ToReplicationConfig() replicated.Config {
	return replicated.Config{
		Nodes:             c.Nodes,
		BasePort:          c.BasePort,
		Strategy:          c.Strategy,
		ReplicationFactor: c.ReplicationFactor,
		VirtualNodes:      c.VirtualNodes,
		RecentLimit:       c.RecentLimit,
	}
}

// --------------------------------------------------------------------------
// Broker configuration struct (shared by server and relay)
// --------------------------------------------------------------------------

type BrokerType string

const (
	BrokerTypeNone BrokerType = "none" // events are dropped
	BrokerTypeLog  BrokerType = "log"  // events are written to the log
	BrokerTypeNATS BrokerType = "nats" // events are published to NATS JetStream
)

// BrokerConfig configures the message broker hand-off
type BrokerConfig struct {
	Type          BrokerType
	URL           string
	Stream        string
	Subject       string
	Durable       string
	Serializer    string
	TimeoutSecond int
}

// Validate checks the broker type and the serializer name
func (c *BrokerConfig) Validate() error {
	switch c.Type {
	case BrokerTypeNone, BrokerTypeLog, BrokerTypeNATS:
	default:
		return fmt.Errorf("invalid broker %s (expected one of: none, log, nats)", c.Type)
	}
	switch strings.ToLower(c.Serializer) {
	case "json", "gob", "binary":
	default:
		return fmt.Errorf("invalid broker serializer %s (expected one of: json, gob, binary)", c.Serializer)
	}
	return nil
}

// Timeout returns the per message timeout
func (c *BrokerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// --------------------------------------------------------------------------
// HTTP server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the API server.
type ServerConfig struct {
	// HTTP api settings
	Endpoint  string
	APIToken  string
	RateLimit float64 // requests per second, 0 disables the limiter
	RateBurst int

	// Replication parameters
	Nodes             int
	BasePort          int
	Strategy          string
	ReplicationFactor int
	VirtualNodes      int
	RecentLimit       int

	// Alerting and statistics
	RecentAlerts   int
	StatsTTLSecond int

	// Outbound events
	Broker BrokerConfig

	// Logging configuration
	LogLevel string
}

// StatsTTL returns the validity window of cached statistics
func (c *ServerConfig) StatsTTL() time.Duration {
	return time.Duration(c.StatsTTLSecond) * time.Second
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// HTTP settings
	addSection("HTTP Server")
	addField("Endpoint", c.Endpoint)
	addField("Auth", map[bool]string{true: "bearer token", false: "disabled"}[c.APIToken != ""])
	if c.RateLimit > 0 {
		addField("Rate Limit", fmt.Sprintf("%.1f req/s (burst %d)", c.RateLimit, c.RateBurst))
	} else {
		addField("Rate Limit", "disabled")
	}

	// Replication
	addSection("Replication")
	addField("Nodes", strconv.Itoa(c.Nodes))
	addField("Ports", fmt.Sprintf("%d-%d", c.BasePort, c.BasePort+c.Nodes-1))
	addField("Strategy", c.Strategy)
	addField("Replication Factor", strconv.Itoa(c.ReplicationFactor))
	addField("Virtual Nodes", strconv.Itoa(c.VirtualNodes))
	addField("Recent Log Size", strconv.Itoa(c.RecentLimit))

	// Alerting and statistics
	addSection("Alerts & Statistics")
	addField("Recent Alerts", strconv.Itoa(c.RecentAlerts))
	addField("Stats Cache TTL", fmt.Sprintf("%d sec", c.StatsTTLSecond))

	// Broker
	addSection("Broker")
	c.Broker.addFields(addField)

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// addFields writes the broker settings with the given field helper
func (c *BrokerConfig) addFields(addField func(name, value string)) {
	addField("Type", string(c.Type))
	if c.Type != BrokerTypeNATS {
		return
	}
	addField("URL", c.URL)
	addField("Stream", c.Stream)
	addField("Subject", c.Subject)
	if c.Durable != "" {
		addField("Durable Consumer", c.Durable)
	}
	addField("Serializer", c.Serializer)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
}

// --------------------------------------------------------------------------
// Relay configuration struct
// --------------------------------------------------------------------------

// InfluxConfig configures the InfluxDB sink
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// RelayConfig holds the configuration of the broker to InfluxDB relay
type RelayConfig struct {
	Broker   BrokerConfig
	Influx   InfluxConfig
	LogLevel string
}

// String returns a formatted string representation of the relay configuration
func (c *RelayConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Broker")
	c.Broker.addFields(addField)

	addSection("InfluxDB")
	addField("URL", c.Influx.URL)
	addField("Org", c.Influx.Org)
	addField("Bucket", c.Influx.Bucket)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// HTTP client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	APIToken      string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Auth", map[bool]string{true: "bearer token", false: "none"}[c.APIToken != ""])

	return sb.String()
}
