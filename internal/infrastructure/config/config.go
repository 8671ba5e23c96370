package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPollInterval is how often an attached gateway is probed for liveness.
const DefaultPollInterval = 5 * time.Minute

// Config is the root configuration structure for the miio bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge       BridgeConfig    `yaml:"bridge"`
	Gateways     []GatewayConfig `yaml:"gateways"`
	PollInterval time.Duration   `yaml:"poll_interval"`
	Miio         MiioConfig      `yaml:"miio"`
	Database     DatabaseConfig  `yaml:"database"`
	MQTT         MQTTConfig      `yaml:"mqtt"`
	API          APIConfig       `yaml:"api"`
	WebSocket    WebSocketConfig `yaml:"websocket"`
	InfluxDB     InfluxDBConfig  `yaml:"influxdb"`
	Logging      LoggingConfig   `yaml:"logging"`
	HomeKit      HomeKitConfig   `yaml:"homekit"`
	Endpoints    EndpointsConfig `yaml:"endpoints"`
}

// BridgeConfig identifies this bridge instance.
type BridgeConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Manufacturer string `yaml:"manufacturer"`
}

// GatewayConfig holds the connection parameters for one miio gateway.
type GatewayConfig struct {
	ID      string `yaml:"id"`
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
	Model   string `yaml:"model,omitempty"`
}

// MiioConfig configures the MQTT link to the miio protocol agent.
type MiioConfig struct {
	TopicPrefix    string          `yaml:"topic_prefix"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	Agent          MiioAgentConfig `yaml:"agent"`
}

// MiioAgentConfig describes an optional locally supervised agent process.
// When disabled the agent is expected to be running elsewhere.
type MiioAgentConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Binary          string        `yaml:"binary"`
	Args            []string      `yaml:"args"`
	RestartDelay    time.Duration `yaml:"restart_delay"`
	MaxRestarts     int           `yaml:"max_restarts"`
	GracefulTimeout time.Duration `yaml:"graceful_timeout"`
	ProbeInterval   time.Duration `yaml:"probe_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains status API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains event stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// HomeKitConfig configures the HomeKit accessory server.
type HomeKitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Pin         string `yaml:"pin"`
	StoragePath string `yaml:"storage_path"`
	Address     string `yaml:"address"`
}

// EndpointsConfig configures the MQTT endpoint surface that exposes
// accessories to generic automation hosts.
type EndpointsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The loading order is defaults, then the YAML file, then environment
// variables of the form MIIOBRIDGE_SECTION_KEY.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:           "miiobridge-001",
			Name:         "Miio Bridge",
			Manufacturer: "Xiaomi",
		},
		PollInterval: DefaultPollInterval,
		Miio: MiioConfig{
			TopicPrefix:    "miio",
			RequestTimeout: 10 * time.Second,
			Agent: MiioAgentConfig{
				RestartDelay:    5 * time.Second,
				MaxRestarts:     10,
				GracefulTimeout: 10 * time.Second,
				ProbeInterval:   30 * time.Second,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/miiobridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "miiobridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		HomeKit: HomeKitConfig{
			Pin:         "00102003",
			StoragePath: "./data/homekit",
		},
		Endpoints: EndpointsConfig{
			Enabled:     true,
			TopicPrefix: "miiobridge",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIIOBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("MIIOBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MIIOBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MIIOBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("MIIOBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("MIIOBRIDGE_HOMEKIT_PIN"); v != "" {
		cfg.HomeKit.Pin = v
	}
}

// Validate checks the configuration for errors. All problems are reported
// together rather than one at a time.
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	seen := make(map[string]bool, len(c.Gateways))
	for i, gw := range c.Gateways {
		switch {
		case gw.ID == "":
			errs = append(errs, fmt.Sprintf("gateways[%d].id is required", i))
		case seen[gw.ID]:
			errs = append(errs, fmt.Sprintf("gateways[%d].id %q is duplicated", i, gw.ID))
		}
		seen[gw.ID] = true
		if gw.Address == "" {
			errs = append(errs, fmt.Sprintf("gateways[%d].address is required", i))
		}
	}

	if c.PollInterval <= 0 {
		errs = append(errs, "poll_interval must be positive")
	}

	if c.Miio.TopicPrefix == "" {
		errs = append(errs, "miio.topic_prefix is required")
	}
	if c.Miio.Agent.Enabled && c.Miio.Agent.Binary == "" {
		errs = append(errs, "miio.agent.binary is required when the agent is enabled")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.HomeKit.Enabled && len(c.HomeKit.Pin) != 8 {
		errs = append(errs, "homekit.pin must be 8 digits")
	}

	if c.Endpoints.Enabled && c.Endpoints.TopicPrefix == "" {
		errs = append(errs, "endpoints.topic_prefix is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
