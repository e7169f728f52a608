package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// MaxBatchSize is the most readings PVOutput accepts in one batch status call
	MaxBatchSize = 30

	defaultPVOutputURL    = "https://pvoutput.org"
	defaultBatchPause     = 10 * time.Second
	defaultTimeout        = 30 * time.Second
	defaultCheckpointPath = "lastReading.json"
	defaultDatabasePath   = "data.db"
	defaultTopicPrefix    = "pvrelay"
)

// Config holds the application configuration
type Config struct {
	Inverter    InverterConfig `yaml:"inverter"`
	PVOutput    PVOutputConfig `yaml:"pvoutput"`
	MQTT        MQTTConfig     `yaml:"mqtt,omitempty"`
	Checkpoint  string         `yaml:"checkpoint,omitempty"`   // Checkpoint file (fallback: lastReading.json)
	Database    string         `yaml:"database,omitempty"`     // Submission history (fallback: data.db)
	MetricsFile string         `yaml:"metrics_file,omitempty"` // node-exporter textfile, empty disables

	// Runtime switches, set from flags only
	DryRun bool `yaml:"-"`
	Debug  bool `yaml:"-"`
}

// InverterConfig holds the Fronius Solar API settings
type InverterConfig struct {
	Host    string        `yaml:"host"`              // e.g., "192.168.1.50"
	Timeout time.Duration `yaml:"timeout,omitempty"` // HTTP timeout per request
}

// PVOutputConfig holds the PVOutput API settings
type PVOutputConfig struct {
	URL        string        `yaml:"url,omitempty"` // e.g., "https://pvoutput.org"
	APIKey     string        `yaml:"api_key"`
	SystemID   string        `yaml:"system_id"`
	BatchSize  int           `yaml:"batch_size,omitempty"`  // Capped at 30
	BatchPause time.Duration `yaml:"batch_pause,omitempty"` // Pause between batch posts
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// MQTTConfig holds the optional MQTT mirror settings
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // host:port
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	ClientID    string `yaml:"client_id,omitempty"`
}

// ConfigError reports a missing or invalid setting
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Load reads the config file, expanding $VAR references
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Holds the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Override applies flag and environment values bound in v on top of the file values.
// Keys match the CLI flag names.
func (c *Config) Override(v *viper.Viper) {
	if s := v.GetString("host"); s != "" {
		c.Inverter.Host = s
	}
	if s := v.GetString("key"); s != "" {
		c.PVOutput.APIKey = s
	}
	if s := v.GetString("sid"); s != "" {
		c.PVOutput.SystemID = s
	}
	if s := v.GetString("checkpoint"); s != "" {
		c.Checkpoint = s
	}
	if s := v.GetString("db"); s != "" {
		c.Database = s
	}
	if s := v.GetString("metrics-file"); s != "" {
		c.MetricsFile = s
	}
	c.DryRun = v.GetBool("dry-run")
	c.Debug = v.GetBool("debug")
}

// Validate checks the settings every network operation needs
func (c *Config) Validate() error {
	if c.Inverter.Host == "" {
		return &ConfigError{Field: "inverter.host", Message: "inverter address must be set (--host)"}
	}
	if c.PVOutput.APIKey == "" || c.PVOutput.SystemID == "" {
		return &ConfigError{Field: "pvoutput", Message: "API key and system id must be set (--key, --sid)"}
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return &ConfigError{Field: "mqtt.broker", Message: "broker address is required when enabled"}
	}
	return nil
}

// GetPVOutputURL returns the PVOutput base URL
func (c *Config) GetPVOutputURL() string {
	if c.PVOutput.URL == "" {
		return defaultPVOutputURL
	}
	return c.PVOutput.URL
}

// GetBatchSize returns the batch size, never more than PVOutput allows
func (c *Config) GetBatchSize() int {
	if c.PVOutput.BatchSize <= 0 || c.PVOutput.BatchSize > MaxBatchSize {
		return MaxBatchSize
	}
	return c.PVOutput.BatchSize
}

// GetBatchPause returns the pause between batch posts with a default of 10s
func (c *Config) GetBatchPause() time.Duration {
	if c.PVOutput.BatchPause <= 0 {
		return defaultBatchPause
	}
	return c.PVOutput.BatchPause
}

// GetInverterTimeout returns the HTTP timeout for inverter requests
func (c *Config) GetInverterTimeout() time.Duration {
	if c.Inverter.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Inverter.Timeout
}

// GetPVOutputTimeout returns the HTTP timeout for PVOutput requests
func (c *Config) GetPVOutputTimeout() time.Duration {
	if c.PVOutput.Timeout <= 0 {
		return defaultTimeout
	}
	return c.PVOutput.Timeout
}

// GetCheckpointPath returns the checkpoint file path
func (c *Config) GetCheckpointPath() string {
	if c.Checkpoint == "" {
		return defaultCheckpointPath
	}
	return c.Checkpoint
}

// GetDatabasePath returns the history database path
func (c *Config) GetDatabasePath() string {
	if c.Database == "" {
		return defaultDatabasePath
	}
	return c.Database
}

// GetTopicPrefix returns the MQTT topic prefix
func (c *Config) GetTopicPrefix() string {
	if c.MQTT.TopicPrefix == "" {
		return defaultTopicPrefix
	}
	return c.MQTT.TopicPrefix
}
