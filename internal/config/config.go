package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the two externally configured values.
const (
	EnvStoreDSN     = "NETIDS_STORE_DSN"
	EnvPollInterval = "NETIDS_POLL_INTERVAL"
)

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	JSON   bool   `yaml:"json"`
	Stdout bool   `yaml:"stdout"`
}

// StoreConfig selects and configures the durable store.
type StoreConfig struct {
	Driver         string `yaml:"driver" validate:"required,oneof=postgres memory"`
	DSN            string `yaml:"dsn"`
	MaxOpenConns   int    `yaml:"max_open_conns" validate:"gte=0"`
	ConnectRetries uint   `yaml:"connect_retries"`
	ConnectDelay   string `yaml:"connect_delay"`
}

// PipelineConfig holds the orchestrator settings.
type PipelineConfig struct {
	PollInterval string `yaml:"poll_interval" validate:"required"`
}

// ProbeConfig holds the NATS transport settings shared by ns-probe and ns-ids.
type ProbeConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// ThresholdConfig parameterizes the baseline classifier model.
type ThresholdConfig struct {
	MaxBytesPerSecond float64 `yaml:"max_bytes_per_second" validate:"gte=0"`
	MaxHeaderBytes    int64   `yaml:"max_header_bytes" validate:"gte=0"`
}

// ClassifierConfig points the pipeline at the external classifier.
type ClassifierConfig struct {
	// Mode is "grpc" for the remote service or "local" for the in-process baseline model.
	Mode       string          `yaml:"mode" validate:"required,oneof=grpc local"`
	Addr       string          `yaml:"addr"`
	ListenAddr string          `yaml:"listen_addr"`
	Timeout    string          `yaml:"timeout"`
	Threshold  ThresholdConfig `yaml:"threshold"`
}

// APIConfig configures the presentation HTTP API.
type APIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// ClickHouseConfig holds ClickHouse connection details.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// GobConfig holds the gob exporter's output directory.
type GobConfig struct {
	RootPath string `yaml:"root_path"`
}

// ExporterDef defines one post-cycle feature exporter.
type ExporterDef struct {
	Type       string           `yaml:"type" validate:"required"`
	Enabled    bool             `yaml:"enabled"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Gob        GobConfig        `yaml:"gob"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Store      StoreConfig      `yaml:"store"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Probe      ProbeConfig      `yaml:"probe"`
	Classifier ClassifierConfig `yaml:"classifier"`
	API        APIConfig        `yaml:"api"`
	Exporters  []ExporterDef    `yaml:"exporters" validate:"dive"`
}

// Default returns a configuration that runs entirely in memory.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info"},
		Store:    StoreConfig{Driver: "memory", ConnectRetries: 5, ConnectDelay: "2s"},
		Pipeline: PipelineConfig{PollInterval: "10s"},
		Probe:    ProbeConfig{NATSURL: "nats://127.0.0.1:4222", Subject: "netids.packets"},
		Classifier: ClassifierConfig{
			Mode:       "local",
			ListenAddr: ":50051",
			Threshold:  ThresholdConfig{MaxBytesPerSecond: 1 << 20, MaxHeaderBytes: 1 << 16},
		},
		API: APIConfig{ListenAddr: ":8080"},
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Missing fields keep the values from Default; environment overrides are applied last.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dsn := os.Getenv(EnvStoreDSN); dsn != "" {
		c.Store.DSN = dsn
	}
	if interval := os.Getenv(EnvPollInterval); interval != "" {
		c.Pipeline.PollInterval = interval
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		sc := sl.Current().Interface().(StoreConfig)
		if sc.Driver == "postgres" && sc.DSN == "" {
			sl.ReportError(sc.DSN, "DSN", "DSN", "required_with_postgres", "")
		}
	}, StoreConfig{})
	return v
}

// Validate checks field constraints and the duration strings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	if _, err := c.ClassifierTimeout(); err != nil {
		return err
	}
	if c.Classifier.Mode == "grpc" && c.Classifier.Addr == "" {
		return fmt.Errorf("invalid config: classifier.addr is required in grpc mode")
	}
	return nil
}

// PollInterval parses pipeline.poll_interval.
func (c *Config) PollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Pipeline.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid pipeline poll_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("pipeline poll_interval must be a positive duration")
	}
	return d, nil
}

// ClassifierTimeout parses classifier.timeout; zero means the call is never cut short.
func (c *Config) ClassifierTimeout() (time.Duration, error) {
	if c.Classifier.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Classifier.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid classifier timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("classifier timeout must not be negative")
	}
	return d, nil
}

// RetryDelay parses connect_delay, defaulting to one second.
func (s StoreConfig) RetryDelay() time.Duration {
	d, err := time.ParseDuration(s.ConnectDelay)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
