// Package config defines the radiomap collector configuration,
// its defaults, YAML loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the complete collector configuration.
type Config struct {
	// Collector configuration
	Collector CollectorConfig `yaml:"collector" json:"collector"`

	// Wi-Fi scanning configuration
	WiFi WiFiConfig `yaml:"wifi" json:"wifi"`

	// BLE scanning configuration
	BLE BLEConfig `yaml:"ble" json:"ble"`

	// Light sensor configuration
	Light LightConfig `yaml:"light" json:"light"`

	// Status API configuration
	API APIConfig `yaml:"api" json:"api"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// CollectorConfig holds collection cadence and survey settings.
type CollectorConfig struct {
	// Directory CSV data files are written under
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Pause between collection cycles
	Interval time.Duration `yaml:"interval" json:"interval"`

	// Optional 5-field cron expression; overrides Interval when set
	Schedule string `yaml:"schedule" json:"schedule"`

	// Delay before the first cycle so the Wi-Fi cache can warm up
	WarmupDelay time.Duration `yaml:"warmup_delay" json:"warmup_delay"`

	// Survey position attached to every row
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// WiFiConfig holds Wi-Fi scanning settings.
type WiFiConfig struct {
	// Wireless interface to scan; empty lets the tool pick
	Interface string `yaml:"interface" json:"interface"`

	// Pause between continuous scan cycles
	ScanInterval time.Duration `yaml:"scan_interval" json:"scan_interval"`

	// Upper bound on one scan tool invocation
	ScanTimeout time.Duration `yaml:"scan_timeout" json:"scan_timeout"`

	// Minimum signal level for rows written to storage
	MinSignal int `yaml:"min_signal" json:"min_signal"`
}

// BLEConfig holds BLE scanning settings.
type BLEConfig struct {
	// Enable the BLE modality
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Advertisement listening window per cycle
	ScanDuration time.Duration `yaml:"scan_duration" json:"scan_duration"`

	// Attempts per cycle when the BLE stack errors
	Retries int `yaml:"retries" json:"retries"`
}

// LightConfig holds AS7341 light sensor settings.
type LightConfig struct {
	// Enable the light modality
	Enabled bool `yaml:"enabled" json:"enabled"`

	// I2C bus name; empty selects the first available
	Bus string `yaml:"bus" json:"bus"`

	// I2C address; zero means the chip default
	Addr uint16 `yaml:"addr" json:"addr"`

	// Gain code (CFG1, 0-10); zero keeps the driver default
	Gain int `yaml:"gain" json:"gain"`

	// Integration time (ATIME register, 0-255); zero keeps the driver default
	ATime int `yaml:"atime" json:"atime"`
}

// APIConfig holds status API server settings.
type APIConfig struct {
	// Enable the status API server
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// Request timeouts
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`

	// CORS settings
	EnableCORS  bool     `yaml:"enable_cors" json:"enable_cors"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`

	// Log each request
	RequestLogging bool `yaml:"request_logging" json:"request_logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Collector: CollectorConfig{
			DataDir:         "./data",
			Interval:        60 * time.Second,
			Schedule:        "",
			WarmupDelay:     10 * time.Second,
			X:               0,
			Y:               0,
			ShutdownTimeout: 30 * time.Second,
		},
		WiFi: WiFiConfig{
			Interface:    "wlan0",
			ScanInterval: 30 * time.Second,
			ScanTimeout:  30 * time.Second,
			MinSignal:    -100,
		},
		BLE: BLEConfig{
			Enabled:      false,
			ScanDuration: 5 * time.Second,
			Retries:      3,
		},
		Light: LightConfig{
			Enabled: false,
			Bus:     "",
			Addr:    0,
		},
		API: APIConfig{
			Enabled:        false,
			ListenAddr:     "127.0.0.1",
			Port:           8080,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			EnableCORS:     false,
			CORSOrigins:    []string{"*"},
			RequestLogging: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load loads configuration from a file, returning defaults when the
// file does not exist.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Collector.DataDir == "" {
		return fmt.Errorf("collector.data_dir must not be empty")
	}
	if c.Collector.Interval <= 0 && c.Collector.Schedule == "" {
		return fmt.Errorf("collector.interval must be positive when no schedule is set")
	}
	if c.Collector.Schedule != "" {
		if _, err := cron.ParseStandard(c.Collector.Schedule); err != nil {
			return fmt.Errorf("invalid collector.schedule: %w", err)
		}
	}
	if c.Collector.WarmupDelay < 0 {
		return fmt.Errorf("collector.warmup_delay must not be negative")
	}

	if c.WiFi.ScanInterval <= 0 {
		return fmt.Errorf("wifi.scan_interval must be positive")
	}
	if c.WiFi.ScanTimeout <= 0 {
		return fmt.Errorf("wifi.scan_timeout must be positive")
	}

	if c.BLE.Enabled {
		if c.BLE.ScanDuration <= 0 {
			return fmt.Errorf("ble.scan_duration must be positive")
		}
		if c.BLE.Retries <= 0 {
			return fmt.Errorf("ble.retries must be positive")
		}
	}

	if c.Light.Enabled {
		if c.Light.Gain < 0 || c.Light.Gain > 10 {
			return fmt.Errorf("light.gain must be a CFG1 code between 0 and 10")
		}
		if c.Light.ATime < 0 || c.Light.ATime > 255 {
			return fmt.Errorf("light.atime must be between 0 and 255")
		}
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			return fmt.Errorf("api.port must be between 1 and 65535")
		}
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	return nil
}
