package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for UltraLights Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Motion   MotionConfig   `yaml:"motion"`
}

// SiteConfig contains deployment-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for automation telemetry.
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

// MotionConfig contains motion automation engine settings.
type MotionConfig struct {
	// SlotMinutes is the width of a schedule slot in minutes.
	// Recorded alongside persisted schedules so historical data stays interpretable.
	SlotMinutes int `yaml:"slot_minutes"`

	// DefaultDuration is the debounce window in seconds for nodes that
	// have never reported a configuration.
	DefaultDuration int `yaml:"default_duration"`

	// StatusRequestInterval is the minimum gap in seconds between
	// motion-status requests to the same node.
	StatusRequestInterval int `yaml:"status_request_interval"`

	// OffFadeMS matches the firmware's fade duration when clearing
	// motion presets via the motion/off command.
	OffFadeMS int `yaml:"off_fade_ms"`

	// ScheduleFile is the path to the persisted schedule store.
	ScheduleFile string `yaml:"schedule_file"`

	// PrefsFile is the path to the persisted immunity preference store.
	PrefsFile string `yaml:"prefs_file"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ULTRALIGHTS_SECTION_KEY
// For example: ULTRALIGHTS_DATABASE_PATH, ULTRALIGHTS_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "UltraLights",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/ultralights.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "ultralights-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Motion: MotionConfig{
			SlotMinutes:           60,
			DefaultDuration:       30,
			StatusRequestInterval: 30,
			OffFadeMS:             5000,
			ScheduleFile:          "./data/motion_schedule.json",
			PrefsFile:             "./data/motion_prefs.json",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ULTRALIGHTS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("ULTRALIGHTS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("ULTRALIGHTS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ULTRALIGHTS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ULTRALIGHTS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("ULTRALIGHTS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Slot layout constants.
const (
	minutesPerDay  = 1440
	maxSlotMinutes = 1440
)

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Motion validation
	if c.Motion.SlotMinutes < 1 || c.Motion.SlotMinutes > maxSlotMinutes {
		errs = append(errs, "motion.slot_minutes must be between 1 and 1440")
	}
	if c.Motion.DefaultDuration < 1 {
		errs = append(errs, "motion.default_duration must be at least 1 second")
	}
	if c.Motion.ScheduleFile == "" {
		errs = append(errs, "motion.schedule_file is required")
	}
	if c.Motion.PrefsFile == "" {
		errs = append(errs, "motion.prefs_file is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// SlotCount returns the number of schedule slots in a 24 hour day.
func (c *Config) SlotCount() int {
	return (minutesPerDay + c.Motion.SlotMinutes - 1) / c.Motion.SlotMinutes
}

// GetStatusRequestInterval returns the motion status request throttle as a Duration.
func (c *Config) GetStatusRequestInterval() time.Duration {
	return time.Duration(c.Motion.StatusRequestInterval) * time.Second
}
