// Package config provides configuration handling for adbcap.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/irctrakz/adbcap/pkg/adb"
	"github.com/irctrakz/adbcap/pkg/command"
	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/logging"
)

// Config represents the complete adbcap configuration.
type Config struct {
	// Bridge contains the adb invocation settings.
	Bridge BridgeConfig `json:"bridge" yaml:"bridge"`

	// Capture contains the capture session settings.
	Capture CaptureConfig `json:"capture" yaml:"capture"`

	// Logging contains the logging configuration.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// BridgeConfig contains configuration for the adb client.
type BridgeConfig struct {
	// Path is the adb executable.
	Path string `json:"path" yaml:"path"`

	// TimeoutSec bounds short adb invocations, in seconds.
	TimeoutSec int `json:"timeoutSec" yaml:"timeoutSec"`

	// PullTimeoutSec bounds the capture file pull, in seconds.
	PullTimeoutSec int `json:"pullTimeoutSec" yaml:"pullTimeoutSec"`

	// StopGraceMs is how long tcpdump gets to exit after an interrupt.
	StopGraceMs int `json:"stopGraceMs" yaml:"stopGraceMs"`
}

// CaptureConfig contains configuration for capture sessions.
type CaptureConfig struct {
	// Interface is the device network interface to capture on.
	Interface string `json:"interface" yaml:"interface"`

	// Filter is an optional tcpdump clause appended verbatim.
	Filter string `json:"filter" yaml:"filter"`

	// AllowUnsafeFilter passes filters with shell metacharacters through.
	AllowUnsafeFilter bool `json:"allowUnsafeFilter" yaml:"allowUnsafeFilter"`

	// Remote is where tcpdump writes on the device.
	Remote core.RemoteTarget `json:"remote" yaml:"remote"`

	// PollIntervalMs is the remote file size polling interval.
	PollIntervalMs int `json:"pollIntervalMs" yaml:"pollIntervalMs"`

	// StopTimeoutSec bounds the wait for tcpdump to exit on stop.
	StopTimeoutSec int `json:"stopTimeoutSec" yaml:"stopTimeoutSec"`

	// OutputDir is where retrieved captures are saved when no explicit
	// path is given. Empty means the desktop or home directory.
	OutputDir string `json:"outputDir" yaml:"outputDir"`

	// EventLog is the append-only event log file. Empty disables it.
	EventLog string `json:"eventLog" yaml:"eventLog"`
}

// LoggingConfig contains configuration for logging.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format is the log line format (text, json).
	Format string `json:"format" yaml:"format"`

	// File is the log file path.
	File string `json:"file" yaml:"file"`

	// MaxSize is the maximum size of the log file in megabytes.
	MaxSize int `json:"maxSize" yaml:"maxSize"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups"`

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `json:"maxAge" yaml:"maxAge"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Path:           "adb",
			TimeoutSec:     30,
			PullTimeoutSec: 300,
			StopGraceMs:    3000,
		},
		Capture: CaptureConfig{
			Interface:      core.DefaultInterface,
			Remote:         core.DefaultRemoteTarget,
			PollIntervalMs: 2000,
			StopTimeoutSec: 15,
			EventLog:       "log.txt",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromFile loads configuration from a file.
func LoadFromFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(path, ".json"):
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	return nil
}

// LoadFromEnv loads configuration from ADBCAP_* environment variables.
// Malformed numbers are ignored.
func LoadFromEnv(config *Config) {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setInt := func(key string, dst *int) {
		if val := os.Getenv(key); val != "" {
			if n, err := strconv.Atoi(val); err == nil {
				*dst = n
			}
		}
	}

	// Bridge config
	setString("ADBCAP_ADB_PATH", &config.Bridge.Path)
	setInt("ADBCAP_ADB_TIMEOUT_SEC", &config.Bridge.TimeoutSec)
	setInt("ADBCAP_PULL_TIMEOUT_SEC", &config.Bridge.PullTimeoutSec)
	setInt("ADBCAP_STOP_GRACE_MS", &config.Bridge.StopGraceMs)

	// Capture config
	setString("ADBCAP_INTERFACE", &config.Capture.Interface)
	setString("ADBCAP_FILTER", &config.Capture.Filter)
	if val := os.Getenv("ADBCAP_ALLOW_UNSAFE_FILTER"); val != "" {
		config.Capture.AllowUnsafeFilter = val == "true" || val == "1"
	}
	setString("ADBCAP_REMOTE_DIR", &config.Capture.Remote.Dir)
	setString("ADBCAP_REMOTE_FILE", &config.Capture.Remote.File)
	setInt("ADBCAP_POLL_INTERVAL_MS", &config.Capture.PollIntervalMs)
	setInt("ADBCAP_STOP_TIMEOUT_SEC", &config.Capture.StopTimeoutSec)
	setString("ADBCAP_OUTPUT_DIR", &config.Capture.OutputDir)
	setString("ADBCAP_EVENT_LOG", &config.Capture.EventLog)

	// Logging config
	setString("ADBCAP_LOG_LEVEL", &config.Logging.Level)
	setString("ADBCAP_LOG_FORMAT", &config.Logging.Format)
	setString("ADBCAP_LOG_FILE", &config.Logging.File)
	setInt("ADBCAP_LOG_MAX_SIZE", &config.Logging.MaxSize)
	setInt("ADBCAP_LOG_MAX_BACKUPS", &config.Logging.MaxBackups)
	setInt("ADBCAP_LOG_MAX_AGE", &config.Logging.MaxAge)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Bridge.Path == "" {
		return fmt.Errorf("adb path cannot be empty")
	}
	if c.Bridge.TimeoutSec <= 0 {
		return fmt.Errorf("invalid adb timeout: %d", c.Bridge.TimeoutSec)
	}
	if c.Bridge.PullTimeoutSec <= 0 {
		return fmt.Errorf("invalid pull timeout: %d", c.Bridge.PullTimeoutSec)
	}
	if c.Bridge.StopGraceMs <= 0 {
		return fmt.Errorf("invalid stop grace: %d", c.Bridge.StopGraceMs)
	}

	if c.Capture.PollIntervalMs <= 0 {
		return fmt.Errorf("invalid poll interval: %d", c.Capture.PollIntervalMs)
	}
	if c.Capture.StopTimeoutSec <= 0 {
		return fmt.Errorf("invalid stop timeout: %d", c.Capture.StopTimeoutSec)
	}
	if remote := c.Capture.Remote; !remote.IsZero() {
		if !strings.HasPrefix(remote.Dir, "/") {
			return fmt.Errorf("remote directory must be absolute: %q", remote.Dir)
		}
		if remote.File == "" || strings.Contains(remote.File, "/") {
			return fmt.Errorf("invalid remote file name: %q", remote.File)
		}
		if err := command.CheckRemotePath(remote.Path()); err != nil {
			return err
		}
	}
	if c.Capture.Interface != "" {
		if err := command.CheckInterface(c.Capture.Interface); err != nil {
			return err
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	return nil
}

// ApplyLogging applies the logging configuration.
func (c *Config) ApplyLogging() error {
	logging.SetLevel(logging.ParseLevel(c.Logging.Level))
	if c.Logging.Format == "json" {
		logging.SetFormatter(&logrus.JSONFormatter{})
	}

	if c.Logging.File != "" {
		err := logging.EnableFileLogging(
			c.Logging.File,
			c.Logging.MaxSize,
			c.Logging.MaxBackups,
			c.Logging.MaxAge,
		)
		if err != nil {
			return fmt.Errorf("failed to enable file logging: %w", err)
		}
	}

	return nil
}

// AdbConfig returns the typed adb client configuration.
func (c *Config) AdbConfig() adb.Config {
	return adb.Config{
		Path:        c.Bridge.Path,
		Timeout:     time.Duration(c.Bridge.TimeoutSec) * time.Second,
		PullTimeout: time.Duration(c.Bridge.PullTimeoutSec) * time.Second,
		StopGrace:   time.Duration(c.Bridge.StopGraceMs) * time.Millisecond,
		Target:      c.Capture.Remote.OrDefault(),
	}
}

// CaptureSettings returns the capture parameters for a session.
func (c *Config) CaptureSettings() core.CaptureConfig {
	return core.NewCaptureConfig(c.Capture.Interface, c.Capture.Filter)
}

// PollInterval returns the size polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Capture.PollIntervalMs) * time.Millisecond
}

// StopTimeout returns the bound on waiting for tcpdump to exit.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Capture.StopTimeoutSec) * time.Second
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch {
	case strings.HasSuffix(path, ".json"):
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
