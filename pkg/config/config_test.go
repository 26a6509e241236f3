package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irctrakz/adbcap/pkg/core"
	"github.com/irctrakz/adbcap/pkg/logging"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	a := cfg.AdbConfig()
	assert.Equal(t, "adb", a.Path)
	assert.Equal(t, 30*time.Second, a.Timeout)
	assert.Equal(t, 5*time.Minute, a.PullTimeout)
	assert.Equal(t, 3*time.Second, a.StopGrace)
	assert.Equal(t, core.DefaultRemoteTarget, a.Target)

	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 15*time.Second, cfg.StopTimeout())
	assert.Equal(t, "any", cfg.CaptureSettings().Interface())
	assert.False(t, cfg.CaptureSettings().HasFilter())
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adbcap.yaml")
	data := `
bridge:
  path: /opt/platform-tools/adb
capture:
  interface: wlan0
  filter: port 53
  pollIntervalMs: 500
  remote:
    dir: /sdcard/caps
    file: dns.pcap
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg := DefaultConfig()
	require.NoError(t, LoadFromFile(path, cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/opt/platform-tools/adb", cfg.Bridge.Path)
	assert.Equal(t, 30, cfg.Bridge.TimeoutSec, "unset keys keep defaults")
	assert.Equal(t, "wlan0", cfg.CaptureSettings().Interface())
	assert.Equal(t, "port 53", cfg.CaptureSettings().Filter())
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, "/sdcard/caps/dns.pcap", cfg.AdbConfig().Target.Path())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "adbcap.json")

	cfg := DefaultConfig()
	cfg.Capture.Filter = "tcp port 443"
	cfg.Capture.OutputDir = "/tmp/captures"
	require.NoError(t, cfg.SaveToFile(path))

	loaded := &Config{}
	require.NoError(t, LoadFromFile(path, loaded))
	assert.Equal(t, cfg, loaded)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adbcap.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0644))
	assert.Error(t, LoadFromFile(path, DefaultConfig()))
	assert.Error(t, DefaultConfig().SaveToFile(path))
}

func TestLoadMissingFile(t *testing.T) {
	assert.Error(t, LoadFromFile(filepath.Join(t.TempDir(), "none.yaml"), DefaultConfig()))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ADBCAP_ADB_PATH", "/usr/local/bin/adb")
	t.Setenv("ADBCAP_INTERFACE", "rmnet0")
	t.Setenv("ADBCAP_FILTER", "udp")
	t.Setenv("ADBCAP_ALLOW_UNSAFE_FILTER", "1")
	t.Setenv("ADBCAP_POLL_INTERVAL_MS", "250")
	t.Setenv("ADBCAP_STOP_GRACE_MS", "not-a-number")
	t.Setenv("ADBCAP_REMOTE_FILE", "other.pcap")
	t.Setenv("ADBCAP_LOG_LEVEL", "warn")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	assert.Equal(t, "/usr/local/bin/adb", cfg.Bridge.Path)
	assert.Equal(t, "rmnet0", cfg.Capture.Interface)
	assert.Equal(t, "udp", cfg.Capture.Filter)
	assert.True(t, cfg.Capture.AllowUnsafeFilter)
	assert.Equal(t, 250, cfg.Capture.PollIntervalMs)
	assert.Equal(t, 3000, cfg.Bridge.StopGraceMs, "malformed values are ignored")
	assert.Equal(t, "/storage/my_capture_Data/other.pcap", cfg.Capture.Remote.Path())
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty adb path", func(c *Config) { c.Bridge.Path = "" }},
		{"zero timeout", func(c *Config) { c.Bridge.TimeoutSec = 0 }},
		{"zero pull timeout", func(c *Config) { c.Bridge.PullTimeoutSec = 0 }},
		{"negative stop grace", func(c *Config) { c.Bridge.StopGraceMs = -1 }},
		{"zero poll interval", func(c *Config) { c.Capture.PollIntervalMs = 0 }},
		{"zero stop timeout", func(c *Config) { c.Capture.StopTimeoutSec = 0 }},
		{"relative remote dir", func(c *Config) { c.Capture.Remote.Dir = "sdcard" }},
		{"remote file with slash", func(c *Config) { c.Capture.Remote.File = "a/b.pcap" }},
		{"missing remote file", func(c *Config) { c.Capture.Remote.File = "" }},
		{"remote path with space", func(c *Config) { c.Capture.Remote.Dir = "/sdcard/my caps" }},
		{"remote dir with command", func(c *Config) { c.Capture.Remote.Dir = "/sdcard;reboot" }},
		{"remote file with substitution", func(c *Config) { c.Capture.Remote.File = "$(id).pcap" }},
		{"interface with command", func(c *Config) { c.Capture.Interface = "wlan0;reboot" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateUnsafeArgument(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture.Remote.Dir = "/sdcard/caps&&reboot"
	assert.ErrorIs(t, cfg.Validate(), core.ErrUnsafeArgument)

	cfg = DefaultConfig()
	cfg.Capture.Interface = "rmnet_data0"
	assert.NoError(t, cfg.Validate())
	cfg.Capture.Interface = "wlan0 -w /sdcard/x"
	assert.ErrorIs(t, cfg.Validate(), core.ErrUnsafeArgument)
}

func TestApplyLoggingJSON(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() {
		logging.SetOutput(os.Stderr)
		logging.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logging.SetLevel(logging.InfoLevel)
	})

	cfg := DefaultConfig()
	cfg.Logging.Format = "json"
	require.NoError(t, cfg.ApplyLogging())

	logging.InfoWithFields(logrus.Fields{"device": "ABC123"}, "Capture started")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Capture started", line["msg"])
	assert.Equal(t, "ABC123", line["device"])
	assert.Equal(t, "info", line["level"])
}

func TestUnsetRemoteFallsBackToDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture.Remote = core.RemoteTarget{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, core.DefaultRemoteTarget, cfg.AdbConfig().Target)
}

func TestApplyLogging(t *testing.T) {
	t.Cleanup(func() {
		logging.SetOutput(os.Stderr)
		logging.SetLevel(logging.InfoLevel)
	})

	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "adbcap.log")
	require.NoError(t, cfg.ApplyLogging())

	_, err := os.Stat(filepath.Dir(cfg.Logging.File))
	assert.NoError(t, err)

	cfg.Logging.File = ""
	cfg.Logging.Level = "info"
	assert.NoError(t, cfg.ApplyLogging())
}
