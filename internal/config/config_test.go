package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleYAML = `
device:
  spiPort: /dev/spidev0.0
  selectPin: GPIO8
  resetPin: GPIO22
  readyPin: GPIO24
  busSpeedHz: 4000000
  readyTimeout: 250ms
  maxScan: 8000
network:
  ssid: lab
  passphrase: secret
  maxAttempts: 5
logging:
  level: debug
  format: console
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wifictl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "/dev/spidev0.0", cfg.Device.SPIPort)
	assert.Equal(t, "GPIO8", cfg.Device.SelectPin)
	assert.Equal(t, int64(4_000_000), cfg.Device.BusSpeedHz)
	assert.Equal(t, 250*time.Millisecond, cfg.Device.ReadyTimeout)
	assert.Equal(t, 8000, cfg.Device.MaxScan)
	assert.Equal(t, 40, cfg.Device.ConnectTimeoutTicks)
	assert.Equal(t, "lab", cfg.Network.SSID)
	assert.Equal(t, 5, cfg.Network.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Network.TickInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Metrics.Enable)
}

func TestLoad_Defaults(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--simulate"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.True(t, cfg.Device.Simulate)
	assert.Equal(t, int64(8_000_000), cfg.Device.BusSpeedHz)
	assert.Equal(t, 100*time.Millisecond, cfg.Device.ReadyTimeout)
	assert.Equal(t, 5000, cfg.Device.MaxScan)
	assert.Equal(t, 5*time.Second, cfg.Network.RetryInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("ESPWIFI_NETWORK_SSID", "from-env")
	t.Setenv("ESPWIFI_DEVICE_READYPIN", "GPIO5")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"--config", path,
		"--ready-pin", "GPIO6",
		"--ready-timeout", "5ms",
		"--metrics-addr", ":9100",
	}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Network.SSID)
	assert.Equal(t, "GPIO6", cfg.Device.ReadyPin)
	assert.Equal(t, 5*time.Millisecond, cfg.Device.ReadyTimeout)
	assert.Equal(t, "secret", cfg.Network.Passphrase)
	assert.True(t, cfg.Metrics.Enable)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	_, err = Load(writeConfig(t, "network:\n  ssid: lab\n"), nil)
	require.ErrorContains(t, err, "selectPin")

	_, err = Load(writeConfig(t, "device:\n  simulate: true\nlogging:\n  format: xml\n"), nil)
	require.ErrorContains(t, err, "logging.format")
}

func TestConfig_DumpMasksPassphrase(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, cfg.Dump(&buf))
	assert.NotContains(t, buf.String(), "secret")

	var back Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "lab", back.Network.SSID)
	assert.Equal(t, "GPIO8", back.Device.SelectPin)
	assert.Equal(t, "********", back.Network.Passphrase)
	assert.Equal(t, "secret", cfg.Network.Passphrase)
}
