package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, args, &stdout, &stderr)

	return stdout.String(), stderr.String(), err
}

func TestRun_ConfigMasksPassphrase(t *testing.T) {
	out, _, err := runCLI(t, "--simulate", "--ssid", "lab", "--passphrase", "hunter22", "config")
	require.NoError(t, err)

	assert.Contains(t, out, "simulate: true")
	assert.Contains(t, out, "ssid: lab")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter22")
}

func TestRun_Info(t *testing.T) {
	out, _, err := runCLI(t, "--simulate", "info")
	require.NoError(t, err)

	assert.Contains(t, out, "firmware: 1.7.4")
	assert.Contains(t, out, "mac: 24:0a:c4:12:34:56")
}

func TestRun_Scan(t *testing.T) {
	out, _, err := runCLI(t, "--simulate", "scan")
	require.NoError(t, err)

	assert.Contains(t, out, "SSID")
	assert.Contains(t, out, "espwifi-sim")
	assert.Contains(t, out, "guest")
}

func TestRun_Status(t *testing.T) {
	out, _, err := runCLI(t, "--simulate", "status")
	require.NoError(t, err)

	assert.Contains(t, out, "status:")
}

func TestRun_Connect(t *testing.T) {
	out, stderr, err := runCLI(t, "--simulate", "--ssid", "lab", "--passphrase", "secret-pass", "--log-level", "debug", "connect")
	require.NoError(t, err)

	assert.Contains(t, out, "connected to lab, address 192.168.1.42")
	assert.Contains(t, stderr, "link state changed")
}

func TestRun_ConnectRequiresSSID(t *testing.T) {
	_, _, err := runCLI(t, "--simulate", "connect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ssid is required")
}

func TestRun_LED(t *testing.T) {
	_, _, err := runCLI(t, "--simulate", "led", "255", "0", "128")
	require.NoError(t, err)

	_, _, err = runCLI(t, "--simulate", "led", "256", "0", "0")
	require.Error(t, err)

	_, _, err = runCLI(t, "--simulate", "led", "1")
	require.Error(t, err)
}

func TestRun_Errors(t *testing.T) {
	_, _, err := runCLI(t, "--simulate", "reboot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	_, _, err = runCLI(t, "--simulate", "--log-level", "chatty", "info")
	require.Error(t, err)

	_, _, err = runCLI(t, "info")
	require.Error(t, err, "pins are required without --simulate")
}

func TestRun_MetricsServer(t *testing.T) {
	_, stderr, err := runCLI(t, "--simulate", "--metrics-addr", "127.0.0.1:0", "info")
	require.NoError(t, err)

	assert.Contains(t, stderr, "serving metrics")
}
