package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigShowMasksSecrets(t *testing.T) {
	t.Setenv("MQTT_BROKER", "")
	out, err := run(t, "config", "show", "--set", "MQTT_BROKER=10.0.0.9")
	require.NoError(t, err)

	assert.Contains(t, out, "10.0.0.9")
	assert.Contains(t, out, "WIFI_SSID")
	assert.NotContains(t, out, "flushflush")
	assert.NotContains(t, out, "mqttpass")
}

func TestConfigHeaderToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.h")
	_, err := run(t, "config", "header", "-o", path, "--set", "TOPIC_HOOP_EVENT=court/2/hoop")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "/****"))
	assert.Contains(t, string(data), `"court/2/hoop"`)
}

func TestConfigCheck(t *testing.T) {
	out, err := run(t, "config", "check")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = run(t, "config", "check", "--set", "MQTT_PORT=0")
	assert.Error(t, err)
}

func TestEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_PORT=abc\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("HTTP_PORT") })

	_, err := run(t, "config", "check", "--env-file", path)
	assert.Error(t, err)
}

func TestSimulateRejectsBadRate(t *testing.T) {
	_, err := run(t, "simulate", "--scored-rate", "2")
	assert.Error(t, err)
}
