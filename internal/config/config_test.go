package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_RepoFile(t *testing.T) {
	cfg, err := LoadConfig("../../configs/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "grpc", cfg.Classifier.Mode)
	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, interval)
	assert.Len(t, cfg.Exporters, 2)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  poll_interval: 3s\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "local", cfg.Classifier.Mode)
	assert.Equal(t, "netids.packets", cfg.Probe.Subject)

	timeout, err := cfg.ClassifierTimeout()
	require.NoError(t, err)
	assert.Zero(t, timeout)
	assert.Equal(t, 2*time.Second, cfg.Store.RetryDelay())
	assert.Equal(t, time.Second, StoreConfig{ConnectDelay: "soon"}.RetryDelay())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv(EnvStoreDSN, "postgres://override")
	t.Setenv(EnvPollInterval, "250ms")

	path := writeConfig(t, "store:\n  driver: postgres\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://override", cfg.Store.DSN)
	interval, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, interval)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"postgres without dsn": "store:\n  driver: postgres\n",
		"unknown driver":       "store:\n  driver: sqlite\n",
		"bad interval":         "pipeline:\n  poll_interval: soon\n",
		"zero interval":        "pipeline:\n  poll_interval: 0s\n",
		"grpc without addr":    "classifier:\n  mode: grpc\n",
		"negative timeout":     "classifier:\n  timeout: -1s\n",
		"bad log level":        "log:\n  level: loud\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
