package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTP.Port)
	assert.Equal(t, "lighthouse/launcher:stable", cfg.LauncherImage())
	assert.Equal(t, "", cfg.Executor.Prefix)
	assert.Equal(t, 10, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Breaker.CallTimeout)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "lighthouse-executor", cfg.OTEL.ServiceName)
	assert.Empty(t, cfg.OTEL.Endpoint)

	res, err := cfg.Resources()
	require.NoError(t, err)
	assert.Equal(t, int64(2<<30), res.MemoryBytes)
	assert.Equal(t, int64(3<<30), res.MemorySwapBytes)
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("LIGHTHOUSE_HTTP_PORT", "8080")
	t.Setenv("LIGHTHOUSE_EXECUTOR_PREFIX", "beta-")
	t.Setenv("LIGHTHOUSE_BREAKER_FAILURE_THRESHOLD", "3")
	t.Setenv("LIGHTHOUSE_BREAKER_CALL_TIMEOUT", "90s")
	t.Setenv("LIGHTHOUSE_LAUNCHER_VERSION", "v4.1.0")
	t.Setenv("LIGHTHOUSE_EXECUTOR_BINDS", "/var/run/docker.sock:/var/run/docker.sock")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "beta-", cfg.Executor.Prefix)
	assert.Equal(t, 3, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 90*time.Second, cfg.Breaker.CallTimeout)
	assert.Equal(t, "lighthouse/launcher:v4.1.0", cfg.LauncherImage())
	assert.Equal(t, []string{"/var/run/docker.sock:/var/run/docker.sock"}, cfg.Executor.Binds)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executor.yaml")
	content := `
http:
  port: 4000
launcher:
  image: registry.local:5000/launcher
  version: "6"
executor:
  memory_limit: 4g
  memory_swap_limit: 6g
  privileged: true
breaker:
  cooldown: 1m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.HTTP.Port)
	assert.Equal(t, "registry.local:5000/launcher:6", cfg.LauncherImage())
	assert.True(t, cfg.Executor.Privileged)
	assert.Equal(t, time.Minute, cfg.Breaker.Cooldown)

	res, err := cfg.Resources()
	require.NoError(t, err)
	assert.Equal(t, int64(4<<30), res.MemoryBytes)

	bc := cfg.BreakerSettings()
	assert.Equal(t, 10, bc.FailureThreshold)
	assert.Equal(t, time.Minute, bc.Cooldown)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.HTTP.Port = 0 }},
		{"launcher image", func(c *Config) { c.Launcher.Image = "" }},
		{"prefix", func(c *Config) { c.Executor.Prefix = "bad prefix" }},
		{"memory", func(c *Config) { c.Executor.MemoryLimit = "lots" }},
		{"swap below memory", func(c *Config) { c.Executor.MemorySwapLimit = "1g" }},
		{"threshold", func(c *Config) { c.Breaker.FailureThreshold = 0 }},
		{"call timeout", func(c *Config) { c.Breaker.CallTimeout = 0 }},
		{"cooldown", func(c *Config) { c.Breaker.Cooldown = -time.Second }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLauncherImage_NoVersion(t *testing.T) {
	cfg := &Config{Launcher: LauncherConfig{Image: "launcher"}}
	assert.Equal(t, "launcher", cfg.LauncherImage())
}
