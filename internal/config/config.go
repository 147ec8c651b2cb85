// Package config loads the executor configuration from an optional YAML file
// and LIGHTHOUSE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/viper"

	"github.com/melih/lighthouse-executor/internal/breaker"
	"github.com/melih/lighthouse-executor/internal/core/domain"
	"github.com/melih/lighthouse-executor/internal/core/naming"
	"github.com/melih/lighthouse-executor/internal/logger"
)

// EnvPrefix is prepended to every environment override, e.g.
// LIGHTHOUSE_BREAKER_FAILURE_THRESHOLD.
const EnvPrefix = "LIGHTHOUSE"

// Config holds all configuration values for the executor.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Launcher LauncherConfig `mapstructure:"launcher"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Log      LogConfig      `mapstructure:"log"`
	OTEL     OTELConfig     `mapstructure:"otel"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// DockerConfig selects the runtime endpoint. Empty values defer to DOCKER_HOST
// and API version negotiation.
type DockerConfig struct {
	Host       string `mapstructure:"host"`
	APIVersion string `mapstructure:"api_version"`
}

type LauncherConfig struct {
	Image   string `mapstructure:"image"`
	Version string `mapstructure:"version"`
}

type ExecutorConfig struct {
	// Prefix namespaces container names and labels per tenant.
	Prefix string `mapstructure:"prefix"`
	// Limits use docker notation ("2g", "512m").
	MemoryLimit     string   `mapstructure:"memory_limit"`
	MemorySwapLimit string   `mapstructure:"memory_swap_limit"`
	Privileged      bool     `mapstructure:"privileged"`
	Binds           []string `mapstructure:"binds"`
}

type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	CallTimeout      time.Duration `mapstructure:"call_timeout"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OTELConfig enables trace export when Endpoint is set.
type OTELConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// setDefaults is the single place where defaults are declared.
func setDefaults(v *viper.Viper) {
	def := breaker.DefaultConfig()

	v.SetDefault("http.port", 3000)
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.api_version", "")
	v.SetDefault("launcher.image", "lighthouse/launcher")
	v.SetDefault("launcher.version", "stable")
	v.SetDefault("executor.prefix", "")
	v.SetDefault("executor.memory_limit", "2g")
	v.SetDefault("executor.memory_swap_limit", "3g")
	v.SetDefault("executor.privileged", false)
	v.SetDefault("executor.binds", []string{})
	v.SetDefault("breaker.failure_threshold", def.FailureThreshold)
	v.SetDefault("breaker.call_timeout", def.CallTimeout)
	v.SetDefault("breaker.cooldown", def.Cooldown)
	v.SetDefault("log.level", "info")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service_name", "lighthouse-executor")
}

// Load reads configuration from path (optional) and the environment, then
// validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late, at the first build.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.Launcher.Image == "" {
		errs = append(errs, errors.New("launcher.image is required"))
	}
	if err := naming.ValidatePrefix(c.Executor.Prefix); err != nil {
		errs = append(errs, fmt.Errorf("executor.prefix: %w", err))
	}
	if _, err := c.Resources(); err != nil {
		errs = append(errs, err)
	}
	if c.Breaker.FailureThreshold <= 0 {
		errs = append(errs, fmt.Errorf("breaker.failure_threshold must be positive, got %d", c.Breaker.FailureThreshold))
	}
	if c.Breaker.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("breaker.call_timeout must be positive, got %s", c.Breaker.CallTimeout))
	}
	if c.Breaker.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("breaker.cooldown must be positive, got %s", c.Breaker.Cooldown))
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// LauncherImage returns the full launcher image reference.
func (c *Config) LauncherImage() string {
	if c.Launcher.Version == "" {
		return c.Launcher.Image
	}
	return c.Launcher.Image + ":" + c.Launcher.Version
}

// Resources parses the memory ceilings of build containers.
func (c *Config) Resources() (domain.Resources, error) {
	mem, err := units.RAMInBytes(c.Executor.MemoryLimit)
	if err != nil {
		return domain.Resources{}, fmt.Errorf("executor.memory_limit: %w", err)
	}
	swap, err := units.RAMInBytes(c.Executor.MemorySwapLimit)
	if err != nil {
		return domain.Resources{}, fmt.Errorf("executor.memory_swap_limit: %w", err)
	}
	// Docker counts swap including memory.
	if swap < mem {
		return domain.Resources{}, fmt.Errorf("executor.memory_swap_limit (%s) must not be lower than executor.memory_limit (%s)",
			c.Executor.MemorySwapLimit, c.Executor.MemoryLimit)
	}
	return domain.Resources{MemoryBytes: mem, MemorySwapBytes: swap}, nil
}

// BreakerSettings converts the breaker section for breaker.New.
func (c *Config) BreakerSettings() breaker.Config {
	return breaker.Config{
		FailureThreshold: c.Breaker.FailureThreshold,
		CallTimeout:      c.Breaker.CallTimeout,
		Cooldown:         c.Breaker.Cooldown,
	}
}
