package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "PYCALL_"

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty; missing files are an error), then
// PYCALL_* environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			return
		}
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			err = fmt.Errorf("%s%s: %w", EnvPrefix, key, convErr)
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			return
		}
		b, convErr := strconv.ParseBool(v)
		if convErr != nil {
			err = fmt.Errorf("%s%s: %w", EnvPrefix, key, convErr)
			return
		}
		*dst = b
	}
	dur := func(key string, dst *Duration) {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			return
		}
		d, convErr := time.ParseDuration(v)
		if convErr != nil {
			err = fmt.Errorf("%s%s: %w", EnvPrefix, key, convErr)
			return
		}
		*dst = Duration(d)
	}

	num("MAX_INPUT_SIZE", &cfg.Limits.MaxInputSize)
	num("MAX_NESTING_DEPTH", &cfg.Limits.MaxNestingDepth)
	num("MAX_CALLS", &cfg.Limits.MaxCalls)
	str("SERVER_ADDR", &cfg.Server.Addr)
	dur("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	flag("METRICS", &cfg.Metrics.Enabled)
	flag("TRACING", &cfg.Tracing.Enabled)
	str("TRACING_ENDPOINT", &cfg.Tracing.OTLPEndpoint)
	if v, ok := os.LookupEnv(EnvPrefix + "CACHE_SIZE"); ok {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return fmt.Errorf("%sCACHE_SIZE: %w", EnvPrefix, convErr)
		}
		cfg.Extract.CacheSize = &n
	}
	return err
}
