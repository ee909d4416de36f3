package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCENECORE"

// Load builds the configuration from path (may be empty) and the process
// environment.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := decodeInto(cfg, data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. The
// environment is not consulted.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decodeInto(cfg, data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeInto decodes data over cfg so that absent keys keep their current
// value. Unknown keys are an error.
func decodeInto(cfg *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overrides cfg from SCENECORE_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	env := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + "_" + name)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := env("MAX_STEPS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s_MAX_STEPS: %w", EnvPrefix, err)
		}
		cfg.Engine.MaxSteps = n
	}
	if v, ok := env("LOOP_BREAKING"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s_LOOP_BREAKING: %w", EnvPrefix, err)
		}
		cfg.Engine.LoopBreaking = b
	}
	if v, ok := env("LOG_LEVEL"); ok {
		cfg.Log.Level = LogLevel(strings.ToLower(v))
	}
	if v, ok := env("LOG_FORMAT"); ok {
		cfg.Log.Format = LogFormat(strings.ToLower(v))
	}
	if v, ok := env("DB"); ok {
		cfg.Store.Path = v
	}
	if v, ok := env("BUSY_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s_BUSY_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Store.BusyTimeout = d
	}
	if v, ok := env("RATE"); ok {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s_RATE: %w", EnvPrefix, err)
		}
		cfg.Clock.Rate = r
	}
	if v, ok := env("DURATION"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s_DURATION: %w", EnvPrefix, err)
		}
		cfg.Clock.Duration = d
	}
	return nil
}
