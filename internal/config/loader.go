package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix     = "RADAR_"
	envConfigFile = "RADAR_CONFIG"
	envConfigDir  = "RADAR_CONFIG_DIR"
)

// settingsFiles are looked up in the config dir when RADAR_CONFIG is unset.
var settingsFiles = []string{"agent.yaml", "agent.yml", "agent.json"} //nolint:gochecknoglobals // fixed lookup list

// Load builds a Config by layering defaults, optional file, env vars and
// explicit overrides. Order of precedence (low -> high):
//  1. defaults (New())
//  2. settings file: RADAR_CONFIG, else agent.{yaml,yml,json} in the config dir
//  3. env (prefix RADAR_)
//  4. overrides, keyed by koanf tag (used for CLI flags the user set)
func Load(_ context.Context, overrides map[string]any) (*Config, error) {
	base := New()

	k := koanf.New(".")

	path, err := settingsFile(base.ConfigDir, overrides)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read settings %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RADAR_REQUEST_TIMEOUT -> request_timeout (flat keys)
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: read env: %w", ErrLoadConfig, err)
	}

	for key, val := range overrides {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("%w: override %s: %w", ErrLoadConfig, key, err)
		}
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode settings: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// settingsFile resolves the optional settings file. An explicit RADAR_CONFIG
// must exist; the config dir lookup is best effort.
func settingsFile(defaultDir string, overrides map[string]any) (string, error) {
	if path := os.Getenv(envConfigFile); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: settings file %s: %w", ErrLoadConfig, path, err)
		}
		return path, nil
	}

	dir := defaultDir
	if v := os.Getenv(envConfigDir); v != "" {
		dir = v
	}
	if v, ok := overrides["config_dir"].(string); ok && v != "" {
		dir = v
	}

	for _, name := range settingsFiles {
		candidate := filepath.Join(dir, name)
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: settings file %s: %w", ErrLoadConfig, candidate, err)
		}
	}
	return "", nil
}
