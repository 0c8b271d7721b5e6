// Package config loads the mklive global configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/old-void-ppc/void-mklive/internal/config/validate"
	"gopkg.in/yaml.v3"
	k8syaml "sigs.k8s.io/yaml"
)

// DefaultConfigFile is looked up in the working directory when --config is
// not given.
const DefaultConfigFile = "mklive.yml"

// GlobalConfig holds settings shared by every mklive invocation.
type GlobalConfig struct {
	CacheDir            string        `yaml:"cacheDir"`
	Repositories        []string      `yaml:"repositories"`
	RequiredTools       []string      `yaml:"requiredTools"`
	KeepRootfsOnFailure bool          `yaml:"keepRootfsOnFailure"`
	ShowProgress        bool          `yaml:"showProgress"`
	Logging             LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultGlobalConfig returns the configuration used when no file is found.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		CacheDir:     "./cache",
		ShowProgress: true,
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadGlobalConfig reads path and overlays it on the defaults. An empty path
// or a missing DefaultConfigFile yields the defaults; a missing explicit file
// is an error.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return DefaultGlobalConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := parseGlobalConfig(data)
	if err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

func parseGlobalConfig(data []byte) (*GlobalConfig, error) {
	cfg := DefaultGlobalConfig()
	if len(data) == 0 {
		return cfg, nil
	}

	jsonData, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	// An empty or comment-only document converts to null.
	if string(jsonData) == "null" {
		return cfg, nil
	}
	if err := validate.ValidateGlobalConfigJSON(jsonData); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(jsonData, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
