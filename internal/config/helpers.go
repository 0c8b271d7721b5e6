package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/old-void-ppc/void-mklive/internal/arch"
)

// DefaultRepository is the Void mirror used when the config lists none.
const DefaultRepository = "https://repo-default.voidlinux.org/current"

// ConfigHelpers provides convenient access to global configuration
type ConfigHelpers struct {
	config *GlobalConfig
}

// NewConfigHelpers creates a new config helpers instance
func NewConfigHelpers(config *GlobalConfig) *ConfigHelpers {
	return &ConfigHelpers{config: config}
}

// CacheDir returns the absolute path to the cache directory
func (c *ConfigHelpers) CacheDir() (string, error) {
	return filepath.Abs(c.config.CacheDir)
}

// LogLevel returns the configured log level, info when unset
func (c *ConfigHelpers) LogLevel() string {
	if c.config.Logging.Level == "" {
		return "info"
	}
	return c.config.Logging.Level
}

// ArchCacheDir returns <cacheDir>/<targetArch>, creating it if needed.
// Package caches are never shared between architectures.
func (c *ConfigHelpers) ArchCacheDir(targetArch string) (string, error) {
	if targetArch == "" {
		return "", fmt.Errorf("target architecture not set")
	}
	cacheDir, err := c.CacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving cache directory: %w", err)
	}
	dir := filepath.Join(cacheDir, targetArch)
	if err := createDirIfNotExists(dir); err != nil {
		return "", fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return dir, nil
}

// Repositories returns the configured repositories, or the default mirror
// path matching targetArch when none are configured.
func (c *ConfigHelpers) Repositories(targetArch string) []string {
	if len(c.config.Repositories) > 0 {
		return c.config.Repositories
	}
	return []string{DefaultRepositoryFor(targetArch)}
}

// DefaultRepositoryFor returns the default mirror subdirectory for an
// architecture: aarch64 and musl builds live in their own trees.
func DefaultRepositoryFor(targetArch string) string {
	repo := DefaultRepository
	if arch.FamilyOf(targetArch) == arch.FamilyAArch64 {
		repo += "/aarch64"
	} else if arch.BaseArch(targetArch) != targetArch {
		repo += "/musl"
	}
	return repo
}

func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
