// Package config loads the jlambda configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config selects where classes are looked up and how much is logged.
type Config struct {
	// Classpath lists directories, jar and jmod files searched in order.
	Classpath []string `yaml:"classpath"`

	// Jmod is the java.base.jmod to consult for JDK classes. Empty means
	// auto-detect from JAVA_BASE_JMOD and JAVA_HOME.
	Jmod string `yaml:"jmod"`

	// Manifests are extra YAML registration tables, layered over the
	// built-in JDK manifest.
	Manifests []string `yaml:"manifests"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// Preload is the concurrency used to warm the class cache; 0 disables
	// preloading.
	Preload int `yaml:"preload"`
}

// Default returns the configuration used without a config file.
func Default() *Config {
	return &Config{LogLevel: "warn"}
}

// Load reads the YAML file at path over Default. Relative classpath,
// jmod and manifest entries are taken relative to the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.resolvePaths(filepath.Dir(path))
	return c, nil
}

// Parse decodes YAML config data over Default.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return nil, err
	}
	if c.Preload < 0 {
		return nil, fmt.Errorf("preload must not be negative, got %d", c.Preload)
	}
	return c, nil
}

func (c *Config) resolvePaths(base string) {
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, p := range c.Classpath {
		c.Classpath[i] = rel(p)
	}
	for i, p := range c.Manifests {
		c.Manifests[i] = rel(p)
	}
	c.Jmod = rel(c.Jmod)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// SplitClasspath splits a classpath on the OS list separator (':' on Unix),
// dropping empty entries.
func SplitClasspath(s string) []string {
	var entries []string
	for _, e := range filepath.SplitList(s) {
		if e != "" {
			entries = append(entries, e)
		}
	}
	return entries
}
