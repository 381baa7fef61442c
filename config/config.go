// Package config loads the optional project configuration file
// (.repack.yaml) that supplies defaults for the command line:
// verbosity, extra blueprint search paths and a render worker bound.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up next to the schema.
const DefaultFile = ".repack.yaml"

// Config is the on-disk project configuration.
type Config struct {
	Verbose    bool     `yaml:"verbose"`
	Blueprints []string `yaml:"blueprints"`
	Workers    int      `yaml:"workers"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{}
}

// Load reads the configuration for a schema file: the explicit path if
// given, otherwise DefaultFile in the schema's directory. A missing
// file yields the defaults. REPACK_VERBOSE overrides the file's verbose
// value; REPACK_BLUEPRINTS appends to its blueprint list.
func Load(path, schemaPath string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(filepath.Dir(schemaPath), DefaultFile)
		if _, err := os.Stat(path); err != nil {
			return applyEnv(cfg), nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return applyEnv(cfg), err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return applyEnv(cfg), err
	}
	// Blueprint paths are relative to the config file.
	dir := filepath.Dir(path)
	for i, bp := range cfg.Blueprints {
		if !filepath.IsAbs(bp) {
			cfg.Blueprints[i] = filepath.Join(dir, bp)
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if v, ok := os.LookupEnv("REPACK_VERBOSE"); ok {
		cfg.Verbose = truthy(v)
	}
	if v, ok := os.LookupEnv("REPACK_BLUEPRINTS"); ok && strings.TrimSpace(v) != "" {
		cfg.Blueprints = append(cfg.Blueprints, filepath.SplitList(v)...)
	}
	return cfg
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
