package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadResult is a loaded configuration and the file it came from.
type LoadResult struct {
	Config *Config
	// File is empty when no config file existed and defaults were used.
	File string
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "winquery", "config.yaml"), nil
}

// Load reads the configuration from the standard location and returns a
// validated config ready for use by the daemon.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	res, err := LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadFromPath reads path over the defaults. A missing file yields the
// defaults; keys the config does not know are rejected.
func LoadFromPath(path string) (*LoadResult, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &LoadResult{Config: cfg}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := decodeStrictYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &LoadResult{Config: cfg, File: path}, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}
