package config

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"

	"go.viam.com/planarik/logging"
)

// Read reads a config from the given file, expanding environment variables first.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	unprocessedConfig := Config{
		ConfigFilePath: originalPath,
	}
	if err := json.NewDecoder(r).Decode(&unprocessedConfig); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}
	cfg, err := processConfig(&unprocessedConfig, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	return cfg, nil
}

// processConfig returns a copy of the config with defaults applied, validated.
func processConfig(unprocessedConfig *Config, logger logging.Logger) (*Config, error) {
	cfg := *unprocessedConfig
	cfg.Links = append([]float64(nil), unprocessedConfig.Links...)
	cfg.ApplyDefaults()
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debugw("read config", "path", cfg.ConfigFilePath, "arm_type", cfg.ArmType, "links", cfg.Links)
	}
	return &cfg, nil
}
