package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	envConfigPath = "NMTDECODE_CONFIG"
	envModelPath  = "NMTDECODE_MODEL"
)

// Config represents the nmtdecode configuration file
// (~/.config/nmtdecode/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	Model       string `yaml:"model"`
	SourceVocab string `yaml:"src_vocab"`
	TargetVocab string `yaml:"trg_vocab"`
	Shortlist   string `yaml:"shortlist"`

	// Search defaults
	BeamSize  *int64 `yaml:"beam_size"`
	NBest     *int64 `yaml:"n_best"`
	MaxLength *int64 `yaml:"max_length"`
	Normalize *bool  `yaml:"normalize"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
	StoreSize     *int   `yaml:"store_size"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nmtdecode", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config; a
// malformed one is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, errors.Wrap(err, "read config")
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	return c, nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyModelConfig fills model paths from the config file when the
// corresponding flag was not given.
func applyModelConfig(c *cli.Command, cfg Config) {
	if cfg.Model != "" && !c.IsSet("model") {
		modelPath = cfg.Model
	}
	if cfg.SourceVocab != "" && !c.IsSet("src-vocab") {
		sourceVocabPath = cfg.SourceVocab
	}
	if cfg.TargetVocab != "" && !c.IsSet("trg-vocab") {
		targetVocabPath = cfg.TargetVocab
	}
	if cfg.Shortlist != "" && !c.IsSet("shortlist") {
		shortlistPath = cfg.Shortlist
	}
}

func applySearchConfig(c *cli.Command, cfg Config) {
	if cfg.BeamSize != nil && !c.IsSet("beam-size") {
		beamSize = *cfg.BeamSize
	}
	if cfg.NBest != nil && !c.IsSet("n-best") {
		nBest = *cfg.NBest
	}
	if cfg.MaxLength != nil && !c.IsSet("max-length") {
		maxLength = *cfg.MaxLength
	}
	if cfg.Normalize != nil && !c.IsSet("normalize") {
		normalize = *cfg.Normalize
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string, storeSize *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.StoreSize != nil && !c.IsSet("store-size") {
		*storeSize = int64(*cfg.StoreSize)
	}
}
