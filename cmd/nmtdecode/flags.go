package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nmtdecode/internal/logger"
)

var (
	modelPath       string
	sourceVocabPath string
	targetVocabPath string
	shortlistPath   string

	beamSize  int64
	nBest     int64
	maxLength int64
	normalize bool

	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	// cfg is the configuration file loaded by setup.
	cfg Config
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Usage:       "path to config.yaml",
		Sources:     cli.EnvVars(envConfigPath),
		Destination: &configFile,
	}
}

func modelFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "path to .safetensors weights",
			Sources:     cli.EnvVars(envModelPath),
			Destination: &modelPath,
		},
		&cli.StringFlag{
			Name:        "src-vocab",
			Usage:       "source vocabulary (default: vocab.src.yaml beside the model)",
			Destination: &sourceVocabPath,
		},
		&cli.StringFlag{
			Name:        "trg-vocab",
			Usage:       "target vocabulary (default: vocab.trg.yaml beside the model)",
			Destination: &targetVocabPath,
		},
		&cli.StringFlag{
			Name:        "shortlist",
			Usage:       "output shortlist (default: shortlist.yaml beside the model, if present)",
			Destination: &shortlistPath,
		},
	}
}

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:        "beam-size",
			Aliases:     []string{"b"},
			Usage:       "beam width",
			Value:       12,
			Destination: &beamSize,
		},
		&cli.Int64Flag{
			Name:        "n-best",
			Usage:       "number of translations per sentence",
			Value:       1,
			Destination: &nBest,
		},
		&cli.Int64Flag{
			Name:        "max-length",
			Usage:       "maximum output length (0 = three times the source length)",
			Destination: &maxLength,
		},
		&cli.BoolFlag{
			Name:        "normalize",
			Aliases:     []string{"n"},
			Usage:       "divide scores by output length",
			Value:       true,
			Destination: &normalize,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

// setup loads the config file and installs the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := configFile
	if path == "" {
		path = configPath()
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	cfg = loaded
	applyLoggingConfig(cmd, cfg)

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return ctx, err
	}
	if debug {
		level, _ = logger.ParseLevel("debug")
	}
	log, err := logger.ForFormat(logFormat, os.Stderr, level)
	if err != nil {
		return ctx, errors.Wrap(err, "--log-format")
	}
	return logger.WithContext(ctx, log), nil
}
