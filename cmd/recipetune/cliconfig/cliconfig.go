// Package cliconfig resolves the configuration shared by recipetune commands:
// the config file, logging, and command-line overrides for both phases.
package cliconfig

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/config"
	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/finetune"
	"github.com/papercomputeco/recipetune/pkg/logger"
	"github.com/papercomputeco/recipetune/pkg/pipeline"
)

const (
	ConfigFlag = "config"
	DebugFlag  = "debug"

	// DotEnvPath is loaded before reading the API key.
	DotEnvPath = ".env"
)

// AddPersistentFlags registers the flags every subcommand inherits.
func AddPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(ConfigFlag, "c", "", "Path to config file (default "+config.DefaultPath+" if present)")
	cmd.PersistentFlags().Bool(DebugFlag, false, "Enable debug logging")
}

// Load reads the config file named by --config. Commands run without a root
// command (as in tests) fall back to the default lookup.
func Load(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString(ConfigFlag)
	return config.Load(path)
}

// Logger builds the command logger, honoring --debug.
func Logger(cmd *cobra.Command) *zap.Logger {
	debug, _ := cmd.Flags().GetBool(DebugFlag)
	return logger.NewLogger(debug)
}

// GenerateOptions maps the configuration onto Phase 1.
func GenerateOptions(cfg *config.Config) pipeline.GenerateOptions {
	opts := pipeline.GenerateOptions{
		Recipes:           cfg.Data.Recipes,
		Layout:            dataset.Layout{Dir: cfg.Data.ArtifactsDir},
		SingleTurnCount:   cfg.Generate.SingleTurnCount,
		MultiTurnCount:    cfg.Generate.MultiTurnCount,
		ResultsPerExample: cfg.Generate.ResultsPerExample,
		Seed:              cfg.Generate.Seed,
	}
	if cfg.Generate.Index {
		opts.IndexPath = cfg.Data.IndexPath
	}
	return opts
}

// FineTuneOptions maps the configuration onto Phase 2. Unless this is a dry
// run it loads .env and requires an API key.
func FineTuneOptions(cfg *config.Config) (pipeline.FineTuneOptions, error) {
	ft := cfg.FineTune
	opts := pipeline.FineTuneOptions{
		Layout: dataset.Layout{Dir: cfg.Data.ArtifactsDir},
		Prepare: finetune.PrepareOptions{
			WorkDir:         ft.WorkDir,
			SystemPrompt:    ft.SystemPrompt,
			ValidationRatio: ft.ValidationRatio,
			Seed:            ft.Seed,
		},
		Train: finetune.TrainOptions{
			Model:                  ft.Model,
			Suffix:                 ft.Suffix,
			Seed:                   ft.Seed,
			Epochs:                 ft.Epochs,
			BatchSize:              ft.BatchSize,
			LearningRateMultiplier: ft.LearningRateMultiplier,
			PollInterval:           ft.PollInterval,
		},
		DryRun: ft.DryRun,
	}
	if opts.DryRun {
		return opts, nil
	}

	if err := config.LoadDotEnv(DotEnvPath); err != nil {
		return opts, fmt.Errorf("could not load %s: %w", DotEnvPath, err)
	}
	key := config.APIKey()
	if key == "" {
		return opts, fmt.Errorf("%s is not set: export it, add it to %s, or pass --dry-run", config.APIKeyEnv, DotEnvPath)
	}
	opts.API = finetune.NewClient(ft.BaseURL, key)
	return opts, nil
}
