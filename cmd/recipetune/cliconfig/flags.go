package cliconfig

import (
	"github.com/spf13/cobra"

	"github.com/papercomputeco/recipetune/pkg/config"
)

// GenerateFlags override the [data] and [generate] sections.
type GenerateFlags struct {
	recipes    string
	out        string
	singleTurn int
	multiTurn  int
	results    int
	seed       uint64
	index      bool
}

func (f *GenerateFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.recipes, "recipes", "", "Path to the HUMMUS recipe CSV")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Directory for the generated artifacts")
	cmd.Flags().IntVar(&f.singleTurn, "single-turn", 0, "Number of single-turn examples to generate")
	cmd.Flags().IntVar(&f.multiTurn, "multi-turn", 0, "Number of multi-turn examples to generate")
	cmd.Flags().IntVar(&f.results, "results", 0, "Recipes cited per example")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Random seed")
	cmd.Flags().BoolVar(&f.index, "index", false, "Also index every example into the SQLite DAG")
}

// Apply copies the flags the user set onto cfg.
func (f *GenerateFlags) Apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("recipes") {
		cfg.Data.Recipes = f.recipes
	}
	if flags.Changed("out") {
		cfg.Data.ArtifactsDir = f.out
	}
	if flags.Changed("single-turn") {
		cfg.Generate.SingleTurnCount = f.singleTurn
	}
	if flags.Changed("multi-turn") {
		cfg.Generate.MultiTurnCount = f.multiTurn
	}
	if flags.Changed("results") {
		cfg.Generate.ResultsPerExample = f.results
	}
	if flags.Changed("seed") {
		cfg.Generate.Seed = f.seed
	}
	if flags.Changed("index") {
		cfg.Generate.Index = f.index
	}
}

// FineTuneFlags override the [finetune] section.
type FineTuneFlags struct {
	artifacts       string
	workDir         string
	model           string
	epochs          int
	dryRun          bool
	validationRatio float64
}

// Bind registers the flags. withArtifacts is false when another flag already
// names the artifacts directory.
func (f *FineTuneFlags) Bind(cmd *cobra.Command, withArtifacts bool) {
	if withArtifacts {
		cmd.Flags().StringVar(&f.artifacts, "artifacts", "", "Directory holding the JSON-lines artifacts")
	}
	cmd.Flags().StringVar(&f.workDir, "work-dir", "", "Directory for training files and model.json")
	cmd.Flags().StringVar(&f.model, "model", "", "Base model to fine-tune")
	cmd.Flags().IntVar(&f.epochs, "epochs", 0, "Training epochs (0 lets the provider decide)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Prepare training files without starting a job")
	cmd.Flags().Float64Var(&f.validationRatio, "validation-ratio", 0, "Share of records held out for validation")
}

// Apply copies the flags the user set onto cfg.
func (f *FineTuneFlags) Apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("artifacts") {
		cfg.Data.ArtifactsDir = f.artifacts
	}
	if flags.Changed("work-dir") {
		cfg.FineTune.WorkDir = f.workDir
	}
	if flags.Changed("model") {
		cfg.FineTune.Model = f.model
	}
	if flags.Changed("epochs") {
		cfg.FineTune.Epochs = f.epochs
	}
	if flags.Changed("dry-run") {
		cfg.FineTune.DryRun = f.dryRun
	}
	if flags.Changed("validation-ratio") {
		cfg.FineTune.ValidationRatio = f.validationRatio
	}
}
