package runcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recipetune/cmd/recipetune/cliconfig"
	finetunecmder "github.com/papercomputeco/recipetune/cmd/recipetune/finetune"
	generatecmder "github.com/papercomputeco/recipetune/cmd/recipetune/generate"
	"github.com/papercomputeco/recipetune/pkg/pipeline"
)

const runLongDesc string = `Run both phases: generate the examples, then fine-tune on them.

The fine-tuning phase only starts once generation has written its manifest,
and it reads the artifacts from the directory generation wrote to.

Examples:
  recipetune run --dry-run
  recipetune run --single-turn 500 --multi-turn 500 --epochs 3`

const runShortDesc string = "Generate examples and fine-tune on them"

type runCommander struct {
	generate cliconfig.GenerateFlags
	finetune cliconfig.FineTuneFlags
}

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	// --out names the artifacts directory for both phases
	cmder.generate.Bind(cmd)
	cmder.finetune.Bind(cmd, false)

	return cmd
}

func (c *runCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := cliconfig.Load(cmd)
	if err != nil {
		return err
	}
	c.generate.Apply(cmd, cfg)
	c.finetune.Apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// resolve the API key before spending time on generation
	ftOpts, err := cliconfig.FineTuneOptions(cfg)
	if err != nil {
		return err
	}

	logger := cliconfig.Logger(cmd)
	defer logger.Sync()

	m, err := pipeline.GeneratePhase(ctx, cliconfig.GenerateOptions(cfg), logger)
	if err != nil {
		return fmt.Errorf("generation failed, not fine-tuning: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), generatecmder.Summary(m, cfg.Data.ArtifactsDir))

	artifact, err := pipeline.FineTunePhase(ctx, ftOpts, logger)
	if artifact != nil {
		fmt.Fprint(cmd.OutOrStdout(), finetunecmder.Summary(artifact, cfg.FineTune.WorkDir))
	}
	return err
}
