package finetunecmder

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recipetune/cmd/recipetune/cliconfig"
	"github.com/papercomputeco/recipetune/cmd/recipetune/style"
	"github.com/papercomputeco/recipetune/pkg/finetune"
	"github.com/papercomputeco/recipetune/pkg/pipeline"
)

const finetuneLongDesc string = `Fine-tune a model on the generated examples.

Reads single_turn.jsonl and multi_turn.jsonl from the artifacts directory.
When manifest.json is present the files are verified against it; without it
they are used as tracked files. The examples are converted to chat training
records, split into train and validation files, uploaded, and a fine-tuning
job is followed until it finishes. The result is written to model.json in the
work directory.

The API key is read from OPENAI_API_KEY, which may be set in a .env file.

Examples:
  recipetune finetune --dry-run
  recipetune finetune --model gpt-4o-mini-2024-07-18 --epochs 3
  recipetune finetune --artifacts data --work-dir finetune`

const finetuneShortDesc string = "Fine-tune a model on the examples (Phase 2)"

type finetuneCommander struct {
	flags cliconfig.FineTuneFlags
}

func NewFinetuneCmd() *cobra.Command {
	cmder := &finetuneCommander{}

	cmd := &cobra.Command{
		Use:   "finetune",
		Short: finetuneShortDesc,
		Long:  finetuneLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmder.flags.Bind(cmd, true)

	return cmd
}

func (c *finetuneCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := cliconfig.Load(cmd)
	if err != nil {
		return err
	}
	c.flags.Apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	opts, err := cliconfig.FineTuneOptions(cfg)
	if err != nil {
		return err
	}

	logger := cliconfig.Logger(cmd)
	defer logger.Sync()

	artifact, err := pipeline.FineTunePhase(ctx, opts, logger)
	if artifact != nil {
		fmt.Fprint(cmd.OutOrStdout(), Summary(artifact, cfg.FineTune.WorkDir))
	}
	return err
}

// Summary renders a model artifact.
func Summary(a *finetune.ModelArtifact, workDir string) string {
	rows := []style.Row{
		{Key: "status", Value: a.Status},
		{Key: "base model", Value: a.BaseModel},
	}
	if a.JobID != "" {
		rows = append(rows, style.Row{Key: "job", Value: a.JobID})
	}
	if a.FineTunedModel != "" {
		rows = append(rows, style.Row{Key: "fine-tuned model", Value: a.FineTunedModel})
	}
	rows = append(rows,
		style.Row{Key: "train", Value: fmt.Sprintf("%d records (%s)", a.TrainCount, a.TrainPath)},
		style.Row{Key: "validation", Value: fmt.Sprintf("%d records", a.ValidationCount)},
		style.Row{Key: "provenance", Value: string(a.Provenance)},
		style.Row{Key: "artifact", Value: filepath.Join(workDir, finetune.ModelFile)},
	)

	out := style.Summary("Fine-tuning", rows...)
	if a.Error != "" {
		out += style.Warn(a.Error) + "\n"
	}
	return out
}
