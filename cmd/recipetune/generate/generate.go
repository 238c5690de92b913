package generatecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recipetune/cmd/recipetune/cliconfig"
	"github.com/papercomputeco/recipetune/cmd/recipetune/style"
	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/pipeline"
)

const generateLongDesc string = `Generate instruction-tuning examples from the HUMMUS recipe CSV.

Writes single_turn.jsonl and multi_turn.jsonl into the artifacts directory,
then a manifest.json recording the run. Each file holds at most the requested
number of examples; templates with too few matching recipes yield fewer.

Examples:
  recipetune generate
  recipetune generate --single-turn 50 --multi-turn 50 --seed 7
  recipetune generate --recipes ~/hummus/pp_recipes.csv --out data --index`

const generateShortDesc string = "Generate training examples (Phase 1)"

type generateCommander struct {
	flags cliconfig.GenerateFlags
}

func NewGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: generateShortDesc,
		Long:  generateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmder.flags.Bind(cmd)

	return cmd
}

func (c *generateCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := cliconfig.Load(cmd)
	if err != nil {
		return err
	}
	c.flags.Apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cliconfig.Logger(cmd)
	defer logger.Sync()

	m, err := pipeline.GeneratePhase(ctx, cliconfig.GenerateOptions(cfg), logger)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), Summary(m, cfg.Data.ArtifactsDir))
	return nil
}

// Summary renders a finished generation run.
func Summary(m *dataset.Manifest, dir string) string {
	rows := []style.Row{
		{Key: "run", Value: m.RunID},
		{Key: "seed", Value: fmt.Sprint(m.Seed)},
	}
	for _, a := range m.Artifacts {
		rows = append(rows, style.Row{
			Key:   string(a.Variant),
			Value: fmt.Sprintf("%d of %d requested", a.Generated, a.Requested),
		})
	}
	rows = append(rows, style.Row{Key: "manifest", Value: dataset.Layout{Dir: dir}.ManifestPath()})
	return style.Summary("Generated examples", rows...)
}
