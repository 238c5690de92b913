package inspectcmder

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/recipetune/cmd/recipetune/cliconfig"
	"github.com/papercomputeco/recipetune/cmd/recipetune/style"
	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/report"
)

const inspectLongDesc string = `Report on the generated artifacts.

Summarizes each JSON-lines file: example counts, the template mix, how often
each constraint key appears, conversation lengths and distinct openings. The
manifest, when present, is listed and checked against the files.

The report is markdown, styled when written to a terminal.

Examples:
  recipetune inspect
  recipetune inspect --artifacts data --raw > report.md`

const inspectShortDesc string = "Report on generated artifacts"

type inspectCommander struct {
	artifacts string
	raw       bool
}

func NewInspectCmd() *cobra.Command {
	cmder := &inspectCommander{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: inspectShortDesc,
		Long:  inspectLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.artifacts, "artifacts", "", "Directory holding the JSON-lines artifacts")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print markdown without terminal styling")

	return cmd
}

func (c *inspectCommander) run(_ context.Context, cmd *cobra.Command) error {
	cfg, err := cliconfig.Load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("artifacts") {
		cfg.Data.ArtifactsDir = c.artifacts
	}

	logger := cliconfig.Logger(cmd)
	defer logger.Sync()

	layout := dataset.Layout{Dir: cfg.Data.ArtifactsDir}

	m, err := dataset.ReadManifest(layout)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	summaries, err := summarize(layout)
	if err != nil {
		return err
	}

	md := report.Markdown(m, summaries)
	if m != nil {
		if _, err := dataset.Resolve(layout, logger); errors.Is(err, dataset.ErrManifestMismatch) {
			md += "> **Warning:** " + err.Error() + "\n"
		}
	}

	out := cmd.OutOrStdout()
	if c.raw {
		_, err := fmt.Fprint(out, md)
		return err
	}
	return style.Markdown(out, md)
}

// summarize reads every artifact present. At least one must exist.
func summarize(layout dataset.Layout) ([]report.Summary, error) {
	var summaries []report.Summary

	for _, v := range dataset.Variants {
		path := layout.Path(v)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}

		switch v {
		case dataset.SingleTurn:
			examples, err := dataset.ReadJSONL[dataset.SingleTurnExample](path)
			if err != nil {
				return nil, err
			}
			summaries = append(summaries, report.SummarizeSingleTurn(examples))
		case dataset.MultiTurn:
			examples, err := dataset.ReadJSONL[dataset.MultiTurnExample](path)
			if err != nil {
				return nil, err
			}
			summaries = append(summaries, report.SummarizeMultiTurn(examples))
		}
	}

	if len(summaries) == 0 {
		return nil, fmt.Errorf("%w: no artifacts in %s", dataset.ErrArtifactMissing, layout.Dir)
	}
	return summaries, nil
}
