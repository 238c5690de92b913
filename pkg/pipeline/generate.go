// Package pipeline runs the two phases: data generation from the recipe CSV
// and fine-tuning from the generated artifacts. The phases share only files.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/recipetune/pkg/constraint"
	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/generator"
	"github.com/papercomputeco/recipetune/pkg/merkle"
	"github.com/papercomputeco/recipetune/pkg/recipe"
)

// GenerateOptions configure Phase 1.
type GenerateOptions struct {
	Recipes           string
	Layout            dataset.Layout
	SingleTurnCount   int
	MultiTurnCount    int
	ResultsPerExample int
	Seed              uint64

	// IndexPath, when set, also stores every example in a SQLite DAG index.
	IndexPath string
}

// GeneratePhase writes both artifacts and then the manifest. Any stale
// manifest is removed first, so a failed run never leaves one behind.
func GeneratePhase(ctx context.Context, opts GenerateOptions, logger *zap.Logger) (*dataset.Manifest, error) {
	if err := dataset.RemoveManifest(opts.Layout); err != nil {
		return nil, fmt.Errorf("could not remove stale manifest: %w", err)
	}

	recipes, err := recipe.Load(opts.Recipes)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded recipes", zap.String("path", opts.Recipes), zap.Int("count", len(recipes)))

	gen := generator.New(recipes, constraint.NewParser(nil), generator.Options{
		Seed:              opts.Seed,
		ResultsPerExample: opts.ResultsPerExample,
	}, logger)

	var (
		single []dataset.SingleTurnExample
		multi  []dataset.MultiTurnExample
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		single, err = gen.SingleTurn(gctx, opts.SingleTurnCount)
		if err != nil {
			return fmt.Errorf("single-turn generation failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		multi, err = gen.MultiTurn(gctx, opts.MultiTurnCount)
		if err != nil {
			return fmt.Errorf("multi-turn generation failed: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Both variants exist before either file is replaced.
	if err := dataset.WriteJSONL(opts.Layout.Path(dataset.SingleTurn), single); err != nil {
		return nil, err
	}
	if err := dataset.WriteJSONL(opts.Layout.Path(dataset.MultiTurn), multi); err != nil {
		return nil, err
	}

	if opts.IndexPath != "" {
		if err := indexInto(ctx, opts.IndexPath, single, multi, logger); err != nil {
			return nil, err
		}
	}

	m := &dataset.Manifest{
		RunID:     uuid.NewString(),
		Seed:      opts.Seed,
		Recipes:   opts.Recipes,
		CreatedAt: time.Now().UTC(),
	}
	requested := map[dataset.Variant]int{
		dataset.SingleTurn: opts.SingleTurnCount,
		dataset.MultiTurn:  opts.MultiTurnCount,
	}
	for _, v := range dataset.Variants {
		a, err := dataset.DescribeArtifact(opts.Layout, v, requested[v])
		if err != nil {
			return nil, fmt.Errorf("could not describe %s artifact: %w", v, err)
		}
		m.Artifacts = append(m.Artifacts, a)
	}
	if err := dataset.WriteManifest(opts.Layout, m); err != nil {
		return nil, fmt.Errorf("could not write manifest: %w", err)
	}

	logger.Info("data generation complete",
		zap.String("run_id", m.RunID),
		zap.Int("single_turn", len(single)),
		zap.Int("multi_turn", len(multi)),
		zap.String("dir", opts.Layout.Dir),
	)
	return m, nil
}

func indexInto(ctx context.Context, path string, single []dataset.SingleTurnExample, multi []dataset.MultiTurnExample, logger *zap.Logger) error {
	storer, err := merkle.NewSQLiteStorer(path)
	if err != nil {
		return fmt.Errorf("could not open index %s: %w", path, err)
	}
	defer storer.Close()

	added, err := IndexExamples(ctx, storer, single, multi)
	if err != nil {
		return err
	}
	logger.Info("indexed examples", zap.String("path", path), zap.Int("new_nodes", added))
	return nil
}
