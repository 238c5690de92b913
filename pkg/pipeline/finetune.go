package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/finetune"
)

// FineTuneOptions configure Phase 2.
type FineTuneOptions struct {
	Layout  dataset.Layout
	Prepare finetune.PrepareOptions
	Train   finetune.TrainOptions
	DryRun  bool

	// API is required unless DryRun is set.
	API finetune.JobAPI
}

// FineTunePhase resolves the artifacts, prepares training files and, unless
// this is a dry run, runs the remote job. The model artifact is written
// whenever a job was created, including failed and cancelled jobs.
func FineTunePhase(ctx context.Context, opts FineTuneOptions, logger *zap.Logger) (*finetune.ModelArtifact, error) {
	h, err := dataset.Resolve(opts.Layout, logger)
	if err != nil {
		return nil, err
	}

	prepared, err := finetune.Prepare(h, opts.Prepare, logger)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		artifact := finetune.PreparedArtifact(opts.Train.Model, prepared, h)
		path, err := finetune.WriteModelArtifact(opts.Prepare.WorkDir, artifact)
		if err != nil {
			return nil, err
		}
		logger.Info("dry run complete, skipping remote job", zap.String("model_artifact", path))
		return artifact, nil
	}

	if opts.API == nil {
		return nil, errors.New("no fine-tuning API configured")
	}

	artifact, trainErr := finetune.NewTrainer(opts.API, opts.Train, logger).Train(ctx, prepared)
	if artifact == nil {
		return nil, trainErr
	}
	artifact.SetHandoff(h)

	path, err := finetune.WriteModelArtifact(opts.Prepare.WorkDir, artifact)
	if err != nil {
		return artifact, errors.Join(trainErr, err)
	}
	logger.Info("wrote model artifact", zap.String("path", path), zap.String("status", artifact.Status))
	return artifact, trainErr
}
