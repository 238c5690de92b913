package finetune

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/llm"
)

// ErrJobFailed is returned when the remote job ends failed or cancelled.
var ErrJobFailed = errors.New("fine-tuning job did not succeed")

const (
	// StatusPrepared marks a dry run that stopped after preparation.
	StatusPrepared = "prepared"

	maxPollFailures = 5
	cancelTimeout   = 30 * time.Second
)

// TrainOptions configure the remote job. Zero hyperparameters are left to the
// provider.
type TrainOptions struct {
	Model                  string
	Suffix                 string
	Seed                   uint64
	Epochs                 int
	BatchSize              int
	LearningRateMultiplier float64
	PollInterval           time.Duration
}

// Trainer uploads prepared files, starts a job and follows it to the end.
type Trainer struct {
	api    JobAPI
	opts   TrainOptions
	logger *zap.Logger
}

// NewTrainer returns a Trainer using api.
func NewTrainer(api JobAPI, opts TrainOptions, logger *zap.Logger) *Trainer {
	return &Trainer{api: api, opts: opts, logger: logger}
}

// Train runs the job for p. The returned artifact is non-nil whenever a job
// was created, even if the job failed or ctx was cancelled.
func (t *Trainer) Train(ctx context.Context, p *Prepared) (*ModelArtifact, error) {
	artifact := newArtifact(t.opts.Model, p)

	trainFile, err := t.api.UploadFile(ctx, p.TrainPath)
	if err != nil {
		return nil, fmt.Errorf("could not upload training file: %w", err)
	}
	artifact.TrainingFileID = trainFile.ID
	t.logger.Info("uploaded training file", zap.String("file_id", trainFile.ID), zap.Int("records", p.TrainCount))

	req := llm.JobRequest{
		Model:           t.opts.Model,
		TrainingFile:    trainFile.ID,
		Suffix:          t.opts.Suffix,
		Hyperparameters: t.hyperparameters(),
	}
	seed := int(t.opts.Seed)
	req.Seed = &seed

	if p.ValidationCount > 0 {
		valFile, err := t.api.UploadFile(ctx, p.ValidationPath)
		if err != nil {
			return nil, fmt.Errorf("could not upload validation file: %w", err)
		}
		artifact.ValidationFileID = valFile.ID
		req.ValidationFile = valFile.ID
		t.logger.Info("uploaded validation file", zap.String("file_id", valFile.ID), zap.Int("records", p.ValidationCount))
	}

	job, err := t.api.CreateJob(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("could not create fine-tuning job: %w", err)
	}
	artifact.update(job)
	t.logger.Info("created fine-tuning job", zap.String("job_id", job.ID), zap.String("model", t.opts.Model))

	job, err = t.follow(ctx, job)
	if job != nil {
		artifact.update(job)
	}
	if err != nil {
		return artifact, err
	}

	if job.Status != llm.JobSucceeded {
		msg := job.Status
		if job.Error != nil && job.Error.Message != "" {
			msg = job.Error.Message
		}
		return artifact, fmt.Errorf("%w: job %s %s: %s", ErrJobFailed, job.ID, job.Status, msg)
	}

	t.logger.Info("fine-tuning job succeeded",
		zap.String("job_id", job.ID),
		zap.String("fine_tuned_model", job.FineTunedModel),
		zap.Int("trained_tokens", job.TrainedTokens),
	)
	return artifact, nil
}

func (t *Trainer) hyperparameters() *llm.Hyperparameters {
	var hp llm.Hyperparameters
	set := false
	if t.opts.Epochs > 0 {
		hp.NEpochs = &t.opts.Epochs
		set = true
	}
	if t.opts.BatchSize > 0 {
		hp.BatchSize = &t.opts.BatchSize
		set = true
	}
	if t.opts.LearningRateMultiplier > 0 {
		hp.LearningRateMultiplier = &t.opts.LearningRateMultiplier
		set = true
	}
	if !set {
		return nil
	}
	return &hp
}

// follow polls job until it is terminal. On cancellation it cancels the
// remote job and returns the context error.
func (t *Trainer) follow(ctx context.Context, job *llm.Job) (*llm.Job, error) {
	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	seen := make(map[string]struct{})
	failures := 0
	for {
		t.logEvents(ctx, job.ID, seen)
		if job.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return t.cancel(ctx, job), ctx.Err()
		case <-ticker.C:
		}

		next, err := t.api.GetJob(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return t.cancel(ctx, job), ctx.Err()
			}
			failures++
			t.logger.Warn("could not poll fine-tuning job",
				zap.String("job_id", job.ID),
				zap.Int("failures", failures),
				zap.Error(err),
			)
			if failures >= maxPollFailures {
				return job, fmt.Errorf("could not poll job %s: %w", job.ID, err)
			}
			continue
		}
		failures = 0

		if next.Status != job.Status {
			t.logger.Info("fine-tuning job status changed",
				zap.String("job_id", next.ID),
				zap.String("from", job.Status),
				zap.String("to", next.Status),
			)
		}
		job = next
	}
}

func (t *Trainer) cancel(ctx context.Context, job *llm.Job) *llm.Job {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()

	t.logger.Warn("cancelling fine-tuning job", zap.String("job_id", job.ID))
	cancelled, err := t.api.CancelJob(cctx, job.ID)
	if err != nil {
		t.logger.Error("could not cancel fine-tuning job", zap.String("job_id", job.ID), zap.Error(err))
		return job
	}
	return cancelled
}

// logEvents logs events not seen before, oldest first.
func (t *Trainer) logEvents(ctx context.Context, jobID string, seen map[string]struct{}) {
	events, err := t.api.ListEvents(ctx, jobID)
	if err != nil {
		t.logger.Debug("could not list job events", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt < events[j].CreatedAt })
	for _, e := range events {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}

		fields := []zap.Field{zap.String("job_id", jobID), zap.String("event", e.Message)}
		switch e.Level {
		case "error":
			t.logger.Error("fine-tuning event", fields...)
		case "warn":
			t.logger.Warn("fine-tuning event", fields...)
		default:
			t.logger.Info("fine-tuning event", fields...)
		}
	}
}
