package finetune

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/llm"
)

// ModelFile is the model artifact written into the work directory.
const ModelFile = "model.json"

// ModelArtifact records the outcome of a fine-tuning run.
type ModelArtifact struct {
	JobID          string `json:"job_id,omitempty"`
	BaseModel      string `json:"base_model"`
	FineTunedModel string `json:"fine_tuned_model,omitempty"`
	Status         string `json:"status"`
	TrainedTokens  int    `json:"trained_tokens,omitempty"`
	Error          string `json:"error,omitempty"`

	TrainingFileID   string `json:"training_file_id,omitempty"`
	ValidationFileID string `json:"validation_file_id,omitempty"`
	TrainPath        string `json:"train_path"`
	ValidationPath   string `json:"validation_path"`
	TrainCount       int    `json:"train_count"`
	ValidationCount  int    `json:"validation_count"`

	Provenance dataset.Provenance `json:"provenance"`
	RunID      string             `json:"run_id,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func newArtifact(model string, p *Prepared) *ModelArtifact {
	return &ModelArtifact{
		BaseModel:       model,
		Status:          StatusPrepared,
		TrainPath:       p.TrainPath,
		ValidationPath:  p.ValidationPath,
		TrainCount:      p.TrainCount,
		ValidationCount: p.ValidationCount,
		CreatedAt:       time.Now().UTC(),
	}
}

// PreparedArtifact describes a dry run.
func PreparedArtifact(model string, p *Prepared, h *dataset.Handoff) *ModelArtifact {
	a := newArtifact(model, p)
	a.SetHandoff(h)
	return a
}

// SetHandoff records where the training data came from.
func (a *ModelArtifact) SetHandoff(h *dataset.Handoff) {
	a.Provenance = h.Provenance
	if h.Manifest != nil {
		a.RunID = h.Manifest.RunID
	}
}

func (a *ModelArtifact) update(job *llm.Job) {
	a.JobID = job.ID
	a.Status = job.Status
	if job.FineTunedModel != "" {
		a.FineTunedModel = job.FineTunedModel
	}
	if job.TrainedTokens > 0 {
		a.TrainedTokens = job.TrainedTokens
	}
	if job.CreatedAt > 0 {
		a.CreatedAt = time.Unix(job.CreatedAt, 0).UTC()
	}
	if job.FinishedAt > 0 {
		finished := time.Unix(job.FinishedAt, 0).UTC()
		a.FinishedAt = &finished
	}
	if job.Error != nil && job.Error.Message != "" {
		a.Error = job.Error.Message
	}
}

// WriteModelArtifact writes a into dir/model.json and returns the path.
func WriteModelArtifact(dir string, a *ModelArtifact) (string, error) {
	path := filepath.Join(dir, ModelFile)
	if err := dataset.WriteJSON(path, a); err != nil {
		return "", fmt.Errorf("could not write model artifact: %w", err)
	}
	return path, nil
}

// ReadModelArtifact reads dir/model.json.
func ReadModelArtifact(dir string) (*ModelArtifact, error) {
	data, err := os.ReadFile(filepath.Join(dir, ModelFile))
	if err != nil {
		return nil, err
	}
	var a ModelArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("could not parse model artifact: %w", err)
	}
	return &a, nil
}
