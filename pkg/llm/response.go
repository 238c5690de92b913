package llm

// Fine-tuning job statuses.
const (
	JobValidatingFiles = "validating_files"
	JobQueued          = "queued"
	JobRunning         = "running"
	JobSucceeded       = "succeeded"
	JobFailed          = "failed"
	JobCancelled       = "cancelled"
)

// Job represents a fine-tuning job (OpenAI-compatible).
type Job struct {
	ID             string `json:"id"`
	Model          string `json:"model"`                      // Base model
	FineTunedModel string `json:"fine_tuned_model,omitempty"` // Set once the job succeeds
	Status         string `json:"status"`
	CreatedAt      int64  `json:"created_at"`
	FinishedAt     int64  `json:"finished_at,omitempty"`
	TrainingFile   string `json:"training_file"`
	ValidationFile string `json:"validation_file,omitempty"`
	TrainedTokens  int    `json:"trained_tokens,omitempty"`

	// Values may be "auto" until the provider resolves them.
	Hyperparameters map[string]any `json:"hyperparameters,omitempty"`

	// Error is only present for failed jobs
	Error *JobError `json:"error,omitempty"`
}

// JobError describes why a job failed.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// Terminal reports whether the job can no longer change status.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobSucceeded, JobFailed, JobCancelled:
		return true
	}
	return false
}
