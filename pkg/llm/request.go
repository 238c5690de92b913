package llm

// FilePurposeFineTune is the upload purpose for fine-tuning data.
const FilePurposeFineTune = "fine-tune"

// JobRequest represents a fine-tuning job creation request (OpenAI-compatible).
type JobRequest struct {
	Model          string `json:"model"`                     // Base model (e.g., "gpt-4o-mini-2024-07-18")
	TrainingFile   string `json:"training_file"`             // Uploaded file id
	ValidationFile string `json:"validation_file,omitempty"` // Optional uploaded file id
	Suffix         string `json:"suffix,omitempty"`          // Appended to the fine-tuned model name
	Seed           *int   `json:"seed,omitempty"`            // Reproducibility seed

	Hyperparameters *Hyperparameters `json:"hyperparameters,omitempty"`
}

// File is an uploaded file as reported by the API.
type File struct {
	ID        string `json:"id"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
}
