package llm

// Hyperparameters contains fine-tuning parameters. Nil fields are left for the
// provider to choose ("auto").
type Hyperparameters struct {
	NEpochs                *int     `json:"n_epochs,omitempty"`                 // Passes over the training file
	BatchSize              *int     `json:"batch_size,omitempty"`               // Examples per gradient step
	LearningRateMultiplier *float64 `json:"learning_rate_multiplier,omitempty"` // Scales the base learning rate
}
