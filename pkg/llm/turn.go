package llm

// TrainingRecord is one line of a chat-format fine-tuning file.
type TrainingRecord struct {
	Messages []Message `json:"messages"`
}
