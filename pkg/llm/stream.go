package llm

// JobEvent represents a single progress event of a fine-tuning job.
type JobEvent struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"` // "info", "warn", "error"
	Message   string `json:"message"`
}

// EventList is a page of job events, newest first.
type EventList struct {
	Data    []JobEvent `json:"data"`
	HasMore bool       `json:"has_more"`
}
