// Package llm provides the chat and fine-tuning wire types shared by the data
// generation and fine-tuning phases.
package llm

// ErrorResponse represents an error returned by recipetune's own HTTP endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// APIErrorBody is the error envelope of an OpenAI-compatible API.
type APIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
