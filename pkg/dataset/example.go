// Package dataset defines the conversational fine-tuning examples and the
// JSON-lines artifacts that carry them from data generation to fine-tuning.
package dataset

import (
	"fmt"

	"github.com/papercomputeco/recipetune/pkg/constraint"
	"github.com/papercomputeco/recipetune/pkg/llm"
)

// Variant names a kind of example.
type Variant string

const (
	SingleTurn Variant = "single_turn"
	MultiTurn  Variant = "multi_turn"
)

// Variants lists every variant in artifact order.
var Variants = []Variant{SingleTurn, MultiTurn}

// ParseVariant accepts "single_turn"/"multi_turn" and the short forms
// "single"/"multi".
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "single_turn", "single":
		return SingleTurn, nil
	case "multi_turn", "multi":
		return MultiTurn, nil
	}
	return "", fmt.Errorf("unknown variant %q (want single or multi)", s)
}

// SingleTurnExample is an instruction-format training example.
type SingleTurnExample struct {
	Instruction string                 `json:"instruction"`
	Input       string                 `json:"input"`
	Output      string                 `json:"output"`
	Constraints constraint.Constraints `json:"constraints"`
	EvidenceIDs []int64                `json:"evidence_ids"`
	Template    string                 `json:"template,omitempty"`
}

// Messages returns the example as a user/assistant exchange.
func (e *SingleTurnExample) Messages() []llm.Message {
	prompt := e.Instruction
	if e.Input != "" {
		prompt += "\n\n" + e.Input
	}
	return []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
		{Role: llm.RoleAssistant, Content: e.Output},
	}
}

// MultiTurnExample is a chat-format training example. Roles alternate
// starting with the user and the last message is the assistant's answer.
type MultiTurnExample struct {
	Messages    []llm.Message          `json:"messages"`
	Constraints constraint.Constraints `json:"constraints"`
	EvidenceIDs []int64                `json:"evidence_ids"`
	Template    string                 `json:"template,omitempty"`
}
