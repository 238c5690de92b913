// Package finetune prepares chat-format training files from the generated
// examples and drives a fine-tuning job against an OpenAI-compatible API.
package finetune

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/llm"
)

const (
	TrainFile      = "train.jsonl"
	ValidationFile = "validation.jsonl"
)

// ErrNoRecords is returned when no example survives preparation.
var ErrNoRecords = errors.New("no usable training records")

// PrepareOptions control how examples become training files.
type PrepareOptions struct {
	WorkDir         string
	SystemPrompt    string
	ValidationRatio float64
	Seed            uint64
}

// Prepared describes the written training files.
type Prepared struct {
	TrainPath       string `json:"train_path"`
	ValidationPath  string `json:"validation_path"`
	TrainCount      int    `json:"train_count"`
	ValidationCount int    `json:"validation_count"`
	Rejected        int    `json:"rejected"`
}

// Prepare reads the handed-off artifacts, converts every example to a chat
// record, shuffles and splits them, and writes train.jsonl and
// validation.jsonl into opts.WorkDir.
func Prepare(h *dataset.Handoff, opts PrepareOptions, logger *zap.Logger) (*Prepared, error) {
	single, err := dataset.ReadJSONL[dataset.SingleTurnExample](h.Path(dataset.SingleTurn))
	if err != nil {
		return nil, fmt.Errorf("could not read single-turn examples: %w", err)
	}
	multi, err := dataset.ReadJSONL[dataset.MultiTurnExample](h.Path(dataset.MultiTurn))
	if err != nil {
		return nil, fmt.Errorf("could not read multi-turn examples: %w", err)
	}

	records, rejected := ToTrainingRecords(single, multi, opts.SystemPrompt)
	if rejected > 0 {
		logger.Warn("rejected malformed examples", zap.Int("rejected", rejected))
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	train, validation := Split(records, opts.ValidationRatio, opts.Seed)

	p := &Prepared{
		TrainPath:       filepath.Join(opts.WorkDir, TrainFile),
		ValidationPath:  filepath.Join(opts.WorkDir, ValidationFile),
		TrainCount:      len(train),
		ValidationCount: len(validation),
		Rejected:        rejected,
	}
	if err := dataset.WriteJSONL(p.TrainPath, train); err != nil {
		return nil, fmt.Errorf("could not write training file: %w", err)
	}
	if err := dataset.WriteJSONL(p.ValidationPath, validation); err != nil {
		return nil, fmt.Errorf("could not write validation file: %w", err)
	}

	logger.Info("prepared training files",
		zap.Int("single_turn", len(single)),
		zap.Int("multi_turn", len(multi)),
		zap.Int("train", p.TrainCount),
		zap.Int("validation", p.ValidationCount),
		zap.String("work_dir", opts.WorkDir),
	)
	return p, nil
}

// ToTrainingRecords converts examples to chat records, single-turn first.
// Records that fail validation are counted and dropped.
func ToTrainingRecords(single []dataset.SingleTurnExample, multi []dataset.MultiTurnExample, system string) ([]llm.TrainingRecord, int) {
	records := make([]llm.TrainingRecord, 0, len(single)+len(multi))
	rejected := 0

	add := func(msgs []llm.Message) {
		if validate(msgs) != nil {
			rejected++
			return
		}
		if system != "" {
			msgs = append([]llm.Message{{Role: llm.RoleSystem, Content: system}}, msgs...)
		}
		records = append(records, llm.TrainingRecord{Messages: msgs})
	}

	for i := range single {
		add(single[i].Messages())
	}
	for i := range multi {
		add(append([]llm.Message(nil), multi[i].Messages...))
	}
	return records, rejected
}

func validate(msgs []llm.Message) error {
	if len(msgs) < 2 {
		return errors.New("needs at least one exchange")
	}
	for i, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("message %d is empty", i)
		}
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant:
		default:
			return fmt.Errorf("message %d has role %q", i, m.Role)
		}
		if i > 0 && msgs[i-1].Role == m.Role {
			return fmt.Errorf("messages %d and %d are both from the %s", i-1, i, m.Role)
		}
	}
	if msgs[0].Role != llm.RoleUser {
		return errors.New("first message is not from the user")
	}
	if msgs[len(msgs)-1].Role != llm.RoleAssistant {
		return errors.New("last message is not from the assistant")
	}
	return nil
}

// Split shuffles records with seed and moves ratio of them into the
// validation set. Validation is empty when ratio is zero or there are fewer
// than two records, and training always keeps at least one record.
func Split(records []llm.TrainingRecord, ratio float64, seed uint64) ([]llm.TrainingRecord, []llm.TrainingRecord) {
	shuffled := append([]llm.TrainingRecord(nil), records...)
	rng := rand.New(rand.NewPCG(seed, 0))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if ratio <= 0 || len(shuffled) < 2 {
		return shuffled, nil
	}

	n := int(math.Round(float64(len(shuffled)) * ratio))
	n = min(max(n, 1), len(shuffled)-1)
	return shuffled[n:], shuffled[:n]
}
