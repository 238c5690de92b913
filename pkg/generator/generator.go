// Package generator turns recipe rows into conversational fine-tuning
// examples by instantiating request templates and answering them from the
// rows each template's filter selects.
package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/constraint"
	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/llm"
	"github.com/papercomputeco/recipetune/pkg/recipe"
)

const (
	// DefaultResultsPerExample is how many recipes an answer lists at most.
	DefaultResultsPerExample = 3

	singleTurnAttemptFactor = 5
	multiTurnAttemptFactor  = 8
)

// Random stream ids. Each variant draws from its own stream so the variants
// can run concurrently without changing each other's output.
const (
	singleTurnStream uint64 = iota + 1
	multiTurnStream
)

// Options configure a Generator.
type Options struct {
	Seed              uint64
	ResultsPerExample int
}

// Generator produces examples over a fixed, read-only recipe slice.
// It is safe for concurrent use.
type Generator struct {
	recipes []recipe.Recipe
	parser  *constraint.Parser
	opts    Options
	logger  *zap.Logger
}

// New returns a Generator over recipes.
func New(recipes []recipe.Recipe, parser *constraint.Parser, opts Options, logger *zap.Logger) *Generator {
	if opts.ResultsPerExample <= 0 {
		opts.ResultsPerExample = DefaultResultsPerExample
	}
	if parser == nil {
		parser = constraint.NewParser(nil)
	}
	return &Generator{
		recipes: recipes,
		parser:  parser,
		opts:    opts,
		logger:  logger,
	}
}

func (g *Generator) rng(stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(g.opts.Seed, stream))
}

// SingleTurn generates up to n instruction examples. It gives up after 5n
// template draws; a shortfall is logged, not returned as an error.
func (g *Generator) SingleTurn(ctx context.Context, n int) ([]dataset.SingleTurnExample, error) {
	rng := g.rng(singleTurnStream)
	count := numWord(g.opts.ResultsPerExample)

	examples := make([]dataset.SingleTurnExample, 0, max(n, 0))
	attempts := 0
	for len(examples) < n && attempts < n*singleTurnAttemptFactor {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts++

		tmpl := pick(rng, singleTemplates)
		instruction, pred := tmpl.build(rng, count)
		matches := recipe.Match(g.recipes, pred)
		if len(matches) == 0 {
			continue
		}

		c := g.parser.Parse(instruction)
		selected := g.sample(rng, matches)
		examples = append(examples, dataset.SingleTurnExample{
			Instruction: instruction,
			Output:      formatAnswer(selected, c, true),
			Constraints: c,
			EvidenceIDs: evidenceIDs(selected),
			Template:    tmpl.name,
		})
	}

	g.report(dataset.SingleTurn, n, len(examples), attempts)
	return examples, nil
}

// MultiTurn generates up to n chat examples. It gives up after 8n template
// draws.
func (g *Generator) MultiTurn(ctx context.Context, n int) ([]dataset.MultiTurnExample, error) {
	rng := g.rng(multiTurnStream)

	examples := make([]dataset.MultiTurnExample, 0, max(n, 0))
	attempts := 0
	for len(examples) < n && attempts < n*multiTurnAttemptFactor {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempts++

		tmpl := pick(rng, multiTemplates)
		conversation, pred := tmpl.build(rng)
		matches := recipe.Match(g.recipes, pred)
		if len(matches) == 0 {
			continue
		}

		c := g.parser.ParseConversation(conversation)
		selected := g.sample(rng, matches)

		messages := make([]llm.Message, 0, len(conversation)+1)
		for i, content := range conversation {
			role := llm.RoleUser
			if i%2 == 1 {
				role = llm.RoleAssistant
			}
			messages = append(messages, llm.Message{Role: role, Content: content})
		}
		messages = append(messages, llm.Message{
			Role:    llm.RoleAssistant,
			Content: formatAnswer(selected, c, false),
		})

		examples = append(examples, dataset.MultiTurnExample{
			Messages:    messages,
			Constraints: c,
			EvidenceIDs: evidenceIDs(selected),
			Template:    tmpl.name,
		})
	}

	g.report(dataset.MultiTurn, n, len(examples), attempts)
	return examples, nil
}

func (g *Generator) report(v dataset.Variant, requested, generated, attempts int) {
	if generated < requested {
		g.logger.Warn("could not generate all requested examples",
			zap.String("variant", string(v)),
			zap.Int("requested", requested),
			zap.Int("generated", generated),
			zap.Int("attempts", attempts),
		)
		return
	}
	g.logger.Info("generated examples",
		zap.String("variant", string(v)),
		zap.Int("generated", generated),
		zap.Int("attempts", attempts),
	)
}

// sample returns every match in dataset order when there are at most
// ResultsPerExample of them, and otherwise a uniform random sample of that
// size without replacement.
func (g *Generator) sample(rng *rand.Rand, matches []int) []*recipe.Recipe {
	k := g.opts.ResultsPerExample
	if len(matches) > k {
		idx := append([]int(nil), matches...)
		for i := 0; i < k; i++ {
			j := i + rng.IntN(len(idx)-i)
			idx[i], idx[j] = idx[j], idx[i]
		}
		matches = idx[:k]
	}

	out := make([]*recipe.Recipe, len(matches))
	for i, m := range matches {
		out[i] = &g.recipes[m]
	}
	return out
}

func evidenceIDs(rs []*recipe.Recipe) []int64 {
	ids := make([]int64, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

// formatAnswer lists the recipes with the nutrient values the constraints
// mention. Fat is only reported in instruction examples.
func formatAnswer(rs []*recipe.Recipe, c constraint.Constraints, withFat bool) string {
	items := make([]string, 0, len(rs))
	for i, r := range rs {
		parts := []string{fmt.Sprintf("%d) %s", i+1, r.Title)}

		if c.Bounds(constraint.Calories) {
			parts = append(parts, fmt.Sprintf("%.1f kcal", r.Calories))
		}
		if c.Bounds(constraint.Protein) {
			parts = append(parts, fmt.Sprintf("%.1f g protein", r.Protein))
		}
		if c.Bounds(constraint.Sodium) {
			parts = append(parts, fmt.Sprintf("%.1f mg sodium", r.Sodium))
		}
		if c.Bounds(constraint.Carbs) {
			parts = append(parts, fmt.Sprintf("%.1f g carbs", r.Carbohydrates))
		}
		if c.Bounds(constraint.Sugar) {
			parts = append(parts, fmt.Sprintf("%.1f g sugar", r.Sugars))
		}
		if withFat && c.Bounds(constraint.Fat) {
			parts = append(parts, fmt.Sprintf("%.1f g fat", r.Fat))
		}
		if c.MaxDuration != nil && !math.IsNaN(r.Duration) {
			parts = append(parts, fmt.Sprintf("%d min", int(r.Duration)))
		}

		items = append(items, strings.Join(parts, "—"))
	}
	return strings.Join(items, "; ")
}
