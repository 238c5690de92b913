package pipeline

import (
	"context"
	"fmt"

	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/llm"
	"github.com/papercomputeco/recipetune/pkg/merkle"
)

// IndexExamples stores each example as a message chain and returns how many
// nodes were new. Identical prompts share nodes; each example's answer is a
// leaf carrying its template and evidence.
func IndexExamples(ctx context.Context, s merkle.Storer, single []dataset.SingleTurnExample, multi []dataset.MultiTurnExample) (int, error) {
	total := 0
	for i := range single {
		ex := &single[i]
		added, err := putExample(ctx, s, ex.Messages(), dataset.SingleTurn, ex.Template, ex.EvidenceIDs)
		if err != nil {
			return total, fmt.Errorf("could not index single-turn example %d: %w", i, err)
		}
		total += added
	}
	for i := range multi {
		ex := &multi[i]
		added, err := putExample(ctx, s, ex.Messages, dataset.MultiTurn, ex.Template, ex.EvidenceIDs)
		if err != nil {
			return total, fmt.Errorf("could not index multi-turn example %d: %w", i, err)
		}
		total += added
	}
	return total, nil
}

func putExample(ctx context.Context, s merkle.Storer, msgs []llm.Message, v dataset.Variant, template string, evidence []int64) (int, error) {
	buckets := make([]merkle.Bucket, len(msgs))
	for i, m := range msgs {
		buckets[i] = merkle.Bucket{Type: merkle.BucketTypeMessage, Role: m.Role, Content: m.Content}
	}
	if n := len(buckets); n > 0 {
		buckets[n-1].Variant = string(v)
		buckets[n-1].Template = template
		buckets[n-1].EvidenceIDs = evidence
	}
	_, added, err := merkle.PutChain(ctx, s, buckets)
	return added, err
}
