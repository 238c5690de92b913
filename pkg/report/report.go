// Package report summarizes generated artifacts as markdown.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/papercomputeco/recipetune/pkg/constraint"
	"github.com/papercomputeco/recipetune/pkg/dataset"
)

// Summary describes one artifact.
type Summary struct {
	Variant        dataset.Variant
	Count          int
	Templates      map[string]int
	ConstraintKeys map[string]int
	Turns          map[int]int
	DistinctOpens  int
	Evidence       int
}

func newSummary(v dataset.Variant) Summary {
	return Summary{
		Variant:        v,
		Templates:      make(map[string]int),
		ConstraintKeys: make(map[string]int),
		Turns:          make(map[int]int),
	}
}

func (s *Summary) add(template string, c constraint.Constraints, turns int, evidence int) {
	s.Count++
	if template == "" {
		template = "(untagged)"
	}
	s.Templates[template]++
	for _, k := range c.Keys() {
		s.ConstraintKeys[k]++
	}
	s.Turns[turns]++
	s.Evidence += evidence
}

// SummarizeSingleTurn summarizes instruction examples.
func SummarizeSingleTurn(examples []dataset.SingleTurnExample) Summary {
	s := newSummary(dataset.SingleTurn)
	opens := make(map[string]struct{})
	for i := range examples {
		ex := &examples[i]
		s.add(ex.Template, ex.Constraints, 2, len(ex.EvidenceIDs))
		opens[ex.Instruction] = struct{}{}
	}
	s.DistinctOpens = len(opens)
	return s
}

// SummarizeMultiTurn summarizes chat examples. Conversations are grouped by
// their opening user message.
func SummarizeMultiTurn(examples []dataset.MultiTurnExample) Summary {
	s := newSummary(dataset.MultiTurn)
	opens := make(map[string]struct{})
	for i := range examples {
		ex := &examples[i]
		s.add(ex.Template, ex.Constraints, len(ex.Messages), len(ex.EvidenceIDs))
		if len(ex.Messages) > 0 {
			opens[ex.Messages[0].Content] = struct{}{}
		}
	}
	s.DistinctOpens = len(opens)
	return s
}

// Markdown renders the manifest (if any) and summaries.
func Markdown(m *dataset.Manifest, summaries []Summary) string {
	var b strings.Builder
	b.WriteString("# Artifacts\n\n")

	if m != nil {
		fmt.Fprintf(&b, "Run `%s`, seed %d, from `%s` at %s.\n\n", m.RunID, m.Seed, m.Recipes, m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		b.WriteString("| Variant | Requested | Generated | SHA-256 |\n|---|---:|---:|---|\n")
		for _, a := range m.Artifacts {
			fmt.Fprintf(&b, "| %s | %d | %d | `%s` |\n", a.Variant, a.Requested, a.Generated, short(a.SHA256))
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No manifest: artifacts are tracked files.\n\n")
	}

	for _, s := range summaries {
		fmt.Fprintf(&b, "## %s\n\n", s.Variant)
		fmt.Fprintf(&b, "- Examples: **%d**\n", s.Count)
		fmt.Fprintf(&b, "- Distinct openings: %d\n", s.DistinctOpens)
		if s.Count > 0 {
			fmt.Fprintf(&b, "- Recipes per answer: %.2f\n", float64(s.Evidence)/float64(s.Count))
		}
		b.WriteString("\n")

		if s.Count == 0 {
			continue
		}

		table(&b, "Template", s.Templates, s.Count)
		table(&b, "Constraint", s.ConstraintKeys, s.Count)

		b.WriteString("| Messages | Examples |\n|---:|---:|\n")
		turns := make([]int, 0, len(s.Turns))
		for t := range s.Turns {
			turns = append(turns, t)
		}
		sort.Ints(turns)
		for _, t := range turns {
			fmt.Fprintf(&b, "| %d | %d |\n", t, s.Turns[t])
		}
		b.WriteString("\n")
	}
	return b.String()
}

// table writes counts, most frequent first.
func table(b *strings.Builder, label string, counts map[string]int, total int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	fmt.Fprintf(b, "| %s | Examples | Share |\n|---|---:|---:|\n", label)
	for _, k := range keys {
		fmt.Fprintf(b, "| %s | %d | %.1f%% |\n", k, counts[k], 100*float64(counts[k])/float64(total))
	}
	b.WriteString("\n")
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
