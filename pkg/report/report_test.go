package report_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recipetune/pkg/constraint"
	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/llm"
	"github.com/papercomputeco/recipetune/pkg/report"
)

var _ = Describe("Report", func() {
	var (
		single []dataset.SingleTurnExample
		multi  []dataset.MultiTurnExample
	)

	BeforeEach(func() {
		var c constraint.Constraints
		c.SetMax(constraint.Calories, 400)
		c.Diet = []string{"vegan"}

		single = []dataset.SingleTurnExample{
			{Instruction: "Find three vegan lunches.", Constraints: c, EvidenceIDs: []int64{1, 2, 3}, Template: "quick-diet-lunch"},
			{Instruction: "Find three vegan lunches.", Constraints: c, EvidenceIDs: []int64{4}, Template: "quick-diet-lunch"},
			{Instruction: "Find three desserts.", EvidenceIDs: []int64{5, 6}, Template: "light-dessert"},
		}
		multi = []dataset.MultiTurnExample{
			{Messages: []llm.Message{
				{Role: llm.RoleUser, Content: "I want to make soup."},
				{Role: llm.RoleAssistant, Content: "Any concerns?"},
				{Role: llm.RoleUser, Content: "Low sodium."},
				{Role: llm.RoleAssistant, Content: "1) Broth"},
			}, EvidenceIDs: []int64{9}},
		}
	})

	It("counts templates, constraint keys and openings", func() {
		s := report.SummarizeSingleTurn(single)
		Expect(s.Count).To(Equal(3))
		Expect(s.Templates).To(Equal(map[string]int{"quick-diet-lunch": 2, "light-dessert": 1}))
		Expect(s.ConstraintKeys).To(Equal(map[string]int{"diet": 2, "max_calories": 2}))
		Expect(s.DistinctOpens).To(Equal(2))
		Expect(s.Turns).To(Equal(map[int]int{2: 3}))
	})

	It("counts conversation length", func() {
		s := report.SummarizeMultiTurn(multi)
		Expect(s.Turns).To(Equal(map[int]int{4: 1}))
		Expect(s.Templates).To(HaveKey("(untagged)"))
	})

	It("renders markdown with the most frequent template first", func() {
		md := report.Markdown(nil, []report.Summary{report.SummarizeSingleTurn(single), report.SummarizeMultiTurn(multi)})

		Expect(md).To(ContainSubstring("No manifest"))
		Expect(md).To(ContainSubstring("## single_turn"))
		Expect(md).To(ContainSubstring("## multi_turn"))
		Expect(md).To(ContainSubstring("| quick-diet-lunch | 2 | 66.7% |"))
		Expect(md).To(ContainSubstring("- Recipes per answer: 2.00"))
	})

	It("renders manifest details", func() {
		m := &dataset.Manifest{
			RunID:     "run-1",
			Seed:      42,
			Recipes:   "data/pp_recipes.csv",
			Artifacts: []dataset.Artifact{{Variant: dataset.SingleTurn, Requested: 10, Generated: 3, SHA256: "0123456789abcdef"}},
		}
		md := report.Markdown(m, nil)
		Expect(md).To(ContainSubstring("Run `run-1`, seed 42"))
		Expect(md).To(ContainSubstring("| single_turn | 10 | 3 | `0123456789ab` |"))
	})
})
