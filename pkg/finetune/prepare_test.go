package finetune_test

import (
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/finetune"
	"github.com/papercomputeco/recipetune/pkg/llm"
)

func conversation(answer string) dataset.MultiTurnExample {
	return dataset.MultiTurnExample{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "I need breakfast ideas."},
			{Role: llm.RoleAssistant, Content: "What's your time constraint and protein goal?"},
			{Role: llm.RoleUser, Content: "Under 15 minutes, at least 20g."},
			{Role: llm.RoleAssistant, Content: answer},
		},
	}
}

func records(n int) []llm.TrainingRecord {
	out := make([]llm.TrainingRecord, n)
	for i := range out {
		out[i] = llm.TrainingRecord{Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf("q%d", i)},
			{Role: llm.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
		}}
	}
	return out
}

var _ = Describe("ToTrainingRecords", func() {
	It("turns instructions into a user/assistant exchange behind the system prompt", func() {
		single := []dataset.SingleTurnExample{{Instruction: "Find one dessert.", Output: "1) Sorbet"}}

		recs, rejected := finetune.ToTrainingRecords(single, nil, "Be brief.")
		Expect(rejected).To(Equal(0))
		Expect(recs).To(HaveLen(1))
		Expect(recs[0].Messages).To(Equal([]llm.Message{
			{Role: llm.RoleSystem, Content: "Be brief."},
			{Role: llm.RoleUser, Content: "Find one dessert."},
			{Role: llm.RoleAssistant, Content: "1) Sorbet"},
		}))
	})

	It("keeps conversations as they are without a system prompt", func() {
		recs, rejected := finetune.ToTrainingRecords(nil, []dataset.MultiTurnExample{conversation("1) Oats")}, "")
		Expect(rejected).To(Equal(0))
		Expect(recs[0].Messages).To(HaveLen(4))
		Expect(recs[0].Messages[0].Role).To(Equal(llm.RoleUser))
	})

	It("rejects empty answers and conversations ending with the user", func() {
		unfinished := conversation("x")
		unfinished.Messages = unfinished.Messages[:3]

		recs, rejected := finetune.ToTrainingRecords(
			[]dataset.SingleTurnExample{{Instruction: "Find soup.", Output: "  "}},
			[]dataset.MultiTurnExample{unfinished, conversation("1) Eggs")},
			"",
		)
		Expect(rejected).To(Equal(2))
		Expect(recs).To(HaveLen(1))
	})

	It("rejects consecutive messages from the same role", func() {
		repeated := dataset.MultiTurnExample{Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Show me chicken recipes."},
			{Role: llm.RoleUser, Content: "Something quick."},
			{Role: llm.RoleAssistant, Content: "1) Chicken Salad"},
		}}

		recs, rejected := finetune.ToTrainingRecords(nil, []dataset.MultiTurnExample{repeated, conversation("1) Eggs")}, "")
		Expect(rejected).To(Equal(1))
		Expect(recs).To(HaveLen(1))
	})
})

var _ = Describe("Split", func() {
	It("holds out the requested share", func() {
		train, val := finetune.Split(records(10), 0.1, 1)
		Expect(train).To(HaveLen(9))
		Expect(val).To(HaveLen(1))
	})

	It("keeps everything for training with a zero ratio or a single record", func() {
		train, val := finetune.Split(records(10), 0, 1)
		Expect(train).To(HaveLen(10))
		Expect(val).To(BeEmpty())

		train, val = finetune.Split(records(1), 0.5, 1)
		Expect(train).To(HaveLen(1))
		Expect(val).To(BeEmpty())
	})

	It("always leaves at least one training record", func() {
		train, val := finetune.Split(records(2), 0.9, 1)
		Expect(train).To(HaveLen(1))
		Expect(val).To(HaveLen(1))
	})

	It("shuffles deterministically", func() {
		a, _ := finetune.Split(records(20), 0.2, 5)
		b, _ := finetune.Split(records(20), 0.2, 5)
		Expect(a).To(Equal(b))
	})
})

var _ = Describe("Prepare", func() {
	var (
		tmpDir string
		layout dataset.Layout
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		layout = dataset.Layout{Dir: filepath.Join(tmpDir, "data")}
	})

	It("prepares tracked artifacts without touching a recipe CSV", func() {
		single := make([]dataset.SingleTurnExample, 6)
		for i := range single {
			single[i] = dataset.SingleTurnExample{Instruction: fmt.Sprintf("Find dish %d.", i), Output: "1) Dish"}
		}
		multi := []dataset.MultiTurnExample{conversation("1) Oats"), conversation("1) Eggs"), conversation("1) Toast"), conversation("1) Bagel")}
		Expect(dataset.WriteJSONL(layout.Path(dataset.SingleTurn), single)).To(Succeed())
		Expect(dataset.WriteJSONL(layout.Path(dataset.MultiTurn), multi)).To(Succeed())

		h, err := dataset.Resolve(layout, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		workDir := filepath.Join(tmpDir, "work")
		p, err := finetune.Prepare(h, finetune.PrepareOptions{WorkDir: workDir, ValidationRatio: 0.2, Seed: 3}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p.TrainCount).To(Equal(8))
		Expect(p.ValidationCount).To(Equal(2))

		train, err := dataset.ReadJSONL[llm.TrainingRecord](p.TrainPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(train).To(HaveLen(8))

		n, err := dataset.CountRecords(filepath.Join(workDir, finetune.ValidationFile))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})

	It("fails when no example is usable", func() {
		Expect(dataset.WriteJSONL[dataset.SingleTurnExample](layout.Path(dataset.SingleTurn), nil)).To(Succeed())
		Expect(os.WriteFile(layout.Path(dataset.MultiTurn), nil, 0o644)).To(Succeed())

		h, err := dataset.Resolve(layout, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())

		_, err = finetune.Prepare(h, finetune.PrepareOptions{WorkDir: tmpDir}, zap.NewNop())
		Expect(err).To(MatchError(finetune.ErrNoRecords))
	})
})
