package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/dataset"
	"github.com/papercomputeco/recipetune/pkg/finetune"
	"github.com/papercomputeco/recipetune/pkg/llm"
	"github.com/papercomputeco/recipetune/pkg/merkle"
	"github.com/papercomputeco/recipetune/pkg/pipeline"
	"github.com/papercomputeco/recipetune/pkg/recipe/recipetest"
)

// writeRecipes writes n recipes that half the templates can match.
func writeRecipes(path string, n int) {
	Expect(recipetest.WriteCSV(path, n)).To(Succeed())
}

// fakeJobAPI finishes every job on the first poll.
type fakeJobAPI struct {
	status  string
	uploads int
}

func (f *fakeJobAPI) UploadFile(_ context.Context, path string) (*llm.File, error) {
	f.uploads++
	return &llm.File{ID: fmt.Sprintf("file-%d", f.uploads), Filename: filepath.Base(path)}, nil
}

func (f *fakeJobAPI) CreateJob(_ context.Context, req llm.JobRequest) (*llm.Job, error) {
	return &llm.Job{ID: "ftjob-1", Model: req.Model, Status: llm.JobQueued}, nil
}

func (f *fakeJobAPI) GetJob(_ context.Context, id string) (*llm.Job, error) {
	job := &llm.Job{ID: id, Status: f.status}
	if f.status == llm.JobSucceeded {
		job.FineTunedModel = "ft:base:recipetune:1"
	} else {
		job.Error = &llm.JobError{Message: "boom"}
	}
	return job, nil
}

func (f *fakeJobAPI) ListEvents(context.Context, string) ([]llm.JobEvent, error) {
	return nil, nil
}

func (f *fakeJobAPI) CancelJob(_ context.Context, id string) (*llm.Job, error) {
	return &llm.Job{ID: id, Status: llm.JobCancelled}, nil
}

var _ = Describe("Pipeline", func() {
	var (
		ctx     context.Context
		tmpDir  string
		csvPath string
		layout  dataset.Layout
		logger  *zap.Logger
	)

	generateOpts := func(single, multi int) pipeline.GenerateOptions {
		return pipeline.GenerateOptions{
			Recipes:           csvPath,
			Layout:            layout,
			SingleTurnCount:   single,
			MultiTurnCount:    multi,
			ResultsPerExample: 3,
			Seed:              42,
		}
	}

	fineTuneOpts := func() pipeline.FineTuneOptions {
		return pipeline.FineTuneOptions{
			Layout: layout,
			Prepare: finetune.PrepareOptions{
				WorkDir:         filepath.Join(tmpDir, "work"),
				SystemPrompt:    "You recommend recipes.",
				ValidationRatio: 0.1,
				Seed:            1,
			},
			Train: finetune.TrainOptions{Model: "base", PollInterval: time.Millisecond},
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		csvPath = filepath.Join(tmpDir, "pp_recipes.csv")
		layout = dataset.Layout{Dir: filepath.Join(tmpDir, "data")}
		logger = zap.NewNop()
	})

	Describe("GeneratePhase", func() {
		BeforeEach(func() {
			writeRecipes(csvPath, 200)
		})

		It("writes at most N examples per variant and a verifiable manifest", func() {
			m, err := pipeline.GeneratePhase(ctx, generateOpts(20, 15), logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.RunID).NotTo(BeEmpty())

			single, err := dataset.CountRecords(layout.Path(dataset.SingleTurn))
			Expect(err).NotTo(HaveOccurred())
			Expect(single).To(BeNumerically("<=", 20))
			multi, err := dataset.CountRecords(layout.Path(dataset.MultiTurn))
			Expect(err).NotTo(HaveOccurred())
			Expect(multi).To(BeNumerically("<=", 15))

			a, ok := m.Artifact(dataset.SingleTurn)
			Expect(ok).To(BeTrue())
			Expect(a.Requested).To(Equal(20))
			Expect(a.Generated).To(Equal(single))

			h, err := dataset.Resolve(layout, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Provenance).To(Equal(dataset.ProvenanceGenerated))
		})

		It("grows monotonically with the requested count", func() {
			sizes := make([]int, 0, 3)
			for _, n := range []int{5, 10, 20} {
				m, err := pipeline.GeneratePhase(ctx, generateOpts(n, n), logger)
				Expect(err).NotTo(HaveOccurred())
				total := 0
				for _, a := range m.Artifacts {
					Expect(a.Generated).To(BeNumerically("<=", n))
					total += a.Generated
				}
				sizes = append(sizes, total)
			}
			Expect(sizes[1]).To(BeNumerically(">=", sizes[0]))
			Expect(sizes[2]).To(BeNumerically(">=", sizes[1]))
		})

		It("accepts zero counts", func() {
			m, err := pipeline.GeneratePhase(ctx, generateOpts(0, 0), logger)
			Expect(err).NotTo(HaveOccurred())
			for _, a := range m.Artifacts {
				Expect(a.Generated).To(Equal(0))
			}
		})

		It("indexes examples into a DAG when asked", func() {
			opts := generateOpts(10, 10)
			opts.IndexPath = filepath.Join(tmpDir, "examples.db")

			m, err := pipeline.GeneratePhase(ctx, opts, logger)
			Expect(err).NotTo(HaveOccurred())

			storer, err := merkle.NewSQLiteStorer(opts.IndexPath)
			Expect(err).NotTo(HaveOccurred())
			defer storer.Close()

			leaves, err := storer.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).NotTo(BeEmpty())

			generated := 0
			for _, a := range m.Artifacts {
				generated += a.Generated
			}
			Expect(len(leaves)).To(BeNumerically("<=", generated))
			for _, leaf := range leaves {
				Expect(leaf.Bucket.Role).To(Equal(llm.RoleAssistant))
				Expect(leaf.Bucket.Variant).NotTo(BeEmpty())
			}
		})

		It("names the missing CSV and leaves no manifest", func() {
			opts := generateOpts(5, 5)
			opts.Recipes = filepath.Join(tmpDir, "missing.csv")

			_, err := pipeline.GeneratePhase(ctx, opts, logger)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("missing.csv"))

			_, err = os.Stat(layout.ManifestPath())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
		It("leaves earlier artifacts untouched when generation fails", func() {
			stale := []dataset.SingleTurnExample{{Instruction: "Find stale soup.", Output: "1) Old Soup"}}
			Expect(dataset.WriteJSONL(layout.Path(dataset.SingleTurn), stale)).To(Succeed())
			before, err := dataset.HashFile(layout.Path(dataset.SingleTurn))
			Expect(err).NotTo(HaveOccurred())

			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err = pipeline.GeneratePhase(cancelled, generateOpts(5, 5), logger)
			Expect(err).To(MatchError(context.Canceled))

			after, err := dataset.HashFile(layout.Path(dataset.SingleTurn))
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))

			_, err = os.Stat(layout.Path(dataset.MultiTurn))
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
	})

	Describe("FineTunePhase", func() {
		writeTracked := func() {
			single := make([]dataset.SingleTurnExample, 10)
			for i := range single {
				single[i] = dataset.SingleTurnExample{Instruction: fmt.Sprintf("Find dish %d.", i), Output: "1) Dish"}
			}
			multi := []dataset.MultiTurnExample{{Messages: []llm.Message{
				{Role: llm.RoleUser, Content: "Show me chicken recipes."},
				{Role: llm.RoleAssistant, Content: "Any particular style?"},
				{Role: llm.RoleUser, Content: "Quick."},
				{Role: llm.RoleAssistant, Content: "1) Chicken Salad"},
			}}}
			Expect(dataset.WriteJSONL(layout.Path(dataset.SingleTurn), single)).To(Succeed())
			Expect(dataset.WriteJSONL(layout.Path(dataset.MultiTurn), multi)).To(Succeed())
		}

		It("completes a dry run from tracked artifacts without the CSV", func() {
			writeTracked()
			opts := fineTuneOpts()
			opts.DryRun = true

			artifact, err := pipeline.FineTunePhase(ctx, opts, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(artifact.Status).To(Equal(finetune.StatusPrepared))
			Expect(artifact.Provenance).To(Equal(dataset.ProvenanceTracked))
			Expect(artifact.TrainCount + artifact.ValidationCount).To(Equal(11))

			onDisk, err := finetune.ReadModelArtifact(opts.Prepare.WorkDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(onDisk.Status).To(Equal(finetune.StatusPrepared))
		})

		It("runs the remote job and records the fine-tuned model", func() {
			writeTracked()
			opts := fineTuneOpts()
			api := &fakeJobAPI{status: llm.JobSucceeded}
			opts.API = api

			artifact, err := pipeline.FineTunePhase(ctx, opts, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(artifact.FineTunedModel).To(Equal("ft:base:recipetune:1"))
			Expect(api.uploads).To(Equal(2))

			onDisk, err := finetune.ReadModelArtifact(opts.Prepare.WorkDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(onDisk.Status).To(Equal(llm.JobSucceeded))
		})

		It("still writes the model artifact for a failed job", func() {
			writeTracked()
			opts := fineTuneOpts()
			opts.API = &fakeJobAPI{status: llm.JobFailed}

			_, err := pipeline.FineTunePhase(ctx, opts, logger)
			Expect(err).To(MatchError(finetune.ErrJobFailed))

			onDisk, err := finetune.ReadModelArtifact(opts.Prepare.WorkDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(onDisk.Status).To(Equal(llm.JobFailed))
			Expect(onDisk.Error).To(Equal("boom"))
		})

		It("fails when an artifact is missing", func() {
			_, err := pipeline.FineTunePhase(ctx, fineTuneOpts(), logger)
			Expect(err).To(MatchError(dataset.ErrArtifactMissing))
		})

		It("consumes the output of GeneratePhase", func() {
			writeRecipes(csvPath, 200)
			_, err := pipeline.GeneratePhase(ctx, generateOpts(20, 20), logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Remove(csvPath)).To(Succeed())

			opts := fineTuneOpts()
			opts.DryRun = true
			artifact, err := pipeline.FineTunePhase(ctx, opts, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(artifact.Provenance).To(Equal(dataset.ProvenanceGenerated))
			Expect(artifact.RunID).NotTo(BeEmpty())
		})
	})
})
