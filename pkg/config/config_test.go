package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recipetune/pkg/config"
)

var _ = Describe("Config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeFile := func(name, body string) string {
		path := filepath.Join(tmpDir, name)
		Expect(os.WriteFile(path, []byte(body), 0o644)).To(Succeed())
		return path
	}

	It("has valid defaults", func() {
		cfg := config.Default()
		Expect(cfg.Validate()).To(Succeed())
		Expect(cfg.Generate.SingleTurnCount).To(Equal(1000))
		Expect(cfg.Generate.MultiTurnCount).To(Equal(1000))
		Expect(cfg.Data.Recipes).To(Equal("data/pp_recipes.csv"))
		Expect(cfg.FineTune.ValidationRatio).To(BeNumerically("~", 0.1))
	})

	It("overlays file values on the defaults", func() {
		path := writeFile("recipetune.toml", `
[generate]
single_turn_count = 50
seed = 7

[finetune]
model = "custom-base"
poll_interval = "5s"
epochs = 3
`)
		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Generate.SingleTurnCount).To(Equal(50))
		Expect(cfg.Generate.MultiTurnCount).To(Equal(1000))
		Expect(cfg.Generate.Seed).To(Equal(uint64(7)))
		Expect(cfg.FineTune.Model).To(Equal("custom-base"))
		Expect(cfg.FineTune.PollInterval).To(Equal(5 * time.Second))
		Expect(cfg.FineTune.Epochs).To(Equal(3))
		Expect(cfg.Data.ArtifactsDir).To(Equal("data"))
	})

	It("rejects unknown keys", func() {
		path := writeFile("recipetune.toml", "[generate]\nsingle_turns = 5\n")
		_, err := config.Load(path)
		Expect(err).To(MatchError(ContainSubstring("generate.single_turns")))
	})

	It("requires a named file to exist", func() {
		_, err := config.Load(filepath.Join(tmpDir, "missing.toml"))
		Expect(err).To(HaveOccurred())
	})

	It("validates counts and ratios", func() {
		cfg := config.Default()
		cfg.Generate.SingleTurnCount = -1
		cfg.FineTune.ValidationRatio = 1
		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("single_turn_count")))
		Expect(err).To(MatchError(ContainSubstring("validation_ratio")))
	})

	It("accepts zero counts", func() {
		cfg := config.Default()
		cfg.Generate.SingleTurnCount = 0
		cfg.Generate.MultiTurnCount = 0
		Expect(cfg.Validate()).To(Succeed())
	})

	Describe("LoadDotEnv", func() {
		AfterEach(func() {
			os.Unsetenv("RECIPETUNE_TEST_KEY")
		})

		It("ignores a missing file", func() {
			Expect(config.LoadDotEnv(filepath.Join(tmpDir, ".env"))).To(Succeed())
		})

		It("loads variables from the file", func() {
			path := writeFile(".env", "RECIPETUNE_TEST_KEY=from-dotenv\n")
			Expect(config.LoadDotEnv(path)).To(Succeed())
			Expect(os.Getenv("RECIPETUNE_TEST_KEY")).To(Equal("from-dotenv"))
		})
	})
})
