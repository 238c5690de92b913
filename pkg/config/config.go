// Package config loads recipetune.toml and the .env file holding API keys.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	// DefaultPath is read when no config file is named.
	DefaultPath = "recipetune.toml"

	// APIKeyEnv holds the fine-tuning API key.
	APIKeyEnv = "OPENAI_API_KEY"

	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultModel        = "gpt-4o-mini-2024-07-18"
	DefaultSystemPrompt = "You are a recipe assistant. Recommend recipes from the HUMMUS dataset that satisfy every constraint in the request, and report the nutrient values the request mentions."
)

// Config is the full recipetune configuration.
type Config struct {
	Data     Data     `toml:"data"`
	Generate Generate `toml:"generate"`
	FineTune FineTune `toml:"finetune"`
	Server   Server   `toml:"server"`
}

// Data locates files on disk.
type Data struct {
	Recipes      string `toml:"recipes"`
	ArtifactsDir string `toml:"artifacts_dir"`
	IndexPath    string `toml:"index_path"`
}

// Generate configures data generation.
type Generate struct {
	SingleTurnCount   int    `toml:"single_turn_count"`
	MultiTurnCount    int    `toml:"multi_turn_count"`
	ResultsPerExample int    `toml:"results_per_example"`
	Seed              uint64 `toml:"seed"`
	Index             bool   `toml:"index"`
}

// FineTune configures preparation and the remote job.
type FineTune struct {
	WorkDir         string        `toml:"work_dir"`
	BaseURL         string        `toml:"base_url"`
	Model           string        `toml:"model"`
	Suffix          string        `toml:"suffix"`
	SystemPrompt    string        `toml:"system_prompt"`
	ValidationRatio float64       `toml:"validation_ratio"`
	Seed            uint64        `toml:"seed"`
	PollInterval    time.Duration `toml:"poll_interval"`
	DryRun          bool          `toml:"dry_run"`

	// Zero leaves the hyperparameter to the provider.
	Epochs                 int     `toml:"epochs"`
	BatchSize              int     `toml:"batch_size"`
	LearningRateMultiplier float64 `toml:"learning_rate_multiplier"`
}

// Server configures the example browser.
type Server struct {
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Data: Data{
			Recipes:      "data/pp_recipes.csv",
			ArtifactsDir: "data",
			IndexPath:    "data/examples.db",
		},
		Generate: Generate{
			SingleTurnCount:   1000,
			MultiTurnCount:    1000,
			ResultsPerExample: 3,
			Seed:              42,
		},
		FineTune: FineTune{
			WorkDir:         "finetune",
			BaseURL:         DefaultBaseURL,
			Model:           DefaultModel,
			Suffix:          "recipetune",
			SystemPrompt:    DefaultSystemPrompt,
			ValidationRatio: 0.1,
			Seed:            42,
			PollInterval:    30 * time.Second,
		},
		Server: Server{
			ListenAddr: ":8080",
		},
	}
}

// Load returns the defaults overlaid with the file at path. An empty path
// reads DefaultPath when it exists; a named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("could not load config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	var errs []error
	if c.Data.ArtifactsDir == "" {
		errs = append(errs, errors.New("data.artifacts_dir must be set"))
	}
	if c.Generate.SingleTurnCount < 0 {
		errs = append(errs, fmt.Errorf("generate.single_turn_count must be >= 0, got %d", c.Generate.SingleTurnCount))
	}
	if c.Generate.MultiTurnCount < 0 {
		errs = append(errs, fmt.Errorf("generate.multi_turn_count must be >= 0, got %d", c.Generate.MultiTurnCount))
	}
	if c.Generate.ResultsPerExample < 1 {
		errs = append(errs, fmt.Errorf("generate.results_per_example must be >= 1, got %d", c.Generate.ResultsPerExample))
	}
	if c.FineTune.ValidationRatio < 0 || c.FineTune.ValidationRatio >= 1 {
		errs = append(errs, fmt.Errorf("finetune.validation_ratio must be in [0, 1), got %g", c.FineTune.ValidationRatio))
	}
	if c.FineTune.Epochs < 0 || c.FineTune.BatchSize < 0 || c.FineTune.LearningRateMultiplier < 0 {
		errs = append(errs, errors.New("finetune hyperparameters must not be negative"))
	}
	if c.FineTune.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("finetune.poll_interval must be positive, got %s", c.FineTune.PollInterval))
	}
	if c.FineTune.Model == "" {
		errs = append(errs, errors.New("finetune.model must be set"))
	}
	return errors.Join(errs...)
}

// LoadDotEnv loads environment variables from path. Missing files are ignored
// and variables already set are kept.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// APIKey returns the fine-tuning API key from the environment.
func APIKey() string {
	return os.Getenv(APIKeyEnv)
}
