package generator_test

import (
	"context"
	"fmt"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/recipetune/pkg/generator"
	"github.com/papercomputeco/recipetune/pkg/llm"
	"github.com/papercomputeco/recipetune/pkg/recipe"
)

const everyTag = "['vegetarian', 'vegan', 'gluten-free', 'low-carb', 'breakfast', 'lunch', 'dinner', 'dessert', 'family-friendly', 'chicken', 'soup']"

// matchAll returns recipes that satisfy every template for some draw.
func matchAll(n int) []recipe.Recipe {
	rs := make([]recipe.Recipe, n)
	for i := range rs {
		rs[i] = recipe.Recipe{
			ID:            int64(i + 1),
			Title:         fmt.Sprintf("Recipe %d", i+1),
			Tags:          everyTag,
			Calories:      float64(100 + i),
			Protein:       40,
			Sodium:        100,
			Carbohydrates: 5,
			Sugars:        2,
			Fat:           4,
			SaturatedFat:  1,
			Duration:      10,
			AverageRating: 5,
			Serves:        "4-6",
		}
	}
	return rs
}

var _ = Describe("Generator", func() {
	var (
		ctx     context.Context
		recipes []recipe.Recipe
		logger  *zap.Logger
	)

	newGenerator := func(seed uint64, rs []recipe.Recipe) *generator.Generator {
		return generator.New(rs, nil, generator.Options{Seed: seed}, logger)
	}

	BeforeEach(func() {
		ctx = context.Background()
		recipes = matchAll(600)
		logger = zap.NewNop()
	})

	Describe("SingleTurn", func() {
		It("generates the requested number of examples when every draw matches", func() {
			examples, err := newGenerator(7, recipes).SingleTurn(ctx, 40)
			Expect(err).NotTo(HaveOccurred())
			Expect(examples).To(HaveLen(40))

			for _, ex := range examples {
				Expect(ex.Instruction).To(HavePrefix("Find three "))
				Expect(ex.Input).To(BeEmpty())
				Expect(ex.Output).To(HavePrefix("1) Recipe "))
				Expect(ex.EvidenceIDs).To(HaveLen(generator.DefaultResultsPerExample))
				Expect(ex.Template).NotTo(BeEmpty())
			}
		})

		It("is a prefix of a larger run with the same seed", func() {
			small, err := newGenerator(11, recipes).SingleTurn(ctx, 15)
			Expect(err).NotTo(HaveOccurred())
			large, err := newGenerator(11, recipes).SingleTurn(ctx, 30)
			Expect(err).NotTo(HaveOccurred())

			Expect(len(large)).To(BeNumerically(">=", len(small)))
			Expect(large[:len(small)]).To(Equal(small))
		})

		It("is deterministic for a seed", func() {
			a, err := newGenerator(3, recipes).SingleTurn(ctx, 20)
			Expect(err).NotTo(HaveOccurred())
			b, err := newGenerator(3, recipes).SingleTurn(ctx, 20)
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(Equal(b))
		})

		It("never exceeds the requested count and stops when nothing matches", func() {
			examples, err := newGenerator(1, nil).SingleTurn(ctx, 25)
			Expect(err).NotTo(HaveOccurred())
			Expect(examples).To(BeEmpty())
		})

		It("returns nothing for a zero count", func() {
			examples, err := newGenerator(1, recipes).SingleTurn(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(examples).To(BeEmpty())
		})

		It("lists every match in dataset order when there are few", func() {
			few := matchAll(2)
			for i := range few {
				few[i].Calories = 320
			}
			examples, err := newGenerator(5, few).SingleTurn(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			for _, ex := range examples {
				Expect(ex.EvidenceIDs).To(Equal([]int64{1, 2}))
			}
		})

		It("stops when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := newGenerator(1, recipes).SingleTurn(cancelled, 10)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("MultiTurn", func() {
		It("alternates roles and ends with the assistant's answer", func() {
			examples, err := newGenerator(9, recipes).MultiTurn(ctx, 30)
			Expect(err).NotTo(HaveOccurred())
			Expect(examples).To(HaveLen(30))

			for _, ex := range examples {
				Expect(ex.Messages).To(HaveLen(4))
				for i, m := range ex.Messages {
					if i%2 == 0 {
						Expect(m.Role).To(Equal(llm.RoleUser))
					} else {
						Expect(m.Role).To(Equal(llm.RoleAssistant))
					}
					Expect(m.Content).NotTo(BeEmpty())
				}
				Expect(ex.Messages[3].Content).To(HavePrefix("1) Recipe "))
				Expect(ex.Messages[1].Content).NotTo(ContainSubstring("{"))
			}
		})

		It("is a prefix of a larger run with the same seed", func() {
			small, err := newGenerator(13, recipes).MultiTurn(ctx, 12)
			Expect(err).NotTo(HaveOccurred())
			large, err := newGenerator(13, recipes).MultiTurn(ctx, 24)
			Expect(err).NotTo(HaveOccurred())
			Expect(large[:len(small)]).To(Equal(small))
		})

		It("does not depend on single-turn generation", func() {
			g := newGenerator(21, recipes)
			before, err := g.MultiTurn(ctx, 10)
			Expect(err).NotTo(HaveOccurred())

			_, err = g.SingleTurn(ctx, 10)
			Expect(err).NotTo(HaveOccurred())

			after, err := g.MultiTurn(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))
		})

		It("answers the soup conversation from vegetarian soups only", func() {
			soups := matchAll(1)
			soups[0].Tags = "['soup', 'vegetarian']"
			soups[0].Sodium = 250
			soups[0].Calories = math.NaN()

			examples, err := newGenerator(2, soups).MultiTurn(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(examples)).To(BeNumerically("<=", 5))
			for _, ex := range examples {
				Expect(ex.Template).To(Equal("vegetarian-soup"))
				Expect(ex.Messages[3].Content).To(Equal("1) Recipe 1—250.0 mg sodium"))
			}
		})
	})
})
