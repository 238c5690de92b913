package constraint_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/recipetune/pkg/constraint"
)

// expectConstraints checks that every expected key is present with the
// expected value; lists only need to contain the expected items.
func expectConstraints(got constraint.Constraints, expected map[string]any) {
	GinkgoHelper()

	data, err := json.Marshal(got)
	Expect(err).NotTo(HaveOccurred())

	var actual map[string]any
	Expect(json.Unmarshal(data, &actual)).To(Succeed())

	for key, want := range expected {
		Expect(actual).To(HaveKey(key), "missing key %s in %s", key, string(data))

		switch w := want.(type) {
		case []string:
			for _, item := range w {
				Expect(actual[key]).To(ContainElement(item), "key %s", key)
			}
		case int:
			Expect(actual[key]).To(BeNumerically("==", w), "key %s", key)
		case float64:
			Expect(actual[key]).To(BeNumerically("~", w, 0.01), "key %s", key)
		default:
			Expect(actual[key]).To(Equal(want), "key %s", key)
		}
	}
}

var peanutSynonyms = []string{"arachis hypogaea", "peanut", "peanut vine", "peanuts"}

var _ = Describe("Parser", func() {
	var parser *constraint.Parser

	BeforeEach(func() {
		parser = constraint.NewParser(nil)
	})

	DescribeTable("single-turn requests",
		func(input string, expected map[string]any) {
			expectConstraints(parser.Parse(input), expected)
		},
		Entry("vegan dinners with calories and protein",
			"Find two vegan dinners under 450 kcal with at least 18 g protein.",
			map[string]any{"count": 2, "diet": []string{"vegan"}, "max_calories": 450.0, "min_protein": 18.0}),
		Entry("breakfast with protein, sugar and time",
			"I need breakfast with protein over 20g, sugar under 10g, in 15 minutes.",
			map[string]any{"min_protein": 20.0, "max_sugar": 10.0, "max_duration": 15.0}),
		Entry("low-carb meals with protein",
			"Give me low-carb meals under 30g carbohydrates with protein exceeding 20g.",
			map[string]any{"diet": []string{"low-carb"}, "max_carbs": 30.0, "min_protein": 20.0}),
		Entry("garbanzo beans",
			"Find recipes with garbanzo beans",
			map[string]any{"include_ingredients": []string{"chickpea", "garbanzo"}}),
		Entry("chickpeas without peanuts",
			"Show dishes containing chickpeas without peanuts",
			map[string]any{
				"include_ingredients": []string{"chickpea", "garbanzo"},
				"exclude_ingredients": peanutSynonyms,
			}),
		Entry("protein and calories",
			"Find meals with protein exceeding 30g and calories below 500",
			map[string]any{"min_protein": 30.0, "max_calories": 500.0}),
		Entry("protein but under calories",
			"I want something with at least 15g protein but under 300 calories",
			map[string]any{"min_protein": 15.0, "max_calories": 300.0}),
		Entry("vegan carbs and protein",
			"Find vegan options with no more than 25g carbs and at least 10g protein",
			map[string]any{"diet": []string{"vegan"}, "max_carbs": 25.0, "min_protein": 10.0}),
		Entry("vegetarian lunches with sodium",
			"Show me 3 vegetarian lunches under 400 kcal with less than 600 mg sodium.",
			map[string]any{"count": 3, "diet": []string{"vegetarian"}, "max_calories": 400.0, "max_sodium": 600.0}),
		Entry("high-protein quick breakfast",
			"I want high-protein breakfasts over 25g protein in under 20 minutes.",
			map[string]any{"min_protein": 25.0, "max_duration": 20.0}),
		Entry("desserts with calories and sugar",
			"Find desserts under 300 kcal with less than 20g sugar and low saturated fat.",
			map[string]any{"max_calories": 300.0, "max_sugar": 20.0}),
		Entry("dinners with a servings range",
			"Find dinners that serve 6-8 people with moderate calories.",
			map[string]any{"min_servings": 6, "max_servings": 8}),
		Entry("healthy soup without butter",
			"Find healthy soup recipes without butter, sodium less than 400mg.",
			map[string]any{
				"health_category":     []string{"healthy-2", "healthy"},
				"exclude_ingredients": []string{"butter"},
				"max_sodium":          400.0,
			}),
		Entry("quick pasta with chickpeas",
			"Show quick pasta options with chickpeas, under 450 kcal, vegetarian.",
			map[string]any{
				"include_ingredients": []string{"chickpea", "garbanzo"},
				"max_calories":        450.0,
				"diet":                []string{"vegetarian"},
			}),
		Entry("scallions and no peanuts",
			"I want meals with scallions and no peanuts, under 500 calories.",
			map[string]any{
				"include_ingredients": []string{"scallion", "green onion", "spring onion"},
				"exclude_ingredients": peanutSynonyms,
				"max_calories":        500.0,
			}),
	)

	DescribeTable("multi-turn conversations",
		func(conversation []string, expected map[string]any) {
			expectConstraints(parser.ParseConversation(conversation), expected)
		},
		Entry("pasta with calorie and diet preferences",
			[]string{"Show quick pasta options.", "Do you have calorie or diet preferences?", "<450 kcal, vegetarian."},
			map[string]any{"max_calories": 450.0, "diet": []string{"vegetarian"}}),
		Entry("breakfast with a bare protein goal",
			[]string{"I need breakfast ideas.", "What's your time constraint and protein goal?", "Under 15 minutes, at least 20g."},
			map[string]any{"max_duration": 15.0, "min_protein": 20.0}),
		Entry("desserts with a calorie preference",
			[]string{"What desserts do you recommend?", "Are you looking for something low-calorie or low-sugar?", "Low-calorie, under 200 kcal."},
			map[string]any{"max_calories": 200.0}),
		Entry("chicken with a style preference",
			[]string{"Show me chicken recipes.", "Would you prefer grilled, baked, or any specific style?", "Something quick and low-carb, under 20g carbs."},
			map[string]any{"max_duration": 30.0, "diet": []string{"low-carb"}, "max_carbs": 20.0, "include_ingredients": []string{"chicken"}}),
		Entry("soup with dietary restrictions",
			[]string{"I want to make soup.", "Any dietary restrictions or sodium concerns?", "Yes, low sodium under 400mg and vegetarian."},
			map[string]any{"max_sodium": 400.0, "diet": []string{"vegetarian"}}),
		Entry("party appetizer with servings",
			[]string{"I need a party appetizer.", "How many people are you serving?", "Around 10-12 people."},
			map[string]any{"min_servings": 10, "max_servings": 12}),
	)

	Describe("operator guards", func() {
		It("does not read 'no more than' as a lower bound", func() {
			c := parser.Parse("Find vegan options with no more than 25g carbs")

			_, hasMin := c.Min(constraint.Carbs)
			Expect(hasMin).To(BeFalse())
			max, hasMax := c.Max(constraint.Carbs)
			Expect(hasMax).To(BeTrue())
			Expect(max).To(BeNumerically("==", 25))
		})

		It("ignores bare quantities without a context nutrient", func() {
			c := parser.Parse("Under 15 minutes, at least 20g.")

			Expect(c.Bounds(constraint.Protein)).To(BeFalse())
			Expect(*c.MaxDuration).To(BeNumerically("==", 15))
		})

		It("lets an explicit time override quick", func() {
			c := parser.Parse("Something quick, ready in 10 minutes.")
			Expect(*c.MaxDuration).To(BeNumerically("==", 10))
		})
	})

	Describe("conversation merging", func() {
		It("unions lists and keeps the latest scalar", func() {
			c := parser.ParseConversation([]string{
				"Show vegan dinners under 500 kcal.",
				"Anything else?",
				"Make it gluten-free and under 400 kcal.",
			})

			Expect(c.Diet).To(Equal([]string{"gluten-free", "vegan"}))
			max, _ := c.Max(constraint.Calories)
			Expect(max).To(BeNumerically("==", 400))
		})

		It("ignores assistant turns", func() {
			c := parser.ParseConversation([]string{
				"Find soup ideas.",
				"Do you want vegan options with less than 300 kcal?",
				"No thanks.",
			})

			Expect(c.Diet).To(BeEmpty())
			Expect(c.Bounds(constraint.Calories)).To(BeFalse())
		})

		It("removes excluded ingredients from the include list", func() {
			c := parser.ParseConversation([]string{
				"Show me recipes with peanuts.",
				"Any allergies?",
				"Actually, without peanuts.",
			})

			Expect(c.ExcludeIngredients).To(ContainElement("peanut"))
			Expect(c.IncludeIngredients).NotTo(ContainElement("peanut"))
		})
	})
})

var _ = Describe("Constraints JSON", func() {
	It("encodes only mentioned keys as a flat object", func() {
		var c constraint.Constraints
		c.Count = 2
		c.SetMax(constraint.Calories, 450)
		c.Diet = []string{"vegan"}

		data, err := json.Marshal(c)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(MatchJSON(`{"count":2,"diet":["vegan"],"max_calories":450}`))
	})

	It("decodes the flat form back into bounds", func() {
		var c constraint.Constraints
		err := json.Unmarshal([]byte(`{"min_protein":18,"max_saturated_fat":5,"max_duration":30,"exclude_ingredients":["butter"]}`), &c)
		Expect(err).NotTo(HaveOccurred())

		min, ok := c.Min(constraint.Protein)
		Expect(ok).To(BeTrue())
		Expect(min).To(BeNumerically("==", 18))
		Expect(c.Bounds(constraint.SaturatedFat)).To(BeTrue())
		Expect(*c.MaxDuration).To(BeNumerically("==", 30))
		Expect(c.ExcludeIngredients).To(Equal([]string{"butter"}))
		Expect(c.Keys()).To(Equal([]string{"exclude_ingredients", "max_duration", "max_saturated_fat", "min_protein"}))
	})

	It("reports empty constraints", func() {
		var c constraint.Constraints
		Expect(c.Empty()).To(BeTrue())
	})
})

var _ = Describe("Lexicon", func() {
	It("expands plurals to every matching entry", func() {
		syn := constraint.DefaultLexicon().Synonyms("peanuts")
		for _, s := range peanutSynonyms {
			Expect(syn).To(HaveKey(s))
		}
	})

	It("knows multi-word foods through their last word", func() {
		syn := constraint.DefaultLexicon().Synonyms("garbanzo beans")
		Expect(syn).To(HaveKey("chickpea"))
		Expect(syn).To(HaveKey("garbanzo beans"))
	})

	It("rejects non-food words", func() {
		Expect(constraint.DefaultLexicon().IsFood("quickly")).To(BeFalse())
	})

	It("parses custom lexicons", func() {
		lex, err := constraint.ParseLexicon("[[entry]]\nlemmas = [\"Harissa\", \"chili paste\"]\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(lex.IsFood("harissa")).To(BeTrue())
		Expect(lex.Synonyms("harissa")).To(HaveKey("chili paste"))
	})
})
