package generator

import (
	"fmt"
	"math/rand/v2"
	"regexp"

	"github.com/papercomputeco/recipetune/pkg/recipe"
)

var numToWord = map[int]string{1: "one", 2: "two", 3: "three", 4: "four", 5: "five"}

func numWord(n int) string {
	if w, ok := numToWord[n]; ok {
		return w
	}
	return fmt.Sprint(n)
}

var (
	dietTags = []string{"vegetarian", "gluten-free", "vegan", "low-carb"}
	mealTags = []string{"breakfast", "lunch", "dinner"}
)

type servesRange struct {
	display string
	pattern *regexp.Regexp
}

var servesRanges = []servesRange{
	{"4-6", regexp.MustCompile(`(?i)4-6|4|6`)},
	{"6-8", regexp.MustCompile(`(?i)6-8|6|8`)},
	{"8-10", regexp.MustCompile(`(?i)8-10|8|10`)},
	{"10-12", regexp.MustCompile(`(?i)10-12|10|12`)},
}

func pick[T any](rng *rand.Rand, options []T) T {
	return options[rng.IntN(len(options))]
}

func lowCalorieLimit(rng *rand.Rand) float64 {
	return pick(rng, []float64{250, 300, 350, 400})
}

func proteinMin(rng *rand.Rand) float64 {
	return pick(rng, []float64{15, 20, 25, 30})
}

func carbMax(rng *rand.Rand) float64 {
	return pick(rng, []float64{10, 15, 20, 30, 40, 50, 60})
}

func sodiumMax(rng *rand.Rand) float64 {
	return pick(rng, []float64{300, 400, 500, 600, 700})
}

func sugarMax(rng *rand.Rand) float64 {
	return pick(rng, []float64{10, 15, 20, 25})
}

func saturatedFatMax(rng *rand.Rand) float64 {
	return pick(rng, []float64{3, 5, 8})
}

func ratingMin(rng *rand.Rand) float64 {
	return pick(rng, []float64{3.0, 3.5, 4.0, 4.5})
}

func durationMax(rng *rand.Rand) float64 {
	return pick(rng, []float64{15, 20, 30, 45, 60, 75, 90, 120})
}

// intBetween returns an integer in [lo, hi].
func intBetween(rng *rand.Rand, lo, hi int) float64 {
	return float64(lo + rng.IntN(hi-lo+1))
}

// singleTemplate draws limits and returns an instruction with the predicate
// that answers it.
type singleTemplate struct {
	name  string
	build func(rng *rand.Rand, count string) (string, recipe.Predicate)
}

// multiTemplate draws limits and returns a user/assistant/user conversation
// with the predicate that answers it.
type multiTemplate struct {
	name  string
	build func(rng *rand.Rand) ([]string, recipe.Predicate)
}

var singleTemplates = []singleTemplate{
	{
		name: "quick-diet-lunch",
		build: func(rng *rand.Rand, count string) (string, recipe.Predicate) {
			tag := pick(rng, dietTags)
			cal, sod, dur := lowCalorieLimit(rng), sodiumMax(rng), durationMax(rng)
			instruction := fmt.Sprintf("Find %s quick %s lunches under %g kcal with less than %g mg sodium and under %g minutes.",
				count, tag, cal, sod, dur)
			return instruction, func(r *recipe.Recipe) bool {
				return r.HasTag(tag) && r.Calories < cal && r.Sodium < sod && r.Duration < dur
			}
		},
	},
	{
		name: "high-protein-meal",
		build: func(rng *rand.Rand, count string) (string, recipe.Predicate) {
			tag := pick(rng, mealTags)
			prot, dur := proteinMin(rng), durationMax(rng)
			instruction := fmt.Sprintf("Find %s high-protein %ss over %gg protein in under %g minutes.",
				count, tag, prot, dur)
			return instruction, func(r *recipe.Recipe) bool {
				return r.HasTag(tag) && r.Protein > prot && r.Duration < dur
			}
		},
	},
	{
		name: "low-carb-meal",
		build: func(rng *rand.Rand, count string) (string, recipe.Predicate) {
			tag := pick(rng, []string{"dinner", "lunch"})
			carb, prot := carbMax(rng), proteinMin(rng)
			instruction := fmt.Sprintf("Find %s low-carb %ss under %gg total carbohydrates with at least %gg protein.",
				count, tag, carb, prot)
			return instruction, func(r *recipe.Recipe) bool {
				return r.HasTag(tag) && r.Carbohydrates < carb && r.Protein >= prot
			}
		},
	},
	{
		name: "light-dessert",
		build: func(rng *rand.Rand, count string) (string, recipe.Predicate) {
			cal, sug, fat := lowCalorieLimit(rng), sugarMax(rng), saturatedFatMax(rng)
			instruction := fmt.Sprintf("Find %s desserts under %g kcal with less than %gg sugar and low saturated fat (under %gg).",
				count, cal, sug, fat)
			return instruction, func(r *recipe.Recipe) bool {
				return r.HasTag("dessert") && r.Calories < cal && r.Sugars < sug && r.SaturatedFat < fat
			}
		},
	},
	{
		name: "highly-rated-diet",
		build: func(rng *rand.Rand, count string) (string, recipe.Predicate) {
			tag := pick(rng, []string{"gluten-free", "vegetarian", "vegan"})
			rating, dur := ratingMin(rng), durationMax(rng)
			instruction := fmt.Sprintf("Find %s highly-rated %s recipes with at least %.1f stars and under %g minutes.",
				count, tag, rating, dur)
			return instruction, func(r *recipe.Recipe) bool {
				return r.HasTag(tag) && r.AverageRating >= rating && r.Duration < dur
			}
		},
	},
	{
		name: "serves-moderate-calories",
		build: func(rng *rand.Rand, count string) (string, recipe.Predicate) {
			tag := pick(rng, []string{"dinner", "family-friendly"})
			serves := pick(rng, servesRanges)
			calMin, calMax := intBetween(rng, 250, 350), intBetween(rng, 500, 650)
			instruction := fmt.Sprintf("Find %s %s recipes that serve %s people with moderate calories (between %g and %g kcal).",
				count, tag, serves.display, calMin, calMax)
			return instruction, func(r *recipe.Recipe) bool {
				return r.HasTag(tag) && r.ServesMatch(serves.pattern) && r.Calories < calMax && r.Calories > calMin
			}
		},
	},
}

var multiTemplates = []multiTemplate{
	{
		name: "diet-lunch-followup",
		build: func(rng *rand.Rand) ([]string, recipe.Predicate) {
			tag := pick(rng, dietTags)
			cal, sod, dur := lowCalorieLimit(rng), sodiumMax(rng), durationMax(rng)
			conversation := []string{
				fmt.Sprintf("Show %s lunch options.", tag),
				"Do you have any calorie or sodium preferences?",
				fmt.Sprintf("Under %g kcal and less than %g mg, please.", cal, sod),
			}
			return conversation, func(r *recipe.Recipe) bool {
				return r.HasTag(tag) && r.Calories < cal && r.Sodium < sod && r.Duration < dur
			}
		},
	},
	{
		name: "meal-time-protein",
		build: func(rng *rand.Rand) ([]string, recipe.Predicate) {
			tag := pick(rng, mealTags)
			prot, dur := proteinMin(rng), durationMax(rng)
			conversation := []string{
				fmt.Sprintf("I need %s ideas.", tag),
				"What's your time constraint and protein goal?",
				fmt.Sprintf("Under %g minutes, at least %gg.", dur, prot),
			}
			return conversation, func(r *recipe.Recipe) bool {
				return r.HasTag(tag) && r.Protein > prot && r.Duration < dur
			}
		},
	},
	{
		name: "low-carb-followup",
		build: func(rng *rand.Rand) ([]string, recipe.Predicate) {
			tag := pick(rng, []string{"dinner", "lunch"})
			carb, prot := carbMax(rng), proteinMin(rng)
			conversation := []string{
				fmt.Sprintf("Find %s ideas.", tag),
				"Are you looking for low-carb options?",
				fmt.Sprintf("Yes — under %gg carbs and at least %gg protein.", carb, prot),
			}
			return conversation, func(r *recipe.Recipe) bool {
				return r.HasTag(tag) && r.Carbohydrates < carb && r.Protein >= prot
			}
		},
	},
	{
		name: "dessert-preferences",
		build: func(rng *rand.Rand) ([]string, recipe.Predicate) {
			cal, sug, fat := lowCalorieLimit(rng), sugarMax(rng), saturatedFatMax(rng)
			conversation := []string{
				"What desserts do you recommend?",
				"Are you looking for low-calorie or low-sugar?",
				fmt.Sprintf("Low-calorie, under %g kcal, and low saturated fat (under %gg).", cal, fat),
			}
			return conversation, func(r *recipe.Recipe) bool {
				return r.HasTag("dessert") && r.Calories < cal && r.Sugars < sug && r.SaturatedFat < fat
			}
		},
	},
	{
		name: "quick-chicken",
		build: func(*rand.Rand) ([]string, recipe.Predicate) {
			conversation := []string{
				"Show me chicken recipes.",
				"Would you prefer grilled, baked, or any particular style?",
				"Something quick and low-carb, under 20g carbs.",
			}
			return conversation, func(r *recipe.Recipe) bool {
				return r.HasTag("chicken") && r.Carbohydrates < 20 && r.Duration < 30
			}
		},
	},
	{
		name: "vegetarian-soup",
		build: func(*rand.Rand) ([]string, recipe.Predicate) {
			conversation := []string{
				"I want to make soup.",
				"Any dietary restrictions or sodium concerns?",
				"Yes, low sodium under 400 mg and vegetarian.",
			}
			return conversation, func(r *recipe.Recipe) bool {
				return r.HasTag("soup") && r.HasTag("vegetarian") && r.Sodium < 400
			}
		},
	},
}
