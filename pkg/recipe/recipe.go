// Package recipe loads HUMMUS recipe rows and provides the row-level predicates
// that the example templates are built from.
package recipe

import (
	"regexp"
	"strings"
)

// Recipe is a single row of the HUMMUS recipe CSV. Numeric fields that were
// missing or unparsable hold NaN, so every comparison against them is false.
type Recipe struct {
	ID            int64
	Title         string
	Tags          string
	Calories      float64 // kcal
	Protein       float64 // g
	Sodium        float64 // mg
	Carbohydrates float64 // g
	Sugars        float64 // g
	Fat           float64 // g
	SaturatedFat  float64 // g
	Duration      float64 // minutes
	AverageRating float64
	Serves        string
}

// HasTag reports whether tag occurs in the recipe's tags, ignoring case.
func (r *Recipe) HasTag(tag string) bool {
	if r.Tags == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.Tags), strings.ToLower(tag))
}

// ServesMatch reports whether the serves column matches re.
func (r *Recipe) ServesMatch(re *regexp.Regexp) bool {
	if r.Serves == "" {
		return false
	}
	return re.MatchString(r.Serves)
}

// Predicate selects recipes.
type Predicate func(r *Recipe) bool

// Filter returns the recipes satisfying pred, in dataset order.
func Filter(recipes []Recipe, pred Predicate) []Recipe {
	var out []Recipe
	for i := range recipes {
		if pred(&recipes[i]) {
			out = append(out, recipes[i])
		}
	}
	return out
}

// Match returns the indices of the recipes satisfying pred, in dataset order.
func Match(recipes []Recipe, pred Predicate) []int {
	var out []int
	for i := range recipes {
		if pred(&recipes[i]) {
			out = append(out, i)
		}
	}
	return out
}
