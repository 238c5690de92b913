// Package constraint turns natural-language recipe requests into structured
// constraints: counts, servings, nutrient bounds, time limits, diets and
// ingredient inclusions/exclusions.
package constraint

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Nutrient is the canonical name of a bounded nutrient.
type Nutrient string

const (
	Calories     Nutrient = "calories"
	Carbs        Nutrient = "carbs"
	Protein      Nutrient = "protein"
	Sugar        Nutrient = "sugar"
	Sodium       Nutrient = "sodium"
	Fat          Nutrient = "fat"
	SaturatedFat Nutrient = "saturated_fat"
)

// Nutrients lists every nutrient the parser can bound.
var Nutrients = []Nutrient{Calories, Carbs, Protein, Sugar, Sodium, Fat, SaturatedFat}

// Bound is an optional lower and upper limit.
type Bound struct {
	Min *float64
	Max *float64
}

// Constraints is the structured reading of a request. Zero values mean "not
// mentioned"; the JSON form carries only the keys that were mentioned.
type Constraints struct {
	Count       int
	MinServings *int
	MaxServings *int
	Nutrients   map[Nutrient]Bound
	MaxDuration *float64

	Diet               []string
	HealthCategory     []string
	IncludeIngredients []string
	ExcludeIngredients []string
}

// SetMax sets the upper bound for n.
func (c *Constraints) SetMax(n Nutrient, v float64) {
	b := c.bound(n)
	b.Max = &v
	c.Nutrients[n] = b
}

// SetMin sets the lower bound for n.
func (c *Constraints) SetMin(n Nutrient, v float64) {
	b := c.bound(n)
	b.Min = &v
	c.Nutrients[n] = b
}

// Max returns the upper bound for n, if any.
func (c *Constraints) Max(n Nutrient) (float64, bool) {
	b, ok := c.Nutrients[n]
	if !ok || b.Max == nil {
		return 0, false
	}
	return *b.Max, true
}

// Min returns the lower bound for n, if any.
func (c *Constraints) Min(n Nutrient) (float64, bool) {
	b, ok := c.Nutrients[n]
	if !ok || b.Min == nil {
		return 0, false
	}
	return *b.Min, true
}

// Bounds reports whether n has either limit.
func (c *Constraints) Bounds(n Nutrient) bool {
	_, hasMax := c.Max(n)
	_, hasMin := c.Min(n)
	return hasMax || hasMin
}

func (c *Constraints) bound(n Nutrient) Bound {
	if c.Nutrients == nil {
		c.Nutrients = make(map[Nutrient]Bound)
	}
	return c.Nutrients[n]
}

// Empty reports whether nothing was extracted.
func (c *Constraints) Empty() bool {
	return len(c.Keys()) == 0
}

// Keys returns the sorted JSON keys that are present.
func (c *Constraints) Keys() []string {
	m := c.toMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// merge folds a later user turn into c: scalars are replaced, lists unioned.
func (c *Constraints) merge(o Constraints) {
	if o.Count != 0 {
		c.Count = o.Count
	}
	if o.MinServings != nil {
		c.MinServings = o.MinServings
	}
	if o.MaxServings != nil {
		c.MaxServings = o.MaxServings
	}
	for n, b := range o.Nutrients {
		if b.Max != nil {
			c.SetMax(n, *b.Max)
		}
		if b.Min != nil {
			c.SetMin(n, *b.Min)
		}
	}
	if o.MaxDuration != nil {
		c.MaxDuration = o.MaxDuration
	}
	c.Diet = union(c.Diet, o.Diet)
	c.HealthCategory = union(c.HealthCategory, o.HealthCategory)
	c.IncludeIngredients = union(c.IncludeIngredients, o.IncludeIngredients)
	c.ExcludeIngredients = union(c.ExcludeIngredients, o.ExcludeIngredients)
}

func (c *Constraints) toMap() map[string]any {
	m := make(map[string]any)
	if c.Count != 0 {
		m["count"] = c.Count
	}
	if c.MinServings != nil {
		m["min_servings"] = *c.MinServings
	}
	if c.MaxServings != nil {
		m["max_servings"] = *c.MaxServings
	}
	for n, b := range c.Nutrients {
		if b.Max != nil {
			m["max_"+string(n)] = *b.Max
		}
		if b.Min != nil {
			m["min_"+string(n)] = *b.Min
		}
	}
	if c.MaxDuration != nil {
		m["max_duration"] = *c.MaxDuration
	}
	if len(c.Diet) > 0 {
		m["diet"] = c.Diet
	}
	if len(c.HealthCategory) > 0 {
		m["health_category"] = c.HealthCategory
	}
	if len(c.IncludeIngredients) > 0 {
		m["include_ingredients"] = c.IncludeIngredients
	}
	if len(c.ExcludeIngredients) > 0 {
		m["exclude_ingredients"] = c.ExcludeIngredients
	}
	return m
}

// MarshalJSON encodes c as a flat object such as
// {"count":2,"diet":["vegan"],"max_calories":450}.
func (c Constraints) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toMap())
}

// UnmarshalJSON decodes the flat object form.
func (c *Constraints) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Constraints{}
	for key, val := range raw {
		var err error
		switch key {
		case "count":
			err = json.Unmarshal(val, &c.Count)
		case "min_servings":
			err = json.Unmarshal(val, &c.MinServings)
		case "max_servings":
			err = json.Unmarshal(val, &c.MaxServings)
		case "max_duration":
			err = json.Unmarshal(val, &c.MaxDuration)
		case "diet":
			err = json.Unmarshal(val, &c.Diet)
		case "health_category":
			err = json.Unmarshal(val, &c.HealthCategory)
		case "include_ingredients":
			err = json.Unmarshal(val, &c.IncludeIngredients)
		case "exclude_ingredients":
			err = json.Unmarshal(val, &c.ExcludeIngredients)
		default:
			var v float64
			switch {
			case strings.HasPrefix(key, "max_"):
				if err = json.Unmarshal(val, &v); err == nil {
					c.SetMax(Nutrient(strings.TrimPrefix(key, "max_")), v)
				}
			case strings.HasPrefix(key, "min_"):
				if err = json.Unmarshal(val, &v); err == nil {
					c.SetMin(Nutrient(strings.TrimPrefix(key, "min_")), v)
				}
			}
			// unknown keys are ignored
		}
		if err != nil {
			return fmt.Errorf("constraint %q: %w", key, err)
		}
	}
	return nil
}

func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
