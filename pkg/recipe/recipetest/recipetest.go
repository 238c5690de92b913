// Package recipetest writes small HUMMUS-shaped CSV files for tests.
package recipetest

import (
	"fmt"
	"os"
	"strings"
)

// Header is the subset of HUMMUS columns the loader reads.
const Header = "recipe_id,title,tags,calories [cal],protein [g],sodium [mg],totalCarbohydrate [g],sugars [g],totalFat [g],saturatedFat [g],duration,average_rating,serves\n"

// CSV returns n recipes. Even rows are light vegetarian lunches and soups,
// odd rows are desserts and chicken dishes, so roughly half the generator
// templates find matches.
func CSV(n int) string {
	var b strings.Builder
	b.WriteString(Header)
	for i := 0; i < n; i++ {
		tags := "['vegetarian', 'lunch', 'dinner', 'soup']"
		if i%2 == 1 {
			tags = "['dessert', 'chicken', 'breakfast']"
		}
		fmt.Fprintf(&b, "%d,Dish %d,\"%s\",%d,%d,150,%d,4,6,2,%d,4.5,4-6\n",
			i+1, i+1, tags, 150+i*3, 10+i%30, 5+i%50, 10+i%60)
	}
	return b.String()
}

// WriteCSV writes CSV(n) to path.
func WriteCSV(path string, n int) error {
	return os.WriteFile(path, []byte(CSV(n)), 0o644)
}
