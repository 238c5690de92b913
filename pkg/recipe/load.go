package recipe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Column names of the HUMMUS pp_recipes.csv export.
const (
	ColumnID            = "recipe_id"
	ColumnTitle         = "title"
	ColumnTags          = "tags"
	ColumnCalories      = "calories [cal]"
	ColumnProtein       = "protein [g]"
	ColumnSodium        = "sodium [mg]"
	ColumnCarbohydrates = "totalCarbohydrate [g]"
	ColumnSugars        = "sugars [g]"
	ColumnFat           = "totalFat [g]"
	ColumnSaturatedFat  = "saturatedFat [g]"
	ColumnDuration      = "duration"
	ColumnAverageRating = "average_rating"
	ColumnServes        = "serves"
)

// ErrMissingColumn is returned when a required column is absent from the header.
type ErrMissingColumn struct {
	Column string
}

func (e ErrMissingColumn) Error() string {
	return "missing required column: " + e.Column
}

// Load reads the recipe CSV at path.
func Load(path string) ([]Recipe, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("recipe dataset not found at %s (extract the HUMMUS archive there): %w", path, err)
		}
		return nil, fmt.Errorf("could not open recipe dataset: %w", err)
	}
	defer f.Close()

	recipes, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	return recipes, nil
}

// Read parses recipes from CSV data with a header row. Only recipe_id and
// title are required; other known columns are optional.
func Read(r io.Reader) ([]Recipe, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty recipe file")
		}
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, required := range []string{ColumnID, ColumnTitle} {
		if _, ok := cols[required]; !ok {
			return nil, ErrMissingColumn{Column: required}
		}
	}

	var recipes []Recipe
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := row{cols: cols, record: record}
		id, err := strconv.ParseInt(strings.TrimSpace(row.text(ColumnID)), 10, 64)
		if err != nil {
			// pandas would give these a float id; HUMMUS ids are integral
			f, ferr := strconv.ParseFloat(strings.TrimSpace(row.text(ColumnID)), 64)
			if ferr != nil {
				continue
			}
			id = int64(f)
		}

		recipes = append(recipes, Recipe{
			ID:            id,
			Title:         row.text(ColumnTitle),
			Tags:          row.text(ColumnTags),
			Calories:      row.number(ColumnCalories),
			Protein:       row.number(ColumnProtein),
			Sodium:        row.number(ColumnSodium),
			Carbohydrates: row.number(ColumnCarbohydrates),
			Sugars:        row.number(ColumnSugars),
			Fat:           row.number(ColumnFat),
			SaturatedFat:  row.number(ColumnSaturatedFat),
			Duration:      row.number(ColumnDuration),
			AverageRating: row.number(ColumnAverageRating),
			Serves:        row.text(ColumnServes),
		})
	}

	return recipes, nil
}

type row struct {
	cols   map[string]int
	record []string
}

func (r row) text(column string) string {
	i, ok := r.cols[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

func (r row) number(column string) float64 {
	s := strings.TrimSpace(r.text(column))
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
