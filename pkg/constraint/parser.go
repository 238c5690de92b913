package constraint

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	maxOperators = []string{"no more than", "less than", "fewer than", "under", "below", "maximum", "max"}
	minOperators = []string{"no less than", "more than", "at least", "over", "above", "minimum", "min", "exceeding", "exceed"}

	// nutrientKeys is ordered: when several keys name the same nutrient, a
	// later operator-first match replaces an earlier one.
	nutrientKeys = []struct {
		key      string
		nutrient Nutrient
	}{
		{"calorie", Calories},
		{"kcal", Calories},
		{"calories", Calories},
		{"carb", Carbs},
		{"carbohydrate", Carbs},
		{"carbohydrates", Carbs},
		{"protein", Protein},
		{"sugar", Sugar},
		{"sodium", Sodium},
		{"fat", Fat},
		{"saturated fat", SaturatedFat},
	}

	// contextNutrientWords maps words an assistant may use when asking for a
	// goal to the nutrient a bare quantity in the reply refers to.
	contextNutrientWords = []struct {
		word     string
		nutrient Nutrient
	}{
		{"calorie", Calories},
		{"calories", Calories},
		{"kcal", Calories},
		{"carb", Carbs},
		{"carbohydrate", Carbs},
		{"carbohydrates", Carbs},
		{"protein", Protein},
		{"sugar", Sugar},
		{"sodium", Sodium},
		{"fat", Fat},
	}

	nutrientWords  = []string{"protein", "calorie", "sugar", "sodium", "carbohydrate", "carb", "fat", "calories", "carbs"}
	timeKeywords   = []string{"minute", "time", "duration", "hour", "hr", "min", "minutes", "mins", "sec", "seconds"}
	dietKeywords   = []string{"vegan", "vegetarian", "paleo", "keto", "gluten-free", "dairy-free", "low-carb"}
	healthKeywords = []string{"healthy", "light", "low-fat"}
	stopPhrases    = []string{"no more than", "no less than", "more than", "less than"}

	numberWords = []struct {
		word  string
		value int
	}{
		{"one", 1}, {"two", 2}, {"three", 3}, {"four", 4}, {"five", 5},
		{"six", 6}, {"seven", 7}, {"eight", 8}, {"nine", 9}, {"ten", 10},
	}

	genericNouns = toSet(
		"recipe", "recipes", "option", "options", "idea", "ideas", "meal",
		"meals", "food", "dinner", "dinners", "lunch", "lunches", "breakfast",
		"breakfasts", "dessert", "desserts", "appetizer", "appetizers", "soup",
		"soups", "salad", "salads", "dish", "dishes", "serving", "servings",
		"person", "people", "g", "mg", "kcal", "time", "constraint",
		"preference", "preferences", "style", "diet", "diets", "sweet", "snack",
		"snacks", "appetiser", "appetisers", "starter", "starters",
	)

	stopWords = toSet(
		"show", "find", "give", "need", "want", "something", "recipes", "dishes",
		"meals", "options", "ideas", "make", "breakfast", "lunch", "dinner",
		"dessert", "snack", "quick", "healthy", "high", "low", "people", "no",
	)
)

var (
	numberRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	wordRe     = regexp.MustCompile(`\b[a-z]{3,}\b`)
	servingsRe = regexp.MustCompile(`(?:serve|serving|around|about)?\s*(\d+)\s*[-–to]+\s*(\d+)\s*(?:people|servings?)?`)
	countRes   = []*regexp.Regexp{
		regexp.MustCompile(`(?:find|show|give me)\s+(\w+)\s+(?:recipes|dishes|meals|options)`),
		regexp.MustCompile(`(\w+)\s+(?:vegan|vegetarian|keto|paleo)`),
	}
	timeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:` + strings.Join(maxOperators, "|") + `)\s+(\d+)\s*(?:min|minute|minutes)`),
		regexp.MustCompile(`in\s+(?:under|about)?\s*(\d+)\s*(?:min|minute|minutes)`),
	}
	trailingQualifierRe = regexp.MustCompile(`\s+(?:under|below|over|above|less|more|than|at|least).*`)
)

// quickMaxDuration is the duration limit implied by the word "quick".
const quickMaxDuration = 30.0

type opPattern struct {
	re *regexp.Regexp
	// guardNo rejects matches directly preceded by "no ", so "no less than"
	// is not also read as "less than".
	guardNo bool
}

type nutrientPatterns struct {
	nutrient Nutrient
	key      string

	// "<op> 450 kcal"
	maxBefore []opPattern
	minBefore []opPattern

	// "calories below 500"
	maxAfter []*regexp.Regexp
	minAfter []*regexp.Regexp

	// "<450 kcal", ">20g protein"
	lessThan    *regexp.Regexp
	greaterThan *regexp.Regexp
}

// Parser extracts Constraints from request text. It is safe for concurrent use.
type Parser struct {
	lexicon   *Lexicon
	nutrients []nutrientPatterns

	contextMax []*regexp.Regexp
	contextMin []*regexp.Regexp

	include []phraseRule
	exclude []phraseRule
	noRe    *regexp.Regexp
	noStop  *regexp.Regexp
}

// NewParser creates a parser backed by lex. A nil lex uses DefaultLexicon.
func NewParser(lex *Lexicon) *Parser {
	if lex == nil {
		lex = DefaultLexicon()
	}

	p := &Parser{lexicon: lex}

	const number = `(\d+(?:\.\d+)?)`
	for _, nk := range nutrientKeys {
		key := regexp.QuoteMeta(nk.key)
		np := nutrientPatterns{nutrient: nk.nutrient, key: nk.key}

		before := func(op string) opPattern {
			return opPattern{
				re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(op) + `\s+` + number + `\s*(?:g|mg|kcal|gram|milligram|calorie)?\s*` + key + `s?\b`),
				guardNo: op == "less than" || op == "more than",
			}
		}
		after := func(op string) *regexp.Regexp {
			return regexp.MustCompile(key + `s?\s+` + regexp.QuoteMeta(op) + `\s+` + number)
		}
		for _, op := range maxOperators {
			np.maxBefore = append(np.maxBefore, before(op))
			np.maxAfter = append(np.maxAfter, after(op))
		}
		for _, op := range minOperators {
			np.minBefore = append(np.minBefore, before(op))
			np.minAfter = append(np.minAfter, after(op))
		}
		np.lessThan = regexp.MustCompile(`<\s*` + number + `\s*(?:g|mg|kcal)?\s*` + key + `s?\b`)
		np.greaterThan = regexp.MustCompile(`>\s*` + number + `\s*(?:g|mg|kcal)?\s*` + key + `s?\b`)

		p.nutrients = append(p.nutrients, np)
	}

	for _, op := range maxOperators {
		p.contextMax = append(p.contextMax, regexp.MustCompile(`\b`+regexp.QuoteMeta(op)+`\s+`+number+`\s*(?:g|mg|kcal)\b`))
	}
	for _, op := range minOperators {
		p.contextMin = append(p.contextMin, regexp.MustCompile(`\b`+regexp.QuoteMeta(op)+`\s+`+number+`\s*(?:g|mg|kcal)\b`))
	}

	p.include = []phraseRule{
		newPhraseRule(`with\s+`, `,|and\b|under\b|below\b|over\b|above\b|less\b|more\b|\.|$`),
		newPhraseRule(`containing\s+`, `,|and\b|without\b|\.|$`),
		newPhraseRule(`(?:include|using)\s+`, `,|and\b|\.|$`),
	}
	p.exclude = []phraseRule{
		newPhraseRule(`without\s+`, `,|and\b|\.|$`),
		newPhraseRule(`exclude\s+`, `,|and\b|\.|$`),
	}
	p.noRe = regexp.MustCompile(`\bno\s+(\w+)`)
	p.noStop = regexp.MustCompile(`^\s*(?:,|and\s+no|\.|$)`)

	return p
}

// Parse extracts constraints from a single request.
func (p *Parser) Parse(query string) Constraints {
	var c Constraints

	// nutrients before ingredients so operators are not captured as foods
	p.parseCount(query, &c)
	p.parseServings(query, &c)
	p.parseNutrients(query, nil, &c)
	p.parseTime(query, &c)
	p.parseDiet(query, &c)
	p.parseHealth(query, &c)
	p.parseIngredients(query, &c)

	return c
}

// ParseWithContext parses a user reply, letting nutrients named in the hints
// (usually the assistant's preceding question) bind bare quantities such as
// "at least 20g".
func (p *Parser) ParseWithContext(message string, hints []string) Constraints {
	var c Constraints

	hintText := strings.ToLower(strings.Join(hints, " "))
	var context []Nutrient
	seen := make(map[Nutrient]bool)
	for _, cw := range contextNutrientWords {
		if strings.Contains(hintText, cw.word) && !seen[cw.nutrient] {
			seen[cw.nutrient] = true
			context = append(context, cw.nutrient)
		}
	}

	p.parseNutrients(message, context, &c)
	p.parseCount(message, &c)
	p.parseServings(message, &c)
	p.parseTime(message, &c)
	p.parseDiet(message, &c)
	p.parseHealth(message, &c)
	p.parseIngredients(message, &c)

	return c
}

// ParseConversation parses alternating user/assistant messages, user first.
// Each user message is read in the context of the assistant message before
// it. Later scalar values replace earlier ones; lists accumulate.
func (p *Parser) ParseConversation(messages []string) Constraints {
	var all Constraints

	for i, msg := range messages {
		if i%2 != 0 {
			continue
		}

		var turn Constraints
		if i > 0 {
			turn = p.ParseWithContext(msg, []string{messages[i-1]})
		} else {
			turn = p.Parse(msg)
		}
		all.merge(turn)
	}

	if len(all.IncludeIngredients) > 0 && len(all.ExcludeIngredients) > 0 {
		all.IncludeIngredients = subtract(all.IncludeIngredients, all.ExcludeIngredients)
	}

	return all
}

func (p *Parser) parseCount(text string, c *Constraints) {
	lower := strings.ToLower(text)
	for _, re := range countRes {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if n, ok := extractNumber(m[1]); ok && n != 0 {
			c.Count = int(n)
			return
		}
	}
}

// extractNumber reads the first digit run, falling back to the first number
// word (one..ten) contained anywhere in text.
func extractNumber(text string) (float64, bool) {
	if m := numberRe.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return v, true
		}
	}

	lower := strings.ToLower(text)
	for _, nw := range numberWords {
		if strings.Contains(lower, nw.word) {
			return float64(nw.value), true
		}
	}
	return 0, false
}

func (p *Parser) parseServings(text string, c *Constraints) {
	m := servingsRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return
	}
	lo, err1 := strconv.Atoi(m[1])
	hi, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return
	}
	c.MinServings = &lo
	c.MaxServings = &hi
}

func (p *Parser) parseNutrients(text string, context []Nutrient, c *Constraints) {
	lower := strings.ToLower(text)

	for _, np := range p.nutrients {
		for _, op := range np.maxBefore {
			if v, ok := firstNumber(op.re, lower, op.guardNo); ok {
				c.SetMax(np.nutrient, v)
				break
			}
		}
		for _, op := range np.minBefore {
			if v, ok := firstNumber(op.re, lower, op.guardNo); ok {
				c.SetMin(np.nutrient, v)
				break
			}
		}

		if _, ok := c.Max(np.nutrient); !ok {
			for _, re := range np.maxAfter {
				if v, ok := firstNumber(re, lower, false); ok {
					c.SetMax(np.nutrient, v)
					break
				}
			}
		}
		if _, ok := c.Min(np.nutrient); !ok {
			for _, re := range np.minAfter {
				if v, ok := firstNumber(re, lower, false); ok {
					c.SetMin(np.nutrient, v)
					break
				}
			}
		}
	}

	for _, np := range p.nutrients {
		if _, ok := c.Max(np.nutrient); !ok {
			if v, ok := firstNumber(np.lessThan, lower, false); ok {
				c.SetMax(np.nutrient, v)
			}
		}
		if _, ok := c.Min(np.nutrient); !ok {
			if v, ok := firstNumber(np.greaterThan, lower, false); ok {
				c.SetMin(np.nutrient, v)
			}
		}
	}

	if len(context) == 0 {
		return
	}
	for _, nk := range nutrientKeys {
		if strings.Contains(lower, nk.key) {
			// the reply names its own nutrients
			return
		}
	}
	for _, n := range context {
		if _, ok := c.Max(n); !ok {
			for _, re := range p.contextMax {
				if v, ok := firstNumber(re, lower, false); ok {
					c.SetMax(n, v)
					break
				}
			}
		}
		if _, ok := c.Min(n); !ok {
			for _, re := range p.contextMin {
				if v, ok := firstNumber(re, lower, false); ok {
					c.SetMin(n, v)
					break
				}
			}
		}
	}
}

// firstNumber returns the first capture of re in text parsed as a float.
func firstNumber(re *regexp.Regexp, text string, guardNo bool) (float64, bool) {
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if guardNo && precededByNo(text, m[0]) {
			continue
		}
		v, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

func precededByNo(text string, i int) bool {
	if i < 3 {
		return false
	}
	return text[i-3:i-1] == "no" && unicode.IsSpace(rune(text[i-1]))
}

func (p *Parser) parseTime(text string, c *Constraints) {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "quick") {
		d := quickMaxDuration
		c.MaxDuration = &d
	}

	for _, re := range timeRes {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if d, err := strconv.ParseFloat(m[1], 64); err == nil {
			c.MaxDuration = &d
			return
		}
	}
}

func (p *Parser) parseDiet(text string, c *Constraints) {
	lower := strings.ToLower(text)
	for _, diet := range dietKeywords {
		if strings.Contains(lower, diet) {
			c.Diet = append(c.Diet, diet)
		}
	}
}

func (p *Parser) parseHealth(text string, c *Constraints) {
	lower := strings.ToLower(text)

	var categories []string
	if strings.Contains(lower, "healthy") {
		categories = append(categories, "healthy-2", "healthy")
	}
	for _, kw := range healthKeywords {
		if strings.Contains(lower, kw) && !contains(categories, kw) {
			categories = append(categories, kw)
		}
	}
	if len(categories) > 0 {
		c.HealthCategory = categories
	}
}

func toSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func subtract(a, b []string) []string {
	drop := toSet(b...)
	var out []string
	for _, s := range a {
		if _, ok := drop[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
