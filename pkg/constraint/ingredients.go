package constraint

import (
	"regexp"
	"strings"
	"unicode"
)

// maxPhraseWords bounds how long a captured ingredient phrase may be.
const maxPhraseWords = 3

// phraseRule captures the shortest run of word and space characters that
// follows prefix and is itself followed by one of the stop alternatives.
type phraseRule struct {
	prefix *regexp.Regexp
	stop   *regexp.Regexp
}

func newPhraseRule(prefix, stops string) phraseRule {
	return phraseRule{
		prefix: regexp.MustCompile(prefix),
		stop:   regexp.MustCompile(`^\s*(?:` + stops + `)`),
	}
}

// captures returns every phrase the rule finds in text, left to right.
func (r phraseRule) captures(text string) []string {
	var out []string
	pos := 0
	for pos <= len(text) {
		loc := r.prefix.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[1]
		end, ok := r.shortestPhrase(text, start)
		if !ok {
			pos += loc[0] + 1
			continue
		}
		out = append(out, text[start:end])
		pos = end
	}
	return out
}

func (r phraseRule) shortestPhrase(text string, start int) (int, bool) {
	for i, ch := range text[start:] {
		if !isPhraseRune(ch) {
			return 0, false
		}
		end := start + i + len(string(ch))
		if r.stop.MatchString(text[end:]) {
			return end, true
		}
	}
	return 0, false
}

func isPhraseRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r)
}

func (p *Parser) parseIngredients(text string, c *Constraints) {
	lower := strings.ToLower(text)

	included := make(map[string]struct{})
	excluded := make(map[string]struct{})

	addPhrase := func(dst map[string]struct{}, phrase string) {
		ingredient, ok := cleanPhrase(phrase)
		if !ok {
			return
		}
		for s := range p.lexicon.Synonyms(ingredient) {
			dst[s] = struct{}{}
		}
	}

	for _, rule := range p.include {
		for _, phrase := range rule.captures(lower) {
			addPhrase(included, phrase)
		}
	}

	// bare food words anywhere in the request
	for _, word := range wordRe.FindAllString(lower, -1) {
		if skipWord(word) || !p.lexicon.IsFood(word) {
			continue
		}
		for s := range p.lexicon.Synonyms(word) {
			if _, generic := genericNouns[s]; !generic {
				included[s] = struct{}{}
			}
		}
	}

	for _, rule := range p.exclude {
		for _, phrase := range rule.captures(lower) {
			addPhrase(excluded, phrase)
		}
	}

	for _, m := range p.noRe.FindAllStringSubmatchIndex(lower, -1) {
		if !p.noStop.MatchString(lower[m[1]:]) {
			continue
		}
		word := lower[m[2]:m[3]]
		if word == "more" || word == "less" || word == "fewer" || contains(nutrientWords, word) {
			continue
		}
		if len(word) > 2 {
			for s := range p.lexicon.Synonyms(word) {
				excluded[s] = struct{}{}
			}
		}
	}

	if len(included) > 0 && len(excluded) > 0 {
		for s := range excluded {
			delete(included, s)
		}
	}

	if len(included) > 0 {
		c.IncludeIngredients = sortedKeys(included)
	}
	if len(excluded) > 0 {
		c.ExcludeIngredients = sortedKeys(excluded)
	}
}

// cleanPhrase drops captures that are really operators or nutrients and trims
// trailing qualifiers such as "under 400".
func cleanPhrase(phrase string) (string, bool) {
	ingredient := strings.TrimSpace(phrase)

	if _, stop := stopWords[ingredient]; stop {
		return "", false
	}
	for _, sp := range stopPhrases {
		if strings.Contains(ingredient, sp) {
			return "", false
		}
	}
	for _, nw := range nutrientWords {
		if strings.Contains(ingredient, nw) {
			return "", false
		}
	}

	ingredient = strings.TrimSpace(trailingQualifierRe.ReplaceAllString(ingredient, ""))
	if ingredient == "" || len(strings.Fields(ingredient)) > maxPhraseWords {
		return "", false
	}
	return ingredient, true
}

func skipWord(word string) bool {
	if _, ok := stopWords[word]; ok {
		return true
	}
	if _, ok := genericNouns[word]; ok {
		return true
	}
	return contains(nutrientWords, word) ||
		contains(dietKeywords, word) ||
		contains(healthKeywords, word) ||
		contains(timeKeywords, word)
}
