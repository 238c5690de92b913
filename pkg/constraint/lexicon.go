package constraint

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed lexicon.toml
var defaultLexiconData string

// maxLemmaWords drops long compound names from synonym sets.
const maxLemmaWords = 3

// Lexicon maps food words to the lemmas of the entries they belong to.
type Lexicon struct {
	entries [][]string
	index   map[string][]int
}

type lexiconFile struct {
	Entry []struct {
		Lemmas []string `toml:"lemmas"`
	} `toml:"entry"`
}

// DefaultLexicon returns the embedded food lexicon.
func DefaultLexicon() *Lexicon {
	lex, err := ParseLexicon(defaultLexiconData)
	if err != nil {
		panic("embedded lexicon is invalid: " + err.Error())
	}
	return lex
}

// ParseLexicon decodes a TOML lexicon made of [[entry]] tables with a lemmas list.
func ParseLexicon(data string) (*Lexicon, error) {
	var f lexiconFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("could not decode lexicon: %w", err)
	}

	lex := &Lexicon{index: make(map[string][]int)}
	for _, e := range f.Entry {
		if len(e.Lemmas) == 0 {
			continue
		}
		id := len(lex.entries)
		lemmas := make([]string, 0, len(e.Lemmas))
		for _, l := range e.Lemmas {
			l = strings.ToLower(strings.TrimSpace(l))
			if l == "" {
				continue
			}
			lemmas = append(lemmas, l)
			lex.index[l] = append(lex.index[l], id)
		}
		lex.entries = append(lex.entries, lemmas)
	}
	return lex, nil
}

// lookup returns the entries for a word or phrase under its literal form and
// its simple singular forms.
func (l *Lexicon) lookup(term string) []int {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var ids []int
	seen := make(map[int]bool)
	for _, form := range baseForms(term) {
		for _, id := range l.index[form] {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// IsFood reports whether word names something in the lexicon.
func (l *Lexicon) IsFood(word string) bool {
	return len(l.lookup(word)) > 0
}

// Synonyms returns the ingredient itself plus the lemmas of every entry
// matching any of its words or the whole phrase.
func (l *Lexicon) Synonyms(ingredient string) map[string]struct{} {
	ingredient = strings.ToLower(ingredient)
	out := map[string]struct{}{ingredient: {}}

	add := func(ids []int) {
		for _, id := range ids {
			for _, lemma := range l.entries[id] {
				if len(strings.Fields(lemma)) <= maxLemmaWords {
					out[lemma] = struct{}{}
				}
			}
		}
	}

	for _, word := range strings.Fields(ingredient) {
		add(l.lookup(word))
	}
	if strings.Contains(strings.TrimSpace(ingredient), " ") {
		add(l.lookup(ingredient))
	}
	return out
}

func baseForms(term string) []string {
	forms := []string{term}
	switch {
	case strings.HasSuffix(term, "ies"):
		forms = append(forms, strings.TrimSuffix(term, "ies")+"y")
	case strings.HasSuffix(term, "oes"), strings.HasSuffix(term, "ches"), strings.HasSuffix(term, "shes"):
		forms = append(forms, strings.TrimSuffix(term, "es"))
	}
	if strings.HasSuffix(term, "s") && !strings.HasSuffix(term, "ss") {
		forms = append(forms, strings.TrimSuffix(term, "s"))
	}
	return forms
}
