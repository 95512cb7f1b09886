package tokenizer

import (
	"golang.org/x/text/cases"
)

// KeywordMapper classifies identifiers by keyword tables.
type KeywordMapper struct {
	words       map[string]string
	defaultType string
	ignoreCase  bool
}

// NewKeywordMapper builds a mapper from token type to keyword list. Words
// not in any list get defaultType. With ignoreCase, lookups use Unicode
// case folding.
func NewKeywordMapper(types map[string][]string, defaultType string, ignoreCase bool) *KeywordMapper {
	k := &KeywordMapper{
		words:       make(map[string]string),
		defaultType: defaultType,
		ignoreCase:  ignoreCase,
	}
	for typ, words := range types {
		for _, w := range words {
			k.words[k.key(w)] = typ
		}
	}
	return k
}

func (k *KeywordMapper) key(word string) string {
	if k.ignoreCase {
		return cases.Fold().String(word)
	}
	return word
}

// Lookup returns the token type for word.
func (k *KeywordMapper) Lookup(word string) string {
	if typ, ok := k.words[k.key(word)]; ok {
		return typ
	}
	return k.defaultType
}

// Classification returns the mapper as a rule classification.
func (k *KeywordMapper) Classification() Computed {
	return func(m Match) []string {
		return []string{k.Lookup(m.Value)}
	}
}
