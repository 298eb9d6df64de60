// Package tokenizer turns document and query text into index terms. Text is
// NFKC-normalised and lower-cased, split on UAX #29 word boundaries, and
// optionally filtered for stop words and stemmed.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/kljensen/snowball"
	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token is a normalised term and its offset among the kept tokens of the
// text.
type Token struct {
	Term     string
	Position int
}

type Options struct {
	Stemming  bool
	StopWords bool
}

type Tokenizer struct {
	opts Options
}

func New(opts Options) *Tokenizer {
	return &Tokenizer{opts: opts}
}

// Tokenize returns the terms of text with consecutive positions starting at 0.
// Dropped stop words do not consume a position.
func (t *Tokenizer) Tokenize(text string) []Token {
	segments := words.FromString(Normalize(text))
	tokens := make([]Token, 0, len(text)/6)
	for segments.Next() {
		term, ok := t.Term(segments.Value())
		if !ok {
			continue
		}
		tokens = append(tokens, Token{Term: term, Position: len(tokens)})
	}
	return tokens
}

// Term normalises a single word the way Tokenize does. ok is false when the
// word carries no letters or digits or is a dropped stop word.
func (t *Tokenizer) Term(word string) (string, bool) {
	word = Normalize(word)
	if !isWord(word) {
		return "", false
	}
	if t.opts.StopWords {
		if _, stop := stopWords[word]; stop {
			return "", false
		}
	}
	if t.opts.Stemming {
		if stemmed, err := snowball.Stem(word, "english", true); err == nil && stemmed != "" {
			word = stemmed
		}
	}
	return word, true
}

// Normalize applies NFKC normalisation and lower-casing.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
