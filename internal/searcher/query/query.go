// Package query holds the query model: the query types, weighted query terms
// and the parser turning raw query text into them.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/kgram"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

type Type string

const (
	Single       Type = "single"
	Intersection Type = "intersection"
	Phrase       Type = "phrase"
	Ranked       Type = "ranked"
)

// ParseType maps a query type name to its Type; "" selects Intersection.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(s)); t {
	case "":
		return Intersection, nil
	case Single, Intersection, Phrase, Ranked:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown query type %q", apperrors.ErrInvalidQuery, s)
}

// Term is one query term. Term may be a wildcard pattern.
type Term struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

func (t Term) IsWildcard() bool {
	return kgram.IsWildcard(t.Term)
}

type Query struct {
	Raw   string `json:"raw"`
	Terms []Term `json:"terms"`
}

// Parse splits raw on whitespace and normalises every word with tok. A word
// may carry a weight suffix, "term^2.5"; the default weight is 1. Words
// containing '*' are kept whole as wildcard patterns. Words the tokenizer
// splits further contribute each of their terms.
func Parse(raw string, tok *tokenizer.Tokenizer) (*Query, error) {
	q := &Query{Raw: raw}
	for _, word := range strings.Fields(raw) {
		weight := 1.0
		if i := strings.LastIndexByte(word, '^'); i > 0 {
			w, err := strconv.ParseFloat(word[i+1:], 64)
			if err != nil || w <= 0 {
				return nil, fmt.Errorf("%w: bad weight in %q", apperrors.ErrInvalidQuery, word)
			}
			weight = w
			word = word[:i]
		}
		if kgram.IsWildcard(word) {
			pattern := tokenizer.Normalize(word)
			if strings.ContainsAny(pattern, ";\n\r") {
				return nil, fmt.Errorf("%w: pattern %q contains a record separator", apperrors.ErrInvalidQuery, word)
			}
			q.Terms = append(q.Terms, Term{Term: pattern, Weight: weight})
			continue
		}
		for _, t := range tok.Tokenize(word) {
			q.Terms = append(q.Terms, Term{Term: t.Term, Weight: weight})
		}
	}
	if len(q.Terms) == 0 {
		return nil, fmt.Errorf("%w: no searchable terms in %q", apperrors.ErrInvalidQuery, raw)
	}
	return q, nil
}

// Words returns the term strings in query order.
func (q *Query) Words() []string {
	words := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		words[i] = t.Term
	}
	return words
}

func (q *Query) HasWildcard() bool {
	for _, t := range q.Terms {
		if t.IsWildcard() {
			return true
		}
	}
	return false
}
