// Package kgram maps the k-grams of every indexed term to the terms that
// contain them. Terms are padded as ^term$ so prefixes and suffixes get their
// own k-grams, which is what makes wildcard resolution and spelling candidate
// generation cheap.
package kgram

import (
	"fmt"
	"regexp"
	"strings"
)

// Entry is one posting of a k-gram: the term containing it and the number of
// distinct k-grams of that term.
type Entry struct {
	TermID    int
	NumKGrams int
}

// Index is built by a single writer and is read-only afterwards.
type Index struct {
	k        int
	postings map[string][]Entry
	terms    []string
	ids      map[string]int
}

func New(k int) (*Index, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k-gram size must be positive, got %d", k)
	}
	return &Index{
		k:        k,
		postings: make(map[string][]Entry),
		ids:      make(map[string]int),
	}, nil
}

func (x *Index) K() int {
	return x.k
}

// Insert registers term and returns its ID. Inserting a known term is a no-op
// returning the existing ID.
func (x *Index) Insert(term string) int {
	if id, ok := x.ids[term]; ok {
		return id
	}
	id := len(x.terms)
	x.terms = append(x.terms, term)
	x.ids[term] = id
	grams := KGrams(term, x.k)
	for _, g := range grams {
		x.postings[g] = append(x.postings[g], Entry{TermID: id, NumKGrams: len(grams)})
	}
	return id
}

// Postings returns the entries of kgram in TermID order.
func (x *Index) Postings(kgram string) ([]Entry, bool) {
	p, ok := x.postings[kgram]
	return p, ok
}

func (x *Index) Term(id int) (string, bool) {
	if id < 0 || id >= len(x.terms) {
		return "", false
	}
	return x.terms[id], true
}

func (x *Index) ID(term string) (int, bool) {
	id, ok := x.ids[term]
	return id, ok
}

// Terms returns every term in ID order. Callers must not modify it.
func (x *Index) Terms() []string {
	return x.terms
}

func (x *Index) Len() int {
	return len(x.terms)
}

// KGrams returns the distinct k-grams of ^term$ in order of first appearance.
func KGrams(term string, k int) []string {
	return fragmentKGrams("^"+term+"$", k)
}

func fragmentKGrams(s string, k int) []string {
	runes := []rune(s)
	if len(runes) < k {
		return nil
	}
	seen := make(map[string]struct{}, len(runes)-k+1)
	grams := make([]string, 0, len(runes)-k+1)
	for i := 0; i+k <= len(runes); i++ {
		g := string(runes[i : i+k])
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		grams = append(grams, g)
	}
	return grams
}

// Intersect keeps the entries of a whose TermID is also in b. Both must be in
// TermID order.
func Intersect(a, b []Entry) []Entry {
	result := make([]Entry, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].TermID == b[j].TermID:
			result = append(result, a[i])
			i++
			j++
		case a[i].TermID < b[j].TermID:
			i++
		default:
			j++
		}
	}
	return result
}

// Resolve returns the indexed terms matching a wildcard pattern where '*'
// stands for any run of characters. Every fragment of ^pattern$ between
// stars that is at least k runes long narrows the candidates through its
// k-grams; the survivors are then checked against the full pattern. Results
// are in TermID order.
func (x *Index) Resolve(pattern string) []string {
	candidates, filtered := x.candidates(pattern)
	re := Pattern(pattern)
	var matches []string
	if !filtered {
		for _, t := range x.terms {
			if re.MatchString(t) {
				matches = append(matches, t)
			}
		}
		return matches
	}
	for _, e := range candidates {
		if t := x.terms[e.TermID]; re.MatchString(t) {
			matches = append(matches, t)
		}
	}
	return matches
}

func (x *Index) candidates(pattern string) ([]Entry, bool) {
	var result []Entry
	filtered := false
	for _, fragment := range strings.Split("^"+pattern+"$", "*") {
		for _, g := range fragmentKGrams(fragment, x.k) {
			postings := x.postings[g]
			if !filtered {
				result = postings
				filtered = true
			} else {
				result = Intersect(result, postings)
			}
			if len(result) == 0 {
				return nil, true
			}
		}
	}
	return result, filtered
}

// Pattern compiles a wildcard pattern into an anchored regular expression.
func Pattern(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// IsWildcard reports whether term is a wildcard pattern.
func IsWildcard(term string) bool {
	return strings.Contains(term, "*")
}
