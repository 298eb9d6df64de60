package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func terms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Term
	}
	return out
}

func TestTokenizeDefaults(t *testing.T) {
	tokens := New(Options{}).Tokenize("The Cat, the HAT!")
	assert.Equal(t, []string{"the", "cat", "the", "hat"}, terms(tokens))
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
	}
}

func TestTokenizeNormalizesWidth(t *testing.T) {
	tokens := New(Options{}).Tokenize("ＳＥＡＲＣＨ engine")
	assert.Equal(t, []string{"search", "engine"}, terms(tokens))
}

func TestTokenizeStopWordsAndStemming(t *testing.T) {
	tok := New(Options{Stemming: true, StopWords: true})
	tokens := tok.Tokenize("the running dogs")
	assert.Equal(t, []string{"run", "dog"}, terms(tokens))
	assert.Equal(t, 0, tokens[0].Position)
	assert.Equal(t, 1, tokens[1].Position)
}

func TestTermRejectsPunctuation(t *testing.T) {
	_, ok := New(Options{}).Term("--")
	assert.False(t, ok)

	term, ok := New(Options{}).Term("Zürich")
	assert.True(t, ok)
	assert.Equal(t, "zürich", term)
}
