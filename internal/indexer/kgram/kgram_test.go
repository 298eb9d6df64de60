package kgram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, k int, terms ...string) *Index {
	t.Helper()
	x, err := New(k)
	require.NoError(t, err)
	for _, term := range terms {
		x.Insert(term)
	}
	return x
}

func TestNewRejectsNonPositiveK(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestInsertAssignsSequentialIDs(t *testing.T) {
	x := build(t, 2, "cat", "dog", "cat", "cot")
	assert.Equal(t, []string{"cat", "dog", "cot"}, x.Terms())

	id, ok := x.ID("cot")
	require.True(t, ok)
	assert.Equal(t, 2, id)

	term, ok := x.Term(1)
	require.True(t, ok)
	assert.Equal(t, "dog", term)

	postings, ok := x.Postings("^c")
	require.True(t, ok)
	assert.Equal(t, []Entry{{TermID: 0, NumKGrams: 4}, {TermID: 2, NumKGrams: 4}}, postings)
}

func TestKGramsAreDistinct(t *testing.T) {
	assert.Equal(t, []string{"^c", "ca", "at", "t$"}, KGrams("cat", 2))
	assert.Equal(t, []string{"^a", "aa", "a$"}, KGrams("aaa", 2))
	assert.Equal(t, []string{"^ca", "cat", "at$"}, KGrams("cat", 3))
}

func TestResolveWildcard(t *testing.T) {
	x := build(t, 2, "cat", "cot", "dog", "coat", "scat")

	assert.Equal(t, []string{"cat", "cot", "coat"}, x.Resolve("c*t"))
	assert.Equal(t, []string{"cat", "scat"}, x.Resolve("*cat"))
	assert.Equal(t, []string{"dog"}, x.Resolve("d*"))
	assert.Empty(t, x.Resolve("z*"))
}

func TestResolveWithoutUsableFragments(t *testing.T) {
	x := build(t, 3, "cat", "cot", "dog")

	assert.Equal(t, []string{"cat", "cot", "dog"}, x.Resolve("*"))
	assert.Equal(t, []string{"cat", "cot"}, x.Resolve("c*t"))
}

func TestResolveQuotesMetacharacters(t *testing.T) {
	x := build(t, 2, "a.b", "axb")
	assert.Equal(t, []string{"a.b"}, x.Resolve("a.*"))
}

func TestIntersect(t *testing.T) {
	a := []Entry{{TermID: 1}, {TermID: 3}, {TermID: 5}}
	b := []Entry{{TermID: 3}, {TermID: 4}, {TermID: 5}}
	assert.Equal(t, []Entry{{TermID: 3}, {TermID: 5}}, Intersect(a, b))
	assert.Empty(t, Intersect(a, nil))
}
