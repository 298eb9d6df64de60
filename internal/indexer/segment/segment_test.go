package segment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

func commit(t *testing.T, dir string, tableSize int, s Snapshot) CommitStats {
	t.Helper()
	h, err := NewHasher(DefaultMultiplier, tableSize)
	require.NoError(t, err)
	stats, err := NewWriter(dir, h).Commit(s)
	require.NoError(t, err)
	return stats
}

func buildSnapshot(terms ...string) Snapshot {
	m := index.NewMemoryIndex()
	for i, term := range terms {
		m.Insert(term, i%3, i)
	}
	return Snapshot{
		Entries: m.Snapshot(),
		Docs: []DocInfo{
			{ID: 0, Name: "a.txt", Length: 4},
			{ID: 1, Name: "dir;with;semicolons/b.txt", Length: 2},
			{ID: 2, Name: "c.txt", Length: 9},
		},
		Terms: terms,
	}
}

func TestCommitLookupRoundTrip(t *testing.T) {
	dir := t.TempDir()
	commit(t, dir, DefaultTableSize, buildSnapshot("zebra", "apple", "mango", "apple"))

	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	postings, err := r.Lookup("apple")
	require.NoError(t, err)
	require.Len(t, postings, 2)
	assert.Equal(t, 0, postings[0].DocID)
	assert.Equal(t, []int{3}, postings[0].Offsets)
	assert.Equal(t, 1, postings[1].DocID)
	assert.Equal(t, []int{1}, postings[1].Offsets)

	postings, err = r.Lookup("durian")
	require.NoError(t, err)
	assert.Nil(t, postings)

	doc, ok := r.Doc(1)
	require.True(t, ok)
	assert.Equal(t, "dir;with;semicolons/b.txt", doc.Name)
	assert.Equal(t, 2, doc.Length)
	assert.Equal(t, []string{"zebra", "apple", "mango", "apple"}, r.Terms())
	assert.Equal(t, uint64(DefaultTableSize), r.Hasher().TableSize)
}

func TestLookupResolvesCollisions(t *testing.T) {
	dir := t.TempDir()
	var terms []string
	for i := 0; i < 11; i++ {
		terms = append(terms, fmt.Sprintf("term%02d", i))
	}
	stats := commit(t, dir, 13, buildSnapshot(terms...))
	assert.Equal(t, 11, stats.Terms)
	assert.Greater(t, stats.MaxProbe, 0)

	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()
	for i, term := range terms {
		postings, err := r.Lookup(term)
		require.NoError(t, err, term)
		require.Len(t, postings, 1, term)
		assert.Equal(t, i%3, postings[0].DocID, term)
	}
}

func TestLookupOnFullTableWrapsToNotFound(t *testing.T) {
	dir := t.TempDir()
	commit(t, dir, 3, buildSnapshot("a", "b", "c"))

	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	postings, err := r.Lookup("missing")
	require.NoError(t, err)
	assert.Nil(t, postings)
}

func TestCommitRejectsTooManyTerms(t *testing.T) {
	dir := t.TempDir()
	h, err := NewHasher(DefaultMultiplier, 2)
	require.NoError(t, err)

	_, err = NewWriter(dir, h).Commit(buildSnapshot("a", "b", "c"))
	require.ErrorIs(t, err, apperrors.ErrDictionaryFull)

	_, err = os.Stat(filepath.Join(dir, DataFile))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCommitRejectsInvalidTerms(t *testing.T) {
	h, err := NewHasher(DefaultMultiplier, 17)
	require.NoError(t, err)
	for _, term := range []string{"", "semi;colon", "new\nline"} {
		s := Snapshot{Entries: []index.TermEntry{{Term: term, Postings: index.PostingsList{{DocID: 0, Offsets: []int{0}}}}}}
		_, err := NewWriter(t.TempDir(), h).Commit(s)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTerm, "%q", term)
	}
}

func TestOpenMissingIndex(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestTruncatedRecordIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	commit(t, dir, 101, buildSnapshot("alpha", "omega"))

	path := filepath.Join(dir, DataFile)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-3))

	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Lookup("omega")
	require.ErrorIs(t, err, apperrors.ErrCorruptRecord)

	postings, err := r.Lookup("alpha")
	require.NoError(t, err)
	assert.Len(t, postings, 1)
}

func TestRecommitReplacesIndex(t *testing.T) {
	dir := t.TempDir()
	commit(t, dir, 101, buildSnapshot("old"))
	commit(t, dir, 101, buildSnapshot("new"))

	r, err := Open(dir)
	require.NoError(t, err)
	defer r.Close()

	postings, err := r.Lookup("old")
	require.NoError(t, err)
	assert.Nil(t, postings)
	postings, err = r.Lookup("new")
	require.NoError(t, err)
	assert.Len(t, postings, 1)

	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestHasherSlot(t *testing.T) {
	h, err := NewHasher(131, 611953)
	require.NoError(t, err)
	assert.Equal(t, uint64('a'), h.Slot("a"))
	assert.Equal(t, uint64(('a'*131+'b')%611953), h.Slot("ab"))
	assert.Equal(t, uint64(0), h.Next(611952))

	_, err = NewHasher(131, 0)
	assert.Error(t, err)
}
