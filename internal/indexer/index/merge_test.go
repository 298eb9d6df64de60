package index

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func list(ids ...int) PostingsList {
	l := make(PostingsList, len(ids))
	for i, id := range ids {
		l[i] = PostingsEntry{DocID: id, Offsets: []int{0}}
	}
	return l
}

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b PostingsList
		want []int
	}{
		{"disjoint", list(1, 3, 5), list(2, 4, 6), []int{}},
		{"overlap", list(1, 2, 3, 7), list(2, 3, 4, 7), []int{2, 3, 7}},
		{"last elements match", list(1, 9), list(5, 9), []int{9}},
		{"single match", list(4), list(4), []int{4}},
		{"empty operand", list(1, 2), nil, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intersect(tt.a, tt.b)
			assert.Equal(t, tt.want, got.DocIDs())
		})
	}
}

func TestIntersectMatchesSetIntersection(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		a := randomList(r, 30)
		b := randomList(r, 30)
		got := Intersect(a, b).DocIDs()

		inB := make(map[int]bool)
		for _, e := range b {
			inB[e.DocID] = true
		}
		want := []int{}
		for _, e := range a {
			if inB[e.DocID] {
				want = append(want, e.DocID)
			}
		}
		require.Equal(t, want, got)
		require.True(t, sort.IntsAreSorted(got))
	}
}

func TestIntersectAllShortCircuits(t *testing.T) {
	got := IntersectAll(list(1, 2, 3, 4), list(2, 4), list(4, 8))
	assert.Equal(t, []int{4}, got.DocIDs())

	assert.Empty(t, IntersectAll(list(1, 2), list(), list(1, 2)))
	assert.Empty(t, IntersectAll())
}

func TestPhraseMerge(t *testing.T) {
	the := PostingsList{{DocID: 1, Offsets: []int{0}}}
	cat := PostingsList{{DocID: 1, Offsets: []int{1}}}

	got := PhraseMerge(the, cat)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].DocID)
	assert.Equal(t, []int{1}, got[0].Offsets)

	reversedThe := PostingsList{{DocID: 1, Offsets: []int{1}}}
	reversedCat := PostingsList{{DocID: 1, Offsets: []int{0}}}
	assert.Empty(t, PhraseMerge(reversedThe, reversedCat))
}

func TestPhraseMergeChains(t *testing.T) {
	a := PostingsList{{DocID: 1, Offsets: []int{0, 10}}, {DocID: 2, Offsets: []int{3}}}
	b := PostingsList{{DocID: 1, Offsets: []int{1, 11}}, {DocID: 2, Offsets: []int{9}}}
	c := PostingsList{{DocID: 1, Offsets: []int{12}}}

	ab := PhraseMerge(a, b)
	require.Len(t, ab, 1)
	assert.Equal(t, []int{1, 11}, ab[0].Offsets)

	abc := PhraseMerge(ab, c)
	require.Len(t, abc, 1)
	assert.Equal(t, []int{12}, abc[0].Offsets)
}

func TestUnion(t *testing.T) {
	got := Union(list(1, 4, 6), list(2, 4, 9))
	assert.Equal(t, []int{1, 2, 4, 6, 9}, got.DocIDs())
	assert.Equal(t, []int{3}, Union(nil, list(3)).DocIDs())
}

func TestRecordRoundTrip(t *testing.T) {
	postings := PostingsList{
		{DocID: 3, Offsets: []int{0, 4, 19}},
		{DocID: 12, Offsets: []int{7}},
	}
	record := string(postings.AppendRecord(nil, "search"))
	assert.Equal(t, "search;3--0--4--19;12--7;", record)

	term, got, err := ParseRecord(record)
	require.NoError(t, err)
	assert.Equal(t, "search", term)
	assert.Equal(t, postings, got)
}

func TestParseRecordRejectsTruncation(t *testing.T) {
	_, _, err := ParseRecord("search;3--0--4")
	require.Error(t, err)

	_, _, err = ParseRecord("search")
	require.Error(t, err)

	_, _, err = ParseRecord("search;x--1;")
	require.Error(t, err)
}

func TestMemoryIndexSnapshotIsOrderIndependent(t *testing.T) {
	m := NewMemoryIndex()
	assert.True(t, m.Insert("cat", 2, 5))
	assert.False(t, m.Insert("cat", 1, 0))
	m.Insert("cat", 2, 9)
	m.Insert("ant", 1, 1)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "ant", snap[0].Term)
	assert.Equal(t, "cat", snap[1].Term)
	assert.Equal(t, []int{1, 2}, snap[1].Postings.DocIDs())
	assert.Equal(t, []int{5, 9}, snap[1].Postings[1].Offsets)
}

func randomList(r *rand.Rand, n int) PostingsList {
	seen := make(map[int]bool)
	var ids []int
	for i := 0; i < n; i++ {
		id := r.Intn(60)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return list(ids...)
}
