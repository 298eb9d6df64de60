package index

import (
	"sort"
)

// MemoryIndex accumulates postings in memory during the build phase until
// they are committed to disk.
//
// MemoryIndex is not safe for concurrent use: the build phase has a single
// writer.
type MemoryIndex struct {
	index map[string]map[int]*PostingsEntry
	size  int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]map[int]*PostingsEntry),
	}
}

// Insert records one occurrence of term at offset in docID. It reports
// whether this is the first time the term has been seen.
func (m *MemoryIndex) Insert(term string, docID int, offset int) bool {
	docs, exists := m.index[term]
	if !exists {
		docs = make(map[int]*PostingsEntry)
		m.index[term] = docs
		m.size += int64(len(term) + 48)
	}
	p, ok := docs[docID]
	if !ok {
		p = &PostingsEntry{
			DocID:   docID,
			Offsets: make([]int, 0, 4),
		}
		docs[docID] = p
		m.size += 48
	}
	p.Offsets = append(p.Offsets, offset)
	m.size += 8
	return !exists
}

// Search returns a sorted copy of the postings of term, or nil.
func (m *MemoryIndex) Search(term string) PostingsList {
	docs, exists := m.index[term]
	if !exists {
		return nil
	}
	return sortedPostings(docs)
}

// Snapshot returns every term with its postings, terms in ascending order.
func (m *MemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(m.index))
	for term, docs := range m.index {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: sortedPostings(docs),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Terms returns the number of distinct terms.
func (m *MemoryIndex) Terms() int {
	return len(m.index)
}

// Size is a rough estimate of the buffered bytes.
func (m *MemoryIndex) Size() int64 {
	return m.size
}

func (m *MemoryIndex) Reset() {
	m.index = make(map[string]map[int]*PostingsEntry)
	m.size = 0
}

func sortedPostings(docs map[int]*PostingsEntry) PostingsList {
	postings := make(PostingsList, 0, len(docs))
	for _, p := range docs {
		postings = append(postings, p.Clone())
	}
	sort.Slice(postings, func(i, j int) bool {
		return postings[i].DocID < postings[j].DocID
	})
	return postings
}
