package index

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

// PostingsEntry records one document a term occurs in, with the token
// offsets of every occurrence. Two entries are considered the same posting
// when their DocIDs match.
type PostingsEntry struct {
	DocID   int     `json:"doc_id"`
	Offsets []int   `json:"offsets,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// TermFrequency is the number of occurrences of the term in the document.
func (e PostingsEntry) TermFrequency() int {
	return len(e.Offsets)
}

// Clone returns a deep copy so callers can mutate offsets and scores without
// touching index-owned state.
func (e PostingsEntry) Clone() PostingsEntry {
	offsets := make([]int, len(e.Offsets))
	copy(offsets, e.Offsets)
	return PostingsEntry{DocID: e.DocID, Offsets: offsets, Score: e.Score}
}

// PostingsList is kept sorted ascending by DocID with no duplicate DocIDs.
type PostingsList []PostingsEntry

// TermEntry pairs a term with its postings for serialization.
type TermEntry struct {
	Term     string
	Postings PostingsList
}

// DocFrequency is the number of documents in the list.
func (p PostingsList) DocFrequency() int {
	return len(p)
}

// Find returns the position of docID in the list.
func (p PostingsList) Find(docID int) (int, bool) {
	i := sort.Search(len(p), func(i int) bool { return p[i].DocID >= docID })
	if i < len(p) && p[i].DocID == docID {
		return i, true
	}
	return i, false
}

// Contains reports whether docID has a posting in the list.
func (p PostingsList) Contains(docID int) bool {
	_, ok := p.Find(docID)
	return ok
}

// Clone deep-copies the list.
func (p PostingsList) Clone() PostingsList {
	if p == nil {
		return nil
	}
	out := make(PostingsList, len(p))
	for i, e := range p {
		out[i] = e.Clone()
	}
	return out
}

// DocIDs returns the document ids in list order.
func (p PostingsList) DocIDs() []int {
	ids := make([]int, len(p))
	for i, e := range p {
		ids[i] = e.DocID
	}
	return ids
}

// AppendRecord serializes the list after term in the data-file record format
// term;docID--off--off;docID--off;
// without the trailing newline.
func (p PostingsList) AppendRecord(buf []byte, term string) []byte {
	buf = append(buf, term...)
	buf = append(buf, ';')
	for _, e := range p {
		buf = strconv.AppendInt(buf, int64(e.DocID), 10)
		for _, off := range e.Offsets {
			buf = append(buf, '-', '-')
			buf = strconv.AppendInt(buf, int64(off), 10)
		}
		buf = append(buf, ';')
	}
	return buf
}

// ParseRecord decodes a record produced by AppendRecord (newline already
// stripped) into its term and postings.
func ParseRecord(record string) (string, PostingsList, error) {
	sep := strings.IndexByte(record, ';')
	if sep < 0 {
		return "", nil, errMalformed("missing term separator")
	}
	term := record[:sep]
	rest := record[sep+1:]
	if rest != "" && !strings.HasSuffix(rest, ";") {
		return term, nil, errMalformed("unterminated postings entry")
	}
	rest = strings.TrimSuffix(rest, ";")
	if rest == "" {
		return term, PostingsList{}, nil
	}
	parts := strings.Split(rest, ";")
	list := make(PostingsList, 0, len(parts))
	for _, part := range parts {
		fields := strings.Split(part, "--")
		docID, err := strconv.Atoi(fields[0])
		if err != nil {
			return term, nil, errMalformed("bad doc id " + strconv.Quote(fields[0]))
		}
		offsets := make([]int, 0, len(fields)-1)
		for _, f := range fields[1:] {
			off, err := strconv.Atoi(f)
			if err != nil {
				return term, nil, errMalformed("bad offset " + strconv.Quote(f))
			}
			offsets = append(offsets, off)
		}
		list = append(list, PostingsEntry{DocID: docID, Offsets: offsets})
	}
	return term, list, nil
}

// RecordTerm extracts only the term of a record, which is all a dictionary
// probe needs to compare.
func RecordTerm(record string) (string, error) {
	sep := strings.IndexByte(record, ';')
	if sep < 0 {
		return "", errMalformed("missing term separator")
	}
	return record[:sep], nil
}

func errMalformed(msg string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrCorruptRecord, msg)
}
