package segment

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

// Snapshot is everything a commit persists.
type Snapshot struct {
	Entries []index.TermEntry
	Docs    []DocInfo
	// Terms in k-gram term-ID order.
	Terms []string
}

// CommitStats describes the dictionary a commit produced.
type CommitStats struct {
	Terms      int     `json:"terms"`
	Docs       int     `json:"docs"`
	DataBytes  int64   `json:"data_bytes"`
	MaxProbe   int     `json:"max_probe"`
	AvgProbe   float64 `json:"avg_probe"`
	LoadFactor float64 `json:"load_factor"`
}

// Writer persists a Snapshot as a hashed dictionary plus its side files.
// Every file is written to a .tmp sibling and renamed into place once all of
// them are complete.
type Writer struct {
	dir    string
	hasher Hasher
	logger *slog.Logger
}

func NewWriter(dir string, hasher Hasher) *Writer {
	return &Writer{
		dir:    dir,
		hasher: hasher,
		logger: slog.Default().With("component", "segment-writer"),
	}
}

func (w *Writer) Commit(s Snapshot) (CommitStats, error) {
	if uint64(len(s.Entries)) > w.hasher.TableSize {
		return CommitStats{}, fmt.Errorf("%w: %d terms for %d slots",
			apperrors.ErrDictionaryFull, len(s.Entries), w.hasher.TableSize)
	}
	for _, e := range s.Entries {
		if err := ValidateTerm(e.Term); err != nil {
			return CommitStats{}, err
		}
	}
	entries := s.Entries
	if !sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term }) {
		entries = make([]index.TermEntry, len(s.Entries))
		copy(entries, s.Entries)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return CommitStats{}, fmt.Errorf("creating index directory: %w", err)
	}

	var pending []string
	cleanup := func() {
		for _, p := range pending {
			os.Remove(p)
		}
	}

	offsets, dataBytes, err := w.writeData(entries)
	pending = append(pending, w.tmp(DataFile))
	if err != nil {
		cleanup()
		return CommitStats{}, err
	}
	stats, err := w.writeDictionary(entries, offsets)
	pending = append(pending, w.tmp(DictionaryFile))
	if err != nil {
		cleanup()
		return CommitStats{}, err
	}
	pending = append(pending, w.tmp(DocInfoFile))
	if err := w.writeFile(DocInfoFile, func(bw *bufio.Writer) error { return writeDocInfo(bw, s.Docs) }); err != nil {
		cleanup()
		return CommitStats{}, fmt.Errorf("writing docinfo: %w", err)
	}
	pending = append(pending, w.tmp(TermsFile))
	if err := w.writeFile(TermsFile, func(bw *bufio.Writer) error { return writeTerms(bw, s.Terms) }); err != nil {
		cleanup()
		return CommitStats{}, fmt.Errorf("writing terms: %w", err)
	}

	for _, name := range []string{DataFile, DictionaryFile, DocInfoFile, TermsFile} {
		if err := os.Rename(w.tmp(name), filepath.Join(w.dir, name)); err != nil {
			cleanup()
			return CommitStats{}, fmt.Errorf("renaming %s: %w", name, err)
		}
	}

	stats.Docs = len(s.Docs)
	stats.DataBytes = dataBytes
	w.logger.Info("index committed",
		"dir", w.dir,
		"terms", stats.Terms,
		"docs", stats.Docs,
		"data_bytes", stats.DataBytes,
		"max_probe", stats.MaxProbe,
		"load_factor", stats.LoadFactor,
	)
	return stats, nil
}

// writeData appends one newline-terminated record per entry after the header
// and returns each record's offset.
func (w *Writer) writeData(entries []index.TermEntry) ([]int64, int64, error) {
	offsets := make([]int64, len(entries))
	var cursor int64
	err := w.writeFile(DataFile, func(bw *bufio.Writer) error {
		header := dataHeader(w.hasher)
		if _, err := bw.WriteString(header); err != nil {
			return fmt.Errorf("writing data header: %w", err)
		}
		cursor = int64(len(header))
		buf := make([]byte, 0, 256)
		for i, e := range entries {
			buf = e.Postings.AppendRecord(buf[:0], e.Term)
			buf = append(buf, '\n')
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("writing data record for %q: %w", e.Term, err)
			}
			offsets[i] = cursor
			cursor += int64(len(buf))
		}
		return nil
	})
	return offsets, cursor, err
}

// writeDictionary zero-fills the table, then places every record offset by
// linear probing from the term's hash slot.
func (w *Writer) writeDictionary(entries []index.TermEntry, offsets []int64) (CommitStats, error) {
	stats := CommitStats{Terms: len(entries)}
	path := w.tmp(DictionaryFile)
	f, err := os.Create(path)
	if err != nil {
		return stats, fmt.Errorf("creating dictionary: %w", err)
	}
	defer f.Close()
	if err := f.Truncate(w.hasher.DictionarySize()); err != nil {
		return stats, fmt.Errorf("sizing dictionary: %w", err)
	}

	occupied := roaring.New()
	var slotBuf [SlotSize]byte
	totalProbes := 0
	for i, e := range entries {
		slot := w.hasher.Slot(e.Term)
		probes := 0
		for occupied.Contains(uint32(slot)) {
			slot = w.hasher.Next(slot)
			probes++
		}
		occupied.Add(uint32(slot))
		binary.BigEndian.PutUint64(slotBuf[:], uint64(offsets[i]))
		if _, err := f.WriteAt(slotBuf[:], int64(slot)*SlotSize); err != nil {
			return stats, fmt.Errorf("writing dictionary slot %d: %w", slot, err)
		}
		totalProbes += probes
		stats.MaxProbe = max(stats.MaxProbe, probes)
	}
	if err := f.Sync(); err != nil {
		return stats, fmt.Errorf("syncing dictionary: %w", err)
	}
	if len(entries) > 0 {
		stats.AvgProbe = float64(totalProbes) / float64(len(entries))
	}
	stats.LoadFactor = float64(len(entries)) / float64(w.hasher.TableSize)
	return stats, nil
}

func (w *Writer) writeFile(name string, fill func(*bufio.Writer) error) error {
	f, err := os.Create(w.tmp(name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()
	bw := bufio.NewWriterSize(f, 64*1024)
	if err := fill(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", name, err)
	}
	return nil
}

func (w *Writer) tmp(name string) string {
	return filepath.Join(w.dir, name+".tmp")
}

// ValidateTerm rejects terms that would break the record format.
func ValidateTerm(term string) error {
	if term == "" {
		return fmt.Errorf("%w: empty term", apperrors.ErrInvalidTerm)
	}
	if strings.ContainsAny(term, ";\n\r") {
		return fmt.Errorf("%w: %q contains a record separator", apperrors.ErrInvalidTerm, term)
	}
	return nil
}
