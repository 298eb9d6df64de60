package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/kgram"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

// Engine owns an index directory through its whole lifecycle: terms are
// inserted into an in-memory buffer, Commit writes the hashed dictionary and
// data files, and the committed index then serves lookups.
//
// The build phase has a single writer: Insert, IndexDocument, SetDocInfo and
// Commit must not be called concurrently. Once committed, lookups are safe
// from any number of goroutines.
type Engine struct {
	cfg       config.IndexerConfig
	hasher    segment.Hasher
	tokenizer *tokenizer.Tokenizer
	kgrams    *kgram.Index
	logger    *slog.Logger

	memIndex  *index.MemoryIndex
	docs      map[int]segment.DocInfo
	inferred  map[int]struct{}
	nextDocID int

	readerMu sync.RWMutex
	reader   *segment.Reader
	closed   bool
}

// Open returns an Engine serving the index committed in cfg.DataDir. When no
// index has been committed there yet the Engine starts empty, ready to build.
func Open(cfg config.IndexerConfig) (*Engine, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	reader, err := segment.Open(cfg.DataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.logger.Info("no committed index found, starting empty", "dir", cfg.DataDir)
			return e, nil
		}
		return nil, fmt.Errorf("opening index: %w", err)
	}
	e.attach(reader)
	e.logger.Info("index opened",
		"dir", cfg.DataDir,
		"terms", len(reader.Terms()),
		"docs", len(reader.Docs()),
		"table_size", reader.Hasher().TableSize,
	)
	return e, nil
}

// Create returns an Engine that builds a fresh index in cfg.DataDir. Any index
// already there is replaced on Commit.
func Create(cfg config.IndexerConfig) (*Engine, error) {
	return newEngine(cfg)
}

func newEngine(cfg config.IndexerConfig) (*Engine, error) {
	hasher, err := segment.NewHasher(cfg.HashMultiplier, cfg.TableSize)
	if err != nil {
		return nil, fmt.Errorf("configuring dictionary hash: %w", err)
	}
	kg, err := kgram.New(cfg.KGramSize)
	if err != nil {
		return nil, fmt.Errorf("creating k-gram index: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	return &Engine{
		cfg:       cfg,
		hasher:    hasher,
		tokenizer: tokenizer.New(tokenizer.Options{Stemming: cfg.Stemming, StopWords: cfg.StopWords}),
		kgrams:    kg,
		logger:    slog.Default().With("component", "indexer"),
		memIndex:  index.NewMemoryIndex(),
		docs:      make(map[int]segment.DocInfo),
		inferred:  make(map[int]struct{}),
	}, nil
}

// attach switches the engine to serving from reader and rebuilds the k-gram
// index from the persisted terms so term IDs match the committed build.
func (e *Engine) attach(reader *segment.Reader) {
	kg, _ := kgram.New(e.cfg.KGramSize)
	for _, t := range reader.Terms() {
		kg.Insert(t)
	}
	e.readerMu.Lock()
	old := e.reader
	e.reader = reader
	e.kgrams = kg
	e.readerMu.Unlock()
	if old != nil {
		if err := old.Close(); err != nil {
			e.logger.Error("closing previous index reader", "error", err)
		}
	}
}

func (e *Engine) writable() error {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	if e.closed {
		return apperrors.ErrIndexClosed
	}
	if e.reader != nil {
		return apperrors.ErrReadOnly
	}
	return nil
}

// Insert records one occurrence of term at offset in docID. The first
// sighting of a term registers it with the k-gram index. A document seen only
// through Insert is named by its ID and its length is its highest offset plus
// one, until SetDocInfo says otherwise.
func (e *Engine) Insert(term string, docID, offset int) error {
	if err := e.writable(); err != nil {
		return err
	}
	if err := segment.ValidateTerm(term); err != nil {
		return err
	}
	if e.memIndex.Insert(term, docID, offset) {
		e.kgrams.Insert(term)
	}
	d, known := e.docs[docID]
	if !known {
		d = segment.DocInfo{ID: docID, Name: strconv.Itoa(docID)}
		e.inferred[docID] = struct{}{}
	}
	if _, ok := e.inferred[docID]; ok && offset >= d.Length {
		d.Length = offset + 1
		e.docs[docID] = d
	}
	if docID >= e.nextDocID {
		e.nextDocID = docID + 1
	}
	return nil
}

// SetDocInfo records the name and token length of a document inserted
// through Insert.
func (e *Engine) SetDocInfo(docID int, name string, length int) error {
	if err := e.writable(); err != nil {
		return err
	}
	e.docs[docID] = segment.DocInfo{ID: docID, Name: name, Length: length}
	delete(e.inferred, docID)
	if docID >= e.nextDocID {
		e.nextDocID = docID + 1
	}
	return nil
}

// IndexDocument tokenizes text, inserts every token at its position under a
// newly assigned document ID and returns that ID.
func (e *Engine) IndexDocument(name, text string) (int, error) {
	if err := e.writable(); err != nil {
		return 0, err
	}
	docID := e.nextDocID
	tokens := e.tokenizer.Tokenize(text)
	for _, tok := range tokens {
		if err := e.Insert(tok.Term, docID, tok.Position); err != nil {
			return 0, fmt.Errorf("indexing %s: %w", name, err)
		}
	}
	if err := e.SetDocInfo(docID, name, len(tokens)); err != nil {
		return 0, err
	}
	e.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"doc_name", name,
		"token_count", len(tokens),
		"mem_size", e.memIndex.Size(),
	)
	return docID, nil
}

// Commit writes the buffered index to disk and switches the engine to
// serving it.
func (e *Engine) Commit() (segment.CommitStats, error) {
	if err := e.writable(); err != nil {
		return segment.CommitStats{}, err
	}
	docs := make([]segment.DocInfo, 0, len(e.docs))
	for _, d := range e.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	snapshot := segment.Snapshot{
		Entries: e.memIndex.Snapshot(),
		Docs:    docs,
		Terms:   e.kgrams.Terms(),
	}
	stats, err := segment.NewWriter(e.cfg.DataDir, e.hasher).Commit(snapshot)
	if err != nil {
		return stats, fmt.Errorf("committing index: %w", err)
	}
	reader, err := segment.Open(e.cfg.DataDir)
	if err != nil {
		return stats, fmt.Errorf("opening committed index: %w", err)
	}
	e.attach(reader)
	e.memIndex.Reset()
	e.docs = make(map[int]segment.DocInfo)
	e.inferred = make(map[int]struct{})
	return stats, nil
}

// Lookup returns a copy of the postings of term, nil when it is not indexed.
// Before the first commit it reads the in-memory buffer.
func (e *Engine) Lookup(term string) (index.PostingsList, error) {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	if e.closed {
		return nil, apperrors.ErrIndexClosed
	}
	if e.reader == nil {
		return e.memIndex.Search(term), nil
	}
	return e.reader.Lookup(term)
}

// TotalDocs is the number of documents in the index.
func (e *Engine) TotalDocs() int {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	if e.reader == nil {
		return len(e.docs)
	}
	return len(e.reader.Docs())
}

func (e *Engine) Doc(docID int) (segment.DocInfo, bool) {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	if e.reader == nil {
		d, ok := e.docs[docID]
		return d, ok
	}
	return e.reader.Doc(docID)
}

// DocLength is the token count of docID, 0 when unknown.
func (e *Engine) DocLength(docID int) int {
	d, _ := e.Doc(docID)
	return d.Length
}

// DocName is the name docID was indexed under, "" when unknown.
func (e *Engine) DocName(docID int) string {
	d, _ := e.Doc(docID)
	return d.Name
}

// KGrams returns the k-gram index of every indexed term. It must not be
// modified by callers.
func (e *Engine) KGrams() *kgram.Index {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	return e.kgrams
}

// Tokenizer returns the tokenizer documents are indexed with, so queries can
// be normalised the same way.
func (e *Engine) Tokenizer() *tokenizer.Tokenizer {
	return e.tokenizer
}

// Stats summarises the index.
type Stats struct {
	Dir        string  `json:"dir"`
	Committed  bool    `json:"committed"`
	Terms      int     `json:"terms"`
	Docs       int     `json:"docs"`
	TableSize  uint64  `json:"table_size"`
	Multiplier uint64  `json:"multiplier"`
	LoadFactor float64 `json:"load_factor"`
	DataBytes  int64   `json:"data_bytes"`
	KGramSize  int     `json:"kgram_size"`
}

func (e *Engine) Stats() Stats {
	e.readerMu.RLock()
	defer e.readerMu.RUnlock()
	s := Stats{
		Dir:       e.cfg.DataDir,
		Terms:     e.kgrams.Len(),
		KGramSize: e.kgrams.K(),
	}
	h := e.hasher
	if e.reader != nil {
		s.Committed = true
		s.Docs = len(e.reader.Docs())
		s.DataBytes = e.reader.DataSize()
		h = e.reader.Hasher()
	} else {
		s.Docs = len(e.docs)
	}
	s.TableSize = h.TableSize
	s.Multiplier = h.Multiplier
	s.LoadFactor = float64(s.Terms) / float64(h.TableSize)
	return s
}

func (e *Engine) Close() error {
	e.readerMu.Lock()
	defer e.readerMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if e.reader == nil {
		return nil
	}
	err := e.reader.Close()
	e.reader = nil
	return err
}

// Reload reopens the committed index in the data directory, picking up a
// commit made by another process. Lookups already running finish against the
// previous files.
func (e *Engine) Reload() error {
	e.readerMu.RLock()
	closed := e.closed
	e.readerMu.RUnlock()
	if closed {
		return apperrors.ErrIndexClosed
	}
	reader, err := segment.Open(e.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("reloading index: %w", err)
	}
	e.attach(reader)
	e.logger.Info("index reloaded",
		"dir", e.cfg.DataDir,
		"terms", len(reader.Terms()),
		"docs", len(reader.Docs()),
	)
	return nil
}
