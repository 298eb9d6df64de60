package segment

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/hashed-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

// Reader serves lookups from a committed index directory. All reads go
// through ReadAt, so a Reader is safe for concurrent use.
type Reader struct {
	dir      string
	dict     *os.File
	data     *os.File
	dataSize int64
	hasher   Hasher
	docs     map[int]DocInfo
	terms    []string
}

// Open opens the committed index in dir. The returned error wraps
// fs.ErrNotExist when no index has been committed there yet.
func Open(dir string) (*Reader, error) {
	data, err := os.Open(filepath.Join(dir, DataFile))
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	dict, err := os.Open(filepath.Join(dir, DictionaryFile))
	if err != nil {
		data.Close()
		return nil, fmt.Errorf("opening dictionary: %w", err)
	}
	r := &Reader{dir: dir, dict: dict, data: data}
	if err := r.load(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) load() error {
	info, err := r.data.Stat()
	if err != nil {
		return fmt.Errorf("stat data file: %w", err)
	}
	r.dataSize = info.Size()

	header, err := bufio.NewReader(io.NewSectionReader(r.data, 0, r.dataSize)).ReadString('\n')
	if err != nil {
		return fmt.Errorf("%w: reading data header: %v", apperrors.ErrCorruptRecord, err)
	}
	if r.hasher, err = parseDataHeader(header); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCorruptRecord, err)
	}

	dictInfo, err := r.dict.Stat()
	if err != nil {
		return fmt.Errorf("stat dictionary: %w", err)
	}
	if dictInfo.Size() != r.hasher.DictionarySize() {
		return fmt.Errorf("%w: dictionary is %d bytes, want %d",
			apperrors.ErrCorruptRecord, dictInfo.Size(), r.hasher.DictionarySize())
	}

	if r.docs, err = readDocInfo(filepath.Join(r.dir, DocInfoFile)); err != nil {
		return err
	}
	if r.terms, err = readTerms(filepath.Join(r.dir, TermsFile)); err != nil {
		return err
	}
	return nil
}

// Lookup probes the dictionary from the term's hash slot. An unused slot or a
// probe sequence that wraps the whole table means the term is absent, which is
// reported as a nil list and no error.
func (r *Reader) Lookup(term string) (index.PostingsList, error) {
	slot := r.hasher.Slot(term)
	for probes := uint64(0); probes < r.hasher.TableSize; probes++ {
		offset, err := r.readSlot(slot)
		if err != nil {
			return nil, err
		}
		if offset == 0 {
			return nil, nil
		}
		record, err := r.readRecord(offset)
		if err != nil {
			return nil, err
		}
		t, err := index.RecordTerm(record)
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", offset, err)
		}
		if t == term {
			_, postings, err := index.ParseRecord(record)
			if err != nil {
				return nil, fmt.Errorf("record at offset %d: %w", offset, err)
			}
			return postings, nil
		}
		slot = r.hasher.Next(slot)
	}
	return nil, nil
}

func (r *Reader) readSlot(slot uint64) (int64, error) {
	var buf [SlotSize]byte
	if _, err := r.dict.ReadAt(buf[:], int64(slot)*SlotSize); err != nil {
		return 0, fmt.Errorf("reading dictionary slot %d: %w", slot, err)
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// readRecord returns the record at offset without its trailing newline.
func (r *Reader) readRecord(offset int64) (string, error) {
	if offset < 0 || offset >= r.dataSize {
		return "", fmt.Errorf("%w: offset %d outside data file of %d bytes",
			apperrors.ErrCorruptRecord, offset, r.dataSize)
	}
	br := bufio.NewReader(io.NewSectionReader(r.data, offset, r.dataSize-offset))
	line, err := br.ReadString('\n')
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: truncated record at offset %d", apperrors.ErrCorruptRecord, offset)
	}
	if err != nil {
		return "", fmt.Errorf("reading record at offset %d: %w", offset, err)
	}
	return line[:len(line)-1], nil
}

func (r *Reader) Doc(docID int) (DocInfo, bool) {
	d, ok := r.docs[docID]
	return d, ok
}

// Docs returns the docinfo table. Callers must not modify it.
func (r *Reader) Docs() map[int]DocInfo {
	return r.docs
}

// Terms returns the persisted terms in term-ID order.
func (r *Reader) Terms() []string {
	return r.terms
}

func (r *Reader) Hasher() Hasher {
	return r.hasher
}

func (r *Reader) DataSize() int64 {
	return r.dataSize
}

func (r *Reader) Close() error {
	var errs []error
	if r.dict != nil {
		errs = append(errs, r.dict.Close())
	}
	if r.data != nil {
		errs = append(errs, r.data.Close())
	}
	return errors.Join(errs...)
}
