package segment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/hashed-search/pkg/errors"
)

// DocInfo is the per-document metadata kept beside the postings.
type DocInfo struct {
	ID     int    `json:"doc_id"`
	Name   string `json:"doc_name"`
	Length int    `json:"length"`
}

// writeDocInfo writes one `docID;docName;docLength` line per document.
func writeDocInfo(w *bufio.Writer, docs []DocInfo) error {
	for _, d := range docs {
		if strings.ContainsAny(d.Name, "\n\r") {
			return fmt.Errorf("%w: document name %q contains a line break", apperrors.ErrInvalidInput, d.Name)
		}
		if _, err := fmt.Fprintf(w, "%d;%s;%d\n", d.ID, d.Name, d.Length); err != nil {
			return err
		}
	}
	return nil
}

// readDocInfo loads the docinfo file. Names may contain ';', so the id is the
// first field and the length the last.
func readDocInfo(path string) (map[int]DocInfo, error) {
	docs := make(map[int]DocInfo)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return docs, nil
		}
		return nil, fmt.Errorf("opening docinfo: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		first := strings.IndexByte(text, ';')
		last := strings.LastIndexByte(text, ';')
		if first < 0 || first == last {
			return nil, fmt.Errorf("%w: docinfo line %d: %q", apperrors.ErrCorruptRecord, line, text)
		}
		id, err := strconv.Atoi(text[:first])
		if err != nil {
			return nil, fmt.Errorf("%w: docinfo line %d: bad doc id", apperrors.ErrCorruptRecord, line)
		}
		length, err := strconv.Atoi(text[last+1:])
		if err != nil {
			return nil, fmt.Errorf("%w: docinfo line %d: bad length", apperrors.ErrCorruptRecord, line)
		}
		docs[id] = DocInfo{ID: id, Name: text[first+1 : last], Length: length}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading docinfo: %w", err)
	}
	return docs, nil
}

func writeTerms(w *bufio.Writer, terms []string) error {
	for _, t := range terms {
		if _, err := w.WriteString(t); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

// readTerms returns the terms file in order, nil when it does not exist.
func readTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening terms: %w", err)
	}
	defer f.Close()

	var terms []string
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			if line != "" {
				return nil, fmt.Errorf("%w: terms file ends without newline", apperrors.ErrCorruptRecord)
			}
			return terms, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading terms: %w", err)
		}
		terms = append(terms, strings.TrimSuffix(line, "\n"))
	}
}
