package segment

import (
	"fmt"
	"strings"
)

const (
	DictionaryFile = "dictionary"
	DataFile       = "data"
	DocInfoFile    = "docinfo"
	TermsFile      = "terms"

	dataMagic = "#hashed-search data v1"
)

// dataHeader is the first line of the data file. It keeps offset 0 free of
// records and records the hash parameters the dictionary was built with.
func dataHeader(h Hasher) string {
	return fmt.Sprintf("%s table=%d mult=%d\n", dataMagic, h.TableSize, h.Multiplier)
}

func parseDataHeader(line string) (Hasher, error) {
	line = strings.TrimSuffix(line, "\n")
	if !strings.HasPrefix(line, dataMagic+" ") {
		return Hasher{}, fmt.Errorf("unrecognised data header %q", line)
	}
	var table, mult int
	if _, err := fmt.Sscanf(line[len(dataMagic)+1:], "table=%d mult=%d", &table, &mult); err != nil {
		return Hasher{}, fmt.Errorf("parsing data header %q: %w", line, err)
	}
	return NewHasher(mult, table)
}
