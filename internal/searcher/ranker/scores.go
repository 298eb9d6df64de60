package ranker

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Scores maps document names to an externally computed score.
type Scores map[string]float64

// LoadScores reads `docName;score` lines. A missing file yields nil scores
// and no error, which disables blending.
func LoadScores(path string) (Scores, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Default().With("component", "ranker").Warn("score file not found, blending disabled", "path", path)
			return nil, nil
		}
		return nil, fmt.Errorf("opening score file: %w", err)
	}
	defer f.Close()

	scores := make(Scores)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		sep := strings.LastIndexByte(text, ';')
		if sep < 0 {
			return nil, fmt.Errorf("score file %s line %d: missing ';'", path, line)
		}
		score, err := strconv.ParseFloat(text[sep+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("score file %s line %d: %w", path, line, err)
		}
		scores[text[:sep]] = score
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading score file: %w", err)
	}
	return scores, nil
}
