// Package sentiment implements the classify/aggregate core of SentiReduce:
// word set construction, per-line sentiment classification, and per-metric
// averaging. It is pure computation over in-memory data; all I/O beyond
// loading word lists belongs to the surrounding pipeline.
package sentiment

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ResourceError reports a word list that could not be read or decoded.
// It is fatal to whichever pipeline instance needed the set: classification
// cannot proceed without both word lists, so callers should abort the map
// task rather than retry.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("word list %s: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// WordSet is an immutable set of normalized words. It is built once and
// safely shared read-only by concurrent classification calls.
type WordSet struct {
	words map[string]struct{}
}

// BuildWordSet constructs a WordSet from raw lines. Each line is trimmed
// and lowercased; lines that are empty or start with "//" are skipped.
// Duplicates collapse silently.
func BuildWordSet(lines []string) *WordSet {
	words := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		word := strings.ToLower(strings.TrimSpace(line))
		if word == "" || strings.HasPrefix(word, "//") {
			continue
		}
		words[word] = struct{}{}
	}
	return &WordSet{words: words}
}

// LoadWordSet reads a word list file (UTF-8, one word per line) and builds
// a WordSet from it. Any failure to read or decode the file returns a
// *ResourceError.
func LoadWordSet(path string) (*WordSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Err: err}
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) {
			return nil, &ResourceError{Path: path, Err: fmt.Errorf("invalid UTF-8 encoding")}
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ResourceError{Path: path, Err: err}
	}

	return BuildWordSet(lines), nil
}

// Contains reports whether word is in the set. The caller is expected to
// pass an already-normalized (lowercase, cleaned) token.
func (s *WordSet) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Len returns the number of distinct words in the set.
func (s *WordSet) Len() int { return len(s.words) }
