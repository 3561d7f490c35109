package sentiment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildWordSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		lines     []string
		wantLen   int
		wantWords []string
		skipWords []string
	}{
		{
			name:    "empty input",
			lines:   []string{},
			wantLen: 0,
		},
		{
			name:      "basic words",
			lines:     []string{"good", "great", "awesome"},
			wantLen:   3,
			wantWords: []string{"good", "great", "awesome"},
		},
		{
			name:      "trims and lowercases",
			lines:     []string{"  Good  ", "GREAT\t"},
			wantLen:   2,
			wantWords: []string{"good", "great"},
			skipWords: []string{"Good", "  good  "},
		},
		{
			name:      "skips empty and comment lines",
			lines:     []string{"", "   ", "// a comment", "good", "  // indented comment"},
			wantLen:   1,
			wantWords: []string{"good"},
			skipWords: []string{"// a comment"},
		},
		{
			name:      "duplicates collapse silently",
			lines:     []string{"good", "good", "GOOD", " good "},
			wantLen:   1,
			wantWords: []string{"good"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			set := BuildWordSet(tt.lines)

			if set.Len() != tt.wantLen {
				t.Errorf("Len() = %d, want %d", set.Len(), tt.wantLen)
			}

			for _, w := range tt.wantWords {
				if !set.Contains(w) {
					t.Errorf("Contains(%q) = false, want true", w)
				}
			}

			for _, w := range tt.skipWords {
				if set.Contains(w) {
					t.Errorf("Contains(%q) = true, want false", w)
				}
			}
		})
	}
}

func TestLoadWordSet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "positive.txt")
	content := "good\nGreat\n\n// comment\nexcellent\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write word list: %v", err)
	}

	set, err := LoadWordSet(path)
	if err != nil {
		t.Fatalf("LoadWordSet() error: %v", err)
	}

	if set.Len() != 3 {
		t.Errorf("Len() = %d, want 3", set.Len())
	}

	for _, w := range []string{"good", "great", "excellent"} {
		if !set.Contains(w) {
			t.Errorf("Contains(%q) = false, want true", w)
		}
	}
}

func TestLoadWordSet_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadWordSet(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}

	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("Expected *ResourceError, got %T: %v", err, err)
	}

	if resErr.Path == "" {
		t.Error("ResourceError.Path is empty")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected wrapped os.ErrNotExist, got %v", resErr.Err)
	}
}

func TestLoadWordSet_InvalidEncoding(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte{'g', 'o', 0xff, 0xfe, 'd', '\n'}, 0644); err != nil {
		t.Fatalf("Failed to write word list: %v", err)
	}

	_, err := LoadWordSet(path)
	if err == nil {
		t.Fatal("Expected error for invalid UTF-8, got nil")
	}

	var resErr *ResourceError
	if !errors.As(err, &resErr) {
		t.Fatalf("Expected *ResourceError, got %T: %v", err, err)
	}
}
