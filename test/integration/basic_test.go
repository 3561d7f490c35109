package integration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkg.jsn.cam/sentireduce/pkg/executors/sentiment"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func newTestWorker(t *testing.T, dir string) sentireduce.Worker {
	t.Helper()

	positive := writeFixture(t, dir, "positive.txt", "good\nexcellent\nawesome\ngreat\n")
	negative := writeFixture(t, dir, "negative.txt", "bad\nterrible\nawful\nhorrible\n")

	w, err := sentiment.New(sentireduce.JobConfig{
		PositiveWordlist: positive,
		NegativeWordlist: negative,
	})
	if err != nil {
		t.Fatalf("Failed to build sentiment worker: %v", err)
	}
	return w
}

// TestSentimentPipeline runs the full pipeline over the canonical
// three-line fixture and checks the aggregated metrics exactly.
func TestSentimentPipeline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeFixture(t, dir, "reviews.txt", strings.Join([]string{
		"This is good and excellent content",
		"This is bad and terrible content",
		"This has good and bad parts",
	}, "\n")+"\n")

	worker := newTestWorker(t, dir)

	results, err := sentireduce.RunLocal(input, 1, worker)
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}

	got := make(map[string]string)
	for _, kv := range results {
		got[kv.Key] = kv.Value
	}

	want := map[string]string{
		"PositiveWordCount": "1.00",
		"NegativeWordCount": "1.00",
		"PositiveScore":     "50.00",
		"NegativeScore":     "50.00",
		"SentimentRatio":    "0.00",
	}

	if len(got) != len(want) {
		t.Errorf("Expected %d metrics, got %d: %v", len(want), len(got), got)
	}

	for key, expected := range want {
		if actual, exists := got[key]; !exists {
			t.Errorf("Metric %q not found in results", key)
		} else if actual != expected {
			t.Errorf("Metric %q = %s, want %s", key, actual, expected)
		}
	}
}

// TestSentimentPipelineChunkSizeInvariance verifies chunking does not
// change the aggregated output.
func TestSentimentPipelineChunkSizeInvariance(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeFixture(t, dir, "reviews.txt", strings.Join([]string{
		"good great service",
		"nothing to say here",
		"awful horrible support",
		"good but terrible value",
		"excellent",
	}, "\n")+"\n")

	worker := newTestWorker(t, dir)

	baseline, err := sentireduce.RunLocal(input, 1, worker)
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}

	for _, chunkSize := range []int{2, 3, 100} {
		results, err := sentireduce.RunLocal(input, chunkSize, worker)
		if err != nil {
			t.Fatalf("RunLocal (chunk size %d) failed: %v", chunkSize, err)
		}

		if len(results) != len(baseline) {
			t.Fatalf("Chunk size %d: got %d results, want %d", chunkSize, len(results), len(baseline))
		}
		for i := range results {
			if results[i] != baseline[i] {
				t.Errorf("Chunk size %d: result[%d] = %v, want %v", chunkSize, i, results[i], baseline[i])
			}
		}
	}
}

// TestEmptyFile verifies an empty input produces no metrics at all.
func TestEmptyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeFixture(t, dir, "empty.txt", "")

	worker := newTestWorker(t, dir)

	results, err := sentireduce.RunLocal(input, 1, worker)
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}

	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty file, got %d", len(results))
	}
}

// TestNeutralOnlyInput verifies lines with no sentiment words emit
// nothing rather than zero-valued metrics.
func TestNeutralOnlyInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeFixture(t, dir, "neutral.txt", "the package arrived\nit contains a manual\n")

	worker := newTestWorker(t, dir)

	results, err := sentireduce.RunLocal(input, 1, worker)
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}

	if len(results) != 0 {
		t.Errorf("Expected 0 results for neutral-only input, got %d: %v", len(results), results)
	}
}

// TestWriteResultsRoundTrip verifies the output file format.
func TestWriteResultsRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := writeFixture(t, dir, "reviews.txt", "good good bad\n")

	worker := newTestWorker(t, dir)

	results, err := sentireduce.RunLocal(input, 1, worker)
	if err != nil {
		t.Fatalf("RunLocal failed: %v", err)
	}

	out := filepath.Join(dir, "out", "results.tsv")
	if err := sentireduce.WriteResults(out, results); err != nil {
		t.Fatalf("WriteResults failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 output lines, got %d: %q", len(lines), string(data))
	}

	// One line with pos=2, neg=1, total=3: scores truncate toward zero.
	want := map[string]string{
		"NegativeScore":     "33.00",
		"NegativeWordCount": "1.00",
		"PositiveScore":     "66.00",
		"PositiveWordCount": "2.00",
		"SentimentRatio":    "33.00",
	}

	for i, line := range lines {
		key, value, ok := strings.Cut(line, "\t")
		if !ok {
			t.Fatalf("Line %d not tab-separated: %q", i, line)
		}
		if want[key] != value {
			t.Errorf("Metric %q = %s, want %s", key, value, want[key])
		}
	}
}
