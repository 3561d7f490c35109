package sentiment

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	scoring "pkg.jsn.cam/sentireduce/pkg/sentiment"
)

func writeWordlists(t *testing.T) sentireduce.JobConfig {
	t.Helper()
	dir := t.TempDir()
	pos := filepath.Join(dir, "positive.txt")
	neg := filepath.Join(dir, "negative.txt")
	if err := os.WriteFile(pos, []byte("good\nexcellent\nawesome\ngreat\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(neg, []byte("bad\nterrible\nawful\nhorrible\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return sentireduce.JobConfig{PositiveWordlist: pos, NegativeWordlist: neg}
}

func collect() (sentireduce.Emitter, *[]sentireduce.KeyValue) {
	var out []sentireduce.KeyValue
	return func(kv sentireduce.KeyValue) { out = append(out, kv) }, &out
}

func TestMapEmitsFiveMetricsPerMatchingLine(t *testing.T) {
	t.Parallel()

	worker, err := New(writeWordlists(t))
	if err != nil {
		t.Fatal(err)
	}

	emit, out := collect()
	err = worker.Map([]string{
		"This movie was good, really excellent!",
		"nothing to see here",
	}, emit)
	if err != nil {
		t.Fatal(err)
	}

	if len(*out) != 5 {
		t.Fatalf("expected 5 pairs, got %d: %v", len(*out), *out)
	}

	want := map[string]string{
		"PositiveWordCount": "2",
		"NegativeWordCount": "0",
		"PositiveScore":     "100",
		"NegativeScore":     "0",
		"SentimentRatio":    "100",
	}
	for _, kv := range *out {
		if want[kv.Key] != kv.Value {
			t.Errorf("%s = %s, want %s", kv.Key, kv.Value, want[kv.Key])
		}
	}
}

func TestMapUnreadableWordlistFailsTask(t *testing.T) {
	t.Parallel()

	worker, err := New(sentireduce.JobConfig{
		PositiveWordlist: filepath.Join(t.TempDir(), "missing.txt"),
		NegativeWordlist: filepath.Join(t.TempDir(), "missing.txt"),
	})
	if err != nil {
		t.Fatal(err)
	}

	emit, _ := collect()
	err = worker.Map([]string{"good"}, emit)
	if err == nil {
		t.Fatal("expected error for missing word list")
	}
	var re *scoring.ResourceError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResourceError, got %v", err)
	}
}

func TestCombineEmitsPartial(t *testing.T) {
	t.Parallel()

	worker := &SentimentWorker{}
	emit, out := collect()
	if err := worker.Combine("SentimentRatio", []string{"100", "-100", "50"}, emit); err != nil {
		t.Fatal(err)
	}
	if len(*out) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(*out))
	}
	if got := (*out)[0].Value; got != "50:3" {
		t.Errorf("partial = %s, want 50:3", got)
	}
}

func TestCombineFoldsExistingPartials(t *testing.T) {
	t.Parallel()

	worker := &SentimentWorker{}
	emit, out := collect()
	if err := worker.Combine("PositiveScore", []string{"50:2", "100", "25:1"}, emit); err != nil {
		t.Fatal(err)
	}
	if got := (*out)[0].Value; got != "175:4" {
		t.Errorf("partial = %s, want 175:4", got)
	}
}

func TestReduce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		key    string
		values []string
		want   string
	}{
		{"raw values", "SentimentRatio", []string{"33", "34", "33"}, "33.33"},
		{"partials", "SentimentRatio", []string{"67:2", "33:1"}, "33.33"},
		{"mixed", "PositiveScore", []string{"50:2", "100"}, "50.00"},
		{"cancels to zero", "SentimentRatio", []string{"50", "-50", "25", "-25"}, "0.00"},
		{"single value", "PositiveWordCount", []string{"2"}, "2.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			worker := &SentimentWorker{}
			emit, out := collect()
			if err := worker.Reduce(tt.key, tt.values, emit); err != nil {
				t.Fatal(err)
			}
			if len(*out) != 1 {
				t.Fatalf("expected 1 pair, got %d", len(*out))
			}
			if got := (*out)[0]; got.Key != tt.key || got.Value != tt.want {
				t.Errorf("got %s=%s, want %s=%s", got.Key, got.Value, tt.key, tt.want)
			}
		})
	}
}

func TestReduceNoParseableValuesEmitsNothing(t *testing.T) {
	t.Parallel()

	worker := &SentimentWorker{}
	emit, out := collect()
	if err := worker.Reduce("SentimentRatio", []string{"junk", ""}, emit); err != nil {
		t.Fatal(err)
	}
	if len(*out) != 0 {
		t.Fatalf("expected no output, got %v", *out)
	}
}
