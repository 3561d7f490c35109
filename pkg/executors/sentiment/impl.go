// Package sentiment implements the sentiment scoring executor: Map
// classifies review lines into per-line metrics, Combine pre-aggregates
// sum/count pairs, and Reduce emits the rounded average per metric.
package sentiment

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	scoring "pkg.jsn.cam/sentireduce/pkg/sentiment"
)

// SentimentWorker scores input lines against the job's word lists. Word
// sets are loaded lazily on the first Map call so that constructing the
// worker (for listings and descriptions) never touches the filesystem.
type SentimentWorker struct {
	cfg scoring.Config

	once       sync.Once
	classifier *scoring.Classifier
	loadErr    error
}

// New builds a SentimentWorker from the job configuration. Empty paths
// resolve through the environment and built-in defaults at load time.
func New(cfg sentireduce.JobConfig) (sentireduce.Worker, error) {
	return &SentimentWorker{
		cfg: scoring.Config{
			PositiveWordlist: cfg.PositiveWordlist,
			NegativeWordlist: cfg.NegativeWordlist,
		},
	}, nil
}

func (w *SentimentWorker) load() (*scoring.Classifier, error) {
	w.once.Do(func() {
		w.classifier, w.loadErr = scoring.NewClassifierFromConfig(w.cfg)
	})
	return w.classifier, w.loadErr
}

// Map classifies each line in the chunk and emits one pair per metric.
// Lines with no sentiment words emit nothing. An unreadable word list
// fails the task.
func (w *SentimentWorker) Map(chunk []string, emit sentireduce.Emitter) error {
	classifier, err := w.load()
	if err != nil {
		return fmt.Errorf("loading word lists: %w", err)
	}

	for _, line := range chunk {
		for _, m := range classifier.Classify(line) {
			emit(sentireduce.KeyValue{Key: string(m.Key), Value: strconv.Itoa(m.Value)})
		}
	}
	return nil
}

// Combine folds values for a key into a single "sum:count" partial so
// reducers receive pre-aggregated data instead of every raw metric value.
func (w *SentimentWorker) Combine(key string, values []string, emit sentireduce.Emitter) error {
	p := accumulate(values)
	if p.Count == 0 {
		return nil
	}
	emit(sentireduce.KeyValue{Key: key, Value: fmt.Sprintf("%d:%d", p.Sum, p.Count)})
	return nil
}

// Reduce computes the final average for a metric key. Values may be raw
// integers from Map or "sum:count" partials from Combine; both fold into
// the same accumulator in one pass.
func (w *SentimentWorker) Reduce(key string, values []string, emit sentireduce.Emitter) error {
	p := accumulate(values)
	if p.Count == 0 {
		return nil
	}
	emit(sentireduce.KeyValue{Key: key, Value: scoring.FormatAverage(p.Average())})
	return nil
}

func (w *SentimentWorker) Description() string {
	return "Scores lines against positive/negative word lists and averages five sentiment metrics"
}

// accumulate folds a mixed list of raw values and "sum:count" partials
// into one Partial. Unparseable values are skipped.
func accumulate(values []string) scoring.Partial {
	var p scoring.Partial
	for _, v := range values {
		if sum, count, ok := parsePartial(v); ok {
			p.Merge(scoring.Partial{Sum: sum, Count: count})
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			continue
		}
		p.Add(n)
	}
	return p
}

func parsePartial(v string) (sum, count int64, ok bool) {
	s, c, found := strings.Cut(v, ":")
	if !found {
		return 0, 0, false
	}
	sum, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	count, err = strconv.ParseInt(c, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return sum, count, true
}
