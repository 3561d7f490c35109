package sentiment

import "strings"

// MetricKey identifies one of the five metrics emitted per classified line.
// The key space is closed: no other keys ever reach the aggregation stage.
type MetricKey string

const (
	PositiveWordCount MetricKey = "PositiveWordCount"
	NegativeWordCount MetricKey = "NegativeWordCount"
	PositiveScore     MetricKey = "PositiveScore"
	NegativeScore     MetricKey = "NegativeScore"
	SentimentRatio    MetricKey = "SentimentRatio"
)

// MetricKeys lists every metric key in emission order.
var MetricKeys = []MetricKey{
	PositiveWordCount,
	NegativeWordCount,
	PositiveScore,
	NegativeScore,
	SentimentRatio,
}

// Metric is a single (key, value) pair emitted for a classified line.
// Counts are non-negative, scores lie in [0,100], the ratio in [-100,100].
type Metric struct {
	Key   MetricKey
	Value int
}

// Classifier scores a line of text against a positive and a negative word
// set. It holds no mutable state, so a single Classifier may be shared by
// arbitrarily many concurrent callers.
type Classifier struct {
	positive *WordSet
	negative *WordSet
}

// NewClassifier creates a Classifier over the given word sets.
func NewClassifier(positive, negative *WordSet) *Classifier {
	return &Classifier{positive: positive, negative: negative}
}

// NewClassifierFromConfig resolves cfg and loads both word sets. A word
// list that cannot be read yields a *ResourceError.
func NewClassifierFromConfig(cfg Config) (*Classifier, error) {
	cfg = cfg.WithDefaults()

	positive, err := LoadWordSet(cfg.PositiveWordlist)
	if err != nil {
		return nil, err
	}
	negative, err := LoadWordSet(cfg.NegativeWordlist)
	if err != nil {
		return nil, err
	}

	return NewClassifier(positive, negative), nil
}

// Classify scores one line and returns its five metrics, or nil when the
// line contains no sentiment word at all (such lines are dropped entirely;
// partial emission never happens). A token present in both word sets
// counts toward both — deliberately, not a bug.
func (c *Classifier) Classify(line string) []Metric {
	var pos, neg int

	for _, token := range strings.Fields(strings.ToLower(line)) {
		word := cleanToken(token)
		if c.positive.Contains(word) {
			pos++
		}
		if c.negative.Contains(word) {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return nil
	}

	// Percentages truncate toward zero. The aggregation stage rounds;
	// this stage must not.
	ratio := int(float64(pos-neg) / float64(total) * 100)
	posScore := int(float64(pos) / float64(total) * 100)
	negScore := int(float64(neg) / float64(total) * 100)

	return []Metric{
		{Key: PositiveWordCount, Value: pos},
		{Key: NegativeWordCount, Value: neg},
		{Key: PositiveScore, Value: posScore},
		{Key: NegativeScore, Value: negScore},
		{Key: SentimentRatio, Value: ratio},
	}
}

// cleanToken strips every character outside [a-z0-9-+]. The input token is
// already lowercased as part of the whole line.
func cleanToken(token string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '-' || r == '+':
			return r
		}
		return -1
	}, token)
}
