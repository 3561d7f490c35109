package sentiment

import (
	"math"
	"strconv"
)

// ValueSeq is a lazy, finite, single-pass stream of metric values for one
// key. It is not restartable: Aggregate consumes it in exactly one forward
// pass and callers must not hand the same stream to anything else.
type ValueSeq interface {
	// Next returns the next value, or ok=false once the stream is exhausted.
	Next() (v int64, ok bool)
}

// SeqOf returns a ValueSeq over the given values in order.
func SeqOf(values ...int64) ValueSeq {
	return &sliceSeq{values: values}
}

type sliceSeq struct {
	values []int64
	pos    int
}

func (s *sliceSeq) Next() (int64, bool) {
	if s.pos >= len(s.values) {
		return 0, false
	}
	v := s.values[s.pos]
	s.pos++
	return v, true
}

// Partial is a mergeable sum/count accumulator. Sum and count are
// associative and commutative, so disjoint partitions may be pre-combined
// before the final average is taken.
type Partial struct {
	Sum   int64
	Count int64
}

// Add folds one value into the accumulator.
func (p *Partial) Add(v int64) {
	p.Sum += v
	p.Count++
}

// Merge folds another partial into the accumulator.
func (p *Partial) Merge(other Partial) {
	p.Sum += other.Sum
	p.Count += other.Count
}

// Average returns the rounded average for the accumulated values: sum/count
// rounded to two decimal places, ties away from zero. An empty accumulator
// averages to 0.0.
func (p Partial) Average() float64 {
	if p.Count == 0 {
		return 0.0
	}
	avg := float64(p.Sum) / float64(p.Count)
	return math.Round(avg*100) / 100
}

// Result is the aggregation output for one metric key.
type Result struct {
	Key     MetricKey
	Average float64
}

// Aggregate consumes the value stream for key in a single forward pass and
// returns its rounded average. Order of the stream never affects the
// result; an empty stream yields 0.0.
func Aggregate(key MetricKey, values ValueSeq) Result {
	var p Partial
	for {
		v, ok := values.Next()
		if !ok {
			break
		}
		p.Add(v)
	}
	return Result{Key: key, Average: p.Average()}
}

// FormatAverage renders an average with exactly two decimal digits, the
// output record format of the pipeline.
func FormatAverage(avg float64) string {
	return strconv.FormatFloat(avg, 'f', 2, 64)
}
