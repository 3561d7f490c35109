// Package sentireduce defines the executor contract and the local pipeline
// that drive SentiReduce jobs: chunked map over input lines, grouping by
// key, and reduce per key.
package sentireduce

// KeyValue is the wire representation of one emitted pair.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Emitter receives pairs produced by map, combine and reduce calls.
type Emitter func(KeyValue)

// Worker is the executor contract. Map is invoked per chunk of input
// lines; Reduce is invoked once per distinct key with every value emitted
// for that key across the whole input, in no guaranteed order.
type Worker interface {
	Map(chunk []string, emit Emitter) error
	Reduce(key string, values []string, emit Emitter) error
	Description() string
}

// Combiner is an optional interface for workers that can pre-aggregate
// map output locally before it is partitioned. A correct Combine must be
// associative and commutative in whatever it accumulates, and Reduce must
// accept combined values alongside raw ones.
type Combiner interface {
	Worker
	Combine(key string, values []string, emit Emitter) error
}

// DisableCombiner is an optional interface to opt out of combining even
// when Combine is implemented.
type DisableCombiner interface {
	DisableCombiner() bool
}

// JobConfig carries the per-job word list overrides. Empty fields resolve
// through the environment and built-in defaults at the point the word
// sets are loaded.
type JobConfig struct {
	PositiveWordlist string `json:"positive_wordlist,omitempty"`
	NegativeWordlist string `json:"negative_wordlist,omitempty"`
}
