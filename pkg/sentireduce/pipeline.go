package sentireduce

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Chunk reads a file line by line and pushes chunks of at most chunkSize
// lines to out. The channel is closed when the file is exhausted, or on
// error.
func Chunk(filePath string, chunkSize int, out chan<- []string) error {
	file, err := os.Open(filePath)
	if err != nil {
		close(out)
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var chunk []string
	for scanner.Scan() {
		chunk = append(chunk, scanner.Text())
		if len(chunk) >= chunkSize {
			out <- chunk
			chunk = nil
		}
	}
	if len(chunk) > 0 {
		out <- chunk
	}
	close(out)
	return scanner.Err()
}

// MapPhase runs the worker's Map over every chunk and returns the emitted
// pairs. When the worker implements Combiner (and has not opted out), each
// chunk's output is pre-aggregated locally before collection.
func MapPhase(chunks <-chan []string, worker Worker) ([]KeyValue, error) {
	combiner := CombinerFor(worker)

	var all []KeyValue
	for chunk := range chunks {
		var emitted []KeyValue
		err := worker.Map(chunk, func(kv KeyValue) {
			emitted = append(emitted, kv)
		})
		if err != nil {
			drain(chunks)
			return nil, err
		}

		if combiner != nil {
			emitted, err = CombineOutput(emitted, combiner)
			if err != nil {
				drain(chunks)
				return nil, err
			}
		}

		all = append(all, emitted...)
	}
	return all, nil
}

// drain consumes remaining chunks so the producer can finish and close
// its input file rather than block on a send nobody will receive.
func drain(chunks <-chan []string) {
	for range chunks {
	}
}

// CombineOutput groups pairs by key and runs the combiner over each group,
// returning the combined pairs.
func CombineOutput(kvs []KeyValue, combiner Combiner) ([]KeyValue, error) {
	grouped := Shuffle(kvs)

	var combined []KeyValue
	for key, values := range grouped {
		err := combiner.Combine(key, values, func(kv KeyValue) {
			combined = append(combined, kv)
		})
		if err != nil {
			return nil, fmt.Errorf("combine key %s: %w", key, err)
		}
	}
	return combined, nil
}

// CombinerFor returns the worker as a Combiner, or nil when combining is
// unavailable or disabled.
func CombinerFor(worker Worker) Combiner {
	if opt, ok := worker.(DisableCombiner); ok && opt.DisableCombiner() {
		return nil
	}
	combiner, ok := worker.(Combiner)
	if !ok {
		return nil
	}
	return combiner
}

// Shuffle groups emitted pairs by key. This is the in-process stand-in for
// the cluster's shuffle: all values sharing a key end up in one group, in
// no guaranteed order.
func Shuffle(pairs []KeyValue) map[string][]string {
	grouped := make(map[string][]string)
	for _, kv := range pairs {
		grouped[kv.Key] = append(grouped[kv.Key], kv.Value)
	}
	return grouped
}

// ReducePhase runs the worker's Reduce once per key group and returns the
// emitted results.
func ReducePhase(groups map[string][]string, worker Worker) ([]KeyValue, error) {
	var results []KeyValue
	for key, values := range groups {
		err := worker.Reduce(key, values, func(kv KeyValue) {
			results = append(results, kv)
		})
		if err != nil {
			return nil, fmt.Errorf("reduce key %s: %w", key, err)
		}
	}
	return results, nil
}

// RunLocal executes the full pipeline in-process: chunk the input file,
// map, shuffle, reduce. It returns the reduce output sorted by key.
func RunLocal(inputPath string, chunkSize int, worker Worker) ([]KeyValue, error) {
	chunks := make(chan []string, 16)
	chunkErr := make(chan error, 1)

	go func() {
		chunkErr <- Chunk(inputPath, chunkSize, chunks)
	}()

	mapped, err := MapPhase(chunks, worker)
	if err != nil {
		return nil, err
	}
	if err := <-chunkErr; err != nil {
		return nil, err
	}

	results, err := ReducePhase(Shuffle(mapped), worker)
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})
	return results, nil
}

// WriteResults writes results as tab-separated "key<TAB>value" lines,
// sorted by key, replacing any previous output at path.
func WriteResults(path string, results []KeyValue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	sorted := append([]KeyValue(nil), results...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}

	w := bufio.NewWriter(file)
	for _, kv := range sorted {
		fmt.Fprintf(w, "%s\t%s\n", kv.Key, kv.Value)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
