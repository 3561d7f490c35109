package worker

import (
	"hash/fnv"
	"sort"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
)

// PartitionKey assigns a metric key to a partition using FNV-1a. Every
// worker must agree on this mapping so all values for one key land in
// the same reduce partition.
func PartitionKey(key string, numPartitions int) int {
	h := fnv.New32a()
	h.Write([]byte(key))

	return int(h.Sum32()) % numPartitions
}

// PartitionMapOutput splits map output by target partition.
func PartitionMapOutput(kvs []sentireduce.KeyValue, numPartitions int) map[int][]sentireduce.KeyValue {
	partitioned := make(map[int][]sentireduce.KeyValue)

	for _, kv := range kvs {
		p := PartitionKey(kv.Key, numPartitions)
		partitioned[p] = append(partitioned[p], kv)
	}

	return partitioned
}

// ShuffleAndGroup sorts pairs by key and collects the values per key.
func ShuffleAndGroup(kvs []sentireduce.KeyValue) map[string][]string {
	sort.Slice(kvs, func(i, j int) bool {
		return kvs[i].Key < kvs[j].Key
	})

	grouped := make(map[string][]string)
	for _, kv := range kvs {
		grouped[kv.Key] = append(grouped[kv.Key], kv.Value)
	}

	return grouped
}
