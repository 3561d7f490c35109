package worker

import (
	"context"
	"fmt"
	"log"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce/protocol"
)

// Processor executes map and reduce tasks with a bound executor.
type Processor struct {
	worker  sentireduce.Worker
	client  *Client
	storage *Storage
}

func NewProcessor(worker sentireduce.Worker, client *Client, storage *Storage) *Processor {
	return &Processor{
		worker:  worker,
		client:  client,
		storage: storage,
	}
}

// ProcessMapTask classifies a chunk, combines the output locally when the
// executor supports it, and stores each partition for later reduce fetches.
func (p *Processor) ProcessMapTask(ctx context.Context, task *protocol.MapTask, workerID string) error {
	log.Printf("[WORKER:%s] Processing map task %s (%d lines)", workerID, task.ID, len(task.Chunk))

	var emitted []sentireduce.KeyValue
	emitter := func(kv sentireduce.KeyValue) {
		emitted = append(emitted, kv)
	}

	if err := p.worker.Map(task.Chunk, emitter); err != nil {
		return fmt.Errorf("map error: %w", err)
	}

	if combiner := sentireduce.CombinerFor(p.worker); combiner != nil && len(emitted) > 0 {
		combined, err := sentireduce.CombineOutput(emitted, combiner)
		if err != nil {
			return fmt.Errorf("combine error: %w", err)
		}
		log.Printf("[WORKER:%s] Combined %d pairs into %d", workerID, len(emitted), len(combined))
		emitted = combined
	}

	partitioned := PartitionMapOutput(emitted, task.NumPartitions)

	for partition, kvs := range partitioned {
		if err := p.storage.StorePartition(task.JobID, partition, task.ID, kvs); err != nil {
			return fmt.Errorf("store partition %d error: %w", partition, err)
		}
		log.Printf("[WORKER:%s] Stored %d KVs for partition %d", workerID, len(kvs), partition)
	}

	if err := p.client.CompleteTask(ctx, task.ID, workerID, task.Version, true, ""); err != nil {
		return fmt.Errorf("complete task error: %w", err)
	}

	log.Printf("[WORKER:%s] Map task %s completed successfully", workerID, task.ID)
	return nil
}

// ProcessReduceTask gathers one partition from every worker that holds
// map output, groups it by key, runs the executor's Reduce and uploads
// the result to the master.
func (p *Processor) ProcessReduceTask(ctx context.Context, task *protocol.ReduceTask, workerID string) error {
	log.Printf("[WORKER:%s] Processing reduce task %s (partition %d)", workerID, task.ID, task.Partition)

	var intermediate []sentireduce.KeyValue
	for _, endpoint := range task.WorkerEndpoints {
		data, err := p.client.FetchPartitionFromWorker(ctx, endpoint, task.JobID, task.Partition)
		if err != nil {
			return fmt.Errorf("fetch partition from %s: %w", endpoint, err)
		}
		intermediate = append(intermediate, data...)
	}

	log.Printf("[WORKER:%s] Retrieved %d intermediate KVs from %d workers",
		workerID, len(intermediate), len(task.WorkerEndpoints))

	grouped := ShuffleAndGroup(intermediate)

	var results []sentireduce.KeyValue
	emitter := func(kv sentireduce.KeyValue) {
		results = append(results, kv)
	}

	for key, values := range grouped {
		if err := p.worker.Reduce(key, values, emitter); err != nil {
			return fmt.Errorf("reduce error for key %s: %w", key, err)
		}
	}

	log.Printf("[WORKER:%s] Reduce produced %d results", workerID, len(results))

	if err := p.client.UploadResults(ctx, task.ID, workerID, results); err != nil {
		return fmt.Errorf("upload results error: %w", err)
	}

	if err := p.client.CompleteTask(ctx, task.ID, workerID, task.Version, true, ""); err != nil {
		return fmt.Errorf("complete task error: %w", err)
	}

	log.Printf("[WORKER:%s] Reduce task %s completed successfully", workerID, task.ID)
	return nil
}
