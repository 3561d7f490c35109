package worker

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	"pkg.jsn.cam/sentireduce/pkg/storage"
)

// Storage holds a worker's intermediate map output, bucketed per job
// and partition, so it survives the gap between the map and reduce
// phases and can be served to other workers.
type Storage struct {
	backend storage.Backend
	path    string
}

func NewStorage(dbPath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	backend, err := storage.NewBboltBackend(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	return &Storage{backend: backend, path: dbPath}, nil
}

func (s *Storage) Close() error {
	return s.backend.Close()
}

func partitionBucket(jobID string, partition int) []byte {
	return []byte(fmt.Sprintf("job_%s_partition_%d", jobID, partition))
}

// StorePartition stores one map task's output for one partition of a
// job. Rows are keyed by the task ID, so a retried task replaces its
// earlier attempt instead of duplicating it; distinct tasks accumulate.
func (s *Storage) StorePartition(jobID string, partition int, taskID string, data []sentireduce.KeyValue) error {
	bucketName := partitionBucket(jobID, partition)

	return s.backend.Update(func(tx storage.Transaction) error {
		if err := tx.CreateBucket(bucketName); err != nil {
			return err
		}

		b := tx.Bucket(bucketName)
		if b == nil {
			return fmt.Errorf("bucket not found: %s", bucketName)
		}

		encoded, err := storage.EncodeJSON(data)
		if err != nil {
			return err
		}
		return b.Put([]byte(taskID), encoded)
	})
}

// GetPartition returns everything stored for one partition of a job,
// across all map tasks that wrote to it. A partition with no data
// returns an empty slice.
func (s *Storage) GetPartition(jobID string, partition int) ([]sentireduce.KeyValue, error) {
	var result []sentireduce.KeyValue

	err := s.backend.View(func(tx storage.Transaction) error {
		b := tx.Bucket(partitionBucket(jobID, partition))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			var rows []sentireduce.KeyValue
			if err := storage.DecodeJSON(v, &rows); err != nil {
				return err
			}
			result = append(result, rows...)
			return nil
		})
	})

	return result, err
}

// CleanupJob drops every partition bucket belonging to a job.
func (s *Storage) CleanupJob(jobID string) error {
	prefix := []byte(fmt.Sprintf("job_%s_", jobID))

	return s.backend.Update(func(tx storage.Transaction) error {
		var stale [][]byte

		err := tx.ForEachBucket(func(name []byte) error {
			if bytes.HasPrefix(name, prefix) {
				stale = append(stale, append([]byte(nil), name...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, name := range stale {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats reports how much intermediate data the worker currently holds.
func (s *Storage) Stats() map[string]any {
	stats := make(map[string]any)

	s.backend.View(func(tx storage.Transaction) error {
		totalPartitions := 0
		totalKVs := 0

		tx.ForEachBucket(func(name []byte) error {
			totalPartitions++

			b := tx.Bucket(name)
			if b == nil {
				return nil
			}

			return b.ForEach(func(_, v []byte) error {
				var data []sentireduce.KeyValue
				if err := storage.DecodeJSON(v, &data); err == nil {
					totalKVs += len(data)
				}
				return nil
			})
		})

		stats["total_partitions"] = totalPartitions
		stats["total_kvs"] = totalKVs
		stats["db_path"] = s.path
		return nil
	})

	return stats
}
