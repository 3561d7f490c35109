package master

import (
	"encoding/json"
	"fmt"
	"log"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce/protocol"
	"pkg.jsn.cam/sentireduce/pkg/storage"
)

var (
	jobsBucket      = []byte("jobs")
	jobStatesBucket = []byte("job_states")
	queueBucket     = []byte("queue")
	metaBucket      = []byte("meta")
)

// Storage defines the interface for persisting master state
type Storage interface {
	// Jobs
	SaveJob(job *protocol.Job) error
	LoadJobs() (map[string]*protocol.Job, error)
	DeleteJob(jobID string) error

	// Job States
	SaveJobState(jobID string, state *JobState) error
	LoadJobStates() (map[string]*JobState, error)
	DeleteJobState(jobID string) error

	// Queue
	SaveQueue(queue []string) error
	LoadQueue() ([]string, error)

	// Metadata
	SaveCurrentJobID(jobID string) error
	LoadCurrentJobID() (string, error)

	// Cleanup
	Close() error
}

// SerializableJobState is the JSON form of JobState
type SerializableJobState struct {
	MapTasks           []*protocol.MapTask               `json:"map_tasks"`
	ReduceTasks        []*protocol.ReduceTask            `json:"reduce_tasks"`
	MapTasksLeft       int                               `json:"map_tasks_left"`
	ReduceTasksLeft    int                               `json:"reduce_tasks_left"`
	ExecutorName       string                            `json:"executor_name"`
	MapWorkerEndpoints map[string]string                 `json:"map_worker_endpoints"`
	ResultsByTask      map[string][]sentireduce.KeyValue `json:"results_by_task"`
}

// MarshalJSON implements json.Marshaler for JobState
func (js *JobState) MarshalJSON() ([]byte, error) {
	return json.Marshal(&SerializableJobState{
		MapTasks:           js.mapTasks,
		ReduceTasks:        js.reduceTasks,
		MapTasksLeft:       js.mapTasksLeft,
		ReduceTasksLeft:    js.reduceTasksLeft,
		ExecutorName:       js.executorName,
		MapWorkerEndpoints: js.mapWorkerEndpoints,
		ResultsByTask:      js.resultsByTask,
	})
}

// UnmarshalJSON implements json.Unmarshaler for JobState
func (js *JobState) UnmarshalJSON(data []byte) error {
	var s SerializableJobState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	js.mapTasks = s.MapTasks
	js.reduceTasks = s.ReduceTasks
	js.mapTasksLeft = s.MapTasksLeft
	js.reduceTasksLeft = s.ReduceTasksLeft
	js.executorName = s.ExecutorName
	js.mapWorkerEndpoints = s.MapWorkerEndpoints
	js.resultsByTask = s.ResultsByTask

	if js.mapWorkerEndpoints == nil {
		js.mapWorkerEndpoints = make(map[string]string)
	}
	if js.resultsByTask == nil {
		js.resultsByTask = make(map[string][]sentireduce.KeyValue)
	}

	return nil
}

// MasterStorage implements Storage over a storage.Backend
type MasterStorage struct {
	store *storage.JSONStore
}

// NewMasterStorage creates a new master storage with the given backend
func NewMasterStorage(backend storage.Backend) (*MasterStorage, error) {
	store := storage.NewJSONStore(backend)

	for _, bucket := range [][]byte{jobsBucket, jobStatesBucket, queueBucket, metaBucket} {
		if err := store.CreateBucket(bucket); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MasterStorage{store: store}, nil
}

// SaveJob persists a job
func (s *MasterStorage) SaveJob(job *protocol.Job) error {
	return s.store.PutJSON(jobsBucket, []byte(job.ID), job)
}

// LoadJobs loads all jobs
func (s *MasterStorage) LoadJobs() (map[string]*protocol.Job, error) {
	jobs := make(map[string]*protocol.Job)

	err := s.store.ForEach(jobsBucket, func(k, v []byte) error {
		var job protocol.Job
		if err := storage.DecodeJSON(v, &job); err != nil {
			log.Printf("[STORAGE] Warning: Failed to decode job %s: %v", k, err)
			return nil // Skip corrupted jobs
		}
		jobs[job.ID] = &job
		return nil
	})

	return jobs, err
}

// DeleteJob deletes a job
func (s *MasterStorage) DeleteJob(jobID string) error {
	return s.store.Delete(jobsBucket, []byte(jobID))
}

// SaveJobState persists a job state
func (s *MasterStorage) SaveJobState(jobID string, state *JobState) error {
	return s.store.PutJSON(jobStatesBucket, []byte(jobID), state)
}

// LoadJobStates loads all job states
func (s *MasterStorage) LoadJobStates() (map[string]*JobState, error) {
	states := make(map[string]*JobState)

	err := s.store.ForEach(jobStatesBucket, func(k, v []byte) error {
		var state JobState
		if err := storage.DecodeJSON(v, &state); err != nil {
			log.Printf("[STORAGE] Warning: Failed to decode job state %s: %v", k, err)
			return nil // Skip corrupted states
		}
		states[string(k)] = &state
		return nil
	})

	return states, err
}

// DeleteJobState deletes a job state
func (s *MasterStorage) DeleteJobState(jobID string) error {
	return s.store.Delete(jobStatesBucket, []byte(jobID))
}

// SaveQueue persists the job queue
func (s *MasterStorage) SaveQueue(queue []string) error {
	return s.store.PutJSON(queueBucket, []byte("queue"), queue)
}

// LoadQueue loads the job queue
func (s *MasterStorage) LoadQueue() ([]string, error) {
	var queue []string
	if err := s.store.GetJSON(queueBucket, []byte("queue"), &queue); err != nil {
		return nil, err
	}
	if queue == nil {
		return []string{}, nil
	}
	return queue, nil
}

// SaveCurrentJobID persists the current job ID
func (s *MasterStorage) SaveCurrentJobID(jobID string) error {
	return storage.PutString(s.store.Backend(), metaBucket, "current_job_id", []byte(jobID))
}

// LoadCurrentJobID loads the current job ID
func (s *MasterStorage) LoadCurrentJobID() (string, error) {
	data, err := storage.GetString(s.store.Backend(), metaBucket, "current_job_id")
	if err != nil {
		return "", err
	}
	if data == nil {
		return "", nil
	}
	return string(data), nil
}

// Close closes the storage backend
func (s *MasterStorage) Close() error {
	return s.store.Close()
}

// NewNoOpStorage creates an in-memory storage for masters running
// without persistence.
func NewNoOpStorage() Storage {
	ms, _ := NewMasterStorage(storage.NewMemoryBackend())
	return ms
}
