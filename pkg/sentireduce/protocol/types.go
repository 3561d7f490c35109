package protocol

import (
	"time"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
)

// TaskStatus represents the state of a task
type TaskStatus string

const (
	TaskStatusIdle       TaskStatus = "idle"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// TaskType identifies whether a task is map or reduce
type TaskType string

const (
	TaskTypeMap    TaskType = "map"
	TaskTypeReduce TaskType = "reduce"
	TaskTypeNone   TaskType = "none"
)

// MapTask represents a chunk of input lines to be classified. The task
// carries the job's word list configuration so the worker can build its
// classifier before processing the chunk.
type MapTask struct {
	StartTime     time.Time             `json:"start_time"`
	CompletedAt   time.Time             `json:"completed_at,omitempty"`
	ID            string                `json:"id"`
	JobID         string                `json:"job_id"`
	Executor      string                `json:"executor"`
	Config        sentireduce.JobConfig `json:"config"`
	Status        TaskStatus            `json:"status"`
	WorkerID      string                `json:"worker_id"`
	Version       string                `json:"version"` // for idempotency
	Chunk         []string              `json:"chunk"`
	NumPartitions int                   `json:"num_partitions"`
	RetryCount    int                   `json:"retry_count"`
}

// ReduceTask represents a partition to be aggregated. WorkerEndpoints
// lists the data endpoints of every worker holding map output for the
// job; the reducer fetches its partition from each.
type ReduceTask struct {
	StartTime       time.Time             `json:"start_time"`
	CompletedAt     time.Time             `json:"completed_at,omitempty"`
	ID              string                `json:"id"`
	JobID           string                `json:"job_id"`
	Executor        string                `json:"executor"`
	Config          sentireduce.JobConfig `json:"config"`
	Status          TaskStatus            `json:"status"`
	WorkerID        string                `json:"worker_id"`
	Version         string                `json:"version"` // for idempotency
	WorkerEndpoints []string              `json:"worker_endpoints,omitempty"`
	Partition       int                   `json:"partition"`
	RetryCount      int                   `json:"retry_count"`
}

// Task is a union type for map and reduce tasks
type Task struct {
	MapTask    *MapTask    `json:"map_task,omitempty"`
	ReduceTask *ReduceTask `json:"reduce_task,omitempty"`
	Type       TaskType    `json:"type"`
}

// WorkerRegistrationRequest is sent by workers to register with master
type WorkerRegistrationRequest struct {
	WorkerID     string   `json:"worker_id"`
	Version      string   `json:"version"`
	DataEndpoint string   `json:"data_endpoint"` // HTTP endpoint serving partition data
	Executors    []string `json:"executors"`
}

// WorkerRegistrationResponse is returned to workers upon registration
type WorkerRegistrationResponse struct {
	WorkerID string `json:"worker_id"`
	Error    string `json:"error,omitempty"`
	Success  bool   `json:"success"`
}

// TaskCompletionRequest is sent by workers when they complete a task
type TaskCompletionRequest struct {
	Error   string `json:"error,omitempty"`
	Version string `json:"version"`
	Success bool   `json:"success"`
}

// TaskCompletionResponse acknowledges task completion
type TaskCompletionResponse struct {
	Message      string `json:"message,omitempty"`
	Acknowledged bool   `json:"acknowledged"`
}

// ResultsUploadRequest carries a reduce task's output to the master.
type ResultsUploadRequest struct {
	TaskID  string                 `json:"task_id"`
	Results []sentireduce.KeyValue `json:"results"`
}

// HeartbeatRequest is sent periodically by workers to master
type HeartbeatRequest struct {
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatResponse acknowledges the heartbeat
type HeartbeatResponse struct {
	OK bool `json:"ok"`
}

// StatusResponse provides overall job status
type StatusResponse struct {
	JobStatus             string `json:"job_status"`
	MapTasksIdle          int    `json:"map_tasks_idle"`
	MapTasksInProgress    int    `json:"map_tasks_in_progress"`
	MapTasksCompleted     int    `json:"map_tasks_completed"`
	MapTasksFailed        int    `json:"map_tasks_failed"`
	MapTasksTotal         int    `json:"map_tasks_total"`
	ReduceTasksIdle       int    `json:"reduce_tasks_idle"`
	ReduceTasksInProgress int    `json:"reduce_tasks_in_progress"`
	ReduceTasksCompleted  int    `json:"reduce_tasks_completed"`
	ReduceTasksFailed     int    `json:"reduce_tasks_failed"`
	ReduceTasksTotal      int    `json:"reduce_tasks_total"`
	WorkersRegistered     int    `json:"workers_registered"`
	WorkersActive         int    `json:"workers_active"`
}

// HealthResponse indicates node health
type HealthResponse struct {
	Status string `json:"status"`
}
