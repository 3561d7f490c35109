package master

import (
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"pkg.jsn.cam/sentireduce/pkg/executors"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce/protocol"
)

// WorkerInfo tracks information about a registered worker
type WorkerInfo struct {
	ID              string
	Version         string
	Executors       []string
	DataEndpoint    string
	LastHeartbeat   time.Time
	CurrentTask     string
	InProgressSince time.Time
}

// JobState holds execution state for a single job
type JobState struct {
	mapTasks        []*protocol.MapTask
	reduceTasks     []*protocol.ReduceTask
	mapTasksLeft    int
	reduceTasksLeft int
	executorName    string

	// Data endpoints of workers holding map output, by map task ID.
	mapWorkerEndpoints map[string]string

	// Reduce output by task ID, uploaded by workers. Keyed by task so a
	// retried task overwrites its earlier upload instead of duplicating.
	resultsByTask map[string][]sentireduce.KeyValue
}

// Master coordinates sentiment scoring jobs in a long-running cluster.
// One job runs at a time; the rest wait in a FIFO queue.
type Master struct {
	heartbeatTimeout time.Duration
	storage          Storage

	jobs         map[string]*protocol.Job
	jobStates    map[string]*JobState
	jobQueue     []string
	currentJobID string

	workers map[string]*WorkerInfo

	mu sync.RWMutex
}

// Config holds master configuration
type Config struct {
	Port             int
	HeartbeatTimeout time.Duration
	DBPath           string // Path to database file (empty = no persistence)
	DBBackend        string // "bbolt" (default) or "sqlite"
}

const (
	defaultChunkSize   = 64
	defaultReduceTasks = 4
)

// NewMaster creates a new master instance
func NewMaster(cfg Config) (*Master, error) {
	heartbeatTimeout := cfg.HeartbeatTimeout
	if heartbeatTimeout == 0 {
		heartbeatTimeout = 30 * time.Second
	}

	var store Storage
	if cfg.DBPath != "" {
		var err error
		switch cfg.DBBackend {
		case "", "bbolt":
			store, err = NewBboltStorage(cfg.DBPath)
		case "sqlite":
			store, err = NewSQLiteStorage(cfg.DBPath)
		default:
			err = fmt.Errorf("unknown storage backend: %s", cfg.DBBackend)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		log.Printf("[MASTER] Persistence enabled at %s (%s)", cfg.DBPath, cfg.DBBackend)
	} else {
		store = NewNoOpStorage()
		log.Printf("[MASTER] Persistence disabled (no DBPath configured)")
	}

	m := &Master{
		heartbeatTimeout: heartbeatTimeout,
		storage:          store,
		jobs:             make(map[string]*protocol.Job),
		jobStates:        make(map[string]*JobState),
		jobQueue:         []string{},
		workers:          make(map[string]*WorkerInfo),
	}

	if err := m.restore(); err != nil {
		log.Printf("[MASTER] Warning: Failed to restore state: %v", err)
	}

	log.Printf("[MASTER] Initialized (ready for job submissions)")
	return m, nil
}

// SubmitJob accepts a new job submission
func (m *Master) SubmitJob(req protocol.JobSubmitRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !executors.IsValidExecutor(req.Executor) {
		return "", fmt.Errorf("%w: %s", sentireduce.ErrInvalidExecutor, req.Executor)
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	reduceTasks := req.ReduceTasks
	if reduceTasks <= 0 {
		reduceTasks = defaultReduceTasks
	}

	jobID := uuid.New().String()
	job := &protocol.Job{
		ID:          jobID,
		Status:      protocol.JobStatusQueued,
		Executor:    req.Executor,
		Config:      req.Config,
		InputPath:   req.InputPath,
		OutputPath:  req.OutputPath,
		ChunkSize:   chunkSize,
		ReduceTasks: reduceTasks,
		SubmittedAt: time.Now(),
	}

	m.jobs[jobID] = job
	m.jobQueue = append(m.jobQueue, jobID)

	log.Printf("[MASTER] Job submitted: %s (executor: %s, queued at position %d)",
		jobID, req.Executor, len(m.jobQueue))

	if err := m.storage.SaveJob(job); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist job: %v", err)
	}
	if err := m.storage.SaveQueue(m.jobQueue); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist queue: %v", err)
	}

	m.startNextJobIfReady()

	return jobID, nil
}

// startNextJobIfReady starts the next queued job if no job is running.
// Must be called with the lock held.
func (m *Master) startNextJobIfReady() {
	if m.currentJobID != "" {
		return
	}
	if len(m.jobQueue) == 0 {
		return
	}

	jobID := m.jobQueue[0]
	m.jobQueue = m.jobQueue[1:]
	m.currentJobID = jobID

	job := m.jobs[jobID]
	job.Status = protocol.JobStatusRunning
	job.StartedAt = time.Now()

	log.Printf("[MASTER] Starting job: %s (executor: %s)", jobID, job.Executor)

	if err := m.initializeJob(jobID, job); err != nil {
		log.Printf("[MASTER] Failed to initialize job %s: %v", jobID, err)
		job.Status = protocol.JobStatusFailed
		job.Error = err.Error()
		job.CompletedAt = time.Now()
		m.currentJobID = ""

		if err := m.storage.SaveJob(job); err != nil {
			log.Printf("[MASTER] Warning: Failed to persist failed job: %v", err)
		}
		if err := m.storage.SaveCurrentJobID(m.currentJobID); err != nil {
			log.Printf("[MASTER] Warning: Failed to persist current job ID: %v", err)
		}

		m.startNextJobIfReady()
		return
	}

	// An empty input produces no map tasks and therefore no output.
	if m.jobStates[jobID].mapTasksLeft == 0 {
		log.Printf("[MASTER] Job %s has no input lines, completing immediately", jobID)
		m.completeJob(jobID)
		return
	}

	log.Printf("[MASTER] Job %s initialized with %d map tasks, %d reduce tasks",
		jobID, len(m.jobStates[jobID].mapTasks), job.ReduceTasks)

	if err := m.storage.SaveJob(job); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist job: %v", err)
	}
	if err := m.storage.SaveJobState(jobID, m.jobStates[jobID]); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist job state: %v", err)
	}
	if err := m.storage.SaveCurrentJobID(m.currentJobID); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist current job ID: %v", err)
	}
}

// initializeJob creates the execution state for a job. Must be called
// with the lock held.
func (m *Master) initializeJob(jobID string, job *protocol.Job) error {
	if !executors.IsValidExecutor(job.Executor) {
		return fmt.Errorf("%w: %s", sentireduce.ErrExecutorNotFound, job.Executor)
	}

	chunks := make(chan []string, 100)
	chunkErr := make(chan error, 1)
	go func() {
		chunkErr <- sentireduce.Chunk(job.InputPath, job.ChunkSize, chunks)
	}()

	var mapTasks []*protocol.MapTask
	for chunk := range chunks {
		task := &protocol.MapTask{
			ID:            uuid.New().String(),
			JobID:         jobID,
			Executor:      job.Executor,
			Config:        job.Config,
			Chunk:         chunk,
			Status:        protocol.TaskStatusIdle,
			Version:       uuid.New().String(),
			NumPartitions: job.ReduceTasks,
		}
		mapTasks = append(mapTasks, task)
	}

	if err := <-chunkErr; err != nil {
		return fmt.Errorf("chunking input: %w", err)
	}

	state := &JobState{
		mapTasks:           mapTasks,
		reduceTasks:        []*protocol.ReduceTask{},
		mapTasksLeft:       len(mapTasks),
		executorName:       job.Executor,
		mapWorkerEndpoints: make(map[string]string),
		resultsByTask:      make(map[string][]sentireduce.KeyValue),
	}
	m.jobStates[jobID] = state

	job.MapTasksTotal = len(mapTasks)
	job.ReduceTasksTotal = job.ReduceTasks
	job.TotalTasks = job.MapTasksTotal + job.ReduceTasksTotal

	return nil
}

// RegisterWorker registers a new worker with version validation
func (m *Master) RegisterWorker(workerID, version string, executorNames []string, dataEndpoint string) error {
	compatible, err := protocol.IsCompatibleVersion(version, protocol.SentiReduceVersion)
	if err != nil {
		return fmt.Errorf("version validation error: %w", err)
	}
	if !compatible {
		return fmt.Errorf("%w: %s", sentireduce.ErrIncompatibleVersion,
			protocol.GetCompatibilityError(version, protocol.SentiReduceVersion))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers[workerID] = &WorkerInfo{
		ID:            workerID,
		Version:       version,
		Executors:     executorNames,
		DataEndpoint:  dataEndpoint,
		LastHeartbeat: time.Now(),
	}
	log.Printf("[MASTER] Worker registered: %s (version: %s, executors: %v, total: %d)",
		workerID, version, executorNames, len(m.workers))

	return nil
}

// UpdateHeartbeat updates worker's last heartbeat time
func (m *Master) UpdateHeartbeat(workerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	worker, exists := m.workers[workerID]
	if !exists {
		return false
	}

	worker.LastHeartbeat = time.Now()
	return true
}

// GetJob returns job metadata
func (m *Master) GetJob(jobID string) *protocol.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[jobID]
}

// ListJobs returns all jobs
func (m *Master) ListJobs() []protocol.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]protocol.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// CancelJob cancels a queued or running job
func (m *Master) CancelJob(jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", sentireduce.ErrJobNotFound, jobID)
	}

	if job.Status == protocol.JobStatusCompleted || job.Status == protocol.JobStatusFailed {
		return fmt.Errorf("%w: %s", sentireduce.ErrJobAlreadyFinished, job.Status)
	}
	if job.Status == protocol.JobStatusCancelled {
		return sentireduce.ErrJobAlreadyCancelled
	}

	job.Status = protocol.JobStatusCancelled
	job.CompletedAt = time.Now()

	if m.currentJobID == jobID {
		m.currentJobID = ""
		m.startNextJobIfReady()
	} else {
		for i, queuedID := range m.jobQueue {
			if queuedID == jobID {
				m.jobQueue = append(m.jobQueue[:i], m.jobQueue[i+1:]...)
				break
			}
		}
	}

	if err := m.storage.SaveJob(job); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist cancelled job: %v", err)
	}
	if err := m.storage.SaveQueue(m.jobQueue); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist queue: %v", err)
	}
	if err := m.storage.SaveCurrentJobID(m.currentJobID); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist current job ID: %v", err)
	}

	log.Printf("[MASTER] Job cancelled: %s", jobID)
	return nil
}

// GetJobResults returns the results for a completed job
func (m *Master) GetJobResults(jobID string) ([]sentireduce.KeyValue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", sentireduce.ErrJobNotFound, jobID)
	}

	if job.Status != protocol.JobStatusCompleted {
		return nil, fmt.Errorf("%w (status: %s)", sentireduce.ErrJobNotCompleted, job.Status)
	}

	return job.Results, nil
}

// AddTaskResults stores reduce output uploaded by a worker. Results are
// keyed by task ID so a retried task replaces its earlier upload.
func (m *Master) AddTaskResults(taskID, workerID string, results []sentireduce.KeyValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentJobID == "" {
		return fmt.Errorf("no job running")
	}

	state := m.jobStates[m.currentJobID]

	found := false
	for _, t := range state.reduceTasks {
		if t.ID == taskID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("reduce task not found: %s", taskID)
	}

	state.resultsByTask[taskID] = results
	log.Printf("[MASTER] Job %s: Received %d results for task %s from worker %s",
		m.currentJobID, len(results), taskID, workerID)

	return nil
}

// GetStatus returns the current job status
func (m *Master) GetStatus() protocol.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := protocol.StatusResponse{
		WorkersRegistered: len(m.workers),
		JobStatus:         "idle",
	}

	now := time.Now()
	for _, worker := range m.workers {
		if now.Sub(worker.LastHeartbeat) < m.heartbeatTimeout {
			status.WorkersActive++
		}
	}

	if m.currentJobID != "" {
		state := m.jobStates[m.currentJobID]
		job := m.jobs[m.currentJobID]

		status.MapTasksTotal = len(state.mapTasks)
		status.ReduceTasksTotal = len(state.reduceTasks)
		status.JobStatus = string(job.Status)

		for _, task := range state.mapTasks {
			switch task.Status {
			case protocol.TaskStatusIdle:
				status.MapTasksIdle++
			case protocol.TaskStatusInProgress:
				status.MapTasksInProgress++
			case protocol.TaskStatusCompleted:
				status.MapTasksCompleted++
			case protocol.TaskStatusFailed:
				status.MapTasksFailed++
			}
		}

		for _, task := range state.reduceTasks {
			switch task.Status {
			case protocol.TaskStatusIdle:
				status.ReduceTasksIdle++
			case protocol.TaskStatusInProgress:
				status.ReduceTasksInProgress++
			case protocol.TaskStatusCompleted:
				status.ReduceTasksCompleted++
			case protocol.TaskStatusFailed:
				status.ReduceTasksFailed++
			}
		}
	}

	return status
}

// ListWorkers returns all workers with their current status
func (m *Master) ListWorkers() []protocol.WorkerInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]protocol.WorkerInfo, 0, len(m.workers))
	now := time.Now()

	for _, worker := range m.workers {
		list = append(list, protocol.WorkerInfo{
			ID:            worker.ID,
			Executors:     worker.Executors,
			CurrentTask:   worker.CurrentTask,
			LastHeartbeat: worker.LastHeartbeat,
			Online:        now.Sub(worker.LastHeartbeat) < m.heartbeatTimeout,
		})
	}

	return list
}

// GetConfig returns the master configuration
func (m *Master) GetConfig() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]any{
		"heartbeat_timeout": m.heartbeatTimeout.String(),
		"version":           protocol.SentiReduceVersion,
	}
}

// transitionToReducePhase creates reduce tasks after all map tasks complete
func (m *Master) transitionToReducePhase() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentJobID == "" {
		return
	}

	job := m.jobs[m.currentJobID]
	state := m.jobStates[m.currentJobID]

	if job.Status != protocol.JobStatusRunning || state.mapTasksLeft > 0 {
		return
	}
	if len(state.reduceTasks) > 0 {
		return // Already transitioned
	}

	log.Printf("[MASTER] Job %s: All map tasks completed, transitioning to reduce phase", m.currentJobID)

	job.MapPhaseCompletedAt = time.Now()

	// Reducers fetch their partition from every worker that produced
	// map output, so each task carries the full endpoint list.
	endpoints := uniqueEndpoints(state.mapWorkerEndpoints)

	for i := 0; i < job.ReduceTasks; i++ {
		task := &protocol.ReduceTask{
			ID:              uuid.New().String(),
			JobID:           m.currentJobID,
			Executor:        job.Executor,
			Config:          job.Config,
			Partition:       i,
			Status:          protocol.TaskStatusIdle,
			Version:         uuid.New().String(),
			WorkerEndpoints: endpoints,
		}
		state.reduceTasks = append(state.reduceTasks, task)
	}

	state.reduceTasksLeft = len(state.reduceTasks)
	log.Printf("[MASTER] Job %s: Created %d reduce tasks over %d data endpoints",
		m.currentJobID, len(state.reduceTasks), len(endpoints))

	if err := m.storage.SaveJob(job); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist job: %v", err)
	}
	if err := m.storage.SaveJobState(m.currentJobID, state); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist job state: %v", err)
	}
}

func uniqueEndpoints(byTask map[string]string) []string {
	seen := make(map[string]struct{})
	var endpoints []string
	for _, endpoint := range byTask {
		if _, ok := seen[endpoint]; ok {
			continue
		}
		seen[endpoint] = struct{}{}
		endpoints = append(endpoints, endpoint)
	}
	sort.Strings(endpoints)
	return endpoints
}

// isJobComplete checks if a job is complete based on its current state
func (m *Master) isJobComplete(job *protocol.Job, state *JobState) bool {
	if job.Status != protocol.JobStatusRunning {
		return false
	}

	if len(state.reduceTasks) == 0 {
		return state.mapTasksLeft == 0
	}
	return state.reduceTasksLeft == 0
}

// completeJob finalizes a job: assembles sorted results from uploaded
// reduce output, writes the output file and starts the next job. Must
// be called with the lock held.
func (m *Master) completeJob(jobID string) {
	job := m.jobs[jobID]
	state := m.jobStates[jobID]

	job.Results = assembleResults(state.resultsByTask)
	job.Status = protocol.JobStatusCompleted
	job.CompletedAt = time.Now()

	log.Printf("[MASTER] Job %s completed in %v (%d results)",
		jobID, job.CompletedAt.Sub(job.StartedAt), len(job.Results))

	if job.OutputPath != "" {
		if err := sentireduce.WriteResults(job.OutputPath, job.Results); err != nil {
			log.Printf("[MASTER] Failed to write results for job %s: %v", jobID, err)
			job.Status = protocol.JobStatusFailed
			job.Error = fmt.Sprintf("writing output: %v", err)
		} else {
			log.Printf("[MASTER] Job %s results written to %s", jobID, job.OutputPath)
		}
	}

	// Worker-side intermediate data is no longer needed.
	go m.cleanupWorkerData(jobID, uniqueEndpoints(state.mapWorkerEndpoints))

	m.currentJobID = ""

	if err := m.storage.SaveJob(job); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist completed job: %v", err)
	}
	if err := m.storage.SaveCurrentJobID(m.currentJobID); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist current job ID: %v", err)
	}

	m.startNextJobIfReady()
}

// assembleResults flattens per-task reduce output into a single sorted
// result set.
func assembleResults(byTask map[string][]sentireduce.KeyValue) []sentireduce.KeyValue {
	var results []sentireduce.KeyValue
	for _, taskResults := range byTask {
		results = append(results, taskResults...)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})
	return results
}

// cleanupWorkerData asks each worker data endpoint to drop a job's
// intermediate partitions. Failures are logged and ignored.
func (m *Master) cleanupWorkerData(jobID string, endpoints []string) {
	client := &http.Client{Timeout: 10 * time.Second}
	for _, endpoint := range endpoints {
		resp, err := client.Post(endpoint+"/cleanup/"+jobID, "application/json", nil)
		if err != nil {
			log.Printf("[MASTER] Cleanup request to %s failed: %v", endpoint, err)
			continue
		}
		resp.Body.Close()
	}
}

// failJob marks the current job as failed. Must be called with the lock
// held.
func (m *Master) failJob(jobID, reason string) {
	job := m.jobs[jobID]
	job.Status = protocol.JobStatusFailed
	job.Error = reason
	job.CompletedAt = time.Now()

	log.Printf("[MASTER] Job %s failed: %s", jobID, reason)

	if m.currentJobID == jobID {
		m.currentJobID = ""
	}

	if err := m.storage.SaveJob(job); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist failed job: %v", err)
	}
	if err := m.storage.SaveCurrentJobID(m.currentJobID); err != nil {
		log.Printf("[MASTER] Warning: Failed to persist current job ID: %v", err)
	}

	m.startNextJobIfReady()
}

// checkJobCompletion checks if the current job is done and starts the next
func (m *Master) checkJobCompletion() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentJobID == "" {
		return
	}

	job := m.jobs[m.currentJobID]
	state := m.jobStates[m.currentJobID]

	if m.isJobComplete(job, state) {
		m.completeJob(m.currentJobID)
	}
}
