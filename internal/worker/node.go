package worker

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"pkg.jsn.cam/sentireduce/pkg/executors"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce/protocol"
)

// Config holds worker configuration
type Config struct {
	MasterURL         string
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	DataDir           string // Directory for worker data storage
	EphemeralStorage  bool   // Unique database path per worker instance
}

// Node is a worker process: it registers with the master, polls for
// tasks, serves its map output to peers and heartbeats in the background.
type Node struct {
	id      string
	client  *Client
	storage *Storage
	server  *Server
	config  Config
}

func NewNode(cfg Config) (*Node, error) {
	workerID := uuid.New().String()

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "./var/worker"
	}

	var dbPath string
	if cfg.EphemeralStorage {
		dbPath = filepath.Join(dataDir, workerID, "worker.db")
	} else {
		dbPath = filepath.Join(dataDir, "worker.db")
	}

	storage, err := NewStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}

	server, err := NewServer(storage)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("create server: %w", err)
	}

	return &Node{
		id:      workerID,
		client:  NewClient(cfg.MasterURL),
		storage: storage,
		server:  server,
		config:  cfg,
	}, nil
}

// Start registers with the master and runs the task loop until the
// context is cancelled.
func (n *Node) Start(ctx context.Context) error {
	log.Printf("[WORKER:%s] Starting worker (version: %s)", n.id, protocol.SentiReduceVersion)

	n.server.Start()
	dataEndpoint := n.server.GetEndpoint()
	log.Printf("[WORKER:%s] Data server started at %s", n.id, dataEndpoint)

	available := executors.ListExecutors()
	log.Printf("[WORKER:%s] Available executors: %v", n.id, available)

	if _, err := n.client.Register(ctx, n.id, protocol.SentiReduceVersion, available, dataEndpoint); err != nil {
		log.Printf("[WORKER:%s] Registration failed: %v", n.id, err)
		return fmt.Errorf("registration failed: %w", err)
	}

	log.Printf("[WORKER:%s] Registration successful", n.id)

	go n.heartbeatLoop(ctx)

	n.taskLoop(ctx)

	return nil
}

// buildWorker constructs the executor implementation for a task. A fresh
// worker per task keeps job configurations from leaking across jobs.
func (n *Node) buildWorker(executor string, cfg sentireduce.JobConfig) sentireduce.Worker {
	worker, err := executors.GetExecutor(executor, cfg)
	if err != nil {
		log.Printf("[WORKER:%s] Unknown executor: %s", n.id, executor)
		return nil
	}
	return worker
}

// taskLoop polls for and processes tasks
func (n *Node) taskLoop(ctx context.Context) {
	pollInterval := n.config.PollInterval
	if pollInterval == 0 {
		pollInterval = 500 * time.Millisecond
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[WORKER:%s] Task loop shutting down", n.id)
			return
		case <-ticker.C:
			task, err := n.client.GetNextTask(ctx, n.id)
			if err != nil {
				log.Printf("[WORKER:%s] Error getting next task: %v", n.id, err)
				continue
			}

			switch task.Type {
			case protocol.TaskTypeNone:
				continue

			case protocol.TaskTypeMap:
				worker := n.buildWorker(task.MapTask.Executor, task.MapTask.Config)
				if worker == nil {
					continue
				}

				processor := NewProcessor(worker, n.client, n.storage)
				if err := processor.ProcessMapTask(ctx, task.MapTask, n.id); err != nil {
					log.Printf("[WORKER:%s] Map task failed: %v", n.id, err)
					n.client.CompleteTask(ctx, task.MapTask.ID, n.id, task.MapTask.Version, false, err.Error())
				}

			case protocol.TaskTypeReduce:
				worker := n.buildWorker(task.ReduceTask.Executor, task.ReduceTask.Config)
				if worker == nil {
					continue
				}

				processor := NewProcessor(worker, n.client, n.storage)
				if err := processor.ProcessReduceTask(ctx, task.ReduceTask, n.id); err != nil {
					log.Printf("[WORKER:%s] Reduce task failed: %v", n.id, err)
					n.client.CompleteTask(ctx, task.ReduceTask.ID, n.id, task.ReduceTask.Version, false, err.Error())
				}

			default:
				log.Printf("[WORKER:%s] Unknown task type: %s", n.id, task.Type)
			}
		}
	}
}

// heartbeatLoop sends periodic heartbeats to master
func (n *Node) heartbeatLoop(ctx context.Context) {
	interval := n.config.HeartbeatInterval
	if interval == 0 {
		interval = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[WORKER:%s] Heartbeat loop shutting down", n.id)
			return
		case <-ticker.C:
			ok, err := n.client.SendHeartbeat(ctx, n.id)
			if err != nil {
				log.Printf("[WORKER:%s] Heartbeat request failed: %v", n.id, err)
				continue
			}

			// A rejected heartbeat means the master restarted and lost
			// our registration.
			if !ok {
				log.Printf("[WORKER:%s] Heartbeat rejected, re-registering", n.id)

				if err := n.reregister(ctx); err != nil {
					log.Printf("[WORKER:%s] Re-registration failed: %v", n.id, err)
				} else {
					log.Printf("[WORKER:%s] Re-registration successful", n.id)
				}
			}
		}
	}
}

func (n *Node) reregister(ctx context.Context) error {
	available := executors.ListExecutors()
	dataEndpoint := n.server.GetEndpoint()

	if _, err := n.client.Register(ctx, n.id, protocol.SentiReduceVersion, available, dataEndpoint); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// Close releases the node's server and storage.
func (n *Node) Close() error {
	n.server.Close()
	return n.storage.Close()
}
