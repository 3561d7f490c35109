package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce/protocol"
)

// stubMaster is a minimal in-process master for exercising the node's
// register/poll/heartbeat loop.
type stubMaster struct {
	*httptest.Server

	registrations  atomic.Int64
	rejectRegister atomic.Bool
	heartbeatOK    atomic.Bool

	mu          sync.Mutex
	pendingTask *protocol.Task

	completions chan protocol.TaskCompletionRequest
}

func newStubMaster(t *testing.T) *stubMaster {
	t.Helper()

	m := &stubMaster{completions: make(chan protocol.TaskCompletionRequest, 8)}
	m.heartbeatOK.Store(true)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/workers/register", func(w http.ResponseWriter, r *http.Request) {
		m.registrations.Add(1)

		var req protocol.WorkerRegistrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp := protocol.WorkerRegistrationResponse{WorkerID: req.WorkerID, Success: true}
		if m.rejectRegister.Load() {
			resp.Success = false
			resp.Error = "version mismatch"
		}
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("GET /api/tasks/next", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		task := protocol.Task{Type: protocol.TaskTypeNone}
		if m.pendingTask != nil {
			task = *m.pendingTask
			m.pendingTask = nil
		}
		m.mu.Unlock()

		json.NewEncoder(w).Encode(task)
	})

	mux.HandleFunc("POST /api/tasks/{taskID}/complete", func(w http.ResponseWriter, r *http.Request) {
		var req protocol.TaskCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.completions <- req
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /api/workers/{workerID}/heartbeat", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(protocol.HeartbeatResponse{OK: m.heartbeatOK.Load()})
	})

	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)

	return m
}

func (m *stubMaster) offerTask(task protocol.Task) {
	m.mu.Lock()
	m.pendingTask = &task
	m.mu.Unlock()
}

func newTestNode(t *testing.T, masterURL string) *Node {
	t.Helper()

	node, err := NewNode(Config{
		MasterURL:         masterURL,
		DataDir:           t.TempDir(),
		PollInterval:      10 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewNode failed: %v", err)
	}
	t.Cleanup(func() { node.Close() })

	return node
}

func writeNodeWordlists(t *testing.T) sentireduce.JobConfig {
	t.Helper()

	dir := t.TempDir()
	pos := filepath.Join(dir, "positive.txt")
	neg := filepath.Join(dir, "negative.txt")

	if err := os.WriteFile(pos, []byte("good\nexcellent\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(neg, []byte("bad\nterrible\n"), 0644); err != nil {
		t.Fatal(err)
	}

	return sentireduce.JobConfig{PositiveWordlist: pos, NegativeWordlist: neg}
}

func TestNodeProcessesMapTask(t *testing.T) {
	t.Parallel()

	master := newStubMaster(t)
	node := newTestNode(t, master.URL)

	master.offerTask(protocol.Task{
		Type: protocol.TaskTypeMap,
		MapTask: &protocol.MapTask{
			ID:            "map-task-1",
			JobID:         "job-1",
			Executor:      "sentiment",
			Config:        writeNodeWordlists(t),
			Version:       "v1",
			Chunk:         []string{"good good bad"},
			NumPartitions: 1,
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- node.Start(ctx) }()

	select {
	case completion := <-master.completions:
		if !completion.Success {
			t.Errorf("task completion reported Success=false: %s", completion.Error)
		}
		if completion.Version != "v1" {
			t.Errorf("completion Version = %q, want %q", completion.Version, "v1")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("node never reported task completion")
	}

	if master.registrations.Load() == 0 {
		t.Error("node never registered with the master")
	}

	stored, err := node.storage.GetPartition("job-1", 0)
	if err != nil {
		t.Fatalf("GetPartition failed: %v", err)
	}
	if len(stored) == 0 {
		t.Error("no map output stored for partition 0")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("node did not shut down after cancellation")
	}
}

func TestNodeReregistersAfterHeartbeatRejection(t *testing.T) {
	t.Parallel()

	master := newStubMaster(t)
	master.heartbeatOK.Store(false)

	node := newTestNode(t, master.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go node.Start(ctx)

	// First registration happens at startup; a rejected heartbeat must
	// trigger at least one more.
	deadline := time.After(5 * time.Second)
	for master.registrations.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("registrations = %d, want at least 2", master.registrations.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestNodeStartFailsWhenRegistrationRejected(t *testing.T) {
	t.Parallel()

	master := newStubMaster(t)
	master.rejectRegister.Store(true)

	node := newTestNode(t, master.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := node.Start(ctx)
	if err == nil {
		t.Fatal("Start succeeded against a rejecting master")
	}
	if !errors.Is(err, sentireduce.ErrRegistrationFailed) {
		t.Errorf("Start error = %v, want ErrRegistrationFailed", err)
	}
}
