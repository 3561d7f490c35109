package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce/protocol"
)

// Client handles HTTP communication with the master and with peer
// workers' data servers.
type Client struct {
	http      *http.Client
	masterURL string
}

func NewClient(masterURL string) *Client {
	return &Client{
		masterURL: masterURL,
		http: &http.Client{
			// Safety net against indefinite hangs; context deadlines
			// still apply per request.
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if out != nil && resp.StatusCode == http.StatusOK {
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Register announces this worker to the master, advertising its data
// endpoint and the executors it can run.
func (c *Client) Register(ctx context.Context, workerID, version string, executors []string, dataEndpoint string) (*protocol.WorkerRegistrationResponse, error) {
	req := protocol.WorkerRegistrationRequest{
		WorkerID:     workerID,
		Version:      version,
		Executors:    executors,
		DataEndpoint: dataEndpoint,
	}

	var regResp protocol.WorkerRegistrationResponse
	resp, err := c.postJSON(ctx, c.masterURL+"/api/workers/register", req, &regResp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", sentireduce.ErrRegistrationFailed, resp.Status)
	}

	if !regResp.Success {
		return nil, fmt.Errorf("%w: %s", sentireduce.ErrRegistrationFailed, regResp.Error)
	}
	return &regResp, nil
}

// GetNextTask asks the master for work.
func (c *Client) GetNextTask(ctx context.Context, workerID string) (*protocol.Task, error) {
	url := fmt.Sprintf("%s/api/tasks/next?workerID=%s", c.masterURL, workerID)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", sentireduce.ErrGetTaskFailed, resp.Status)
	}

	var task protocol.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CompleteTask reports the outcome of a task to the master.
func (c *Client) CompleteTask(ctx context.Context, taskID, workerID, version string, success bool, errorMsg string) error {
	req := protocol.TaskCompletionRequest{
		Success: success,
		Error:   errorMsg,
		Version: version,
	}

	url := fmt.Sprintf("%s/api/tasks/%s/complete?workerID=%s", c.masterURL, taskID, workerID)

	resp, err := c.postJSON(ctx, url, req, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", sentireduce.ErrCompleteTaskFailed, resp.Status, string(body))
	}
	return nil
}

// SendHeartbeat tells the master this worker is alive. A false return
// with no error means the master does not recognize the worker.
func (c *Client) SendHeartbeat(ctx context.Context, workerID string) (bool, error) {
	req := protocol.HeartbeatRequest{Timestamp: time.Now()}
	url := fmt.Sprintf("%s/api/workers/%s/heartbeat", c.masterURL, workerID)

	var hbResp protocol.HeartbeatResponse
	resp, err := c.postJSON(ctx, url, req, &hbResp)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return false, fmt.Errorf("%w: %s", sentireduce.ErrHeartbeatFailed, resp.Status)
	}
	return hbResp.OK, nil
}

// UploadResults delivers a reduce task's output to the master, which
// accumulates it into the job's final results.
func (c *Client) UploadResults(ctx context.Context, taskID, workerID string, results []sentireduce.KeyValue) error {
	req := protocol.ResultsUploadRequest{
		TaskID:  taskID,
		Results: results,
	}

	url := fmt.Sprintf("%s/api/tasks/%s/results?workerID=%s", c.masterURL, taskID, workerID)

	resp, err := c.postJSON(ctx, url, req, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s - %s", sentireduce.ErrUploadResultsFailed, resp.Status, string(body))
	}
	return nil
}

// FetchPartitionFromWorker pulls one partition of a job's map output
// from a peer worker's data endpoint.
func (c *Client) FetchPartitionFromWorker(ctx context.Context, workerEndpoint, jobID string, partition int) ([]sentireduce.KeyValue, error) {
	url := fmt.Sprintf("%s/data/%s/partition/%d", workerEndpoint, jobID, partition)

	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sentireduce.ErrFetchPartitionFailed, workerEndpoint, err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sentireduce.ErrWorkerUnreachable, workerEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", sentireduce.ErrFetchPartitionFailed, workerEndpoint, resp.StatusCode)
	}

	var data []sentireduce.KeyValue
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response from worker %s: %w", workerEndpoint, err)
	}
	return data, nil
}
