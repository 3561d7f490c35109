package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce"
	"pkg.jsn.cam/sentireduce/pkg/sentireduce/protocol"
)

func submitJobHTTP(masterURL, executor, path, outputPath string, chunkSize, reduceTasks int, jobCfg sentireduce.JobConfig) error {
	req := protocol.JobSubmitRequest{
		Executor:    executor,
		Config:      jobCfg,
		InputPath:   path,
		OutputPath:  outputPath,
		ChunkSize:   chunkSize,
		ReduceTasks: reduceTasks,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := http.Post(masterURL+"/api/jobs", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}
	defer resp.Body.Close()

	var submitResp protocol.JobSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if submitResp.Status == "error" {
		return fmt.Errorf("job submission failed: %s", submitResp.Message)
	}

	fmt.Printf("Job submitted successfully!\n")
	fmt.Printf("  Job ID: %s\n", submitResp.JobID)
	fmt.Printf("  Status: %s\n", submitResp.Status)
	fmt.Printf("\nCheck status with: sentireduce status %s\n", submitResp.JobID)
	return nil
}

func listJobsHTTP(masterURL string) error {
	resp, err := http.Get(masterURL + "/api/jobs")
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	defer resp.Body.Close()

	var listResp protocol.JobListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(listResp.Jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-36s %-12s %-15s %s\n", "JOB ID", "STATUS", "EXECUTOR", "SUBMITTED")
	fmt.Println("─────────────────────────────────────────────────────────────────────────────────────────")
	for _, job := range listResp.Jobs {
		fmt.Printf("%-36s %-12s %-15s %s\n",
			job.ID,
			job.Status,
			job.Executor,
			job.SubmittedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func getJobHTTP(masterURL, jobID string) (*protocol.Job, error) {
	resp, err := http.Get(masterURL + "/api/jobs/" + jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	var job protocol.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &job, nil
}

func getJobStatusHTTP(masterURL, jobID string) error {
	job, err := getJobHTTP(masterURL, jobID)
	if err != nil {
		return err
	}

	fmt.Printf("Job Details:\n")
	fmt.Printf("  ID:           %s\n", job.ID)
	fmt.Printf("  Status:       %s\n", job.Status)
	fmt.Printf("  Executor:     %s\n", job.Executor)
	fmt.Printf("  Input Path:   %s\n", job.InputPath)
	fmt.Printf("  Chunk Size:   %s lines\n", humanize.Comma(int64(job.ChunkSize)))
	fmt.Printf("  Reduce Tasks: %d\n", job.ReduceTasks)
	fmt.Printf("  Submitted:    %s\n", job.SubmittedAt.Format("2006-01-02 15:04:05"))

	if !job.StartedAt.IsZero() {
		fmt.Printf("  Started:      %s (%s)\n",
			job.StartedAt.Format("2006-01-02 15:04:05"),
			humanize.Time(job.StartedAt))
	}

	if !job.CompletedAt.IsZero() {
		fmt.Printf("  Completed:    %s\n", job.CompletedAt.Format("2006-01-02 15:04:05"))
		duration := job.CompletedAt.Sub(job.StartedAt)
		fmt.Printf("  Duration:     %v\n", duration)
	}

	if job.Status == protocol.JobStatusRunning || job.Status == protocol.JobStatusCompleted {
		fmt.Printf("\nProgress:\n")
		fmt.Printf("  Map tasks:    %d/%d completed\n", job.MapTasksDone, job.MapTasksTotal)
		fmt.Printf("  Reduce tasks: %d/%d completed\n", job.ReduceTasksDone, job.ReduceTasksTotal)
		fmt.Printf("  Total:        %d/%d completed\n", job.CompletedTasks, job.TotalTasks)
	}

	if job.Error != "" {
		fmt.Printf("\nError: %s\n", job.Error)
	}
	return nil
}

func watchJobHTTP(masterURL, jobID string, interval time.Duration) error {
	job, err := getJobHTTP(masterURL, jobID)
	if err != nil {
		return err
	}

	shortID := jobID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	bar := progressbar.NewOptions(job.TotalTasks,
		progressbar.OptionSetDescription(fmt.Sprintf("job %s", shortID)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)

	for {
		if job.TotalTasks > 0 {
			_ = bar.Set(job.CompletedTasks)
		}

		switch job.Status {
		case protocol.JobStatusCompleted:
			_ = bar.Finish()
			fmt.Printf("\nJob completed in %.2fs\n", job.Duration)
			return nil
		case protocol.JobStatusFailed:
			fmt.Printf("\nJob failed: %s\n", job.Error)
			return fmt.Errorf("job failed")
		case protocol.JobStatusCancelled:
			fmt.Printf("\nJob cancelled\n")
			return nil
		}

		time.Sleep(interval)

		job, err = getJobHTTP(masterURL, jobID)
		if err != nil {
			return err
		}

		// Total task count appears once the job starts running.
		if job.TotalTasks > 0 && bar.GetMax() != job.TotalTasks {
			bar.ChangeMax(job.TotalTasks)
		}
	}
}

func getJobResultsHTTP(masterURL, jobID string) error {
	resp, err := http.Get(masterURL + "/api/jobs/" + jobID + "/results")
	if err != nil {
		return fmt.Errorf("failed to get job results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to get results (status: %d)", resp.StatusCode)
	}

	var results []sentireduce.KeyValue
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results yet")
		return nil
	}

	fmt.Printf("Job Results (%d entries):\n", len(results))
	fmt.Println("─────────────────────────────────────────────────────────")
	for _, kv := range results {
		fmt.Printf("%-30s %s\n", kv.Key, kv.Value)
	}
	return nil
}

func cancelJobHTTP(masterURL, jobID string) error {
	resp, err := http.Post(masterURL+"/api/jobs/"+jobID+"/cancel", "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to cancel job: %w", err)
	}
	defer resp.Body.Close()

	var cancelResp protocol.JobCancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&cancelResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !cancelResp.Success {
		return fmt.Errorf("failed to cancel job: %s", cancelResp.Message)
	}

	fmt.Printf("Job cancelled successfully: %s\n", jobID)
	return nil
}
