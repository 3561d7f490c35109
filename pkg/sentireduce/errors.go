package sentireduce

import "errors"

// Sentinel errors for common error conditions
var (
	// Executor-related errors
	ErrInvalidExecutor  = errors.New("invalid executor specified")
	ErrExecutorNotFound = errors.New("executor not found")

	// Job-related errors
	ErrJobNotFound         = errors.New("job not found")
	ErrJobNotCompleted     = errors.New("job not completed")
	ErrJobAlreadyFinished  = errors.New("job already finished")
	ErrJobAlreadyCancelled = errors.New("job already cancelled")

	// Version/compatibility errors
	ErrIncompatibleVersion = errors.New("incompatible version")

	// HTTP/Network errors
	ErrRegistrationFailed   = errors.New("registration failed")
	ErrGetTaskFailed        = errors.New("get task failed")
	ErrCompleteTaskFailed   = errors.New("complete task failed")
	ErrHeartbeatFailed      = errors.New("heartbeat failed")
	ErrUploadResultsFailed  = errors.New("upload results failed")
	ErrFetchPartitionFailed = errors.New("fetch partition failed")
	ErrWorkerUnreachable    = errors.New("worker unreachable")
)
