package remote

import (
	"github.com/bacalhau-project/callback-relay/pkg/image"
)

// JobState is the lifecycle of a single proving job.
type JobState int

const (
	JobStateUploading JobState = iota
	JobStateSubmitted
	JobStateRunning
	JobStateSucceeded
	JobStateFailed
)

func (s JobState) String() string {
	switch s {
	case JobStateUploading:
		return "Uploading"
	case JobStateSubmitted:
		return "Submitted"
	case JobStateRunning:
		return "Running"
	case JobStateSucceeded:
		return "Succeeded"
	case JobStateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal returns true if the job can no longer transition.
func (s JobState) IsTerminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Job is a proving job. ImageID and InputID are fixed once the job is
// submitted; only State changes afterwards.
type Job struct {
	ImageID image.ID
	InputID string
	Handle  string
	State   JobState
	// LastStatus is the last status string the service reported.
	LastStatus string
}
