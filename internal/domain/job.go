package domain

import "time"

// JobStatus is the observed state of a job on the generative engine.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusTimedOut  JobStatus = "timed_out"
)

// Terminal reports whether polling can stop.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusTimedOut
}

// GenerationJob is one submission to the generative engine. Transitions are
// observed by polling, never driven.
type GenerationJob struct {
	PromptID       string    `json:"prompt_id"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt,omitempty"`
	Seed           int64     `json:"seed"`
	Status         JobStatus `json:"status"`
	OutputFilename string    `json:"output_filename,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
	FinishedAt     time.Time `json:"finished_at,omitempty"`
}
