package jobs

import (
	"time"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// RequestParams are the immutable generation parameters echoed back on every
// status read.
type RequestParams struct {
	AspectRatio     string `json:"aspect_ratio,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	Style           string `json:"style,omitempty"`
}

// Artifacts are the locally addressable outputs of a completed job.
type Artifacts struct {
	MediaPath   string `json:"media_path"`
	PreviewPath string `json:"preview_path,omitempty"`
}

type CreateJobRequest struct {
	Prompt     string            `json:"prompt"`
	Params     RequestParams     `json:"params"`
	WebhookURL string            `json:"webhook_url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Job is one tracked generation request. It is mutated only by the single
// background task that owns it; everything handed out of the store is a copy.
type Job struct {
	ID             string            `json:"id"`
	Prompt         string            `json:"prompt"`
	EnhancedPrompt string            `json:"enhanced_prompt,omitempty"`
	Params         RequestParams     `json:"params"`
	WebhookURL     string            `json:"webhook_url,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`

	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	Provider     string     `json:"provider,omitempty"`
	OperationRef string     `json:"operation_ref,omitempty"`
	Artifacts    *Artifacts `json:"artifacts,omitempty"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Clone returns a deep copy so callers can never reach back into the store's
// record through a shared pointer.
func (j *Job) Clone() Job {
	c := *j
	if j.Metadata != nil {
		c.Metadata = make(map[string]string, len(j.Metadata))
		for k, v := range j.Metadata {
			c.Metadata[k] = v
		}
	}
	if j.Artifacts != nil {
		a := *j.Artifacts
		c.Artifacts = &a
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
