package domain

import "time"

// JobState represents the lifecycle state of a video generation job.
// A job lives in exactly one state at a time; the state tag is the
// partition membership.
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateActive    JobState = "active"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// JobRecord is the in-flight bookkeeping for one generation job. Records
// are owned by the job store; callers only ever see the derived JobStatus.
type JobRecord struct {
	ID string

	State JobState

	// OperationRef is the opaque handle returned by the generation
	// provider. Set when the job transitions to active.
	OperationRef string

	StartedAt time.Time

	// Metadata carries auxiliary data produced during enrichment, such
	// as the annotation description of the reference image.
	Metadata map[string]string

	// ErrorDetail is set only for failed jobs.
	ErrorDetail string

	// VideoURL and EndedAt are set only for completed jobs so that
	// repeated polls after completion keep returning the same result.
	VideoURL string
	EndedAt  time.Time
}

// ExternalStatus is the small status enum exposed to callers.
type ExternalStatus string

const (
	StatusWaiting ExternalStatus = "waiting"
	StatusDone    ExternalStatus = "done"
	StatusError   ExternalStatus = "error"
)

// JobStatus is the caller-visible view of a job, derived from the job
// record and the provider's operation state. It is never stored.
type JobStatus struct {
	JobID     string            `json:"job_id"`
	Status    ExternalStatus    `json:"status"`
	StartedAt time.Time         `json:"job_start_time"`
	EndedAt   *time.Time        `json:"job_end_time,omitempty"`
	VideoURL  string            `json:"video_url,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// VideoJobRequest is a client request to generate a video from one or two
// reference images plus optional text guidance.
type VideoJobRequest struct {
	// Image is the primary reference frame. Required.
	Image []byte

	// EndingImage is an optional second reference used as the final
	// frame of the generated clip.
	EndingImage []byte

	// Prompt is the caller's custom guidance. When empty, a fallback
	// prompt is assembled from the enrichment descriptions.
	Prompt string

	// DurationSeconds is the requested clip length. Zero means the
	// provider default; out-of-range values are clamped.
	DurationSeconds int
}
