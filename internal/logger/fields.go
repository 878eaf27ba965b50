package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID).
	FieldRequestID = "request_id"

	// FieldJobID identifies a video generation job.
	FieldJobID = "job_id"

	// FieldOwnerID identifies the requesting owner/tenant.
	FieldOwnerID = "owner_id"

	// FieldComponent is the component/module name.
	FieldComponent = "component"
)

// Standard metric fields attached at the log site.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldSize is a data size in bytes.
	FieldSize = "size"

	// FieldStatus is the operation status.
	FieldStatus = "status"

	// FieldSegments is the number of video segments in a merge.
	FieldSegments = "segments"
)
