// Package provider wraps the external generative-media service. The
// rest of the system consumes the Provider interface; failures surface
// as collaborator errors.
package provider

import "context"

// GenerateRequest carries the inputs for a video generation dispatch.
type GenerateRequest struct {
	Prompt string

	// PrimaryFrame is the first frame of the generated clip.
	PrimaryFrame    []byte
	PrimaryMIMEType string

	// SecondaryFrame, when present, is used as the final frame.
	SecondaryFrame    []byte
	SecondaryMIMEType string

	DurationSeconds int
}

// PollResult reports the state of a long-running generation operation.
type PollResult struct {
	Done bool

	// ResultURI is the storage-scheme URI of the generated video. Set
	// only when Done is true.
	ResultURI string
}

// Provider is the generation collaborator contract.
type Provider interface {
	// Describe returns a textual annotation description for an image.
	Describe(ctx context.Context, image []byte, mimeType string) (string, error)

	// Cleanup returns a cleaned version of an annotated image following
	// the given edit instruction.
	Cleanup(ctx context.Context, image []byte, mimeType, instruction string) ([]byte, error)

	// Generate dispatches a video generation request and returns an
	// opaque operation reference.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// Poll queries a previously dispatched operation.
	Poll(ctx context.Context, operationRef string) (*PollResult, error)
}
