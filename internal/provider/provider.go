// Package provider abstracts one generation backend behind a small
// submit/poll/fetch capability so the orchestrator can drive the remote and
// the local synthetic variant through the same state machine.
package provider

import (
	"context"
)

// GenerationRequest carries everything a backend needs to start producing a
// clip.
type GenerationRequest struct {
	Prompt          string
	AspectRatio     string
	DurationSeconds int
	Style           string
}

// PollResult is one non-blocking check of a pending operation.
//
// Done=false means still running. Done=true with Succeeded=false is a
// definitive provider failure for this attempt; an error returned from Poll
// itself is transient and may be retried.
type PollResult struct {
	Done      bool
	Succeeded bool
	ResultRef string
	Message   string
}

// Client is one generation backend.
type Client interface {
	// Name identifies the variant in job records and logs.
	Name() string

	// MediaExt is the file extension (with dot) of media this backend
	// produces.
	MediaExt() string

	// Submit starts an operation and returns an opaque handle for polling.
	Submit(ctx context.Context, req GenerationRequest) (string, error)

	// Poll checks the operation once. The caller owns the wait interval.
	Poll(ctx context.Context, operationRef string) (PollResult, error)

	// Fetch resolves a completed operation's result reference into a local
	// media file at dst.
	Fetch(ctx context.Context, resultRef, dst string) error
}
