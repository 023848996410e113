package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/miguelsanz72/dreamframe/internal/media"
)

const syntheticName = "synthetic"

// SyntheticClient is the local fallback backend. It has no remote latency:
// operations are done the moment they are submitted, and fetching renders a
// deterministic placeholder clip seeded by the operation ref. It exists so a
// job can always reach completed even with no external connectivity.
type SyntheticClient struct {
	mu      sync.Mutex
	pending map[string]GenerationRequest
}

func NewSyntheticClient() *SyntheticClient {
	return &SyntheticClient{pending: make(map[string]GenerationRequest)}
}

func (s *SyntheticClient) Name() string     { return syntheticName }
func (s *SyntheticClient) MediaExt() string { return ".gif" }

func (s *SyntheticClient) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	ref := "local/" + uuid.NewString()
	s.mu.Lock()
	s.pending[ref] = req
	s.mu.Unlock()
	return ref, nil
}

func (s *SyntheticClient) Poll(ctx context.Context, operationRef string) (PollResult, error) {
	s.mu.Lock()
	_, ok := s.pending[operationRef]
	s.mu.Unlock()
	if !ok {
		return PollResult{Done: true, Message: "unknown operation"}, nil
	}
	return PollResult{Done: true, Succeeded: true, ResultRef: operationRef}, nil
}

func (s *SyntheticClient) Fetch(ctx context.Context, resultRef, dst string) error {
	if !strings.HasPrefix(resultRef, "local/") {
		return fmt.Errorf("synthetic: foreign result ref %q", resultRef)
	}

	s.mu.Lock()
	req, ok := s.pending[resultRef]
	delete(s.pending, resultRef)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("synthetic: unknown result ref %q", resultRef)
	}

	seconds := req.DurationSeconds
	if seconds <= 0 {
		seconds = 4
	}
	if err := media.RenderClip(dst, resultRef, req.AspectRatio, seconds); err != nil {
		return fmt.Errorf("synthetic: render clip: %w", err)
	}
	return nil
}
