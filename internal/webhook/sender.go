package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Event is the payload delivered on every job state transition.
type Event struct {
	JobID     string            `json:"job_id"`
	Status    string            `json:"status"`
	Progress  int               `json:"progress"`
	Provider  string            `json:"provider,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Job       any               `json:"job,omitempty"`
}

type Sender interface {
	Notify(ctx context.Context, url string, event Event) error
}

type httpSender struct {
	client      *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

func NewHTTPSender(timeout time.Duration, maxRetries int) Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 3
	}
	return &httpSender{
		client:      &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		baseBackoff: 500 * time.Millisecond,
	}
}

func (s *httpSender) Notify(ctx context.Context, url string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")

		resp, err := s.client.Do(req)
		if err == nil {
			ok := resp.StatusCode >= 200 && resp.StatusCode < 300
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			if ok {
				return nil
			}
			lastErr = errors.New(resp.Status)
		} else {
			lastErr = err
		}

		backoff := s.baseBackoff * (1 << attempt)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
