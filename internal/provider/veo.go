package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const veoName = "veo"

// VeoClient talks to a Veo-style long-running-operation endpoint: submission
// returns an operation name, the operation is polled until done, and the
// finished operation carries a download URI for the generated video.
type VeoClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type VeoOption func(*VeoClient)

func WithHTTPClient(c *http.Client) VeoOption {
	return func(v *VeoClient) { v.client = c }
}

func NewVeoClient(apiKey, baseURL, model string, opts ...VeoOption) *VeoClient {
	v := &VeoClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *VeoClient) Name() string     { return veoName }
func (v *VeoClient) MediaExt() string { return ".mp4" }

type veoSubmitRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoInstance struct {
	Prompt string `json:"prompt"`
}

type veoParameters struct {
	AspectRatio     string `json:"aspectRatio,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

func (v *VeoClient) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	if v.apiKey == "" {
		return "", fmt.Errorf("veo: no api key configured")
	}

	body, err := json.Marshal(veoSubmitRequest{
		Instances: []veoInstance{{Prompt: req.Prompt}},
		Parameters: veoParameters{
			AspectRatio:     req.AspectRatio,
			DurationSeconds: req.DurationSeconds,
		},
	})
	if err != nil {
		return "", fmt.Errorf("veo: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", v.baseURL, v.model)
	var op veoOperation
	if err := v.doJSON(ctx, http.MethodPost, url, bytes.NewReader(body), &op); err != nil {
		return "", fmt.Errorf("veo: submit: %w", err)
	}
	if op.Name == "" {
		return "", fmt.Errorf("veo: submit returned no operation name")
	}
	return op.Name, nil
}

func (v *VeoClient) Poll(ctx context.Context, operationRef string) (PollResult, error) {
	url := fmt.Sprintf("%s/%s", v.baseURL, strings.TrimLeft(operationRef, "/"))
	var op veoOperation
	if err := v.doJSON(ctx, http.MethodGet, url, nil, &op); err != nil {
		return PollResult{}, fmt.Errorf("veo: poll: %w", err)
	}

	if !op.Done {
		return PollResult{}, nil
	}
	if op.Error != nil {
		return PollResult{Done: true, Message: op.Error.Message}, nil
	}

	uri := ""
	if op.Response != nil && len(op.Response.GenerateVideoResponse.GeneratedSamples) > 0 {
		uri = op.Response.GenerateVideoResponse.GeneratedSamples[0].Video.URI
	}
	if uri == "" {
		return PollResult{Done: true, Message: "operation finished without a video"}, nil
	}
	return PollResult{Done: true, Succeeded: true, ResultRef: uri}, nil
}

func (v *VeoClient) Fetch(ctx context.Context, resultRef, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultRef, nil)
	if err != nil {
		return fmt.Errorf("veo: build download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("veo: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("veo: download: unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("veo: prepare media dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("veo: create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("veo: write media file: %w", err)
	}
	return nil
}

func (v *VeoClient) doJSON(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", v.apiKey)
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
