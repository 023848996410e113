package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/miguelsanz72/dreamframe/internal/jobs"
	"github.com/miguelsanz72/dreamframe/internal/media"
	"github.com/miguelsanz72/dreamframe/internal/provider"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := jobs.NewStore()
	streamer := jobs.NewEventStreamer()
	// The synthetic provider serves as both variants: no network, always
	// completes.
	synthetic := provider.NewSyntheticClient()
	materializer := media.NewMaterializer(t.TempDir(), media.NewFFmpegExtractor())

	o, err := jobs.NewOrchestrator(store, synthetic, provider.NewSyntheticClient(),
		materializer, nil, nil, nil, streamer,
		jobs.OrchestratorConfig{PollInterval: time.Millisecond, MaxPollAttempts: 2, FallbackEnabled: true},
	)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	t.Cleanup(o.Stop)

	srv := httptest.NewServer(NewRouter(o, streamer))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func TestRouter_SubmitAndStatus(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/videos", `{"prompt":"a storm at sea","params":{"aspect_ratio":"16:9"}}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status %d", resp.StatusCode)
	}

	var created map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id := created["job_id"]
	if id == "" || created["status"] != "queued" {
		t.Fatalf("unexpected submit response: %v", created)
	}

	// Poll the status endpoint until the job lands.
	deadline := time.Now().Add(5 * time.Second)
	var job jobs.Job
	for time.Now().Before(deadline) {
		r, err := http.Get(srv.URL + "/videos/" + id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if r.StatusCode != http.StatusOK {
			t.Fatalf("status %d", r.StatusCode)
		}
		if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		r.Body.Close()
		if job.Terminal() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if job.Status != jobs.JobStatusCompleted {
		t.Fatalf("job ended %s (%s)", job.Status, job.Error)
	}

	mediaResp, err := http.Get(srv.URL + "/videos/" + id + "/media")
	if err != nil {
		t.Fatalf("get media: %v", err)
	}
	mediaResp.Body.Close()
	if mediaResp.StatusCode != http.StatusOK {
		t.Fatalf("media status %d", mediaResp.StatusCode)
	}
}

func TestRouter_Validation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/videos", `{"prompt":""}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank prompt: status %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/videos", `{not json`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json: status %d", resp.StatusCode)
	}

	r, err := http.Get(srv.URL + "/videos/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job: status %d", r.StatusCode)
	}
}

func TestRouter_List(t *testing.T) {
	srv := newTestServer(t)

	for _, p := range []string{"one", "two"} {
		resp := postJSON(t, srv.URL+"/videos", `{"prompt":"`+p+`"}`)
		resp.Body.Close()
	}

	r, err := http.Get(srv.URL + "/videos")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", r.StatusCode)
	}

	var payload struct {
		Jobs []jobs.Job `json:"jobs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Jobs) != 2 {
		t.Fatalf("listed %d jobs, want 2", len(payload.Jobs))
	}
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t)
	r, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	r.Body.Close()
	if r.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", r.StatusCode)
	}
}
