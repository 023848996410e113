package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miguelsanz72/dreamframe/internal/jobs"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type router struct {
	orchestrator *jobs.Orchestrator
	streamer     *jobs.EventStreamer
}

func NewRouter(orchestrator *jobs.Orchestrator, streamer *jobs.EventStreamer) http.Handler {
	r := &router{orchestrator: orchestrator, streamer: streamer}
	m := http.NewServeMux()
	m.HandleFunc("GET /healthz", r.handleHealth)
	m.HandleFunc("POST /videos", r.handleSubmit)
	m.HandleFunc("GET /videos", r.handleList)
	m.HandleFunc("GET /videos/{id}", r.handleStatus)
	m.HandleFunc("GET /videos/{id}/events", r.handleEvents)
	m.HandleFunc("GET /videos/{id}/media", r.handleMedia)
	m.HandleFunc("GET /videos/{id}/preview", r.handlePreview)
	m.Handle("GET /metrics", promhttp.Handler())
	return logging(m)
}

func (r *router) handleSubmit(w http.ResponseWriter, req *http.Request) {
	var body jobs.CreateJobRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := r.orchestrator.Submit(req.Context(), body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": id,
		"status": string(jobs.JobStatusQueued),
	})
}

func (r *router) handleStatus(w http.ResponseWriter, req *http.Request) {
	job, ok := r.job(w, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (r *router) handleList(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"jobs": r.orchestrator.List()})
}

func (r *router) handleMedia(w http.ResponseWriter, req *http.Request) {
	job, ok := r.job(w, req)
	if !ok {
		return
	}
	if job.Artifacts == nil || job.Artifacts.MediaPath == "" {
		respondError(w, http.StatusConflict, "media not ready")
		return
	}
	http.ServeFile(w, req, job.Artifacts.MediaPath)
}

func (r *router) handlePreview(w http.ResponseWriter, req *http.Request) {
	job, ok := r.job(w, req)
	if !ok {
		return
	}
	if job.Artifacts == nil || job.Artifacts.PreviewPath == "" {
		respondError(w, http.StatusConflict, "preview not ready")
		return
	}
	http.ServeFile(w, req, job.Artifacts.PreviewPath)
}

// handleEvents upgrades to a websocket and streams job snapshots until the
// job finishes or the client goes away. The current snapshot is sent first so
// late subscribers are not blind until the next transition.
func (r *router) handleEvents(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	job, ok := r.orchestrator.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}

	r.streamer.SubscribeAndSend(id, conn, job)
	defer r.streamer.Unsubscribe(id, conn)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			conn.Close()
			break
		}
	}
}

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *router) job(w http.ResponseWriter, req *http.Request) (jobs.Job, bool) {
	id := req.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "job id required")
		return jobs.Job{}, false
	}
	job, ok := r.orchestrator.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "not found")
		return jobs.Job{}, false
	}
	return job, true
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}
