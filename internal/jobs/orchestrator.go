package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/miguelsanz72/dreamframe/internal/media"
	"github.com/miguelsanz72/dreamframe/internal/prompt"
	"github.com/miguelsanz72/dreamframe/internal/provider"
	"github.com/miguelsanz72/dreamframe/internal/webhook"
)

// Recorder mirrors job snapshots to an external flat store, best-effort.
type Recorder interface {
	Save(ctx context.Context, jobID string, snapshot any) error
}

type OrchestratorConfig struct {
	// PollInterval is the fixed delay between provider poll attempts.
	PollInterval time.Duration
	// MaxPollAttempts bounds the poll loop, and with PollInterval the
	// worst-case wall clock of a primary attempt.
	MaxPollAttempts int
	// MaxConcurrent caps simultaneously executing tasks; 0 means unlimited.
	// Submission is never blocked, jobs just wait in queued.
	MaxConcurrent int
	// FallbackEnabled switches failed primary attempts to the synthetic
	// provider instead of failing the job.
	FallbackEnabled bool
}

// Orchestrator owns the job lifecycle: submission creates a record and a
// detached task per job; the task drives submit -> poll -> materialize against
// the primary provider and falls back to the synthetic variant at most once.
// Each job is mutated only by its own task, so ordering per job is total.
type Orchestrator struct {
	store        *Store
	primary      provider.Client
	synthetic    provider.Client
	materializer *media.Materializer
	enhancer     prompt.Enhancer
	recorder     Recorder
	sender       webhook.Sender
	streamer     *EventStreamer

	cfg     OrchestratorConfig
	sem     chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewOrchestrator(
	store *Store,
	primary, synthetic provider.Client,
	materializer *media.Materializer,
	enhancer prompt.Enhancer,
	recorder Recorder,
	sender webhook.Sender,
	streamer *EventStreamer,
	cfg OrchestratorConfig,
) (*Orchestrator, error) {
	if store == nil || primary == nil || synthetic == nil || materializer == nil || streamer == nil {
		return nil, errors.New("store, providers, materializer and streamer are required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 30
	}

	o := &Orchestrator{
		store:        store,
		primary:      primary,
		synthetic:    synthetic,
		materializer: materializer,
		enhancer:     enhancer,
		recorder:     recorder,
		sender:       sender,
		streamer:     streamer,
		cfg:          cfg,
	}
	if cfg.MaxConcurrent > 0 {
		o.sem = make(chan struct{}, cfg.MaxConcurrent)
	}
	return o, nil
}

// Stop refuses new submissions and waits for in-flight tasks to finish. Every
// task terminates on its own because the poll loop is bounded.
func (o *Orchestrator) Stop() {
	if o.stopped.Swap(true) {
		return
	}
	o.wg.Wait()
}

// Submit creates the job record and returns its id immediately; it never
// waits on a provider.
func (o *Orchestrator) Submit(ctx context.Context, req CreateJobRequest) (string, error) {
	if o.stopped.Load() {
		return "", errors.New("orchestrator stopped")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", errors.New("prompt is required")
	}

	job := Job{
		ID:         uuid.NewString(),
		Prompt:     req.Prompt,
		Params:     req.Params,
		WebhookURL: req.WebhookURL,
		Metadata:   req.Metadata,
		Status:     JobStatusQueued,
		CreatedAt:  time.Now().UTC(),
	}

	// Enhancement is best-effort; a degraded prompt is never a reason to
	// refuse the job.
	if o.enhancer != nil {
		res, err := o.enhancer.Enhance(ctx, prompt.EnhanceRequest{
			Prompt:          req.Prompt,
			Style:           req.Params.Style,
			DurationSeconds: req.Params.DurationSeconds,
			AspectRatio:     req.Params.AspectRatio,
		})
		if err != nil {
			slog.Warn("prompt enhancement failed, using raw prompt", "job_id", job.ID, "error", err)
		} else {
			job.EnhancedPrompt = res.Prompt
			slog.Debug("prompt enhanced",
				"job_id", job.ID, "confidence", res.Confidence, "notes", strings.Join(res.Notes, "; "))
		}
	}

	o.store.Put(job)
	JobsSubmittedTotal.Inc()
	JobsActive.Inc()

	o.wg.Add(1)
	o.publish(job)
	go o.run(job.ID)
	return job.ID, nil
}

// Get returns a snapshot of one job.
func (o *Orchestrator) Get(id string) (Job, bool) {
	return o.store.Get(id)
}

// List returns snapshots of every known job, newest first.
func (o *Orchestrator) List() []Job {
	return o.store.List()
}

// run is the single owning task for one job. It must never exit without the
// job reaching a terminal state.
func (o *Orchestrator) run(id string) {
	defer o.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job task panicked", "job_id", id, "panic", r)
			o.fail(id, "internal error")
		}
	}()

	if o.sem != nil {
		o.sem <- struct{}{}
		defer func() { <-o.sem }()
	}

	ctx := context.Background()
	job, ok := o.transition(id, func(j *Job) {
		j.Status = JobStatusProcessing
		j.Progress = progressStarted
		j.Provider = o.primary.Name()
	})
	if !ok {
		return
	}
	JobsInProgress.Inc()
	defer JobsInProgress.Dec()

	arts, reason, ok := o.runPrimary(ctx, id, job)
	if ok {
		o.complete(id, arts)
		return
	}

	if !o.cfg.FallbackEnabled {
		o.fail(id, reason)
		return
	}

	slog.Warn("switching job to synthetic provider", "job_id", id, "reason", reason)
	FallbacksTotal.Inc()

	arts, err := o.runSynthetic(ctx, id, job)
	if err != nil {
		o.fail(id, err.Error())
		return
	}
	o.complete(id, arts)
}

// runPrimary drives one full attempt against the primary provider. On any
// failure it returns ok=false with a human-readable reason; deciding between
// fallback and terminal failure is the caller's job.
func (o *Orchestrator) runPrimary(ctx context.Context, id string, job Job) (media.Artifacts, string, bool) {
	req := generationRequest(job)

	opRef, err := o.primary.Submit(ctx, req)
	if err != nil {
		slog.Warn("primary submit failed", "job_id", id, "provider", o.primary.Name(), "error", err)
		return media.Artifacts{}, fmt.Sprintf("submit failed: %v", err), false
	}
	o.transition(id, func(j *Job) {
		j.OperationRef = opRef
		j.Progress = progressSubmitted
	})

	var res provider.PollResult
	finished := false
	for attempt := 1; attempt <= o.cfg.MaxPollAttempts; attempt++ {
		// Suspension point: no store lock is held while waiting.
		time.Sleep(o.cfg.PollInterval)

		res, err = o.primary.Poll(ctx, opRef)
		if err != nil {
			// Transient; the attempt cap bounds how long we keep trying.
			slog.Warn("poll failed", "job_id", id, "attempt", attempt, "error", err)
			continue
		}
		if !res.Done {
			p := pollProgress(attempt, o.cfg.MaxPollAttempts)
			o.transition(id, func(j *Job) {
				if p > j.Progress {
					j.Progress = p
				}
			})
			continue
		}
		finished = true
		break
	}

	if !finished {
		return media.Artifacts{}, "provider did not finish within the poll budget", false
	}
	if !res.Succeeded {
		msg := res.Message
		if msg == "" {
			msg = "provider reported failure"
		}
		return media.Artifacts{}, msg, false
	}

	o.transition(id, func(j *Job) { j.Progress = progressMaterializing })
	arts, err := o.materializer.Materialize(ctx, o.primary, id, res.ResultRef)
	if err != nil {
		slog.Warn("materialization failed", "job_id", id, "provider", o.primary.Name(), "error", err)
		return media.Artifacts{}, fmt.Sprintf("materialization failed: %v", err), false
	}
	return arts, "", true
}

// runSynthetic is the one-shot fallback attempt. The synthetic provider
// completes immediately, so there is no poll loop to bound.
func (o *Orchestrator) runSynthetic(ctx context.Context, id string, job Job) (media.Artifacts, error) {
	req := generationRequest(job)

	opRef, err := o.synthetic.Submit(ctx, req)
	if err != nil {
		return media.Artifacts{}, fmt.Errorf("synthetic submit failed: %w", err)
	}

	// The single documented downward progress reset.
	o.transition(id, func(j *Job) {
		j.Provider = o.synthetic.Name()
		j.OperationRef = opRef
		j.Progress = progressFallbackReset
	})

	res, err := o.synthetic.Poll(ctx, opRef)
	if err != nil {
		return media.Artifacts{}, fmt.Errorf("synthetic poll failed: %w", err)
	}
	if !res.Done || !res.Succeeded {
		msg := res.Message
		if msg == "" {
			msg = "synthetic provider did not complete"
		}
		return media.Artifacts{}, errors.New(msg)
	}

	o.transition(id, func(j *Job) { j.Progress = progressMaterializing })
	arts, err := o.materializer.Materialize(ctx, o.synthetic, id, res.ResultRef)
	if err != nil {
		return media.Artifacts{}, fmt.Errorf("synthetic materialization failed: %w", err)
	}
	return arts, nil
}

func (o *Orchestrator) complete(id string, arts media.Artifacts) {
	now := time.Now().UTC()
	snap, ok := o.finalize(id, func(j *Job) {
		j.Status = JobStatusCompleted
		j.Progress = 100
		j.Artifacts = &Artifacts{MediaPath: arts.MediaPath, PreviewPath: arts.PreviewPath}
		j.Error = ""
		j.CompletedAt = &now
	})
	if ok {
		JobsCompletedTotal.Inc()
		slog.Info("job completed", "job_id", id, "provider", snap.Provider, "media", arts.MediaPath)
	}
	o.streamer.Close(id)
}

func (o *Orchestrator) fail(id, reason string) {
	now := time.Now().UTC()
	snap, ok := o.finalize(id, func(j *Job) {
		j.Status = JobStatusFailed
		j.Progress = 0
		j.Artifacts = nil
		j.Error = reason
		j.CompletedAt = &now
	})
	if ok {
		JobsFailedTotal.Inc()
		slog.Error("job failed", "job_id", id, "provider", snap.Provider, "error", reason)
	}
	o.streamer.Close(id)
}

// transition atomically mutates the record and publishes the new snapshot.
func (o *Orchestrator) transition(id string, fn func(*Job)) (Job, bool) {
	snap, ok := o.store.Update(id, fn)
	if !ok {
		return Job{}, false
	}
	o.publish(snap)
	return snap, true
}

// finalize is transition restricted to non-terminal records, so a terminal
// state is written exactly once.
func (o *Orchestrator) finalize(id string, fn func(*Job)) (Job, bool) {
	applied := false
	snap, ok := o.store.Update(id, func(j *Job) {
		if j.Terminal() {
			return
		}
		applied = true
		fn(j)
	})
	if !ok || !applied {
		return Job{}, false
	}
	o.publish(snap)
	return snap, true
}

// publish fans the snapshot out to observers. Every path here is best-effort;
// orchestration never depends on it.
func (o *Orchestrator) publish(snap Job) {
	o.streamer.Broadcast(snap)

	if o.recorder != nil {
		if err := o.recorder.Save(context.Background(), snap.ID, snap); err != nil {
			slog.Warn("record mirror failed", "job_id", snap.ID, "error", err)
		}
	}

	if o.sender != nil && snap.WebhookURL != "" {
		event := webhook.Event{
			JobID:     snap.ID,
			Status:    string(snap.Status),
			Progress:  snap.Progress,
			Provider:  snap.Provider,
			Error:     snap.Error,
			Timestamp: time.Now().UTC(),
			Metadata:  snap.Metadata,
			Job:       snap,
		}
		// Delivered off the owning task: a slow or dead endpoint must never
		// stretch the state machine's wall-clock bounds. Stop still waits for
		// in-flight deliveries.
		url := snap.WebhookURL
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := o.sender.Notify(context.Background(), url, event); err != nil {
				slog.Warn("webhook delivery failed", "job_id", event.JobID, "error", err)
			}
		}()
	}
}

func generationRequest(j Job) provider.GenerationRequest {
	p := j.EnhancedPrompt
	if p == "" {
		p = j.Prompt
	}
	return provider.GenerationRequest{
		Prompt:          p,
		AspectRatio:     j.Params.AspectRatio,
		DurationSeconds: j.Params.DurationSeconds,
		Style:           j.Params.Style,
	}
}
