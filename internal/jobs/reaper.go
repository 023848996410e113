package jobs

import (
	"log/slog"
	"sync"
	"time"
)

// ArtifactRemover deletes everything a job left on disk.
type ArtifactRemover interface {
	Remove(jobID string) error
}

// RecordRemover deletes a job's external mirror record.
type RecordRemover interface {
	Remove(jobID string) error
}

// Reaper periodically deletes terminal jobs older than the retention horizon,
// together with their artifacts and mirror records. Non-terminal jobs are only
// touched past a much larger stuck ceiling, so an in-flight task is never
// raced out from under its own transitions.
type Reaper struct {
	store     *Store
	artifacts ArtifactRemover
	records   RecordRemover

	retention    time.Duration
	stuckCeiling time.Duration
	interval     time.Duration

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewReaper(store *Store, artifacts ArtifactRemover, records RecordRemover, retention, stuckCeiling, interval time.Duration) *Reaper {
	if retention <= 0 {
		retention = time.Hour
	}
	if stuckCeiling <= retention {
		stuckCeiling = 24 * time.Hour
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Reaper{
		store:        store,
		artifacts:    artifacts,
		records:      records,
		retention:    retention,
		stuckCeiling: stuckCeiling,
		interval:     interval,
		quit:         make(chan struct{}),
	}
}

// Start launches the sweep loop on its own timer, independent of request
// traffic.
func (r *Reaper) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				r.Sweep(now)
			case <-r.quit:
				return
			}
		}
	}()
}

func (r *Reaper) Stop() {
	r.once.Do(func() { close(r.quit) })
	r.wg.Wait()
}

// Sweep removes every expired job visible in one store snapshot and returns
// how many were deleted. A job vanishing or changing state between snapshot
// and delete is tolerated: the delete re-checks expiry under the store lock.
func (r *Reaper) Sweep(now time.Time) int {
	removed := 0
	for _, job := range r.store.List() {
		if !r.expired(&job, now) {
			continue
		}

		id := job.ID
		if !r.store.DeleteIf(id, func(cur *Job) bool { return r.expired(cur, now) }) {
			continue
		}

		if r.artifacts != nil {
			if err := r.artifacts.Remove(id); err != nil {
				slog.Warn("artifact removal failed", "job_id", id, "error", err)
			}
		}
		if r.records != nil {
			if err := r.records.Remove(id); err != nil {
				slog.Warn("record removal failed", "job_id", id, "error", err)
			}
		}

		JobsReapedTotal.Inc()
		JobsActive.Dec()
		removed++
		slog.Info("job reaped", "job_id", id, "status", job.Status)
	}
	return removed
}

func (r *Reaper) expired(j *Job, now time.Time) bool {
	if j.Terminal() {
		return j.CompletedAt != nil && now.Sub(*j.CompletedAt) > r.retention
	}
	return now.Sub(j.CreatedAt) > r.stuckCeiling
}
