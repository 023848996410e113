package jobs

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingRemover struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (r *recordingRemover) Remove(jobID string) error {
	r.mu.Lock()
	r.removed = append(r.removed, jobID)
	r.mu.Unlock()
	return r.err
}

func terminalJob(id string, completedAgo time.Duration, now time.Time) Job {
	done := now.Add(-completedAgo)
	return Job{
		ID:          id,
		Status:      JobStatusCompleted,
		Progress:    100,
		CreatedAt:   done.Add(-time.Minute),
		CompletedAt: &done,
	}
}

func TestReaper_SweepRemovesOnlyExpired(t *testing.T) {
	now := time.Now().UTC()
	store := NewStore()
	artifacts := &recordingRemover{}
	records := &recordingRemover{}

	store.Put(terminalJob("old-done", 2*time.Hour, now))
	store.Put(terminalJob("fresh-done", 5*time.Minute, now))
	store.Put(Job{ID: "in-flight", Status: JobStatusProcessing, CreatedAt: now.Add(-2 * time.Hour)})
	store.Put(Job{ID: "stuck", Status: JobStatusProcessing, CreatedAt: now.Add(-30 * time.Hour)})

	r := NewReaper(store, artifacts, records, time.Hour, 24*time.Hour, time.Minute)
	removed := r.Sweep(now)

	if removed != 2 {
		t.Fatalf("removed %d jobs, want 2", removed)
	}
	if _, ok := store.Get("old-done"); ok {
		t.Fatal("expired terminal job survived")
	}
	if _, ok := store.Get("stuck"); ok {
		t.Fatal("stuck job past the ceiling survived")
	}
	if _, ok := store.Get("fresh-done"); !ok {
		t.Fatal("fresh terminal job was reaped")
	}
	if _, ok := store.Get("in-flight"); !ok {
		t.Fatal("in-flight job below the ceiling was reaped")
	}

	want := map[string]bool{"old-done": true, "stuck": true}
	for _, id := range artifacts.removed {
		if !want[id] {
			t.Fatalf("artifacts removed for unexpected job %s", id)
		}
	}
	if len(artifacts.removed) != 2 || len(records.removed) != 2 {
		t.Fatalf("removers called %d/%d times, want 2/2", len(artifacts.removed), len(records.removed))
	}
}

func TestReaper_ToleratesRemoverErrors(t *testing.T) {
	now := time.Now().UTC()
	store := NewStore()
	store.Put(terminalJob("a", 2*time.Hour, now))

	r := NewReaper(store, &recordingRemover{err: errors.New("already gone")}, nil, time.Hour, 24*time.Hour, time.Minute)
	if removed := r.Sweep(now); removed != 1 {
		t.Fatalf("removed %d, want 1 despite remover error", removed)
	}
	if _, ok := store.Get("a"); ok {
		t.Fatal("job should be gone even when artifact removal errors")
	}
}

func TestReaper_RechecksUnderLock(t *testing.T) {
	now := time.Now().UTC()
	store := NewStore()
	// The delete guard re-evaluates expiry under the store lock, so a record
	// that completed only moments ago is kept even if a snapshot went stale.
	store.Put(terminalJob("recent", time.Minute, now))

	r := NewReaper(store, nil, nil, time.Hour, 24*time.Hour, time.Minute)
	if removed := r.Sweep(now); removed != 0 {
		t.Fatalf("removed %d, want 0", removed)
	}
}

func TestReaper_SweepEmptyStore(t *testing.T) {
	r := NewReaper(NewStore(), nil, nil, time.Hour, 24*time.Hour, time.Minute)
	if removed := r.Sweep(time.Now()); removed != 0 {
		t.Fatalf("removed %d from empty store", removed)
	}
}

func TestReaper_StartStop(t *testing.T) {
	r := NewReaper(NewStore(), nil, nil, time.Hour, 24*time.Hour, 10*time.Millisecond)
	r.Start()
	time.Sleep(30 * time.Millisecond)
	r.Stop()
	// Stop is idempotent.
	r.Stop()
}
