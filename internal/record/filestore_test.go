package record

import (
	"context"
	"testing"
)

type snapshot struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if err := fs.Save(ctx, "job-1", snapshot{ID: "job-1", Status: "processing", Progress: 40}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Later snapshots overwrite earlier ones.
	if err := fs.Save(ctx, "job-1", snapshot{ID: "job-1", Status: "completed", Progress: 100}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	var got snapshot
	if err := fs.Load("job-1", &got); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Status != "completed" || got.Progress != 100 {
		t.Fatalf("stale record read back: %+v", got)
	}
}

func TestFileStore_RemoveIdempotent(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := fs.Save(context.Background(), "job-1", snapshot{ID: "job-1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := fs.Remove("job-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := fs.Remove("job-1"); err != nil {
		t.Fatalf("second remove should be silent: %v", err)
	}

	var got snapshot
	if err := fs.Load("job-1", &got); err == nil {
		t.Fatal("expected load error after removal")
	}
}
