package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileJobStore_RoundTrip(t *testing.T) {
	store, err := NewFileJobStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	job := NewJob("job-1", "https://youtu.be/abc")
	job.TotalChunks = 2
	job.Status = JobProcessing
	job.MergeResult(ChunkResult{
		Index:   0,
		Status:  ChunkFulfilled,
		Outputs: map[string]string{"openai": "rewritten"},
		Errors:  map[string]string{"deepseek": "timeout"},
	})

	ctx := context.Background()
	if err := store.Upsert(ctx, job); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if job.UpdatedAt.IsZero() {
		t.Fatal("upsert must stamp UpdatedAt")
	}

	loaded, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.JobID != "job-1" || loaded.Status != JobProcessing || loaded.TotalChunks != 2 {
		t.Fatalf("loaded job mismatch: %+v", loaded)
	}
	res, ok := loaded.Chunks[0]
	if !ok {
		t.Fatal("chunk result lost in round trip")
	}
	if res.Outputs["openai"] != "rewritten" || res.Errors["deepseek"] != "timeout" {
		t.Fatalf("chunk payload mismatch: %+v", res)
	}
}

func TestFileJobStore_NotFound(t *testing.T) {
	store, err := NewFileJobStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, err = store.Get(context.Background(), "nope")
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestFileJobStore_UpsertOverwrites(t *testing.T) {
	store, err := NewFileJobStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	job := NewJob("job-1", "https://youtu.be/abc")
	job.TotalChunks = 1
	if err := store.Upsert(ctx, job); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	job.Status = JobReady
	job.MergeResult(ChunkResult{Index: 0, Status: ChunkFulfilled, Outputs: map[string]string{"openai": "done"}})
	if err := store.Upsert(ctx, job); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	loaded, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != JobReady || len(loaded.Chunks) != 1 {
		t.Fatalf("second upsert not visible: %+v", loaded)
	}
}

func TestFileJobStore_List(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileJobStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	for i, id := range []string{"old", "mid", "new"} {
		job := NewJob(id, "https://youtu.be/abc")
		if err := store.Upsert(ctx, job); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
		// Backdate the files so List has distinct mtimes to sort on.
		when := time.Now().Add(time.Duration(i-3) * time.Hour)
		if err := os.Chtimes(filepath.Join(dir, id+".json"), when, when); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	// Non-job files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"new", "mid", "old"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v", ids, want)
		}
	}
}
