package internal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ChunkStatus describes how a chunk's result came to be.
type ChunkStatus string

const (
	// ChunkFulfilled means the chunk ran in this or an earlier round and at
	// least one backend produced content.
	ChunkFulfilled ChunkStatus = "fulfilled"
	// ChunkRejected means the chunk ran and every backend failed.
	ChunkRejected ChunkStatus = "rejected"
	// ChunkSkipped means the result was loaded from persisted prior-run
	// state and not re-executed.
	ChunkSkipped ChunkStatus = "skipped"
)

// JobStatus is the job state machine: pending → processing → ready|failed,
// with processing → processing self-loops across invocations until the job
// is complete.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobReady      JobStatus = "ready"
	JobFailed     JobStatus = "failed"
)

// ChunkResult is the persisted, per-index outcome of one fan-out round.
type ChunkResult struct {
	Index       int               `json:"index"`
	Status      ChunkStatus       `json:"status"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
	ProcessedAt time.Time         `json:"processedAt"`
}

// Job is the unit of persisted, resumable work for one transcript.
type Job struct {
	JobID       string              `json:"jobId"`
	VideoURL    string              `json:"videoUrl"`
	Title       string              `json:"title,omitempty"`
	TotalChunks int                 `json:"totalChunks"`
	Chunks      map[int]ChunkResult `json:"chunkResults"`
	Status      JobStatus           `json:"status"`
	RetryCount  int                 `json:"retryCount"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// NewJob creates a pending job for a video URL
func NewJob(jobID, videoURL string) *Job {
	return &Job{
		JobID:     jobID,
		VideoURL:  videoURL,
		Chunks:    make(map[int]ChunkResult),
		Status:    JobPending,
		CreatedAt: time.Now().UTC(),
	}
}

// CompletedIndices returns the set of chunk indices that never need to run
// again (fulfilled or skipped).
func (j *Job) CompletedIndices() map[int]bool {
	done := make(map[int]bool, len(j.Chunks))
	for idx, res := range j.Chunks {
		if res.Status == ChunkFulfilled || res.Status == ChunkSkipped {
			done[idx] = true
		}
	}
	return done
}

// IsComplete reports whether every index in [0, TotalChunks) has a
// fulfilled or skipped result. Aggregation is only valid once this holds.
func (j *Job) IsComplete() bool {
	if j.TotalChunks <= 0 {
		return false
	}
	done := j.CompletedIndices()
	for i := 0; i < j.TotalChunks; i++ {
		if !done[i] {
			return false
		}
	}
	return true
}

// MergeResult records a chunk result, add-only: an index that already holds
// a fulfilled or skipped result is never overwritten, so a resumed round can
// never clobber finished work. Rejected results may be replaced by a retry.
func (j *Job) MergeResult(res ChunkResult) {
	if existing, ok := j.Chunks[res.Index]; ok {
		if existing.Status == ChunkFulfilled || existing.Status == ChunkSkipped {
			return
		}
	}
	j.Chunks[res.Index] = res
}

// BackendNames returns every backend name that appears in the job's chunk
// results, sorted. Resumed jobs aggregate over what actually ran, so a
// config change between rounds cannot drop stored output.
func (j *Job) BackendNames() []string {
	seen := make(map[string]bool)
	for _, res := range j.Chunks {
		for name := range res.Outputs {
			seen[name] = true
		}
		for name := range res.Errors {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScriptOutput is the aggregated rewrite from one backend across all chunks.
type ScriptOutput struct {
	BackendName string
	Content     string
	// MissingChunks lists indices this backend failed on; its successful
	// chunks are still joined into Content.
	MissingChunks []int
	// FirstError is the first error this backend hit across chunks, kept as
	// a diagnostic. It does not invalidate the partial content.
	FirstError string
}

// Aggregate assembles the final per-backend scripts by joining chunk outputs
// in ascending index order with a blank line between chunks. A backend that
// failed on some chunk still contributes every chunk it did finish; a human
// picks which backend's script to keep.
func (j *Job) Aggregate(backendNames []string) ([]ScriptOutput, error) {
	if !j.IsComplete() {
		return nil, fmt.Errorf("job %s is not complete (%d/%d chunks)", j.JobID, len(j.CompletedIndices()), j.TotalChunks)
	}

	indices := make([]int, 0, len(j.Chunks))
	for idx := range j.Chunks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	outputs := make([]ScriptOutput, 0, len(backendNames))
	for _, name := range backendNames {
		out := ScriptOutput{BackendName: name}
		var parts []string
		for _, idx := range indices {
			res := j.Chunks[idx]
			if content, ok := res.Outputs[name]; ok && content != "" {
				parts = append(parts, content)
				continue
			}
			out.MissingChunks = append(out.MissingChunks, idx)
			if msg, ok := res.Errors[name]; ok && out.FirstError == "" {
				out.FirstError = msg
			}
		}
		out.Content = strings.Join(parts, "\n\n")
		outputs = append(outputs, out)
	}
	return outputs, nil
}
