package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pipeline drives one transcript through fetch → chunk → fan-out → persist →
// aggregate → deliver. It holds the application state and dependencies.
type Pipeline struct {
	rotator       *Rotator
	backends      []Backend
	store         JobStore
	deliverer     Deliverer
	promptManager *PromptManager
	config        *Config
	ui            UIManager
}

// NewPipeline initializes the pipeline from config
func NewPipeline(config *Config, options ...PipelineOption) *Pipeline {
	ui := NewUIManager(config.Verbose, config.Quiet)
	client := NewTranscriptClient(config.TranscriptAPIURL, config.PollInterval, config.PollMaxAttempts, ui)

	p := &Pipeline{
		rotator:       NewRotator(client, ui),
		backends:      EnabledBackends(config.Backends, config.BackendTimeout),
		promptManager: NewPromptManager(config.ConfigDir, config.Prompt),
		config:        config,
		ui:            ui,
	}

	if config.TelegramToken != "" && config.TelegramChatID != "" {
		p.deliverer = NewTelegramDeliverer(config.TelegramToken, config.TelegramChatID)
	}

	// Apply any custom options
	for _, option := range options {
		option(p)
	}

	if p.store == nil {
		p.store = defaultStore(config)
	}

	return p
}

// PipelineOption customizes Pipeline creation
type PipelineOption func(*Pipeline)

// WithStore sets a custom job store
func WithStore(store JobStore) PipelineOption {
	return func(p *Pipeline) {
		p.store = store
	}
}

// WithBackends sets a custom backend set
func WithBackends(backends []Backend) PipelineOption {
	return func(p *Pipeline) {
		p.backends = backends
	}
}

// WithFetcher sets a custom transcript fetcher
func WithFetcher(fetcher TranscriptFetcher) PipelineOption {
	return func(p *Pipeline) {
		p.rotator = NewRotator(fetcher, p.ui)
	}
}

// WithDeliverer sets a custom delivery channel
func WithDeliverer(d Deliverer) PipelineOption {
	return func(p *Pipeline) {
		p.deliverer = d
	}
}

// SetPromptManager sets a new prompt manager
func (p *Pipeline) SetPromptManager(pm *PromptManager) {
	p.promptManager = pm
}

func defaultStore(config *Config) JobStore {
	if config.RedisURL != "" {
		store, err := NewRedisJobStore(config.RedisURL, config.JobTTL)
		if err == nil {
			return store
		}
		fmt.Fprintf(os.Stderr, "Warning: redis unavailable (%v), falling back to file store\n", err)
	}
	store, err := NewFileJobStore(filepath.Join(config.DataDir, "jobs"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating job store: %v\n", err)
		os.Exit(1)
	}
	return store
}

// RoundReport summarizes one orchestrator round over a job.
type RoundReport struct {
	Job       *Job
	Processed int
	Skipped   int
	Rejected  []int
	// Scripts is populated only once the job reaches ready.
	Scripts []ScriptOutput
}

// Complete reports whether the round left the job ready.
func (r *RoundReport) Complete() bool {
	return r.Job != nil && r.Job.Status == JobReady
}

// Start creates a new job for a video URL and runs the first round.
func (p *Pipeline) Start(ctx context.Context, videoURL, title string) (*RoundReport, error) {
	job := NewJob(uuid.NewString(), videoURL)
	job.Title = title
	if err := p.store.Upsert(ctx, job); err != nil {
		return nil, err
	}
	return p.runRound(ctx, job)
}

// Resume loads a persisted job and runs another round over its missing
// chunks. Finished chunks are never re-executed.
func (p *Pipeline) Resume(ctx context.Context, jobID string) (*RoundReport, error) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return p.runRound(ctx, job)
}

// Job loads a persisted job without executing anything.
func (p *Pipeline) Job(ctx context.Context, jobID string) (*Job, error) {
	return p.store.Get(ctx, jobID)
}

// Script returns one backend's aggregated script for a ready job.
func (p *Pipeline) Script(ctx context.Context, jobID, backendName string) (string, error) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return "", err
	}

	scripts, err := job.Aggregate(job.BackendNames())
	if err != nil {
		return "", err
	}
	for _, script := range scripts {
		if script.BackendName == backendName {
			if script.Content == "" {
				return "", fmt.Errorf("backend %s produced no usable output for job %s", backendName, jobID)
			}
			return script.Content, nil
		}
	}
	return "", fmt.Errorf("no output from backend %s for job %s (have: %v)", backendName, jobID, job.BackendNames())
}

// runRound executes one resumable round: load completed indices, re-chunk the
// transcript, fan out only the missing chunks, merge add-only, persist, then
// aggregate if the job became complete.
func (p *Pipeline) runRound(ctx context.Context, job *Job) (*RoundReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch job.Status {
	case JobFailed:
		return nil, fmt.Errorf("job %s is failed (terminal), start a new job", job.JobID)
	case JobReady:
		// Already complete; re-aggregation is idempotent.
		scripts, err := job.Aggregate(job.BackendNames())
		if err != nil {
			return nil, err
		}
		return &RoundReport{Job: job, Skipped: job.TotalChunks, Scripts: scripts}, nil
	}

	transcript, err := p.transcript(ctx, job)
	if err != nil {
		return nil, p.failJob(ctx, job, err)
	}

	chunks, err := SplitTranscript(transcript, p.config.MaxCharsPerChunk)
	if err != nil {
		// Bad input is fatal, no retry budget spent on it.
		var chunkErr *ChunkingError
		if errors.As(err, &chunkErr) {
			job.Status = JobFailed
			_ = p.store.Upsert(ctx, job)
		}
		return nil, err
	}
	job.TotalChunks = len(chunks)
	job.Status = JobProcessing

	completed := job.CompletedIndices()
	var pending []Chunk
	for _, chunk := range chunks {
		if !completed[chunk.Index] {
			pending = append(pending, chunk)
		}
	}

	p.ui.Verbose("Job %s: %d chunks total, %d already done, %d to process\n",
		job.JobID, len(chunks), len(completed), len(pending))

	report := &RoundReport{Job: job, Skipped: len(completed)}

	if len(pending) > 0 {
		prompt, err := p.promptManager.CreatePrompt(job)
		if err != nil {
			return nil, fmt.Errorf("creating prompt: %w", err)
		}

		for _, res := range p.fanOut(ctx, pending, prompt) {
			job.MergeResult(res)
			report.Processed++
			if res.Status == ChunkRejected {
				report.Rejected = append(report.Rejected, res.Index)
			}
		}
	}

	// Persist before aggregation, so a crash past this point never loses
	// finished chunk work. A round cut short by cancellation spends no retry
	// budget: chunks rejected with a canceled context are not backend
	// failures, and the job must stay resumable.
	interrupted := ctx.Err() != nil
	if job.IsComplete() {
		job.Status = JobReady
	} else if !interrupted {
		job.RetryCount++
		if job.RetryCount > p.config.MaxRetries {
			job.Status = JobFailed
		}
	}
	if err := p.store.Upsert(context.WithoutCancel(ctx), job); err != nil {
		return nil, fmt.Errorf("persisting job %s: %w", job.JobID, err)
	}

	if interrupted && job.Status != JobReady {
		return report, ctx.Err()
	}

	if job.Status == JobFailed {
		return report, fmt.Errorf("job %s failed after %d retries: chunks %v never completed",
			job.JobID, job.RetryCount, missingIndices(job))
	}
	if job.Status != JobReady {
		// Partial progress is not an error; the caller reschedules.
		return report, nil
	}

	scripts, err := job.Aggregate(job.BackendNames())
	if err != nil {
		return nil, err
	}
	report.Scripts = scripts

	if err := p.saveScripts(job, scripts); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	return report, nil
}

// fanOut processes chunks concurrently, each chunk fanning out to every
// enabled backend. Chunk execution order is unspecified; results are keyed
// by index so aggregation order never depends on completion order.
func (p *Pipeline) fanOut(ctx context.Context, chunks []Chunk, prompt string) []ChunkResult {
	bar := p.ui.NewProgressBar(len(chunks), "Rewriting chunks")
	defer bar.Finish()

	// Zero means no cap, the base design: hour-long transcripts stay modest
	// chunk counts at 7k chars each.
	limit := p.config.ChunkConcurrency
	var sem chan struct{}
	if limit > 0 {
		sem = make(chan struct{}, limit)
	}

	results := make([]ChunkResult, len(chunks))
	var done int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, chunk := range chunks {
		wg.Add(1)
		go func(slot int, c Chunk) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			results[slot] = newChunkResult(c, ProcessChunk(ctx, c, p.backends, prompt))

			mu.Lock()
			done++
			bar.Set(done)
			mu.Unlock()
		}(i, chunk)
	}
	wg.Wait()

	return results
}

// newChunkResult folds per-backend results into the persisted chunk record.
// A chunk is fulfilled if at least one backend produced content; callers see
// individual backend failures in Errors either way.
func newChunkResult(chunk Chunk, byBackend map[string]BackendResult) ChunkResult {
	res := ChunkResult{
		Index:       chunk.Index,
		Status:      ChunkRejected,
		Outputs:     make(map[string]string),
		Errors:      make(map[string]string),
		ProcessedAt: time.Now().UTC(),
	}
	for name, br := range byBackend {
		if br.Error != "" {
			res.Errors[name] = br.Error
			continue
		}
		res.Outputs[name] = br.Content
		res.Status = ChunkFulfilled
	}
	return res
}

// transcript returns the job's transcript, from the local cache when a prior
// round already fetched it, otherwise via credential rotation.
func (p *Pipeline) transcript(ctx context.Context, job *Job) (string, error) {
	cachePath := filepath.Join(p.config.TranscriptsDir, job.JobID+".txt")
	if FileExists(cachePath) {
		p.ui.Verbose("Using cached transcript for job %s\n", job.JobID)
		data, err := os.ReadFile(cachePath)
		if err != nil {
			return "", fmt.Errorf("reading cached transcript: %w", err)
		}
		return string(data), nil
	}

	if err := EnsureDirs(p.config.TranscriptsDir); err != nil {
		return "", fmt.Errorf("creating transcripts directory: %w", err)
	}

	transcript, err := p.rotator.FetchWithRotation(ctx, job.VideoURL, p.config.TranscriptCredentials)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cachePath, []byte(transcript), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: caching transcript: %v\n", err)
	}
	return transcript, nil
}

// failJob marks a job failed when the whole round was impossible (no
// transcript, exhausted credentials) and its retry budget ran out.
func (p *Pipeline) failJob(ctx context.Context, job *Job, cause error) error {
	if ctx.Err() != nil {
		// Interrupted, not failed; the retry budget stays untouched.
		return cause
	}
	job.RetryCount++
	if job.RetryCount > p.config.MaxRetries {
		job.Status = JobFailed
	}
	if err := p.store.Upsert(ctx, job); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: persisting job %s: %v\n", job.JobID, err)
	}
	return cause
}

// saveScripts archives the final per-backend scripts under the data dir.
func (p *Pipeline) saveScripts(job *Job, scripts []ScriptOutput) error {
	dir := filepath.Join(p.config.DataDir, "scripts")
	if err := EnsureDirs(dir); err != nil {
		return fmt.Errorf("creating scripts directory: %w", err)
	}
	for _, script := range scripts {
		if script.Content == "" {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s.%s.md", job.JobID, script.BackendName))
		if err := os.WriteFile(path, []byte(script.Content), 0644); err != nil {
			return fmt.Errorf("saving script %s: %w", path, err)
		}
	}
	return nil
}

// Deliver hands every non-empty script to the delivery channel, with a fixed
// delay between sends to respect the channel's rate limits. Failed backends
// are skipped with a notice; a delivery failure for one script does not stop
// the rest.
func (p *Pipeline) Deliver(ctx context.Context, job *Job, scripts []ScriptOutput) error {
	if p.deliverer == nil {
		return fmt.Errorf("no delivery channel configured")
	}

	var firstErr error
	for i, script := range scripts {
		if script.Content == "" {
			p.ui.Printf("Skipping %s: no usable output\n", script.BackendName)
			continue
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.DeliveryDelay):
			}
		}

		filename := fmt.Sprintf("%s.%s.md", job.JobID, script.BackendName)
		caption := deliveryCaption(job, script)
		msgID, err := p.deliverer.Deliver(ctx, script.Content, filename, caption)
		if err != nil {
			p.ui.Printf("Delivery failed for %s: %v\n", script.BackendName, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		p.ui.Printf("Delivered %s script (message %s)\n", script.BackendName, msgID)
	}
	return firstErr
}

func deliveryCaption(job *Job, script ScriptOutput) string {
	title := job.Title
	if title == "" {
		title = job.VideoURL
	}
	caption := fmt.Sprintf("%s - %s rewrite", title, script.BackendName)
	if len(script.MissingChunks) > 0 {
		caption += fmt.Sprintf(" (chunks %v unavailable)", script.MissingChunks)
	}
	return caption
}

func missingIndices(job *Job) []int {
	done := job.CompletedIndices()
	var missing []int
	for i := 0; i < job.TotalChunks; i++ {
		if !done[i] {
			missing = append(missing, i)
		}
	}
	return missing
}
