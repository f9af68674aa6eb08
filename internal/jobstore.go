package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrJobNotFound is returned by stores when no job exists for an id.
var ErrJobNotFound = errors.New("job not found")

// JobStore persists job state between invocations. The orchestrator does one
// read and one write per round; concurrent rounds against the same job are
// not supported, callers must serialize per job.
type JobStore interface {
	Get(ctx context.Context, jobID string) (*Job, error)
	Upsert(ctx context.Context, job *Job) error
}

const jobKeyPrefix = "rescribe:job:"

// RedisJobStore keeps job records as JSON values in Redis with a TTL.
type RedisJobStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisJobStore creates a Redis-backed job store
func NewRedisJobStore(redisURL string, ttl time.Duration) (*RedisJobStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &RedisJobStore{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

// Get implements JobStore
func (s *RedisJobStore) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := s.rdb.Get(ctx, jobKeyPrefix+jobID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("reading job %s: %w", jobID, err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parsing job %s: %w", jobID, err)
	}
	if job.Chunks == nil {
		job.Chunks = make(map[int]ChunkResult)
	}
	return &job, nil
}

// Upsert implements JobStore
func (s *RedisJobStore) Upsert(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job %s: %w", job.JobID, err)
	}
	if err := s.rdb.Set(ctx, jobKeyPrefix+job.JobID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving job %s: %w", job.JobID, err)
	}
	return nil
}

// Close releases the Redis connection
func (s *RedisJobStore) Close() error { return s.rdb.Close() }

// FileJobStore keeps one JSON file per job under the data directory. It is
// the default store when no Redis URL is configured.
type FileJobStore struct {
	dir string
}

// NewFileJobStore creates a file-backed job store rooted at dir
func NewFileJobStore(dir string) (*FileJobStore, error) {
	if err := EnsureDirs(dir); err != nil {
		return nil, fmt.Errorf("creating jobs directory: %w", err)
	}
	return &FileJobStore{dir: dir}, nil
}

// Get implements JobStore
func (s *FileJobStore) Get(ctx context.Context, jobID string) (*Job, error) {
	data, err := os.ReadFile(s.path(jobID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("reading job %s: %w", jobID, err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("parsing job %s: %w", jobID, err)
	}
	if job.Chunks == nil {
		job.Chunks = make(map[int]ChunkResult)
	}
	return &job, nil
}

// Upsert implements JobStore. The record is written to a temp file and
// renamed, so a crash mid-write never leaves a truncated job behind.
func (s *FileJobStore) Upsert(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	payload, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling job %s: %w", job.JobID, err)
	}

	tmp := s.path(job.JobID) + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return fmt.Errorf("writing job %s: %w", job.JobID, err)
	}
	if err := os.Rename(tmp, s.path(job.JobID)); err != nil {
		return fmt.Errorf("saving job %s: %w", job.JobID, err)
	}
	return nil
}

// List returns the ids of all persisted jobs, newest first.
func (s *FileJobStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading jobs directory: %w", err)
	}

	type stamped struct {
		id  string
		mod time.Time
	}
	var jobs []stamped
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		jobs = append(jobs, stamped{id: name[:len(name)-len(".json")], mod: info.ModTime()})
	}

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].mod.After(jobs[b].mod) })

	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.id)
	}
	return ids, nil
}

func (s *FileJobStore) path(jobID string) string {
	return filepath.Join(s.dir, jobID+".json")
}
