package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FetchKind classifies transcript fetch failures. Rotation decisions are made
// on this closed enum, never by matching error message text.
type FetchKind int

const (
	// KindRateLimited means the credential hit its quota; the next credential
	// may still succeed.
	KindRateLimited FetchKind = iota
	// KindInvalidCredential means the key was rejected outright.
	KindInvalidCredential
	// KindNotFound means the video has no transcript; no credential will fix it.
	KindNotFound
	// KindJobFailed means the provider accepted the request but its async job
	// ended in a failed state.
	KindJobFailed
	// KindTimeout means the async job did not finish within the poll budget.
	KindTimeout
	// KindServer covers transport failures and 5xx responses.
	KindServer
)

// String returns a human-readable representation of the fetch kind
func (k FetchKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindInvalidCredential:
		return "invalid credential"
	case KindNotFound:
		return "transcript not found"
	case KindJobFailed:
		return "transcript job failed"
	case KindTimeout:
		return "transcript job timed out"
	default:
		return "server error"
	}
}

// FetchError is a classified failure from the transcript provider.
type FetchError struct {
	Kind    FetchKind
	Status  int
	Message string
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("fetching transcript: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("fetching transcript: %s", e.Kind)
}

// Retryable reports whether trying the next credential can help.
func (e *FetchError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindInvalidCredential
}

// TranscriptFetcher fetches a transcript for a video URL using one credential.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoURL, apiKey string) (string, error)
}

// TranscriptClient talks to the transcript provider's HTTP API. The provider
// either returns the transcript inline (200) or hands back an async job id
// (202) that must be polled until it settles.
type TranscriptClient struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
	ui           UIManager
}

// NewTranscriptClient creates a transcript API client
func NewTranscriptClient(baseURL string, pollInterval time.Duration, maxPolls int, ui UIManager) *TranscriptClient {
	return &TranscriptClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
		ui:           ui,
	}
}

// transcriptResponse is the provider's wire shape for both the initial
// request and job polling.
type transcriptResponse struct {
	Content string `json:"content"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// Fetch requests the transcript for videoURL with a single API key.
// All failures are reported as *FetchError so rotation can classify them.
func (c *TranscriptClient) Fetch(ctx context.Context, videoURL, apiKey string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/transcript?url=%s&mode=auto&text=true", c.baseURL, url.QueryEscape(videoURL))

	body, status, err := c.get(ctx, endpoint, apiKey)
	if err != nil {
		return "", err
	}

	var resp transcriptResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &FetchError{Kind: KindServer, Status: status, Message: "malformed provider response"}
	}

	switch status {
	case http.StatusOK:
		return resp.Content, nil
	case http.StatusAccepted:
		if resp.JobID == "" {
			return "", &FetchError{Kind: KindServer, Status: status, Message: "202 without job id"}
		}
		c.ui.Verbose("Transcript queued as job %s, polling...\n", resp.JobID)
		return c.poll(ctx, resp.JobID, apiKey)
	default:
		return "", classifyStatus(status, &resp)
	}
}

// poll waits for an async transcript job, checking every pollInterval up to
// maxPolls attempts. "queued" and "active" are wait states; anything else
// settles the job.
func (c *TranscriptClient) poll(ctx context.Context, jobID, apiKey string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/transcript/%s", c.baseURL, url.PathEscape(jobID))

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", &FetchError{Kind: KindServer, Message: ctx.Err().Error()}
		case <-ticker.C:
		}

		body, status, err := c.get(ctx, endpoint, apiKey)
		if err != nil {
			return "", err
		}

		var resp transcriptResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", &FetchError{Kind: KindServer, Status: status, Message: "malformed poll response"}
		}
		if status != http.StatusOK {
			return "", classifyStatus(status, &resp)
		}

		switch resp.Status {
		case "completed":
			return resp.Content, nil
		case "failed":
			return "", &FetchError{Kind: KindJobFailed, Message: resp.Error}
		case "queued", "active":
			c.ui.Verbose("Transcript job %s still %s (attempt %d/%d)\n", jobID, resp.Status, attempt, c.maxPolls)
		default:
			return "", &FetchError{Kind: KindServer, Message: fmt.Sprintf("unknown job status %q", resp.Status)}
		}
	}

	return "", &FetchError{Kind: KindTimeout, Message: fmt.Sprintf("job %s not done after %d polls", jobID, c.maxPolls)}
}

func (c *TranscriptClient) get(ctx context.Context, endpoint, apiKey string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, &FetchError{Kind: KindServer, Message: err.Error()}
	}
	req.Header.Set("x-api-key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &FetchError{Kind: KindServer, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &FetchError{Kind: KindServer, Status: resp.StatusCode, Message: err.Error()}
	}
	return body, resp.StatusCode, nil
}

// classifyStatus maps an HTTP error response to a FetchKind. The body's
// structured code wins over the bare status when present.
func classifyStatus(status int, resp *transcriptResponse) *FetchError {
	kind := KindServer
	switch {
	case resp.Code == "transcript-unavailable" || status == http.StatusNotFound:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindInvalidCredential
	}
	return &FetchError{Kind: kind, Status: status, Message: resp.Error}
}

// AsFetchError unwraps err to a *FetchError, if it is one.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
