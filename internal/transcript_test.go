package internal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(baseURL string) *TranscriptClient {
	return NewTranscriptClient(baseURL, 5*time.Millisecond, 10, quietUI())
}

func TestTranscriptClient_InlineResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "secret" {
			t.Errorf("missing api key header, got %q", got)
		}
		if got := r.URL.Query().Get("url"); got != "https://youtu.be/abc" {
			t.Errorf("unexpected url param %q", got)
		}
		fmt.Fprint(w, `{"content": "hello transcript"}`)
	}))
	defer server.Close()

	content, err := newTestClient(server.URL).Fetch(context.Background(), "https://youtu.be/abc", "secret")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if content != "hello transcript" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestTranscriptClient_AsyncJobCompletes(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/transcript" {
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"jobId": "job-42"}`)
			return
		}
		if r.URL.Path != "/v1/transcript/job-42" {
			t.Errorf("unexpected poll path %q", r.URL.Path)
		}
		switch polls.Add(1) {
		case 1:
			fmt.Fprint(w, `{"status": "queued"}`)
		case 2:
			fmt.Fprint(w, `{"status": "active"}`)
		default:
			fmt.Fprint(w, `{"status": "completed", "content": "polled transcript"}`)
		}
	}))
	defer server.Close()

	content, err := newTestClient(server.URL).Fetch(context.Background(), "https://youtu.be/abc", "k")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if content != "polled transcript" {
		t.Fatalf("unexpected content %q", content)
	}
	if polls.Load() != 3 {
		t.Fatalf("expected 3 polls, got %d", polls.Load())
	}
}

func TestTranscriptClient_AsyncJobFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/transcript" {
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"jobId": "job-9"}`)
			return
		}
		fmt.Fprint(w, `{"status": "failed", "error": "provider gave up"}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Fetch(context.Background(), "https://youtu.be/abc", "k")
	fe, ok := AsFetchError(err)
	if !ok || fe.Kind != KindJobFailed {
		t.Fatalf("expected job-failed error, got %v", err)
	}
}

func TestTranscriptClient_PollBudgetExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/transcript" {
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"jobId": "job-slow"}`)
			return
		}
		fmt.Fprint(w, `{"status": "active"}`)
	}))
	defer server.Close()

	client := NewTranscriptClient(server.URL, time.Millisecond, 3, quietUI())
	_, err := client.Fetch(context.Background(), "https://youtu.be/abc", "k")
	fe, ok := AsFetchError(err)
	if !ok || fe.Kind != KindTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestTranscriptClient_StatusClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   FetchKind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error": "quota"}`, KindRateLimited},
		{"unauthorized", http.StatusUnauthorized, `{}`, KindInvalidCredential},
		{"forbidden", http.StatusForbidden, `{}`, KindInvalidCredential},
		{"not found", http.StatusNotFound, `{}`, KindNotFound},
		{"unavailable code wins", http.StatusBadRequest, `{"code": "transcript-unavailable"}`, KindNotFound},
		{"server error", http.StatusInternalServerError, `{}`, KindServer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Fetch(context.Background(), "https://youtu.be/abc", "k")
			fe, ok := AsFetchError(err)
			if !ok {
				t.Fatalf("expected FetchError, got %v", err)
			}
			if fe.Kind != tc.want {
				t.Fatalf("classified as %s, want %s", fe.Kind, tc.want)
			}
		})
	}
}

func TestTranscriptClient_ContextCancelDuringPoll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/transcript" {
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"jobId": "job-x"}`)
			return
		}
		fmt.Fprint(w, `{"status": "queued"}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewTranscriptClient(server.URL, time.Hour, 10, quietUI())
	_, err := client.Fetch(ctx, "https://youtu.be/abc", "k")
	if _, ok := AsFetchError(err); !ok {
		t.Fatalf("expected FetchError after cancellation, got %v", err)
	}
}
