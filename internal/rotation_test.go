package internal

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func quietUI() UIManager {
	return NewUIManager(false, true)
}

// recordingUI captures verbose lines instead of printing them.
type recordingUI struct {
	UIManager
	lines []string
}

func (u *recordingUI) Verbose(format string, args ...interface{}) {
	u.lines = append(u.lines, fmt.Sprintf(format, args...))
}

// scriptedFetcher returns canned outcomes per API key and records the order
// keys were tried in.
type scriptedFetcher struct {
	outcomes map[string]error
	content  string
	tried    []string
}

func (f *scriptedFetcher) Fetch(ctx context.Context, videoURL, apiKey string) (string, error) {
	f.tried = append(f.tried, apiKey)
	if err := f.outcomes[apiKey]; err != nil {
		return "", err
	}
	return f.content, nil
}

func TestFetchWithRotation_ShortCircuit(t *testing.T) {
	fetcher := &scriptedFetcher{
		content: "the transcript",
		outcomes: map[string]error{
			"k1": &FetchError{Kind: KindInvalidCredential},
		},
	}
	rotator := NewRotator(fetcher, quietUI())

	creds := []Credential{
		{Key: "k1", Label: "burned", Active: true},
		{Key: "k2", Label: "good", Active: true},
		{Key: "k3", Label: "spare", Active: true},
	}

	content, err := rotator.FetchWithRotation(context.Background(), "https://example.com/v", creds)
	if err != nil {
		t.Fatalf("rotation: %v", err)
	}
	if content != "the transcript" {
		t.Fatalf("unexpected content %q", content)
	}
	if len(fetcher.tried) != 2 || fetcher.tried[0] != "k1" || fetcher.tried[1] != "k2" {
		t.Fatalf("expected k1 then k2, got %v", fetcher.tried)
	}
}

func TestFetchWithRotation_AbortsOnNonRotatableError(t *testing.T) {
	notFound := &FetchError{Kind: KindNotFound, Message: "video has no captions"}
	fetcher := &scriptedFetcher{
		outcomes: map[string]error{"k1": notFound},
	}
	rotator := NewRotator(fetcher, quietUI())

	creds := []Credential{
		{Key: "k1", Label: "valid", Active: true},
		{Key: "k2", Label: "never-tried", Active: true},
	}

	_, err := rotator.FetchWithRotation(context.Background(), "https://example.com/v", creds)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindNotFound {
		t.Fatalf("expected the NotFound error back, got %v", err)
	}
	if len(fetcher.tried) != 1 {
		t.Fatalf("rotation should abort after the first credential, tried %v", fetcher.tried)
	}
}

func TestFetchWithRotation_Exhausted(t *testing.T) {
	rateLimited := &FetchError{Kind: KindRateLimited}
	fetcher := &scriptedFetcher{
		outcomes: map[string]error{"k1": rateLimited, "k2": rateLimited},
	}
	rotator := NewRotator(fetcher, quietUI())

	creds := []Credential{
		{Key: "k1", Label: "a", Active: true},
		{Key: "k2", Label: "b", Active: true},
	}

	_, err := rotator.FetchWithRotation(context.Background(), "https://example.com/v", creds)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", exhausted.Attempts)
	}
	// The last underlying error must survive for diagnostics.
	var fe *FetchError
	if !errors.As(exhausted, &fe) || fe.Kind != KindRateLimited {
		t.Fatalf("expected wrapped FetchError, got %v", exhausted.Last)
	}
}

func TestFetchWithRotation_SkipsInactive(t *testing.T) {
	fetcher := &scriptedFetcher{content: "ok"}
	rotator := NewRotator(fetcher, quietUI())

	creds := []Credential{
		{Key: "k1", Label: "disabled", Active: false},
		{Key: "k2", Label: "enabled", Active: true},
	}

	if _, err := rotator.FetchWithRotation(context.Background(), "https://example.com/v", creds); err != nil {
		t.Fatalf("rotation: %v", err)
	}
	if len(fetcher.tried) != 1 || fetcher.tried[0] != "k2" {
		t.Fatalf("inactive credential must be skipped, tried %v", fetcher.tried)
	}
}

func TestFetchWithRotation_ProgressGoesThroughUI(t *testing.T) {
	ui := &recordingUI{UIManager: quietUI()}
	fetcher := &scriptedFetcher{
		content:  "ok",
		outcomes: map[string]error{"k1": &FetchError{Kind: KindRateLimited}},
	}
	rotator := NewRotator(fetcher, ui)

	creds := []Credential{
		{Key: "k1", Label: "limited", Active: true},
		{Key: "k2", Label: "good", Active: true},
	}
	if _, err := rotator.FetchWithRotation(context.Background(), "https://example.com/v", creds); err != nil {
		t.Fatalf("rotation: %v", err)
	}

	// Attempt and fall-through lines must go through the UI seam, not stdout.
	if len(ui.lines) != 3 {
		t.Fatalf("expected 3 progress lines via the UI, got %v", ui.lines)
	}
}

func TestFetchWithRotation_NoActiveCredentials(t *testing.T) {
	rotator := NewRotator(&scriptedFetcher{}, quietUI())

	for _, creds := range [][]Credential{
		nil,
		{{Key: "k1", Active: false}},
	} {
		_, err := rotator.FetchWithRotation(context.Background(), "https://example.com/v", creds)
		if !errors.Is(err, ErrNoActiveCredentials) {
			t.Fatalf("expected ErrNoActiveCredentials, got %v", err)
		}
	}
}
