package internal

import (
	"context"
	"errors"
	"fmt"
)

// Credential is one API key for the transcript provider. The list is
// process-wide and ordered; rotation always walks it from the top.
type Credential struct {
	Key    string `mapstructure:"key" json:"key"`
	Label  string `mapstructure:"label" json:"label"`
	Active bool   `mapstructure:"active" json:"active"`
}

// ErrNoActiveCredentials is returned when every configured credential is
// disabled (or none are configured at all).
var ErrNoActiveCredentials = errors.New("no active transcript API credentials configured")

// ExhaustedError is returned when every active credential was tried and
// rejected. It carries the last underlying failure for diagnostics.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d transcript API credentials exhausted: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Rotator tries transcript fetches across an ordered credential list.
type Rotator struct {
	fetcher TranscriptFetcher
	ui      UIManager
}

// NewRotator creates a credential rotator on top of a fetcher
func NewRotator(fetcher TranscriptFetcher, ui UIManager) *Rotator {
	return &Rotator{fetcher: fetcher, ui: ui}
}

// FetchWithRotation fetches the transcript for videoURL, trying each active
// credential in order. A success short-circuits. Rate-limited and invalid
// keys fall through to the next credential; every other failure kind aborts
// immediately with the underlying error.
//
// Rotation is stateless: each call starts from the first active credential.
func (r *Rotator) FetchWithRotation(ctx context.Context, videoURL string, credentials []Credential) (string, error) {
	var active []Credential
	for _, cred := range credentials {
		if cred.Active {
			active = append(active, cred)
		}
	}
	if len(active) == 0 {
		return "", ErrNoActiveCredentials
	}

	var lastErr error
	for i, cred := range active {
		r.ui.Verbose("Fetching transcript with credential %q (%d/%d)\n", cred.Label, i+1, len(active))

		content, err := r.fetcher.Fetch(ctx, videoURL, cred.Key)
		if err == nil {
			return content, nil
		}

		fe, ok := AsFetchError(err)
		if !ok || !fe.Retryable() {
			return "", err
		}

		r.ui.Verbose("Credential %q rejected (%s), trying next\n", cred.Label, fe.Kind)
		lastErr = err
	}

	return "", &ExhaustedError{Attempts: len(active), Last: lastErr}
}
