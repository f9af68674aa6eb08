package internal

import (
	"context"
	"sync"
)

// ProcessChunk sends one chunk to every enabled backend concurrently and
// waits for all of them to settle. The result map always holds one entry per
// backend, success or failure: a slow or broken backend never cancels its
// siblings, and no error escapes as anything but a recorded BackendResult.
func ProcessChunk(ctx context.Context, chunk Chunk, backends []Backend, prompt string) map[string]BackendResult {
	results := make([]BackendResult, len(backends))

	var wg sync.WaitGroup
	for i, backend := range backends {
		wg.Add(1)
		go func(slot int, b Backend) {
			defer wg.Done()

			content, err := b.Rewrite(ctx, prompt, chunk.Text)
			if err != nil {
				results[slot] = BackendResult{BackendName: b.Name(), Error: err.Error()}
				return
			}
			results[slot] = BackendResult{BackendName: b.Name(), Content: content}
		}(i, backend)
	}
	wg.Wait()

	byName := make(map[string]BackendResult, len(results))
	for _, res := range results {
		byName[res.BackendName] = res
	}
	return byName
}
