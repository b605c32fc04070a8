package model

import (
	"context"
	"sync"
)

// BatchPrompt is one element of an InvokeBatch call.
type BatchPrompt struct {
	System string
	User   string
}

// BatchResult pairs the generated text for one prompt with its error.
// Failures are isolated per element; one bad prompt does not poison the
// batch.
type BatchResult struct {
	Text string
	Err  error
}

// InvokeBatch runs every prompt against c concurrently, capped at
// maxConcurrent in-flight calls (values < 1 mean 4). Results come back in
// prompt order.
func InvokeBatch(ctx context.Context, c Client, prompts []BatchPrompt, maxConcurrent int) []BatchResult {
	if maxConcurrent < 1 {
		maxConcurrent = 4
	}

	results := make([]BatchResult, len(prompts))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, prompt := range prompts {
		wg.Add(1)
		go func(i int, prompt BatchPrompt) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = BatchResult{Err: ctx.Err()}
				return
			}

			text, err := c.Invoke(ctx, prompt.System, prompt.User)
			results[i] = BatchResult{Text: text, Err: err}
		}(i, prompt)
	}

	wg.Wait()
	return results
}
