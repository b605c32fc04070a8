// Package render submits composition jobs to the remote video renderer
// and the GPU clip synthesizer, returning references to the produced
// artifacts.
package render

import (
	"context"
	"sync"
)

// Request is one render submission: a named composition plus the props
// the renderer composes from (scene assets, voice timings, captions).
type Request struct {
	Composition string                 `json:"composition"`
	Props       map[string]interface{} `json:"props"`
}

// ArtifactRef points at a rendered artifact on the render host's storage.
type ArtifactRef struct {
	ID   string  `json:"id"`
	Path string  `json:"path"`
	URL  string  `json:"url,omitempty"`
	Size float64 `json:"size_bytes,omitempty"`
}

// Client submits render work. Submit blocks until the render completes or
// ctx dies; renders are minutes-long, so callers set generous timeouts.
type Client interface {
	Submit(ctx context.Context, req Request) (ArtifactRef, error)
}

// Result pairs one SubmitAll element with its error. Failures are
// isolated per element.
type Result struct {
	Ref ArtifactRef
	Err error
}

// SubmitAll renders every request concurrently, capped at maxConcurrent
// in-flight submissions (values < 1 mean 2 — renders are heavy). Results
// come back in request order.
func SubmitAll(ctx context.Context, c Client, reqs []Request, maxConcurrent int) []Result {
	if maxConcurrent < 1 {
		maxConcurrent = 2
	}

	results := make([]Result, len(reqs))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result{Err: ctx.Err()}
				return
			}

			ref, err := c.Submit(ctx, req)
			results[i] = Result{Ref: ref, Err: err}
		}(i, req)
	}

	wg.Wait()
	return results
}
