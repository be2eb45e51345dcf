// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil holds the shared HTTP retry policy for the generation
// and retrieval ports.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RetryBaseDelay is the first backoff interval after an HTTP 429. Tests
// override this to avoid real sleeps.
var RetryBaseDelay = 10 * time.Second

const defaultMaxRetries = 5

// DoWithRetry issues req and retries HTTP 429 (Too Many Requests)
// responses with exponential backoff: RetryBaseDelay, then doubled per
// attempt. Any other status is returned untouched; retry-versus-degrade
// policy for those belongs to the calling port. Both ports send JSON
// bodies, so the body is rewound through GetBody before each retry.
//
// maxRetries <= 0 selects the default of 5. A context cancelled during a
// backoff wait returns ctx.Err(). Once retries are exhausted the last 429
// response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	delay := RetryBaseDelay
	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		// Drain and close before the backoff wait so the connection can
		// be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
