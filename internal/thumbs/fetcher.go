package thumbs

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/face-explorer/internal/imgutil"
)

// Fetcher downloads a single thumbnail attempt over HTTP and validates
// the payload by decoding it. A response that is not a parseable image
// counts as a failed attempt even when the status code was 200.
type Fetcher struct {
	client      *http.Client
	baseTimeout time.Duration
	timeoutStep time.Duration
}

func NewFetcher(baseTimeout, timeoutStep time.Duration) *Fetcher {
	return &Fetcher{
		client:      &http.Client{},
		baseTimeout: baseTimeout,
		timeoutStep: timeoutStep,
	}
}

// AttemptTimeout returns the per-request deadline for the given attempt
// number (1-based). Later attempts get progressively more time so slow
// origins still have a chance to answer.
func (f *Fetcher) AttemptTimeout(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return f.baseTimeout + time.Duration(attempt-1)*f.timeoutStep
}

// FetchFull downloads a full resolution image in a single attempt with
// the base timeout. Used by the preview loader, which has its own
// navigation-level retry story (the user just presses next again).
func (f *Fetcher) FetchFull(ctx context.Context, url string) (image.Image, error) {
	return f.FetchAttempt(ctx, url, 1)
}

// FetchAttempt performs one download attempt for url.
func (f *Fetcher) FetchAttempt(ctx context.Context, url string, attempt int) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, f.AttemptTimeout(attempt))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not fetch image: unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read image body: %w", err)
	}

	img, err := imgutil.Decode(data)
	if err != nil {
		return nil, err
	}
	return img, nil
}
