package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxImageBytes bounds a single download.
const DefaultMaxImageBytes = 20 * 1024 * 1024

type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// StatusError reports a non-200 response from an image host.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return fmt.Sprintf("client error: status code %d", e.StatusCode)
	}
	return fmt.Sprintf("server error: status code %d", e.StatusCode)
}

// HTTPImageFetcher downloads images over plain HTTP(S). A failed request
// is reported once; callers decide what to do with it.
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPImageFetcher creates an HTTP image fetcher bounded by timeout
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		// Connection pooling for a handful of image hosts
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: DefaultMaxImageBytes,
	}
}

// WithMaxBytes overrides the download size limit.
func (h *HTTPImageFetcher) WithMaxBytes(n int64) *HTTPImageFetcher {
	if n > 0 {
		h.maxBytes = n
	}
	return h
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Skintone-Inspector/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: %w", &StatusError{StatusCode: resp.StatusCode})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", h.maxBytes)
	}
	return data, nil
}
