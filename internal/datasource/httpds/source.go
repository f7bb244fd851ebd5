package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// StatusError reports a final non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Source reads one feed file from a URL.
type Source struct {
	URL    string
	Client *Client
}

// NewSource returns a Source for url. A nil client means Default().
func NewSource(url string, client *Client) *Source {
	if client == nil {
		client = Default()
	}
	return &Source{URL: url, Client: client}
}

// Open fetches the URL and returns the response body.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.Client.Get(ctx, s.URL, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		return nil, &StatusError{URL: s.URL, StatusCode: resp.StatusCode}
	}
	return resp.Body, nil
}

// Name returns the URL.
func (s *Source) Name() string { return s.URL }

// IsURL reports whether path names an http or https resource.
func IsURL(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

var (
	defaultOnce   sync.Once
	defaultClient *Client
)

// Default returns a shared client with three retries.
func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = NewClient(Config{MaxRetries: 3})
	})
	return defaultClient
}
