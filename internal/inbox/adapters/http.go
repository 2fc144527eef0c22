package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
)

// maxMessageBytes caps a fetched message.
const maxMessageBytes = 1 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPFetcherConfig configures the mail service client.
type HTTPFetcherConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// HTTPFetcher reads correlation mailboxes from the mail service:
// GET {base}/{correlationId}.eml.
type HTTPFetcher struct {
	baseURL string
	client  HTTPDoer
}

func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
}

// Fetch returns the raw message, or sentinel.ErrNotFound on 404.
// Any other non-2xx status or transport error is returned as a hard failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, correlationID id.CorrelationID) ([]byte, error) {
	url := fmt.Sprintf("%s/%s.eml", f.baseURL, correlationID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Accept", "message/rfc822")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("mail service request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("mail service status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMessageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read mail body: %w", err)
	}
	if len(body) > maxMessageBytes {
		return nil, errors.New("mail message exceeds size limit")
	}
	return body, nil
}
