package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "onboard/pkg/domain"
	"onboard/pkg/platform/sentinel"
)

func TestHTTPFetcher(t *testing.T) {
	cid := id.NewCorrelationID()
	raw := "From: alice@clinic.example\r\nSubject: hi\r\n\r\nbody"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + cid.String() + ".eml":
			w.Header().Set("Content-Type", "message/rfc822")
			_, _ = w.Write([]byte(raw))
		case "/broken.eml":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(HTTPFetcherConfig{BaseURL: srv.URL + "/"})

	t.Run("returns stored message", func(t *testing.T) {
		body, err := fetcher.Fetch(context.Background(), cid)
		require.NoError(t, err)
		assert.Equal(t, raw, string(body))
	})

	t.Run("404 means not arrived", func(t *testing.T) {
		_, err := fetcher.Fetch(context.Background(), id.NewCorrelationID())
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("5xx is a hard failure", func(t *testing.T) {
		broken := NewHTTPFetcher(HTTPFetcherConfig{BaseURL: srv.URL, HTTPClient: rewriteDoer{srv.URL + "/broken.eml"}})
		_, err := broken.Fetch(context.Background(), cid)
		require.Error(t, err)
		assert.NotErrorIs(t, err, sentinel.ErrNotFound)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("cancelled context surfaces ctx error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := fetcher.Fetch(ctx, cid)
		require.ErrorIs(t, err, context.Canceled)
	})
}

// rewriteDoer sends every request to a fixed URL.
type rewriteDoer struct{ url string }

func (d rewriteDoer) Do(req *http.Request) (*http.Response, error) {
	r, err := http.NewRequestWithContext(req.Context(), req.Method, d.url, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(r)
}
