// Package adapters holds the HTTP client for the external proving service.
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"onboard/internal/proof"
	id "onboard/pkg/domain"
	"onboard/pkg/platform/circuit"
	"onboard/pkg/platform/sentinel"
)

const maxResponseBytes = 1 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPProverConfig configures the proving service client.
type HTTPProverConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Breaker    *circuit.Breaker
	Logger     *slog.Logger
}

// HTTPProver calls the proving service:
//
//	POST {base}/proofs         -> generate
//	POST {base}/proofs/verify  -> verify
//
// Calls are guarded by a circuit breaker; while it is open, calls fail fast
// with sentinel.ErrUnavailable.
type HTTPProver struct {
	baseURL string
	client  HTTPDoer
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewHTTPProver(cfg HTTPProverConfig) *HTTPProver {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = circuit.New("prover")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPProver{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

type generateRequest struct {
	Email           []byte        `json:"email"`
	Identity        id.Identity   `json:"identity"`
	Domain          string        `json:"domain"`
	EmailCommitment id.Commitment `json:"email_commitment"`
}

type generateResponse struct {
	Proof []byte `json:"proof"`
}

type verifyRequest struct {
	Proof           []byte        `json:"proof"`
	Identity        id.Identity   `json:"identity"`
	Domain          string        `json:"domain"`
	EmailCommitment id.Commitment `json:"email_commitment"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// GenerateProof returns a proof, a rejection (422 from the service), or a
// hard failure wrapping sentinel.ErrUnavailable.
func (p *HTTPProver) GenerateProof(ctx context.Context, emailContent []byte, identity id.Identity, domain string, commitment id.Commitment) (*proof.Proof, error) {
	var resp generateResponse
	err := p.call(ctx, "/proofs", generateRequest{
		Email:           emailContent,
		Identity:        identity,
		Domain:          domain,
		EmailCommitment: commitment,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Proof) == 0 {
		return nil, errors.New("proving service returned an empty proof")
	}
	return &proof.Proof{Data: resp.Proof}, nil
}

// Verify returns nil when the service confirms the proof binds the payload,
// and proof.ErrInvalidProof when it reports otherwise.
func (p *HTTPProver) Verify(ctx context.Context, pr proof.Proof, payload proof.Payload) error {
	var resp verifyResponse
	err := p.call(ctx, "/proofs/verify", verifyRequest{
		Proof:           pr.Data,
		Identity:        payload.Identity,
		Domain:          payload.Domain,
		EmailCommitment: payload.EmailCommitment,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Valid {
		if resp.Reason != "" {
			return fmt.Errorf("%w: %s", proof.ErrInvalidProof, resp.Reason)
		}
		return proof.ErrInvalidProof
	}
	return nil
}

// call posts body as JSON and decodes a 2xx answer into out. A 422 is the
// service refusing the input and does not count against the breaker.
func (p *HTTPProver) call(ctx context.Context, path string, body, out any) error {
	if !p.breaker.Allow() {
		return fmt.Errorf("prover circuit open: %w", sentinel.ErrUnavailable)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode prover request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build prover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		p.recordFailure(ctx, err)
		return fmt.Errorf("prover request: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		p.recordFailure(ctx, err)
		return fmt.Errorf("read prover response: %w: %w", sentinel.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		p.recordSuccess(ctx)
		var e errorResponse
		if json.Unmarshal(raw, &e) == nil && e.ErrorDescription != "" {
			return fmt.Errorf("prover rejected input: %s", e.ErrorDescription)
		}
		return errors.New("prover rejected input")
	case resp.StatusCode >= 500:
		err := fmt.Errorf("prover status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
		p.recordFailure(ctx, err)
		return err
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		p.recordSuccess(ctx)
		return fmt.Errorf("prover status %d", resp.StatusCode)
	}

	p.recordSuccess(ctx)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode prover response: %w", err)
	}
	return nil
}

func (p *HTTPProver) recordFailure(ctx context.Context, err error) {
	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.logger.ErrorContext(ctx, "circuit breaker opened",
			"circuit", p.breaker.Name(),
			"error", err,
		)
	}
}

func (p *HTTPProver) recordSuccess(ctx context.Context) {
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "circuit breaker closed",
			"circuit", p.breaker.Name(),
		)
	}
}

var (
	_ proof.Prover   = (*HTTPProver)(nil)
	_ proof.Verifier = (*HTTPProver)(nil)
)
