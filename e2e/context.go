package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"onboard/internal/admin"
	adminhandler "onboard/internal/admin/handler"
	adminstore "onboard/internal/admin/store"
	"onboard/internal/admin/token"
	"onboard/internal/inbox"
	inboxadapters "onboard/internal/inbox/adapters"
	inboxstore "onboard/internal/inbox/store"
	"onboard/internal/platform/health"
	"onboard/internal/proof"
	"onboard/internal/registry"
	registryhandler "onboard/internal/registry/handler"
	registrystore "onboard/internal/registry/store"
	"onboard/internal/session"
	sessionhandler "onboard/internal/session/handler"
	httptransport "onboard/internal/transport/http"
	id "onboard/pkg/domain"
)

const (
	// SuperAdmin is bootstrapped on every fresh server.
	SuperAdmin  = "0xd3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3d3"
	inboxDomain = "verify.onboard.test"
)

// TestContext holds state between test steps. Each scenario gets its own
// in-process server with in-memory backends.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	Sessions      map[string]string // wallet -> session id
	LastRequestID string

	server *httptest.Server
	mail   *httptest.Server
	tokens *token.Service
}

// NewTestContext starts a server and the mail service it polls.
func NewTestContext() (*TestContext, error) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	mail := httptest.NewServer(newMailboxes())

	prover, err := proof.NewLocalProver([]byte("e2e-prover-key"))
	if err != nil {
		return nil, err
	}
	binder, err := proof.NewBinder(prover, []byte("e2e-commitment-key"), proof.WithLogger(log))
	if err != nil {
		return nil, err
	}
	poller := inbox.New(
		inboxadapters.NewHTTPFetcher(inboxadapters.HTTPFetcherConfig{BaseURL: mail.URL}),
		inboxstore.NewInMemoryClaimStore(),
		inbox.WithPolicy(inbox.RetryPolicy{Interval: 20 * time.Millisecond, MaxAttempts: 10}),
		inbox.WithLogger(log),
	)
	registrySvc := registry.New(registrystore.NewInMemory(prover), registry.WithLogger(log))

	adminSvc := admin.New(adminstore.NewInMemory(), registrySvc, admin.WithLogger(log))
	superAdmin, err := id.ParseIdentity(SuperAdmin)
	if err != nil {
		return nil, err
	}
	if err := adminSvc.Bootstrap(ctx, superAdmin); err != nil {
		return nil, err
	}
	tokens, err := token.New("e2e-signing-key", "onboard", time.Hour)
	if err != nil {
		return nil, err
	}

	sessions, err := session.New(
		session.Deps{Inbox: poller, Binder: binder, Registry: registrySvc, Queue: adminSvc},
		session.Config{InboxDomain: inboxDomain},
		session.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	router := httptransport.NewRouter(httptransport.Handlers{
		Sessions: sessionhandler.New(sessions, log),
		Registry: registryhandler.New(registrySvc, log),
		Admin:    adminhandler.New(adminSvc, log),
		Health:   health.New("test"),
	}, httptransport.Config{AdminTokens: tokens}, log)
	server := httptest.NewServer(router)

	return &TestContext{
		BaseURL:    server.URL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Sessions:   make(map[string]string),
		server:     server,
		mail:       mail,
		tokens:     tokens,
	}, nil
}

func (tc *TestContext) Close() {
	tc.server.Close()
	tc.mail.Close()
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body any) error {
	return tc.POSTWithHeaders(path, body, nil)
}

// POSTWithHeaders makes a POST request with optional headers
func (tc *TestContext) POSTWithHeaders(path string, body any, headers map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a dotted field path from the JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
		if data, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return data, nil
}

// ResponseContains checks if the response body contains text
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

// AdminHeaders returns a bearer header for identity.
func (tc *TestContext) AdminHeaders(identity string) (map[string]string, error) {
	parsed, err := id.ParseIdentity(identity)
	if err != nil {
		return nil, err
	}
	signed, _, err := tc.tokens.Issue(parsed)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + signed}, nil
}

// DeliverMail drops a message into a correlation mailbox.
func (tc *TestContext) DeliverMail(correlationID, from, subject string) error {
	raw := fmt.Sprintf("From: %s\r\nTo: %s@%s\r\nSubject: %s\r\nDate: %s\r\n\r\nplease register me\r\n",
		from, correlationID, inboxDomain, subject, time.Now().UTC().Format(time.RFC1123Z))
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPut,
		tc.mail.URL+"/"+correlationID+".eml", strings.NewReader(raw))
	if err != nil {
		return err
	}
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("mail delivery returned %d", resp.StatusCode)
	}
	return nil
}

// mailboxes is the in-process stand-in for the mail service:
// GET and PUT /{correlationId}.eml.
type mailboxes struct {
	mu       sync.RWMutex
	messages map[string][]byte
}

func newMailboxes() *mailboxes {
	return &mailboxes{messages: make(map[string][]byte)}
}

func (m *mailboxes) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".eml"))
	switch r.Method {
	case http.MethodGet:
		m.mu.RLock()
		raw, ok := m.messages[key]
		m.mu.RUnlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "message/rfc822")
		_, _ = w.Write(raw)
	case http.MethodPut:
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m.mu.Lock()
		m.messages[key] = raw
		m.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
