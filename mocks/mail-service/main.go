// Command mail-service is a development stand-in for the inbound mail
// collaborator. It serves one raw message per correlation mailbox at
// GET /{correlationId}.eml and lets tests drop messages in.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort      = "8025"
	defaultLatencyMs = "0"
	maxMessageBytes  = 1 << 20
)

// mailboxPath matches /{uuid}.eml.
var mailboxPath = regexp.MustCompile(`^/([0-9a-fA-F-]{36})\.eml$`)

type SendRequest struct {
	CorrelationID string `json:"correlation_id"`
	From          string `json:"from"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type mailboxes struct {
	mu       sync.RWMutex
	messages map[string][]byte
}

var (
	store     = &mailboxes{messages: make(map[string][]byte)}
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/send", handleSend)
	http.HandleFunc("/", handleMailbox)

	log.Printf("mock mail service starting on port %s", port)
	log.Printf("simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "mail-service",
	})
}

// handleMailbox serves GET and accepts PUT of a raw RFC 5322 message.
func handleMailbox(w http.ResponseWriter, r *http.Request) {
	m := mailboxPath.FindStringSubmatch(r.URL.Path)
	if m == nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown path")
		return
	}
	key := strings.ToLower(m[1])
	simulateLatency()

	switch r.Method {
	case http.MethodGet:
		store.mu.RLock()
		raw, ok := store.messages[key]
		store.mu.RUnlock()
		if !ok {
			writeError(w, http.StatusNotFound, "not_found", "mailbox is empty")
			return
		}
		w.Header().Set("Content-Type", "message/rfc822")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	case http.MethodPut:
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
		if err != nil || len(raw) == 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "message body is required")
			return
		}
		store.put(key, raw)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		store.mu.Lock()
		delete(store.messages, key)
		store.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET, PUT or DELETE")
	}
}

// handleSend composes a minimal message from JSON, for scripts that do not
// want to build RFC 5322 by hand.
func handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if !mailboxPath.MatchString("/" + req.CorrelationID + ".eml") {
		writeError(w, http.StatusBadRequest, "bad_request", "correlation_id must be a UUID")
		return
	}
	if req.From == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "from is required")
		return
	}

	raw := fmt.Sprintf("From: %s\r\nTo: %s@inbox.local\r\nSubject: %s\r\nDate: %s\r\nMessage-ID: <%s@mail-service>\r\n\r\n%s\r\n",
		req.From, req.CorrelationID, req.Subject, time.Now().UTC().Format(time.RFC1123Z), req.CorrelationID, req.Body)
	store.put(strings.ToLower(req.CorrelationID), []byte(raw))
	writeJSON(w, http.StatusCreated, map[string]string{
		"mailbox": "/" + strings.ToLower(req.CorrelationID) + ".eml",
	})
}

func (m *mailboxes) put(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[key] = raw
}

func simulateLatency() {
	if latencyMs > 0 {
		time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message, Code: status})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0
	}
	return v
}
