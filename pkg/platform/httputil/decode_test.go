package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "onboard/pkg/domain-errors"
)

type roleBody struct {
	Role  string `json:"role"`
	Email string `json:"email"`
}

func (b *roleBody) Normalize() {
	b.Role = strings.ToUpper(strings.TrimSpace(b.Role))
	b.Email = strings.ToLower(strings.TrimSpace(b.Email))
}

func (b *roleBody) Validate() error {
	if b.Role == "" {
		return errors.New("role is required")
	}
	if b.Role == "SUPER" {
		return dErrors.New(dErrors.CodeForbidden, "role cannot be self-selected")
	}
	return nil
}

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/registrations/x/role", strings.NewReader(body))
}

func errorField(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out["error"]
}

func TestDecodeJSON(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		got, ok := DecodeJSON[roleBody](rec, post(`{"role":"PATIENT","email":"a@b.com"}`), quietLog, ctx, "req-1")
		require.True(t, ok)
		assert.Equal(t, "PATIENT", got.Role)
		assert.Equal(t, "a@b.com", got.Email)
	})

	t.Run("empty body is the zero value", func(t *testing.T) {
		rec := httptest.NewRecorder()
		got, ok := DecodeJSON[roleBody](rec, post(""), quietLog, ctx, "req-2")
		require.True(t, ok)
		assert.Empty(t, got.Role)
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := DecodeJSON[roleBody](rec, post(`{"role":`), quietLog, ctx, "req-3")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", errorField(t, rec))
	})

	t.Run("body over the limit is 413", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := post(`{"role":"` + strings.Repeat("x", 64) + `"}`)
		req.Body = http.MaxBytesReader(rec, req.Body, 16)
		_, ok := DecodeJSON[roleBody](rec, req, quietLog, ctx, "req-4")
		require.False(t, ok)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes before validating", func(t *testing.T) {
		rec := httptest.NewRecorder()
		got, ok := DecodeAndPrepare[roleBody](rec, post(`{"role":" hospital ","email":"Admin@Hospital.COM"}`), quietLog, ctx, "req-5")
		require.True(t, ok)
		assert.Equal(t, "HOSPITAL", got.Role)
		assert.Equal(t, "admin@hospital.com", got.Email)
	})

	t.Run("plain validation error maps to 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[roleBody](rec, post(`{"email":"a@b.com"}`), quietLog, ctx, "req-6")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_error", errorField(t, rec))
	})

	t.Run("coded validation error keeps its code", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[roleBody](rec, post(`{"role":"super"}`), quietLog, ctx, "req-7")
		require.False(t, ok)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestPrepareRequest_NoHooks(t *testing.T) {
	body := struct{ Reason string }{Reason: "  kept as is "}
	require.NoError(t, PrepareRequest(&body))
	assert.Equal(t, "  kept as is ", body.Reason)
}
