package admin

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	id "onboard/pkg/domain"
	"onboard/pkg/requestcontext"
)

type stubValidator struct {
	want     string
	identity id.Identity
}

func (v stubValidator) Validate(token string) (id.Identity, error) {
	if token != v.want {
		return id.Identity{}, errors.New("bad token")
	}
	return v.identity, nil
}

// AdminMiddlewareSuite covers the invariant "an unauthenticated request never
// reaches an admin handler".
type AdminMiddlewareSuite struct {
	suite.Suite
	logger    *slog.Logger
	validator stubValidator
}

func TestAdminMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AdminMiddlewareSuite))
}

func (s *AdminMiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.validator = stubValidator{
		want:     "good-token",
		identity: id.MustIdentity("0x00000000000000000000000000000000000000ad"),
	}
}

func (s *AdminMiddlewareSuite) serve(header string) (*httptest.ResponseRecorder, bool, id.Identity) {
	called := false
	var actor id.Identity
	handler := RequireAdmin(s.validator, s.logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			actor, _ = requestcontext.Admin(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	)
	req := httptest.NewRequest(http.MethodGet, "/admin/requests", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, called, actor
}

func (s *AdminMiddlewareSuite) TestBearerToken() {
	s.Run("valid token reaches handler with admin identity", func() {
		w, called, actor := s.serve("Bearer good-token")
		s.True(called)
		s.Equal(http.StatusOK, w.Code)
		s.Equal(s.validator.identity, actor)
	})

	s.Run("scheme is case-insensitive", func() {
		_, called, _ := s.serve("bearer good-token")
		s.True(called)
	})

	s.Run("missing header returns 401", func() {
		w, called, _ := s.serve("")
		s.False(called)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("wrong scheme returns 401", func() {
		w, called, _ := s.serve("Basic good-token")
		s.False(called)
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("invalid token returns 401", func() {
		w, called, _ := s.serve("Bearer forged")
		s.False(called)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}
