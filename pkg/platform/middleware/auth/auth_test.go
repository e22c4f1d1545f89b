package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idauth/pkg/domain"
	"idauth/pkg/platform/httputil"
	"idauth/pkg/requestcontext"
)

type stubValidator struct {
	user      *domain.User
	mobileUID string
	err       error
}

func (v stubValidator) ValidateUser(string) (*domain.User, string, error) {
	return v.user, v.mobileUID, v.err
}

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

func serve(t *testing.T, mw func(http.Handler) http.Handler, authHeader, mobileUID string) (*httptest.ResponseRecorder, *domain.User) {
	t.Helper()
	var seen *domain.User
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.User(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	req = req.WithContext(requestcontext.WithHeaders(req.Context(), domain.Headers{MobileUID: mobileUID}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, seen
}

func TestRequireAuth(t *testing.T) {
	user := &domain.User{Identifier: "user-1", SessionType: domain.SessionTypeUser}
	valid := stubValidator{user: user, mobileUID: "device-1"}

	t.Run("valid token on its device", func(t *testing.T) {
		rr, seen := serve(t, RequireAuth(valid, logger), "Bearer token", "device-1")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, user, seen)
	})

	t.Run("missing token", func(t *testing.T) {
		rr, seen := serve(t, RequireAuth(valid, logger), "", "device-1")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, seen)
	})

	t.Run("invalid token", func(t *testing.T) {
		rr, _ := serve(t, RequireAuth(stubValidator{err: errors.New("expired")}, logger), "Bearer token", "device-1")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("token from another device", func(t *testing.T) {
		rr, seen := serve(t, RequireAuth(valid, logger), "Bearer token", "device-2")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, seen)
		var body httputil.ErrorResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, domain.ProcessCodeTokenDeviceMismatch.String(), body.ProcessCode)
	})
}

func TestOptionalAuth(t *testing.T) {
	t.Run("anonymous passes through", func(t *testing.T) {
		rr, seen := serve(t, OptionalAuth(stubValidator{}, logger), "", "device-1")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Nil(t, seen)
	})

	t.Run("invalid token is still rejected", func(t *testing.T) {
		rr, _ := serve(t, OptionalAuth(stubValidator{err: errors.New("bad")}, logger), "Bearer token", "device-1")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
