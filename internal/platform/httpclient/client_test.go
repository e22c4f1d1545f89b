package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/echo":
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			in["auth"] = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(in)
		case "/query":
			_ = json.NewEncoder(w).Encode(map[string]string{"q": r.URL.Query().Get("q")})
		default:
			http.Error(w, "nope", http.StatusTeapot)
		}
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL+"/", WithHeader("Authorization", "Bearer x"), WithTimeout(time.Second))
	ctx := context.Background()

	t.Run("post round trip", func(t *testing.T) {
		var out map[string]string
		require.NoError(t, c.PostJSON(ctx, "/echo", map[string]string{"a": "b"}, &out))
		assert.Equal(t, "b", out["a"])
		assert.Equal(t, "Bearer x", out["auth"])
	})

	t.Run("get with query", func(t *testing.T) {
		var out map[string]string
		require.NoError(t, c.GetJSON(ctx, "/query", map[string][]string{"q": {"1"}}, &out))
		assert.Equal(t, "1", out["q"])
	})

	t.Run("non-2xx surfaces status error", func(t *testing.T) {
		err := c.GetJSON(ctx, "/missing", nil, nil)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusTeapot, se.StatusCode)
	})

	t.Run("rate limiter honors context", func(t *testing.T) {
		limited := New(srv.URL, WithRateLimit(0.001, 1))
		require.NoError(t, limited.GetJSON(ctx, "/query", nil, nil))
		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		assert.Error(t, limited.GetJSON(short, "/query", nil, nil))
	})
}
