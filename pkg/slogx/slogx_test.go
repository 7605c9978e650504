package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/hearth/pkg/idx"
	"github.com/aussiebroadwan/hearth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestHTTPMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Level: "info", Output: &buf})

	var seen string
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slogx.FromContext(r.Context()).Info("inside")
		seen = w.Header().Get(slogx.RequestIDHeader)
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generated", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(slogx.RequestIDHeader, "bogus\ninjected")
		h.ServeHTTP(rec, req)

		_, err := idx.Parse(rec.Header().Get(slogx.RequestIDHeader))
		require.NoError(t, err)
		require.Equal(t, seen, rec.Header().Get(slogx.RequestIDHeader))

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 2)
		require.Equal(t, lines[0]["req_id"], lines[1]["req_id"])
		require.EqualValues(t, http.StatusTeapot, lines[1]["status"])
	})

	t.Run("propagated", func(t *testing.T) {
		buf.Reset()
		id := idx.New().String()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(slogx.RequestIDHeader, id)
		h.ServeHTTP(rec, req)

		require.Equal(t, id, rec.Header().Get(slogx.RequestIDHeader))
	})
}

func TestSecurityEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Output: &buf})
	ctx := slogx.WithContext(context.Background(), logger)
	ctx = slogx.With(ctx, "req_id", "abc")

	slogx.Security(ctx, "revoked_credential", "jti", "t-1")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "security_event", lines[0]["msg"])
	require.Equal(t, "WARN", lines[0]["level"])
	require.Equal(t, "revoked_credential", lines[0]["event"])
	require.Equal(t, "abc", lines[0]["req_id"])
	require.Equal(t, map[string]any{"jti": "t-1"}, lines[0]["detail"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, "DEBUG", slogx.ParseLevel("debug").String())
	require.Equal(t, "WARN", slogx.ParseLevel(" Warning ").String())
	require.Equal(t, "INFO", slogx.ParseLevel("nonsense").String())
}
