package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestHTTPRequests(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)

	var fromCtx *zerolog.Logger
	handler := HTTPRequests(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = zerolog.Ctx(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	r := httptest.NewRequest(http.MethodPost, "/signup", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusTeapot, w.Code)
	require.NotNil(t, fromCtx)
	require.NotEqual(t, zerolog.Disabled, fromCtx.GetLevel())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http request", entry["message"])
	require.Equal(t, "POST", entry["method"])
	require.Equal(t, "/signup", entry["path"])
	require.Equal(t, float64(http.StatusTeapot), entry["status"])
	require.Equal(t, float64(len("short and stout")), entry["bytes"])
	require.Equal(t, "info", entry["level"])
}

func TestHTTPRequests_serverError(t *testing.T) {
	var buf bytes.Buffer
	handler := HTTPRequests(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "error", entry["level"])
}

func TestSetup(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, Setup(false).GetLevel())
	require.Equal(t, zerolog.DebugLevel, Setup(true).GetLevel())
}
