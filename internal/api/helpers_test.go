package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/simple-todos/internal/api/shared"
	"github.com/phrazzld/simple-todos/internal/domain"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.NewCaller(uuid.New(), "alice")
	bob   = domain.NewCaller(uuid.New(), "bob")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// asCaller stands in for the auth middleware.
func asCaller(caller domain.Caller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.WithCaller(r.Context(), caller)))
		})
	}
}

func newTask(owner domain.Caller, text string, private bool, age time.Duration) *domain.Task {
	return &domain.Task{
		ID:        uuid.New(),
		Text:      text,
		CreatedAt: time.Now().UTC().Add(-age),
		Owner:     owner.UserID,
		Username:  owner.Username,
		Private:   private,
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
