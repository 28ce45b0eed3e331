//go:build integration

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/phrazzld/simple-todos/internal/api"
	"github.com/phrazzld/simple-todos/internal/config"
	"github.com/phrazzld/simple-todos/internal/publication"
	"github.com/phrazzld/simple-todos/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationServer(t *testing.T) *httptest.Server {
	t.Helper()

	db := testdb.GetTestDBWithT(t)
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:                   "integration-test-secret-at-least-32-chars",
			BCryptCost:                  4,
			TokenLifetimeMinutes:        60,
			RefreshTokenLifetimeMinutes: 120,
		},
		Feed:      config.FeedConfig{BufferSize: 16, PingIntervalSeconds: 30},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := newApplication(cfg, log, db)
	require.NoError(t, err)
	t.Cleanup(app.hub.Close)

	router, err := app.setupRouter()
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode < 300 {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func register(t *testing.T, base, name string) *client {
	t.Helper()

	c := &client{t: t, base: base}
	var resp api.AuthResponse
	username := name + "_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	status := c.do(http.MethodPost, "/api/auth/register",
		api.RegisterRequest{Username: username, Password: "password123"}, &resp)
	require.Equal(t, http.StatusCreated, status)
	c.token = resp.AccessToken
	return c
}

func visibleIDs(t *testing.T, c *client) map[uuid.UUID]bool {
	t.Helper()

	var list api.TaskListResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/tasks", nil, &list))
	ids := make(map[uuid.UUID]bool, len(list.Tasks))
	for _, task := range list.Tasks {
		ids[task.ID] = true
	}
	return ids
}

func TestTasksEndToEnd(t *testing.T) {
	srv := newIntegrationServer(t)
	alice := register(t, srv.URL, "alice")
	bob := register(t, srv.URL, "bob")
	anon := &client{t: t, base: srv.URL}

	before := len(visibleIDs(t, alice))

	// Anonymous insert is rejected and changes nothing.
	assert.Equal(t, http.StatusForbidden, anon.do(http.MethodPost, "/api/tasks", api.CreateTaskRequest{Text: "x"}, nil))
	assert.Len(t, visibleIDs(t, alice), before)

	var task api.TaskResponse
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/tasks", api.CreateTaskRequest{Text: "groceries"}, &task))
	assert.Len(t, visibleIDs(t, alice), before+1)
	assert.True(t, visibleIDs(t, bob)[task.ID])

	// Bob subscribes to the live feed before alice hides the task.
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/tasks/subscribe?token=" + bob.token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	waitFor(t, conn, func(m publication.Message) bool { return m.Msg == publication.MsgReady })

	path := "/api/tasks/" + task.ID.String()
	require.Equal(t, http.StatusOK, alice.do(http.MethodPut, path+"/private", api.SetPrivateRequest{Private: ptr(true)}, nil))

	waitFor(t, conn, func(m publication.Message) bool {
		return m.Msg == publication.MsgRemoved && m.ID == task.ID.String()
	})
	assert.False(t, visibleIDs(t, bob)[task.ID])
	assert.False(t, visibleIDs(t, anon)[task.ID])
	assert.True(t, visibleIDs(t, alice)[task.ID])

	// Non-owners cannot touch it.
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodDelete, path, nil, nil))
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodPut, path+"/checked", api.SetCheckedRequest{Checked: ptr(true)}, nil))
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodPut, path+"/private", api.SetPrivateRequest{Private: ptr(false)}, nil))

	require.Equal(t, http.StatusOK, alice.do(http.MethodPut, path+"/private", api.SetPrivateRequest{Private: ptr(false)}, nil))
	waitFor(t, conn, func(m publication.Message) bool {
		return m.Msg == publication.MsgAdded && m.ID == task.ID.String()
	})

	require.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, path, nil, nil))
	waitFor(t, conn, func(m publication.Message) bool {
		return m.Msg == publication.MsgRemoved && m.ID == task.ID.String()
	})
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodDelete, path, nil, nil))
}

// waitFor reads feed messages until one matches.
func waitFor(t *testing.T, conn *websocket.Conn, match func(publication.Message) bool) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg publication.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return
		}
	}
}

func ptr(b bool) *bool {
	return &b
}
