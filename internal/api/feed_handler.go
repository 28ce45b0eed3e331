package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/simple-todos/internal/api/shared"
	"github.com/phrazzld/simple-todos/internal/platform/logger"
	"github.com/phrazzld/simple-todos/internal/publication"
	"github.com/phrazzld/simple-todos/internal/service"
	"github.com/phrazzld/simple-todos/internal/store"
)

const (
	feedWriteWait    = 10 * time.Second
	feedMaxReadBytes = 512
)

// FeedHandler streams the tasks publication over a websocket.
type FeedHandler struct {
	hub          *publication.Hub
	taskService  service.TaskService
	upgrader     websocket.Upgrader
	bufferSize   int
	pingInterval time.Duration
	logger       *slog.Logger
}

// NewFeedHandler creates a FeedHandler. Each subscriber may queue up to
// bufferSize messages; pings are sent every pingInterval.
func NewFeedHandler(
	hub *publication.Hub,
	taskService service.TaskService,
	bufferSize int,
	pingInterval time.Duration,
	logger *slog.Logger,
) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &FeedHandler{
		hub:         hub,
		taskService: taskService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		bufferSize:   bufferSize,
		pingInterval: pingInterval,
		logger:       logger.With(slog.String("component", "feed_handler")),
	}
}

// Subscribe handles GET /api/tasks/subscribe. The client receives the
// current visible tasks as added messages, then ready, then live changes.
// The hub subscription is taken before the snapshot is read; queued changes
// the snapshot already reflects are skipped by version.
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	caller := shared.CallerFromContext(r.Context())

	sub, err := h.hub.Subscribe(caller, h.bufferSize)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Publication unavailable", err)
		return
	}
	defer sub.Close()

	view, err := h.taskService.Visible(r.Context(), caller, store.TaskFilter{})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load tasks")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		log.Debug("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go h.readLoop(conn, done)

	snapshot := make(map[string]int64, len(view.Tasks))
	for _, task := range view.Tasks {
		msg := publication.Added(task)
		snapshot[msg.ID] = msg.Version
		if err := h.write(conn, msg); err != nil {
			log.Debug("feed write failed", slog.String("error", err.Error()))
			return
		}
	}
	if err := h.write(conn, publication.Ready()); err != nil {
		log.Debug("feed write failed", slog.String("error", err.Error()))
		return
	}

	log.Debug("feed subscribed", slog.Int("snapshot_size", len(view.Tasks)))

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.Messages():
			if !ok {
				h.closeWithReason(conn, sub.Err(), log)
				return
			}
			if seen, inSnapshot := snapshot[msg.ID]; inSnapshot && msg.Version > 0 && msg.Version <= seen {
				continue
			}
			if err := h.write(conn, msg); err != nil {
				log.Debug("feed write failed", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(feedWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug("feed ping failed", slog.String("error", err.Error()))
				return
			}
		case <-done:
			log.Debug("feed client disconnected")
			return
		}
	}
}

// readLoop discards client messages and closes done when the connection
// fails or the client stops answering pings.
func (h *FeedHandler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(feedMaxReadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *FeedHandler) write(conn *websocket.Conn, msg publication.Message) error {
	if err := conn.SetWriteDeadline(time.Now().Add(feedWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func (h *FeedHandler) closeWithReason(conn *websocket.Conn, reason error, log *slog.Logger) {
	code, text := websocket.CloseNormalClosure, ""
	switch {
	case errors.Is(reason, publication.ErrSlowSubscriber):
		code, text = websocket.CloseTryAgainLater, "subscriber too slow"
	case errors.Is(reason, publication.ErrHubClosed):
		code, text = websocket.CloseGoingAway, "server shutting down"
	}
	log.Debug("closing feed", slog.Int("code", code), slog.String("reason", text))

	deadline := time.Now().Add(feedWriteWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
