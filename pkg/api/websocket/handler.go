package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aescanero/crossplot/internal/application/pipeline"
	"github.com/aescanero/crossplot/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	requestReadTimeout = 10 * time.Second
	writeTimeout       = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ResultMessage is the last message of a stream
type ResultMessage struct {
	TriggerID string `json:"trigger_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ExitCode  *int   `json:"exit_code,omitempty"`
}

// Handler handles WebSocket connections
type Handler struct {
	runner *pipeline.Runner
	logger *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(runner *pipeline.Runner, logger *zap.Logger) *Handler {
	return &Handler{
		runner: runner,
		logger: logger,
	}
}

// HandleTriggerStream runs one stream-mode trigger per connection
func (h *Handler) HandleTriggerStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("client", c.ClientIP()))

	var req domain.TriggerRequest
	_ = conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
	if err := conn.ReadJSON(&req); err != nil {
		h.logger.Warn("failed to read trigger request", zap.Error(err))
		h.finish(conn, ResultMessage{Error: "invalid request: " + err.Error()})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	if err := h.runner.Validate(req); err != nil {
		h.finish(conn, ResultMessage{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// A client that goes away cancels the run
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	rec := h.runner.NewRecord(domain.TriggerModeStream, req)
	logger := h.logger.With(zap.String("trigger_id", rec.ID))

	sink := func(line string) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(websocket.TextMessage, []byte(line))
	}

	result := ResultMessage{TriggerID: rec.ID, Message: "Success!"}
	if err := h.runner.Run(ctx, rec, req, sink); err != nil {
		result.Message = ""
		result.Error = err.Error()
		var procErr *domain.ProcessError
		if errors.As(err, &procErr) {
			code := procErr.ExitCode
			result.ExitCode = &code
		}
	}

	if ctx.Err() != nil {
		logger.Info("WebSocket client gone before trigger completed")
		return
	}
	h.finish(conn, result)
}

// finish sends the result and a normal close frame
func (h *Handler) finish(conn *websocket.Conn, result ResultMessage) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(result); err != nil {
		h.logger.Error("failed to write result", zap.Error(err))
		return
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout)); err != nil {
		h.logger.Debug("failed to write close frame", zap.Error(err))
	}
}
