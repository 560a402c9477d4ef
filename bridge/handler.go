package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/agentbridge/errors"
	"github.com/kbukum/agentbridge/logger"
	"github.com/kbukum/agentbridge/server"
	"github.com/kbukum/agentbridge/sse"
)

// keepAliveInterval is how often a comment is written on a quiet stream so
// proxies and load balancers keep the connection open.
const keepAliveInterval = 30 * time.Second

// SessionHandler re-serves one session's bridged view over HTTP as SSE.
type SessionHandler struct {
	supervisor *Supervisor
	log        *logger.Logger
}

// NewSessionHandler creates the handler for GET /sessions/:id/events.
func NewSessionHandler(supervisor *Supervisor, log *logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &SessionHandler{
		supervisor: supervisor,
		log:        log.WithComponent("sessions"),
	}
}

// Events streams the bridged events for the session in the :id parameter.
// The response stays open until the client disconnects or the bridge shuts
// down. Quiet periods are bridged with keepalive comments.
func (h *SessionHandler) Events(c *gin.Context) {
	sessionID := c.Param("id")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		server.RespondWithError(c, apperrors.New(apperrors.ErrCodeInternal,
			"streaming not supported", http.StatusInternalServerError))
		return
	}

	sub, err := h.supervisor.Subscribe(sessionID)
	if err != nil {
		server.RespondWithError(c, subscribeError(err))
		return
	}
	defer sub.Close()

	// This response outlives any server write timeout.
	rc := http.NewResponseController(c.Writer)
	_ = rc.SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	enc := sse.NewEncoder(c.Writer)
	_ = enc.WriteComment("subscribed " + sub.ID())
	flusher.Flush()

	h.log.Debug("Session stream opened", map[string]interface{}{
		"session_id":      sessionID,
		"subscription_id": sub.ID(),
	})

	ctx := c.Request.Context()
	for {
		readCtx, cancel := context.WithTimeout(ctx, keepAliveInterval)
		ev, err := sub.Next(readCtx)
		cancel()

		switch {
		case err == nil:
			if err := enc.WriteEvent(ev); err != nil {
				h.closeLog(sessionID, sub, "write failed")
				return
			}
			flusher.Flush()

		case errors.Is(err, io.EOF):
			// Bridge shut down; tell the client not to expect more.
			_ = enc.WriteComment("stream closed")
			flusher.Flush()
			h.closeLog(sessionID, sub, "bridge shutdown")
			return

		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			if err := enc.WriteComment(fmt.Sprintf("keepalive %d", time.Now().Unix())); err != nil {
				h.closeLog(sessionID, sub, "write failed")
				return
			}
			flusher.Flush()

		default:
			h.closeLog(sessionID, sub, "client disconnected")
			return
		}
	}
}

// Status reports the upstream connection and the live subscriber count.
func (h *SessionHandler) Status(c *gin.Context) {
	server.RespondOK(c, gin.H{
		"connection":  h.supervisor.Status(),
		"subscribers": h.supervisor.Registry().Count(),
	})
}

// subscribeError maps registry failures onto client-facing errors.
func subscribeError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, ErrShutdown):
		return apperrors.ServiceUnavailable("event bridge")
	case errors.Is(err, ErrEmptySessionID):
		return apperrors.MissingField("session id")
	}
	return apperrors.Internal(err)
}

func (h *SessionHandler) closeLog(sessionID string, sub *Subscription, reason string) {
	h.log.Debug("Session stream closed", map[string]interface{}{
		"session_id":      sessionID,
		"subscription_id": sub.ID(),
		"reason":          reason,
	})
}
