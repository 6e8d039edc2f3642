package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/NomadCrew/formflow-backend/config"
	"github.com/NomadCrew/formflow-backend/internal/events"
	"github.com/NomadCrew/formflow-backend/logger"
	"github.com/NomadCrew/formflow-backend/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	MessageTypeConnected = "connected"
	MessageTypeEvent     = "event"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

// ClientMessage is a frame sent by a dashboard client.
type ClientMessage struct {
	Type string `json:"type"`
}

// ServerMessage is a frame sent to a dashboard client.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// EventStreamHandler pushes form and submission events to admin dashboards
// over a websocket.
type EventStreamHandler struct {
	log            *zap.SugaredLogger
	broker         events.Broker
	pingInterval   time.Duration
	writeTimeout   time.Duration
	allowedOrigins []string
	isDevelopment  bool
}

func NewEventStreamHandler(broker events.Broker, serverCfg *config.ServerConfig) *EventStreamHandler {
	return &EventStreamHandler{
		log:            logger.GetLogger().Named("event_stream"),
		broker:         broker,
		pingInterval:   30 * time.Second,
		writeTimeout:   10 * time.Second,
		allowedOrigins: serverCfg.AllowedOrigins,
		isDevelopment:  serverCfg.Environment == config.EnvDevelopment,
	}
}

func (h *EventStreamHandler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	if h.isDevelopment {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.allowedOrigins
	}
	return opts
}

// parseFilters reads ?types=FORM_CREATED,SUBMISSION_CREATED.
func parseFilters(raw string) []types.EventType {
	var out []types.EventType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, types.EventType(part))
		}
	}
	return out
}

// HandleWebSocket godoc
// @Summary Live form and submission events
// @Tags admin
// @Param types query string false "Comma-separated event types"
// @Success 101
// @Router /events/ws [get]
// @Security BearerAuth
func (h *EventStreamHandler) HandleWebSocket(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.acceptOptions())
	if err != nil {
		h.log.Errorw("Failed to accept WebSocket connection", "userID", actor.ID, "error", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	subID := actor.ID + ":" + uuid.NewString()
	stream, err := h.broker.Subscribe(ctx, subID, parseFilters(c.Query("types"))...)
	if err != nil {
		h.log.Errorw("Failed to subscribe to events", "userID", actor.ID, "error", err)
		_ = conn.Close(websocket.StatusInternalError, "subscription failed")
		return
	}
	defer func() {
		if err := h.broker.Unsubscribe(context.Background(), subID); err != nil {
			h.log.Debugw("Unsubscribe after disconnect", "subscriberID", subID, "error", err)
		}
	}()

	if err := h.send(ctx, conn, ServerMessage{Type: MessageTypeConnected, Payload: map[string]string{"userId": actor.ID}}); err != nil {
		h.log.Errorw("Failed to send connected message", "userID", actor.ID, "error", err)
		return
	}
	h.log.Infow("Event stream connected", "userID", actor.ID)

	errCh := make(chan error, 3)
	go func() { errCh <- h.readLoop(ctx, conn) }()
	go func() { errCh <- h.writeLoop(ctx, conn, stream) }()
	go func() { errCh <- h.pingLoop(ctx, conn) }()

	err = <-errCh
	status := websocket.CloseStatus(err)
	if err != nil && status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
		h.log.Warnw("Event stream closed", "userID", actor.ID, "error", err)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

func (h *EventStreamHandler) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		if msg.Type == MessageTypePing {
			if err := h.send(ctx, conn, ServerMessage{Type: MessageTypePong}); err != nil {
				return err
			}
		}
	}
}

func (h *EventStreamHandler) writeLoop(ctx context.Context, conn *websocket.Conn, stream <-chan types.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-stream:
			if !ok {
				return nil
			}
			if err := h.send(ctx, conn, ServerMessage{Type: MessageTypeEvent, Payload: event}); err != nil {
				return err
			}
		}
	}
}

func (h *EventStreamHandler) pingLoop(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *EventStreamHandler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, msg)
}
