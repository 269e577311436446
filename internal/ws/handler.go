package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-service/internal/observability"
)

// TokenValidator checks a session token and returns the authenticated user id.
type TokenValidator interface {
	Validate(token string) (int, error)
}

// RelayHandler upgrades chat websocket connections. The connection identity
// comes from the validated session token, not from a caller-supplied
// parameter.
type RelayHandler struct {
	hub    *Hub
	tokens TokenValidator
}

// NewRelayHandler constructs a RelayHandler.
func NewRelayHandler(hub *Hub, tokens TokenValidator) *RelayHandler {
	return &RelayHandler{hub: hub, tokens: tokens}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates the caller, upgrades the connection and registers it
// as the user's live connection.
func (h *RelayHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		token = c.Query("token")
	}

	userID, err := h.tokens.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := NewClient(userID, conn, info)
	client.Info.ConnID = client.ID

	if replaced := h.hub.Attach(client); replaced != nil {
		replaced.Close(websocket.ClosePolicyViolation, "session replaced")
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishLifecycleEvent(ctx, "ws_connect", client.Info, "")

	// The read loop outlives this handler, and net/http cancels the request
	// context once Handle returns. Keep the trace linkage but not the
	// cancellation, so disconnect events still publish.
	go h.readLoop(context.WithoutCancel(ctx), client, conn)
}

// readLoop drains inbound frames until the connection dies, then detaches the
// client. The transport close event is the only disconnect signal.
func (h *RelayHandler) readLoop(ctx context.Context, client *Client, conn *websocket.Conn) {
	var closeReason string
	defer func() {
		h.hub.Detach(client)
		client.Close(websocket.CloseNormalClosure, "")
		conn.Close()
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishLifecycleEvent(ctx, "ws_disconnect", client.Info, closeReason)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishLifecycleEvent(ctx, "ws_error", client.Info, closeReason)
			}
			return
		}
	}
}

func publishLifecycleEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}
