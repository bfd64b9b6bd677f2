package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"checkin-core/internal/events"
	"checkin-core/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventsHandler upgrades lane watchers to a WebSocket and streams broadcast
// envelopes from the hub. Kiosks may only watch their bound lane; staff may
// watch any lane, or all lanes with lane=0.
type EventsHandler struct {
	hub      *events.Hub
	jwt      *jwt.Service
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewEventsHandler(hub *events.Hub, jwtSvc *jwt.Service, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		hub: hub,
		jwt: jwtSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Browsers enforce origin; kiosk and register clients are
			// same-deployment, so cross-origin checks stay with CORS config.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// @Summary Lane event stream
// @Description WebSocket stream of session and waitlist broadcast envelopes
// @Tags events
// @Param lane query int false "Lane to watch, 0 for all lanes (staff only)"
// @Param token query string false "Credential when the Authorization header is unavailable"
// @Success 101
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /ws/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	claims := h.authenticate(c)
	if claims == nil {
		return
	}

	laneID, err := strconv.Atoi(c.DefaultQuery("lane", "0"))
	if err != nil || laneID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lane"})
		return
	}
	if claims.HasAudience(jwt.AudienceKiosk) {
		if claims.LaneID == nil || laneID != *claims.LaneID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Kiosk credential is bound to another lane"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := h.hub.Register(laneID)
	go h.writePump(conn, client)
	go h.readPump(conn, client)
}

// authenticate accepts the bearer header or, for browser WebSocket clients
// that cannot set headers, a token query parameter.
func (h *EventsHandler) authenticate(c *gin.Context) *jwt.Claims {
	token := bearerQueryToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Access token required"})
		return nil
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return nil
	}
	return claims
}

func bearerQueryToken(c *gin.Context) string {
	const prefix = "Bearer "
	if authHeader := c.GetHeader("Authorization"); len(authHeader) > len(prefix) && authHeader[:len(prefix)] == prefix {
		return authHeader[len(prefix):]
	}
	return c.Query("token")
}

func (h *EventsHandler) writePump(conn *websocket.Conn, client *events.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the stream is one-way. It exists to
// process control frames and notice the peer going away.
func (h *EventsHandler) readPump(conn *websocket.Conn, client *events.Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(512)
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
