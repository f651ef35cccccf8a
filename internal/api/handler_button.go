package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/DevinMcDonald/GallupStopMotion/internal/hub"
	"github.com/DevinMcDonald/GallupStopMotion/internal/token"
)

type buttonRequest struct {
	Type string `json:"type" binding:"required"`
}

// PostButton handles POST /api/button: the forwarder daemon relays one
// physical press here, and the hub fans it out to the UI. The bearer check
// keeps random things on the venue network from injecting presses.
func (h *Handler) PostButton(c *gin.Context) {
	if h.buttonToken == "" || c.GetHeader("Authorization") != "Bearer "+h.buttonToken {
		c.String(http.StatusUnauthorized, "unauthorized")
		return
	}

	var req buttonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "bad type")
		return
	}
	if !token.Command(req.Type).Valid() {
		c.String(http.StatusBadRequest, "bad type")
		return
	}

	h.hub.Broadcast(hub.Event{Type: req.Type})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// The kiosk page and the backend share a host on the device; cross-origin
// access is whatever the venue network can reach anyway.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Events handles GET /ws: subscribe the calling UI to button events. Client
// to server messages are keepalive only.
func (h *Handler) Events(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade failed: %v", err)
		return
	}
	h.hub.Register(conn)
	defer func() {
		h.hub.Unregister(conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
