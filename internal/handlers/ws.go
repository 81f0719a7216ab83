package handlers

import (
	"log"
	"net/http"

	"github.com/nemoguigrat/uralintern/internal/services"
	"github.com/nemoguigrat/uralintern/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	hub         *ws.Hub
	authService *services.AuthService
}

func NewWSHandler(hub *ws.Hub, authService *services.AuthService) *WSHandler {
	return &WSHandler{hub: hub, authService: authService}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Notifications godoc
// @Summary      WebSocket with grade notifications
// @Description  Browsers cannot set headers on a WebSocket handshake, so the JWT is passed as a query parameter
// @Tags         websocket
// @Param        token query string true "JWT token"
// @Router       /ws/notifications [get]
func (h *WSHandler) Notifications(c *gin.Context) {
	identity, err := h.authService.ValidateToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	h.hub.AddConnection(identity.UserID, conn)
	defer h.hub.RemoveConnection(identity.UserID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
