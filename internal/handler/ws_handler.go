package handler

import (
	"net/http"

	"tabletop/backend/internal/database"
	"tabletop/backend/internal/models"
	"tabletop/backend/internal/realtime"
	"tabletop/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from the game frontend on another origin; access
	// control happens via the token, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler admits websocket connections into the realtime gateway.
type WSHandler struct {
	gateway *realtime.Gateway
}

// NewWSHandler wires a websocket handler over the gateway.
func NewWSHandler(gateway *realtime.Gateway) *WSHandler {
	return &WSHandler{gateway: gateway}
}

// Serve godoc
// @Summary      Session websocket endpoint
// @Description  Upgrades to a websocket. The connection is closed with a policy-violation code unless the token resolves to a user who is a member of the session.
// @Tags         sessions
// @Param        id    path  string true "Session ID"
// @Param        token query string true "Bearer token"
// @Router       /sessions/{id}/ws [get]
func (h *WSHandler) Serve(c *gin.Context) {
	sessionID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Debug("websocket upgrade failed")
		return
	}

	userID, err := jwt.ResolveToken(c.Query("token"))
	if err != nil {
		closePolicyViolation(conn, "invalid token")
		return
	}

	var player models.SessionPlayer
	if err := database.DB.First(&player, "session_id = ? AND user_id = ?", sessionID, userID).Error; err != nil {
		closePolicyViolation(conn, "not a session member")
		return
	}

	h.gateway.Run(conn, sessionID, userID, player.IsGM)
}

func closePolicyViolation(conn *websocket.Conn, reason string) {
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
	conn.Close()
}
