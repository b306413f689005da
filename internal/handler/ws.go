package handler

import (
	"net/http"

	"officine/internal/apierror"
	"officine/internal/authz"
	"officine/internal/middleware"
	"officine/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSHandler upgrades GET /ws?token=<jwt> into a hub session.
type WSHandler struct {
	hub      *realtime.Hub
	secret   string
	upgrader websocket.Upgrader
}

// NewWSHandler accepts any origin when origins is empty.
func NewWSHandler(hub *realtime.Hub, secret string, origins []string) *WSHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &WSHandler{
		hub:    hub,
		secret: secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	claims, err := middleware.ParseToken(h.secret, c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("invalid or expired token"))
		return
	}
	if !authz.Allowed(claims.AuthRole(), authz.Realtime) {
		c.JSON(http.StatusForbidden, apierror.New("insufficient permissions"))
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already answered
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.hub.Serve(ws, realtime.Identity{UserID: claims.UserID, Role: claims.AuthRole()})
}
