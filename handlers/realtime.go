package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/readnest/readnest-server/realtime"
)

// RealtimeHandler upgrades subscribers onto the broadcast hub.
type RealtimeHandler struct {
	Hub            *realtime.Hub
	AllowedOrigins []string
}

func (h *RealtimeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.Hub.ServeConn(conn)
}

func (h *RealtimeHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients send no Origin; nothing to enforce.
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
