package ws

import (
	nethttp "net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"arena/server"
)

const maxMessageSize = 4096

type HandlerConfig struct {
	Logger zerolog.Logger
}

// Handler upgrades HTTP requests and runs one websocket session per player.
type Handler struct {
	hub      *server.Hub
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		logger:   cfg.Logger.With().Str("component", "ws").Logger(),
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	playerID := r.URL.Query().Get("id")
	if playerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("player", playerID).Msg("upgrade failed")
		return
	}
	h.Serve(playerID, conn)
}
