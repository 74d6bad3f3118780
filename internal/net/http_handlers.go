package net

import (
	nethttp "net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"arena/server"
	"arena/server/internal/net/ws"
	"arena/server/logging"
)

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    zerolog.Logger
	// Router, when set, adds event pipeline counters to /diagnostics.
	Router *logging.Router
}

func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger.With().Str("component", "http").Logger()
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status     string               `json:"status"`
			ServerTime int64                `json:"serverTime"`
			Match      server.Diagnostics   `json:"match"`
			Logging    *logging.RouterStats `json:"logging,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Match:      hub.DiagnosticsSnapshot(),
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}
		writeJSON(w, logger, payload)
	}).Methods(nethttp.MethodGet)

	router.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		writeJSON(w, logger, hub.Join())
	}).Methods(nethttp.MethodPost)

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: cfg.Logger})
	router.HandleFunc("/ws", wsHandler.Handle).Methods(nethttp.MethodGet)

	if cfg.ClientDir != "" {
		router.PathPrefix("/").Handler(nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return router
}

func writeJSON(w nethttp.ResponseWriter, logger zerolog.Logger, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error().Err(err).Msg("encode response failed")
		httpError(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
