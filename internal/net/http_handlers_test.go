package net

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/server"
	"arena/server/internal/replication"
	"arena/server/logging"
)

func newTestHandler(t *testing.T, cfg HTTPHandlerConfig) (*server.Hub, http.Handler) {
	t.Helper()
	hubCfg := server.DefaultHubConfig()
	hubCfg.HeartbeatTimeout = 0
	hub := server.NewHubWithConfig(hubCfg, nil)
	return hub, NewHTTPHandler(hub, cfg)
}

func TestHealth(t *testing.T) {
	_, handler := newTestHandler(t, HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", resp.Body.String())
}

func TestJoinRequiresPost(t *testing.T) {
	_, handler := newTestHandler(t, HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/join", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}

func TestJoinReturnsPlayerAndRules(t *testing.T) {
	_, handler := newTestHandler(t, HTTPHandlerConfig{})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/join", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))

	var join server.JoinResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &join))
	assert.Equal(t, "player-1", join.ID)
	assert.NotEmpty(t, join.MatchID)
	assert.EqualValues(t, 20000, join.Config.InactivityThresholdMs)
	assert.EqualValues(t, 1500, join.Config.RespawnDelayMs)
	assert.EqualValues(t, 5000, join.Config.UndelayPenaltyMs)
}

func TestDiagnosticsReportsSessionsAndRouter(t *testing.T) {
	eventRouter := logging.NewRouter(logging.DefaultConfig(), nil, zerolog.Nop(), nil)
	t.Cleanup(func() { eventRouter.Close(t.Context()) })

	hub, handler := newTestHandler(t, HTTPHandlerConfig{Router: eventRouter})
	join := hub.Join()

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var payload struct {
		Status string `json:"status"`
		Match  struct {
			MatchID    string `json:"matchId"`
			Suspension struct {
				State string `json:"state"`
			} `json:"suspension"`
			Players []struct {
				ID           string `json:"id"`
				SpawnDelayed bool   `json:"spawnDelayed"`
			} `json:"players"`
		} `json:"match"`
		Logging *logging.RouterStats `json:"logging"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, join.MatchID, payload.Match.MatchID)
	assert.Equal(t, "active", payload.Match.Suspension.State)
	require.Len(t, payload.Match.Players, 1)
	assert.Equal(t, join.ID, payload.Match.Players[0].ID)
	assert.NotNil(t, payload.Logging)
}

func TestWebsocketRoute(t *testing.T) {
	hub, handler := newTestHandler(t, HTTPHandlerConfig{})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	join := hub.Join()

	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	target.Scheme = "ws"
	target.Path = "/ws"
	target.RawQuery = url.Values{"id": {join.ID}}.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(target.String(), nil)
	if resp != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var welcome replication.Welcome
	require.NoError(t, json.Unmarshal(data, &welcome))
	assert.Equal(t, replication.TypeWelcome, welcome.Type)
	assert.Equal(t, join.ID, welcome.ID)
}
