package ws

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"arena/server"
	"arena/server/internal/net/proto"
	"arena/server/internal/replication"
)

type harness struct {
	hub *server.Hub
	srv *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := server.DefaultHubConfig()
	cfg.HeartbeatTimeout = 0
	hub := server.NewHubWithConfig(cfg, nil)
	handler := NewHandler(hub, HandlerConfig{})
	srv := httptest.NewServer(http.HandlerFunc(handler.Handle))
	t.Cleanup(srv.Close)
	return &harness{hub: hub, srv: srv}
}

func (h *harness) dial(t *testing.T, playerID string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(websocketURL(t, h.srv.URL, playerID), nil)
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

func websocketURL(t *testing.T, base, playerID string) string {
	t.Helper()
	parsed, err := url.Parse(base)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}
	parsed.Scheme = "ws"
	parsed.Path = "/ws"
	parsed.RawQuery = url.Values{"id": {playerID}}.Encode()
	return parsed.String()
}

func send(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("failed to send %s: %v", payload, err)
	}
}

type frame map[string]any

// readType reads frames until one of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		var decoded frame
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("failed to decode frame %s: %v", payload, err)
		}
		if decoded["type"] == typ {
			return decoded
		}
	}
}

func TestServeSendsWelcomeOnConnect(t *testing.T) {
	h := newHarness(t)
	join := h.hub.Join()
	conn := h.dial(t, join.ID)

	welcome := readType(t, conn, replication.TypeWelcome)
	if welcome["id"] != join.ID {
		t.Fatalf("expected welcome for %s, got %v", join.ID, welcome["id"])
	}
	if welcome["matchId"] != join.MatchID {
		t.Fatalf("expected match %s, got %v", join.MatchID, welcome["matchId"])
	}
}

func TestServeRejectsUnknownPlayer(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "player-404")
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestHandleRequiresID(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.srv.URL + "/ws")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", resp.StatusCode)
	}
}

func TestRequestIdleIsAckedAndReplicated(t *testing.T) {
	h := newHarness(t)
	join := h.hub.Join()
	conn := h.dial(t, join.ID)
	readType(t, conn, replication.TypeWelcome)
	h.hub.Advance(50 * time.Millisecond)

	send(t, conn, `{"type":"requestIdle","seq":1}`)
	ack := readType(t, conn, "commandAck")
	if ack["seq"] != float64(1) {
		t.Fatalf("expected ack for seq 1, got %v", ack["seq"])
	}

	send(t, conn, `{"type":"requestIdle","seq":1}`)
	readType(t, conn, "commandAck")
	if pending := h.hub.DiagnosticsSnapshot().PendingCommands; pending != 1 {
		t.Fatalf("duplicate sequence must not stage a second command, pending=%d", pending)
	}

	h.hub.Advance(50 * time.Millisecond)
	delayed := readType(t, conn, replication.TypePlayerSpawnDelayed)
	if delayed["initialPenaltyMs"] != float64(5000) {
		t.Fatalf("expected 5000ms initial penalty, got %v", delayed["initialPenaltyMs"])
	}
}

func TestChatIdleTriggerDelaysPlayer(t *testing.T) {
	h := newHarness(t)
	join := h.hub.Join()
	conn := h.dial(t, join.ID)
	readType(t, conn, replication.TypeWelcome)
	h.hub.Advance(50 * time.Millisecond)

	send(t, conn, `{"type":"chat","text":"hello"}`)
	send(t, conn, `{"type":"chat","text":" /idle "}`)
	deadline := time.Now().Add(2 * time.Second)
	for h.hub.DiagnosticsSnapshot().PendingCommands != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected the /idle chat line to stage one command")
		}
		time.Sleep(5 * time.Millisecond)
	}
	h.hub.Advance(50 * time.Millisecond)
	readType(t, conn, replication.TypePlayerSpawnDelayed)
}

func TestConsoleCommands(t *testing.T) {
	h := newHarness(t)
	join := h.hub.Join()
	conn := h.dial(t, join.ID)
	readType(t, conn, replication.TypeWelcome)

	send(t, conn, `{"type":"console","cmd":"suicide"}`)
	ack := readType(t, conn, "console_ack")
	if ack["status"] != "ok" || ack["cmd"] != proto.ConsoleSuicide {
		t.Fatalf("unexpected console ack %v", ack)
	}

	send(t, conn, `{"type":"console","cmd":"noclip"}`)
	ack = readType(t, conn, "console_ack")
	if ack["status"] != "error" {
		t.Fatalf("expected unknown console command to fail, got %v", ack)
	}
}

func TestUnsupportedVersionIsIgnored(t *testing.T) {
	h := newHarness(t)
	join := h.hub.Join()
	conn := h.dial(t, join.ID)
	readType(t, conn, replication.TypeWelcome)

	send(t, conn, `{"ver":99,"type":"requestIdle","seq":1}`)
	send(t, conn, `not json`)
	send(t, conn, `{"type":"input","seq":2}`)
	ack := readType(t, conn, "commandAck")
	if ack["seq"] != float64(2) {
		t.Fatalf("expected only the valid command to be acked, got %v", ack)
	}
}

func TestHeartbeatIsEchoed(t *testing.T) {
	h := newHarness(t)
	join := h.hub.Join()
	conn := h.dial(t, join.ID)
	readType(t, conn, replication.TypeWelcome)

	sentAt := time.Now().UnixMilli()
	send(t, conn, `{"type":"heartbeat","sentAt":`+jsonNumber(sentAt)+`}`)
	ack := readType(t, conn, proto.TypeHeartbeat)
	if ack["clientTime"] != float64(sentAt) {
		t.Fatalf("expected client time echoed, got %v", ack["clientTime"])
	}
}

func TestClosingConnectionDisconnectsPlayer(t *testing.T) {
	h := newHarness(t)
	join := h.hub.Join()
	conn := h.dial(t, join.ID)
	readType(t, conn, replication.TypeWelcome)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for len(h.hub.DiagnosticsSnapshot().Players) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected player to be removed after the socket closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReconnectKeepsPlayer(t *testing.T) {
	h := newHarness(t)
	join := h.hub.Join()
	first := h.dial(t, join.ID)
	readType(t, first, replication.TypeWelcome)

	second := h.dial(t, join.ID)
	readType(t, second, replication.TypeWelcome)

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	if len(h.hub.DiagnosticsSnapshot().Players) != 1 {
		t.Fatalf("replaced connection must not remove the player")
	}
	send(t, second, `{"type":"input","seq":1}`)
	readType(t, second, "commandAck")
}

func jsonNumber(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}
