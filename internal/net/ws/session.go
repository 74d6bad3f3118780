package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"arena/server"
	"arena/server/internal/net/proto"
	"arena/server/internal/sim"
)

const (
	consoleStatusOK    = "ok"
	consoleStatusError = "error"
)

// Serve runs the read side of a player's connection until it fails. Writes
// go through the subscriber's queue.
func (h *Handler) Serve(playerID string, conn *websocket.Conn) {
	if h == nil || h.hub == nil || conn == nil {
		return
	}

	sub, ok := h.hub.Subscribe(playerID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown player")
		_ = conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	conn.SetReadLimit(maxMessageSize)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			h.hub.Disconnect(playerID, sub, server.DisconnectReasonClosed)
			return
		}
		if !h.dispatch(playerID, sub, payload) {
			h.hub.Disconnect(playerID, sub, server.DisconnectReasonClosed)
			return
		}
	}
}

// dispatch handles one inbound frame. It returns false when the connection
// can no longer be written to.
func (h *Handler) dispatch(playerID string, sub *server.Subscriber, payload []byte) bool {
	msg, err := proto.DecodeClientMessage(payload)
	if err != nil {
		h.logger.Debug().Err(err).Str("player", playerID).Msg("discarding client message")
		return true
	}
	respond := func(data []byte, err error) bool {
		if err != nil {
			h.logger.Error().Err(err).Str("player", playerID).Msg("encode response failed")
			return true
		}
		return sub.Enqueue(data)
	}

	if msg.Type == proto.TypeHeartbeat {
		now := time.Now()
		rtt, ok := h.hub.UpdateHeartbeat(playerID, now, msg.SentAt)
		if !ok {
			return true
		}
		return respond(proto.EncodeHeartbeat(proto.Heartbeat{
			ServerTime: now.UnixMilli(),
			ClientTime: msg.SentAt,
			RTTMillis:  rtt.Milliseconds(),
		}))
	}

	seq := uint64(0)
	if msg.CommandSeq != nil {
		seq = *msg.CommandSeq
	}
	if seq > 0 {
		if last := sub.LastCommandSeq(); last > 0 && seq <= last {
			return respond(proto.EncodeCommandAck(proto.CommandAck{Seq: seq}))
		}
	}

	cmd, ok := proto.ClientCommand(msg)
	if !ok {
		switch msg.Type {
		case proto.TypeChat:
			return true
		case proto.TypeConsole:
			return respond(proto.EncodeConsoleAck(proto.ConsoleAck{
				Cmd:    msg.Cmd,
				Status: consoleStatusError,
				Reason: "unknown_command",
			}))
		}
		h.logger.Debug().Str("player", playerID).Str("type", msg.Type).Msg("unhandled client message")
		if seq > 0 {
			return respond(proto.EncodeCommandReject(proto.CommandReject{
				Seq:    seq,
				Reason: server.CommandRejectInvalid,
			}))
		}
		return true
	}

	staged, ok, reason := h.hub.Enqueue(playerID, cmd)
	if !ok {
		if reason == server.CommandRejectUnknownActor {
			h.logger.Debug().Str("player", playerID).Str("type", msg.Type).Msg("command from unknown player")
		}
		if msg.Type == proto.TypeConsole {
			return respond(proto.EncodeConsoleAck(proto.ConsoleAck{Cmd: msg.Cmd, Status: consoleStatusError, Reason: reason}))
		}
		if seq > 0 {
			return respond(proto.EncodeCommandReject(proto.CommandReject{
				Seq:    seq,
				Reason: reason,
				Retry:  reason == sim.CommandRejectQueueLimit,
			}))
		}
		return true
	}

	if msg.Type == proto.TypeConsole {
		if !respond(proto.EncodeConsoleAck(proto.ConsoleAck{Cmd: msg.Cmd, Status: consoleStatusOK})) {
			return false
		}
	}
	if seq > 0 {
		if !respond(proto.EncodeCommandAck(proto.CommandAck{Seq: seq, Tick: staged.OriginTick})) {
			return false
		}
		sub.StoreLastCommandSeq(seq)
	}
	return true
}
