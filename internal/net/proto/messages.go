package proto

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"arena/server/internal/replication"
	"arena/server/internal/sim"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = replication.Version

const (
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeConsoleAck    = "console_ack"
)

// Client message type identifiers.
const (
	TypeInput                = "input"
	TypeRequestIdle          = "requestIdle"
	TypeRequestUndelay       = "requestUndelay"
	TypeRequestServerSuspend = "requestServerSuspend"
	TypeHeartbeat            = "heartbeat"
	TypeChat                 = "chat"
	TypeConsole              = "console"
)

// ChatIdleTrigger is the only chat line the server interprets.
const ChatIdleTrigger = "/idle"

// ConsoleSuicide destroys the sender's avatar.
const ConsoleSuicide = "suicide"

var (
	ErrUnsupportedVersion = eris.New("unsupported client protocol version")
	ErrMalformed          = eris.New("malformed client message")
)

// ClientMessage captures an inbound websocket message from the client.
type ClientMessage struct {
	Ver        int     `json:"ver,omitempty"`
	Type       string  `json:"type"`
	SentAt     int64   `json:"sentAt,omitempty"`
	Text       string  `json:"text,omitempty"`
	Cmd        string  `json:"cmd,omitempty"`
	Suspend    *bool   `json:"suspend,omitempty"`
	CommandSeq *uint64 `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, eris.Wrap(ErrMalformed, err.Error())
	}
	if msg.Type == "" {
		return msg, eris.Wrap(ErrMalformed, "missing type")
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, eris.Wrapf(ErrUnsupportedVersion, "version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand maps a client message onto the simulation command it stages.
// Messages that are handled outside the tick, such as heartbeats, report
// false.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeInput:
		return sim.Command{Type: sim.CommandInput}, true
	case TypeRequestIdle:
		return sim.Command{Type: sim.CommandRequestIdle}, true
	case TypeRequestUndelay:
		return sim.Command{Type: sim.CommandRequestUndelay}, true
	case TypeRequestServerSuspend:
		if msg.Suspend == nil {
			return sim.Command{}, false
		}
		return sim.Command{
			Type:    sim.CommandRequestServerSuspend,
			Suspend: &sim.SuspendCommand{Suspend: *msg.Suspend},
		}, true
	case TypeChat:
		if strings.TrimSpace(msg.Text) != ChatIdleTrigger {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CommandRequestIdle}, true
	case TypeConsole:
		if strings.TrimSpace(msg.Cmd) != ConsoleSuicide {
			return sim.Command{}, false
		}
		return sim.Command{Type: sim.CommandAvatarDestroyed}, true
	default:
		return sim.Command{}, false
	}
}

// Encode renders any replication message.
func Encode(msg replication.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, eris.Wrapf(err, "encode %s", msg.MessageType())
	}
	return data, nil
}

// CommandAck describes an acknowledgement of a staged command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
		Tick: msg.Tick,
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
		Retry:  msg.Retry,
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// ConsoleAck captures the outcome of a console command.
type ConsoleAck struct {
	Cmd    string
	Status string
	Reason string
}

// EncodeConsoleAck renders a console command acknowledgement payload.
func EncodeConsoleAck(msg ConsoleAck) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Cmd    string `json:"cmd"`
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}{
		Ver:    Version,
		Type:   typeConsoleAck,
		Cmd:    msg.Cmd,
		Status: msg.Status,
		Reason: msg.Reason,
	}
	return json.Marshal(frame)
}
