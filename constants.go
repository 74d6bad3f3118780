package server

import "time"

const (
	ProtocolVersion   = 1
	writeWait         = 10 * time.Second
	tickRate          = 20
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval
	sendQueueSize     = 64
	matchDuration     = 10 * time.Minute
	settlePeriod      = 2 * time.Second
)

const (
	// CommandRejectUnknownActor indicates the sender has no session.
	CommandRejectUnknownActor = "unknown_actor"
	// CommandRejectInvalid indicates the message does not map to a command.
	CommandRejectInvalid = "invalid_command"
)

// Disconnect reasons recorded in lifecycle events.
const (
	DisconnectReasonClosed    = "connection_closed"
	DisconnectReasonHeartbeat = "heartbeat_timeout"
	DisconnectReasonReplaced  = "replaced"
)
