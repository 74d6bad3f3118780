package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	CommandInput                CommandType = "Input"
	CommandRequestIdle          CommandType = "RequestIdle"
	CommandRequestUndelay       CommandType = "RequestUndelay"
	CommandRequestServerSuspend CommandType = "RequestServerSuspend"
	CommandAvatarDestroyed      CommandType = "AvatarDestroyed"
)

// SuspendCommand carries a lone player's request to force or lift suspension.
type SuspendCommand struct {
	Suspend bool `json:"suspend"`
}

// Command represents an intent captured for processing on the next tick.
// Intents are evaluated against the state the tick finds, never replayed
// against the state the client saw.
type Command struct {
	OriginTick uint64          `json:"originTick"`
	ActorID    string          `json:"actorId"`
	Type       CommandType     `json:"type"`
	IssuedAt   time.Time       `json:"issuedAt"`
	Suspend    *SuspendCommand `json:"suspend,omitempty"`
}
