// pkg/core/session.go
package core

// SessionHash is the opaque per-session token issued by the simulation server.
// An empty hash means the response carried none.
type SessionHash string

// Coalition is one of the sides an area or unit belongs to.
type Coalition string

const (
	CoalitionBlue    Coalition = "blue"
	CoalitionRed     Coalition = "red"
	CoalitionNeutral Coalition = "neutral"
)

// Valid reports whether c is a known coalition.
func (c Coalition) Valid() bool {
	switch c {
	case CoalitionBlue, CoalitionRed, CoalitionNeutral:
		return true
	}
	return false
}

// CommandMode is the operator privilege level for the console process.
type CommandMode string

const (
	GameMaster    CommandMode = "Game master"
	BlueCommander CommandMode = "Blue commander"
	RedCommander  CommandMode = "Red commander"
)

// Privileged reports whether the mode allows authority-gated actions such as
// coalition reassignment.
func (m CommandMode) Privileged() bool {
	return m == GameMaster
}

// ParseCommandMode maps a configuration string to a CommandMode.
// Unknown values fall back to BlueCommander, the least surprising non-privileged mode.
func ParseCommandMode(s string) CommandMode {
	switch s {
	case string(GameMaster), "game-master", "gm":
		return GameMaster
	case string(RedCommander), "red-commander", "red":
		return RedCommander
	default:
		return BlueCommander
	}
}
