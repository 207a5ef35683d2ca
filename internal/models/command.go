package models

import "strings"

// CommandKind enumerates the commands the agent understands. The set is
// closed: anything that is not a refresh is an unsupported command and
// gets acknowledged as such instead of failing.
type CommandKind int

const (
	CommandRefresh CommandKind = iota
	CommandUnsupported
)

// Command is a parsed host command.
type Command struct {
	Kind CommandKind
	Name string
}

// ParseCommand maps a raw command name onto the closed command set.
// Matching is case-insensitive after trimming.
func ParseCommand(name string) Command {
	trimmed := strings.TrimSpace(name)
	if strings.EqualFold(trimmed, "refresh") {
		return Command{Kind: CommandRefresh, Name: trimmed}
	}
	return Command{Kind: CommandUnsupported, Name: trimmed}
}

// CommandRequest represents a command received from the presentation host.
type CommandRequest struct {
	Command string `json:"command"` // The command name the host wants executed.
}

// CommandResponse represents the acknowledgement sent back after a command.
type CommandResponse struct {
	Command string `json:"command"` // The command this response acknowledges.
	Status  string `json:"status"`  // Outcome status, success or not_supported.
}
