package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandKind is the closed set of admin commands. Raw command names are
// decoded once at the boundary; the engine API never sees strings.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandAdd
	CommandUpdate
	CommandRemove
)

func (k CommandKind) String() string {
	switch k {
	case CommandAdd:
		return "ADD"
	case CommandUpdate:
		return "UPDATE"
	case CommandRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Command is a decoded admin command. For CommandUnknown, Raw holds the
// unrecognized command name for the error acknowledgment.
type Command struct {
	Kind  CommandKind
	Raw   string
	ID    string
	Mu    float64
	Sigma float64
}

// adminWire is the JSON shape shared with the original admin protocol:
// {"cmd":"ADD","id":"StratA","mu":0.05,"sigma":0.10}. Pointers distinguish
// absent fields from zero values.
type adminWire struct {
	Cmd   string   `json:"cmd"`
	ID    *string  `json:"id"`
	Mu    *float64 `json:"mu"`
	Sigma *float64 `json:"sigma"`
}

// DecodeCommand parses and validates one admin command. Unknown command names
// decode without error into CommandUnknown so the caller can acknowledge them
// by name; missing required fields are errors naming the field.
func DecodeCommand(b []byte) (Command, error) {
	var w adminWire
	if err := json.Unmarshal(b, &w); err != nil {
		return Command{}, fmt.Errorf("decode admin command: %w", err)
	}
	return commandFromWire(w)
}

func commandFromWire(w adminWire) (Command, error) {
	switch w.Cmd {
	case "ADD", "UPDATE":
		kind := CommandAdd
		if w.Cmd == "UPDATE" {
			kind = CommandUpdate
		}
		if w.ID == nil || *w.ID == "" {
			return Command{}, fmt.Errorf("%s command: missing id", w.Cmd)
		}
		if w.Mu == nil {
			return Command{}, fmt.Errorf("%s command: missing mu", w.Cmd)
		}
		if w.Sigma == nil {
			return Command{}, fmt.Errorf("%s command: missing sigma", w.Cmd)
		}
		return Command{Kind: kind, Raw: w.Cmd, ID: *w.ID, Mu: *w.Mu, Sigma: *w.Sigma}, nil
	case "REMOVE":
		if w.ID == nil || *w.ID == "" {
			return Command{}, fmt.Errorf("REMOVE command: missing id")
		}
		return Command{Kind: CommandRemove, Raw: w.Cmd, ID: *w.ID}, nil
	case "":
		return Command{}, fmt.Errorf("admin command: missing cmd")
	default:
		return Command{Kind: CommandUnknown, Raw: w.Cmd}, nil
	}
}

// AuditEntry is one journaled admin command with its outcome.
type AuditEntry struct {
	At       time.Time `json:"at"`
	Cmd      string    `json:"cmd"`
	ClientID string    `json:"client_id"`
	Mu       float64   `json:"mu"`
	Sigma    float64   `json:"sigma"`
	Outcome  string    `json:"outcome"` // "OK" or the rejection cause
}
