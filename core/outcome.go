package core

import (
	"strings"
	"unicode/utf8"
)

// Outcome is the drone's answer to a command: "ok", "error ..." or, for
// queries, the requested value.
type Outcome struct {
	Value string
	Err   error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// CommandError carries the text of an "error" response.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string {
	return "drone: " + e.Message
}

// ParseOutcome interprets one response datagram from the command port.
func ParseOutcome(raw []byte) Outcome {
	if !utf8.Valid(raw) {
		return Outcome{Err: &CommandError{Message: "invalid response encoding"}}
	}
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(strings.ToLower(text), "error") {
		return Outcome{Err: &CommandError{Message: text}}
	}
	return Outcome{Value: text}
}
