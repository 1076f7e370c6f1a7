// Package source defines where prompt variable values come from — static
// literals, files, or shell commands — and how they are evaluated.
package source

import (
	"encoding/json"
	"fmt"
)

// DefaultCommandTimeout is the wall-clock bound applied to command sources
// when no explicit timeout is given, in seconds.
const DefaultCommandTimeout = 30

// Type identifies the variant of a Source.
type Type int

const (
	// TypeLiteral is a static text value, never re-evaluated.
	TypeLiteral Type = iota
	// TypeFile reads a file relative to the working directory at evaluation time.
	TypeFile
	// TypeCommand executes a shell command and captures its stdout.
	TypeCommand
)

// String returns the prefix character for the type.
func (t Type) String() string {
	switch t {
	case TypeLiteral:
		return "="
	case TypeFile:
		return "@"
	case TypeCommand:
		return "!"
	}
	return "?"
}

// Source is an immutable description of where a variable's value comes from.
// Exactly one variant is active; the variant is fixed at creation.
type Source struct {
	typ         Type
	text        string // literal text, file path, or command line
	timeoutSecs int    // command sources only
}

// Literal returns a source whose value is the given text, verbatim.
func Literal(text string) Source {
	return Source{typ: TypeLiteral, text: text}
}

// File returns a source that reads the file at path. The path is resolved
// at evaluation time, not now; no existence check is performed here.
func File(path string) Source {
	return Source{typ: TypeFile, text: path}
}

// Command returns a command source with the default timeout.
func Command(cmdLine string) Source {
	return Source{typ: TypeCommand, text: cmdLine, timeoutSecs: DefaultCommandTimeout}
}

// CommandWithTimeout returns a command source with an explicit timeout in
// seconds. Non-positive timeouts fall back to the default.
func CommandWithTimeout(cmdLine string, timeoutSecs int) Source {
	if timeoutSecs <= 0 {
		timeoutSecs = DefaultCommandTimeout
	}
	return Source{typ: TypeCommand, text: cmdLine, timeoutSecs: timeoutSecs}
}

// ParseError reports a source specification with a missing or unknown prefix.
// Its message is user-facing contract: it enumerates the three valid prefixes.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return "missing source prefix, use one of:\n" +
		"  =text    literal value\n" +
		"  @path    file contents\n" +
		"  !cmd     command output"
}

// Parse parses a prefixed source specification:
//
//	=payload  literal text (payload may be empty)
//	@payload  file path
//	!payload  shell command, default timeout
//
// Any other first character, or empty input, is a *ParseError.
func Parse(raw string) (Source, error) {
	if raw == "" {
		return Source{}, &ParseError{Input: raw}
	}
	payload := raw[1:]
	switch raw[0] {
	case '=':
		return Literal(payload), nil
	case '@':
		return File(payload), nil
	case '!':
		return Command(payload), nil
	default:
		return Source{}, &ParseError{Input: raw}
	}
}

// Type returns the active variant.
func (s Source) Type() Type { return s.typ }

// Text returns the variant payload: literal text, file path, or command line.
func (s Source) Text() string { return s.text }

// TimeoutSecs returns the command timeout in seconds, or zero for
// non-command sources.
func (s Source) TimeoutSecs() int {
	if s.typ != TypeCommand {
		return 0
	}
	return s.timeoutSecs
}

// Render returns the prefixed string form, the inverse of Parse.
func (s Source) Render() string {
	return s.typ.String() + s.text
}

// Label returns a short human-readable description for listings.
func (s Source) Label() string {
	switch s.typ {
	case TypeLiteral:
		return truncate(s.text, 20)
	case TypeFile:
		return s.text
	default:
		return truncate(s.text, 30)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// commandJSON is the object form used when a command carries a
// non-default timeout; the common case serializes as the prefixed string.
type commandJSON struct {
	Cmd         string `json:"cmd"`
	TimeoutSecs int    `json:"timeout_secs"`
}

// MarshalJSON encodes the source as its prefixed string form. Command
// sources with a non-default timeout use an object so the timeout
// round-trips exactly.
func (s Source) MarshalJSON() ([]byte, error) {
	if s.typ == TypeCommand && s.timeoutSecs != DefaultCommandTimeout {
		return json.Marshal(commandJSON{Cmd: s.text, TimeoutSecs: s.timeoutSecs})
	}
	return json.Marshal(s.Render())
}

// UnmarshalJSON decodes either the prefixed string form or the command
// object form.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		parsed, perr := Parse(raw)
		if perr != nil {
			return fmt.Errorf("invalid source %q: %w", raw, perr)
		}
		*s = parsed
		return nil
	}

	var obj commandJSON
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	*s = CommandWithTimeout(obj.Cmd, obj.TimeoutSecs)
	return nil
}
