package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header opens every connection and every response: format "TXT", version "01"
const Header = "TXT01"

// Command names understood by the find daemon
const (
	CmdSearch      = "search"
	CmdDebugSearch = "debug-search"
	CmdSummary     = "summary"
	CmdReindex     = "reindex"
	CmdStatus      = "status"
)

var commands = map[string]struct{}{
	CmdSearch:      {},
	CmdDebugSearch: {},
	CmdSummary:     {},
	CmdReindex:     {},
	CmdStatus:      {},
}

// ValueType represents the type of a value on the stack
type ValueType int

const (
	TypeString ValueType = iota
	TypeInt
	TypeBool
)

// Value represents a value on the stack
type Value struct {
	Type ValueType
	Str  string
	Int  int64
	Bool bool
}

// Command is a command word with the values pushed before it
type Command struct {
	Name string
	Args []Value
}

// Strings returns the string arguments of the command in order
func (c *Command) Strings() []string {
	var out []string
	for _, arg := range c.Args {
		if arg.Type == TypeString {
			out = append(out, arg.Str)
		}
	}
	return out
}

// Parser reads stack-style commands: value lines are pushed until a
// command word consumes them
type Parser struct {
	reader  *bufio.Reader
	version string
}

// NewParser reads the connection header and returns a parser for the rest
func NewParser(reader io.Reader) (*Parser, error) {
	p := &Parser{
		reader: bufio.NewReader(reader),
	}

	headerBytes := make([]byte, len(Header))
	if _, err := io.ReadFull(p.reader, headerBytes); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	if string(headerBytes[:3]) != Header[:3] {
		return nil, fmt.Errorf("unsupported format: %s", headerBytes[:3])
	}
	p.version = string(headerBytes[3:])

	return p, nil
}

// Version returns the protocol version sent by the peer
func (p *Parser) Version() string {
	return p.version
}

// ParseCommand parses the next command from input. It returns io.EOF once
// the input ends with an empty stack.
func (p *Parser) ParseCommand() (*Command, error) {
	stack := make([]Value, 0)

	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		eof := err == io.EOF

		// String values keep their inner spaces, only the line break goes
		line = strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "#"):
		case isCommand(trimmed):
			return &Command{Name: trimmed, Args: stack}, nil
		default:
			value, perr := parseValue(line)
			if perr != nil {
				return nil, fmt.Errorf("parse error: %w", perr)
			}
			stack = append(stack, value)
		}

		if eof {
			if len(stack) == 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("parse error: %d values without command", len(stack))
		}
	}
}

func isCommand(line string) bool {
	_, ok := commands[line]
	return ok
}

func parseValue(line string) (Value, error) {
	// String value, prefixed with "
	if after, ok := strings.CutPrefix(strings.TrimLeft(line, " \t"), `"`); ok {
		return Value{Type: TypeString, Str: after}, nil
	}

	line = strings.TrimSpace(line)
	switch line {
	case "t":
		return Value{Type: TypeBool, Bool: true}, nil
	case "f":
		return Value{Type: TypeBool, Bool: false}, nil
	}

	if intVal, err := strconv.ParseInt(line, 10, 64); err == nil {
		return Value{Type: TypeInt, Int: intVal}, nil
	}

	return Value{}, fmt.Errorf("cannot parse value: %s", line)
}

// FormatString encodes s as a string value line
func FormatString(s string) string {
	return `"` + strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
