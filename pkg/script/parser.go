package script

import (
	"fmt"
	"math"
	"strconv"

	"nachos/pkg/userprog"
)

// Op identifies a script command.
type Op int

const (
	OpPoke Op = iota
	OpPokeWord
	OpPeek
	OpSyscall
	OpExpect
	OpEcho
)

var opNames = [...]string{"poke", "pokeword", "peek", "syscall", "expect", "echo"}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return "unknown"
	}
	return opNames[o]
}

func lookupOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}

// Value is a numeric operand: a literal or a symbol resolved at run time.
type Value struct {
	Symbol string
	Num    int32
}

// symbols are the names a Value may refer to.
var symbols = map[string]bool{
	"argc":     true,
	"argv":     true,
	"sp":       true,
	"entry":    true,
	"pagesize": true,
}

// Command is one parsed script line.
type Command struct {
	Line int
	Op   Op
	// Syscall is the syscall number of an OpSyscall.
	Syscall int32
	// Args are the numeric operands.
	Args []Value
	// Text is the string operand of poke and echo.
	Text string
}

// Script is a parsed script.
type Script struct {
	Commands []Command
}

// ParseError reports a malformed script line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("script: line %d: %s", e.Line, e.Msg)
}

// Parse parses script source.
func Parse(src string) (*Script, error) {
	lexer := NewLexer(src)
	s := &Script{}

	var line []Token
	for {
		tok := lexer.NextToken()
		switch tok.Type {
		case TokenError:
			return nil, &ParseError{Line: tok.Line, Msg: tok.Text}
		case TokenWord, TokenString:
			line = append(line, tok)
			continue
		}

		if len(line) > 0 {
			cmd, err := parseCommand(line)
			if err != nil {
				return nil, err
			}
			s.Commands = append(s.Commands, cmd)
			line = line[:0]
		}
		if tok.Type == TokenEOF {
			return s, nil
		}
	}
}

func parseCommand(toks []Token) (Command, error) {
	head := toks[0]
	errorf := func(format string, args ...any) error {
		return &ParseError{Line: head.Line, Msg: fmt.Sprintf(format, args...)}
	}

	if head.Type != TokenWord {
		return Command{}, errorf("expected a command, got string %q", head.Text)
	}
	op, ok := lookupOp(head.Text)
	if !ok {
		return Command{}, errorf("unknown command %q", head.Text)
	}

	cmd := Command{Line: head.Line, Op: op}
	args := toks[1:]

	switch op {
	case OpPoke:
		if len(args) != 2 || args[1].Type != TokenString {
			return Command{}, errorf("usage: poke <vaddr> \"<text>\"")
		}
		cmd.Text = args[1].Text
		args = args[:1]
	case OpEcho:
		if len(args) != 1 || args[0].Type != TokenString {
			return Command{}, errorf("usage: echo \"<text>\"")
		}
		cmd.Text = args[0].Text
		return cmd, nil
	case OpPokeWord, OpPeek:
		if len(args) != 2 {
			return Command{}, errorf("usage: %s <vaddr> <value>", op)
		}
	case OpExpect:
		if len(args) != 1 {
			return Command{}, errorf("usage: expect <value>")
		}
	case OpSyscall:
		if len(args) < 1 || len(args) > 5 {
			return Command{}, errorf("usage: syscall <name|number> [a0 [a1 [a2 [a3]]]]")
		}
		num, err := parseSyscall(args[0])
		if err != nil {
			return Command{}, errorf("%v", err)
		}
		cmd.Syscall = num
		args = args[1:]
	}

	for _, a := range args {
		v, err := parseValue(a)
		if err != nil {
			return Command{}, errorf("%v", err)
		}
		cmd.Args = append(cmd.Args, v)
	}
	return cmd, nil
}

func parseSyscall(tok Token) (int32, error) {
	if tok.Type != TokenWord {
		return 0, fmt.Errorf("bad syscall %q", tok.Text)
	}
	if n, ok := userprog.SyscallNumber(tok.Text); ok {
		return n, nil
	}
	v, err := parseNumber(tok.Text)
	if err != nil {
		return 0, fmt.Errorf("unknown syscall %q", tok.Text)
	}
	return v, nil
}

func parseValue(tok Token) (Value, error) {
	if tok.Type != TokenWord {
		return Value{}, fmt.Errorf("expected a number, got string %q", tok.Text)
	}
	if symbols[tok.Text] {
		return Value{Symbol: tok.Text}, nil
	}
	n, err := parseNumber(tok.Text)
	if err != nil {
		return Value{}, err
	}
	return Value{Num: n}, nil
}

// parseNumber accepts any value that fits a 32-bit word, signed or not.
func parseNumber(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil || n < math.MinInt32 || n > math.MaxUint32 {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return int32(uint32(n)), nil
}
