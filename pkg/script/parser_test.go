package script

import (
	"errors"
	"testing"

	"nachos/pkg/userprog"
)

func TestParse(t *testing.T) {
	src := `# create a file and write to it
poke 0x100 "out.txt"
syscall create 0x100
expect 2
pokeword 0x200 -1
peek 0x100 7
syscall 7 1 0x100 4
syscall exit argc
echo "done"
`
	s, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	want := []Command{
		{Line: 2, Op: OpPoke, Args: []Value{{Num: 0x100}}, Text: "out.txt"},
		{Line: 3, Op: OpSyscall, Syscall: userprog.SyscallCreate, Args: []Value{{Num: 0x100}}},
		{Line: 4, Op: OpExpect, Args: []Value{{Num: 2}}},
		{Line: 5, Op: OpPokeWord, Args: []Value{{Num: 0x200}, {Num: -1}}},
		{Line: 6, Op: OpPeek, Args: []Value{{Num: 0x100}, {Num: 7}}},
		{Line: 7, Op: OpSyscall, Syscall: userprog.SyscallWrite, Args: []Value{{Num: 1}, {Num: 0x100}, {Num: 4}}},
		{Line: 8, Op: OpSyscall, Syscall: userprog.SyscallExit, Args: []Value{{Symbol: "argc"}}},
		{Line: 9, Op: OpEcho, Text: "done"},
	}
	if len(s.Commands) != len(want) {
		t.Fatalf("got %d commands, want %d", len(s.Commands), len(want))
	}
	for i, w := range want {
		got := s.Commands[i]
		if got.Line != w.Line || got.Op != w.Op || got.Syscall != w.Syscall || got.Text != w.Text {
			t.Errorf("command %d = %+v, want %+v", i, got, w)
			continue
		}
		if len(got.Args) != len(w.Args) {
			t.Errorf("command %d args = %v, want %v", i, got.Args, w.Args)
			continue
		}
		for j := range w.Args {
			if got.Args[j] != w.Args[j] {
				t.Errorf("command %d arg %d = %+v, want %+v", i, j, got.Args[j], w.Args[j])
			}
		}
	}
}

func TestParseUnsignedWord(t *testing.T) {
	s, err := Parse("pokeword 0 0xffffffff")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if got := s.Commands[0].Args[1].Num; got != -1 {
		t.Errorf("0xffffffff parsed as %d, want -1", got)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unknown command", "jump 4", 1},
		{"string command", `"poke"`, 1},
		{"poke without text", "poke 0x10 0x20", 1},
		{"echo word", "echo hi", 1},
		{"peek arity", "\npeek 1", 2},
		{"expect arity", "expect", 1},
		{"too many syscall args", "syscall read 1 2 3 4 5", 1},
		{"unknown syscall", "syscall fork", 1},
		{"bad number", "expect 12abc", 1},
		{"number too large", "expect 0x100000000", 1},
		{"string argument", `pokeword 0 "x"`, 1},
		{"unterminated", "echo \"hi\nexpect 0", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("Parse() = %v, want *ParseError", err)
			}
			if pe.Line != tt.line {
				t.Errorf("error on line %d, want %d", pe.Line, tt.line)
			}
		})
	}
}
