package script

import "testing"

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"syscall halt", []TokenType{TokenWord, TokenWord, TokenEOF}},
		{"poke 0x100 \"a b\"", []TokenType{TokenWord, TokenWord, TokenString, TokenEOF}},
		{"echo 'x'\nexpect 0", []TokenType{TokenWord, TokenString, TokenNewline, TokenWord, TokenWord, TokenEOF}},
		{"# only a comment", []TokenType{TokenEOF}},
		{"expect 3 # trailing", []TokenType{TokenWord, TokenWord, TokenEOF}},
		{"echo \"open", []TokenType{TokenWord, TokenError}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks := NewLexer(tt.input).Tokens()
			if len(toks) != len(tt.expected) {
				t.Fatalf("got %d tokens %v, want %d", len(toks), toks, len(tt.expected))
			}
			for i, want := range tt.expected {
				if toks[i].Type != want {
					t.Errorf("token %d: expected %s, got %s", i, want, toks[i].Type)
				}
			}
		})
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"nul\0"`, "nul\x00"},
		{`"say \"hi\""`, `say "hi"`},
		{`'raw\n'`, `raw\n`},
		{`"# not a comment"`, "# not a comment"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok := NewLexer(tt.input).NextToken()
			if tok.Type != TokenString || tok.Text != tt.want {
				t.Errorf("got %s %q, want STRING %q", tok.Type, tok.Text, tt.want)
			}
		})
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{`"bad \q"`, `"no end`, "'no end\n'", `"trailing\`} {
		t.Run(input, func(t *testing.T) {
			if tok := NewLexer(input).NextToken(); tok.Type != TokenError {
				t.Errorf("got %s, want ERROR", tok.Type)
			}
		})
	}
}

func TestLexerLines(t *testing.T) {
	toks := NewLexer("a\n\nb").Tokens()
	last := toks[len(toks)-2]
	if last.Text != "b" || last.Line != 3 {
		t.Errorf("token %q on line %d, want b on line 3", last.Text, last.Line)
	}
}
