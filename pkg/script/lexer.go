// Package script replays a line-oriented syscall script as the user program
// of a process.
//
// Each line is one command:
//
//	poke <vaddr> "<text>"      store text and a NUL terminator
//	pokeword <vaddr> <int>     store a little-endian 32-bit word
//	peek <vaddr> <len>         print len bytes of user memory
//	syscall <name|num> [args]  trap into the kernel with up to four arguments
//	expect <int>               fail unless the last syscall returned int
//	echo "<text>"              print text
//
// Numbers accept Go integer syntax (0x1f, -1). The words argc, argv, sp,
// entry and pagesize stand for values of the loaded image. Text after '#'
// is a comment.
package script

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType represents the type of a lexical token.
type TokenType int

// Token types for the script language.
const (
	TokenEOF TokenType = iota
	TokenError
	TokenNewline
	TokenWord
	TokenString // quoted text, stored unquoted
)

var tokenTypeNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenError:   "ERROR",
	TokenNewline: "NEWLINE",
	TokenWord:    "WORD",
	TokenString:  "STRING",
}

func (t TokenType) String() string {
	if s, ok := tokenTypeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Token is a lexical token. Text holds the word, the decoded string, or
// the error message.
type Token struct {
	Type TokenType
	Text string
	Line int
}

func (t Token) String() string {
	if t.Text != "" {
		return t.Text
	}
	return t.Type.String()
}

// Lexer splits script source into tokens.
type Lexer struct {
	input string
	pos   int
	line  int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// NextToken returns the next token in the input.
func (l *Lexer) NextToken() Token {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\n':
			l.pos++
			l.line++
			return Token{Type: TokenNewline, Line: l.line - 1}
		case ch == '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		case unicode.IsSpace(rune(ch)):
			l.pos++
		default:
			return l.scan()
		}
	}
	return Token{Type: TokenEOF, Line: l.line}
}

func (l *Lexer) scan() Token {
	switch l.input[l.pos] {
	case '\'':
		return l.scanSingleQuote()
	case '"':
		return l.scanDoubleQuote()
	}

	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if unicode.IsSpace(rune(ch)) || ch == '#' || ch == '"' || ch == '\'' {
			break
		}
		l.pos++
	}
	return Token{Type: TokenWord, Text: l.input[start:l.pos], Line: l.line}
}

// scanSingleQuote scans a single-quoted string. No escapes are recognized.
func (l *Lexer) scanSingleQuote() Token {
	l.pos++
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '\'' && l.input[l.pos] != '\n' {
		l.pos++
	}
	if l.pos >= len(l.input) || l.input[l.pos] != '\'' {
		return Token{Type: TokenError, Text: "unterminated string", Line: l.line}
	}
	text := l.input[start:l.pos]
	l.pos++
	return Token{Type: TokenString, Text: text, Line: l.line}
}

// scanDoubleQuote scans a double-quoted string, decoding \n, \t, \0, \\
// and \".
func (l *Lexer) scanDoubleQuote() Token {
	l.pos++
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch ch {
		case '"':
			l.pos++
			return Token{Type: TokenString, Text: b.String(), Line: l.line}
		case '\n':
			return Token{Type: TokenError, Text: "unterminated string", Line: l.line}
		case '\\':
			if l.pos+1 >= len(l.input) {
				return Token{Type: TokenError, Text: "unterminated string", Line: l.line}
			}
			esc := l.input[l.pos+1]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '0':
				b.WriteByte(0)
			case '\\', '"':
				b.WriteByte(esc)
			default:
				return Token{Type: TokenError, Text: fmt.Sprintf("unknown escape \\%c", esc), Line: l.line}
			}
			l.pos += 2
		default:
			b.WriteByte(ch)
			l.pos++
		}
	}
	return Token{Type: TokenError, Text: "unterminated string", Line: l.line}
}

// Tokens returns all tokens from the input, ending with EOF or the first
// error.
func (l *Lexer) Tokens() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}
