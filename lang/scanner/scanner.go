// Package scanner turns mire source text into a stream of tokens, using a
// cursor-based reader (advance/peek/advanceIf over a byte slice, line
// tracked as a plain counter, errors reported through a callback) rather
// than a regexp- or table-driven lexer, since mire has no template-language
// long strings or numeric base prefixes to support.
package scanner

import (
	"go/scanner"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/hearthlang/mire/lang/token"
)

type (
	// ErrorList accumulates scan errors using go/scanner's own list type,
	// so callers can Sort/Err it without a parallel implementation.
	ErrorList = scanner.ErrorList
)

// Scanner tokenizes one source buffer. It holds no file-set machinery: a
// mire program is always a single source unit (a script or a REPL line),
// so positions are plain 1-based line numbers and diagnostics read
// "[line N] ...".
type Scanner struct {
	src []byte
	err func(line int, msg string)

	start   int // byte offset of the token currently being scanned
	current int // byte offset of the next unread byte
	line    int
}

// New returns a Scanner ready to tokenize src. errHandler, if non-nil, is
// called once per lexical error encountered; scanning continues past the
// error and reports token.ILLEGAL for the offending token.
func New(src []byte, errHandler func(line int, msg string)) *Scanner {
	return &Scanner{src: src, err: errHandler, line: 1}
}

func (s *Scanner) isAtEnd() bool { return s.current >= len(s.src) }

func (s *Scanner) advance() byte {
	b := s.src[s.current]
	s.current++
	return b
}

// peek returns the next unread byte, or 0 at end of source.
func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.src[s.current]
}

// peekNext returns the byte after peek(), or 0 past end of source.
func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.src) {
		return 0
	}
	return s.src[s.current+1]
}

// advanceIf consumes the next byte and returns true if it equals want.
func (s *Scanner) advanceIf(want byte) bool {
	if s.isAtEnd() || s.src[s.current] != want {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) errorf(msg string) {
	if s.err != nil {
		s.err(s.line, msg)
	}
}

func (s *Scanner) lexeme() string { return string(s.src[s.start:s.current]) }

// Scan returns the next token and its decoded value. It returns
// token.EOF, repeatedly, once the source is exhausted.
func (s *Scanner) Scan() (token.Token, token.Value) {
	s.skipWhitespaceAndComments()
	s.start = s.current

	if s.isAtEnd() {
		return token.EOF, token.Value{Pos: token.Pos(s.line)}
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	pos := token.Pos(s.line)
	switch c {
	case '(':
		return s.tok(token.LPAREN, pos)
	case ')':
		return s.tok(token.RPAREN, pos)
	case '{':
		return s.tok(token.LBRACE, pos)
	case '}':
		return s.tok(token.RBRACE, pos)
	case ';':
		return s.tok(token.SEMI, pos)
	case ',':
		return s.tok(token.COMMA, pos)
	case '.':
		return s.tok(token.DOT, pos)
	case '-':
		return s.tok(token.MINUS, pos)
	case '+':
		return s.tok(token.PLUS, pos)
	case '/':
		return s.tok(token.SLASH, pos)
	case '*':
		return s.tok(token.STAR, pos)
	case '?':
		return s.tok(token.QMARK, pos)
	case ':':
		return s.tok(token.COLON, pos)
	case '!':
		if s.advanceIf('=') {
			return s.tok(token.BANG_EQ, pos)
		}
		return s.tok(token.BANG, pos)
	case '=':
		if s.advanceIf('=') {
			return s.tok(token.EQ_EQ, pos)
		}
		return s.tok(token.EQ, pos)
	case '<':
		if s.advanceIf('=') {
			return s.tok(token.LT_EQ, pos)
		}
		return s.tok(token.LT, pos)
	case '>':
		if s.advanceIf('=') {
			return s.tok(token.GT_EQ, pos)
		}
		return s.tok(token.GT, pos)
	case '"':
		return s.string()
	}

	s.errorf("unexpected character '" + string(c) + "'")
	return token.ILLEGAL, token.Value{Lexeme: string(c), Pos: pos}
}

func (s *Scanner) tok(tok token.Token, pos token.Pos) (token.Token, token.Value) {
	return tok, token.Value{Lexeme: s.lexeme(), Pos: pos}
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for s.peek() != '\n' && !s.isAtEnd() {
				s.advance()
			}
		default:
			return
		}
	}
}

func (s *Scanner) identifier() (token.Token, token.Value) {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}
	lit := s.lexeme()
	return token.LookupKeyword(lit), token.Value{Lexeme: lit, Pos: token.Pos(s.line)}
}

func (s *Scanner) number() (token.Token, token.Value) {
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}

	lit := s.lexeme()
	n, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		s.errorf("invalid number literal " + lit)
	}
	return token.NUMBER, token.Value{Lexeme: lit, Pos: token.Pos(s.line), Number: n}
}

// string scans a double-quoted literal. mire strings have no escape
// sequences: the closing quote is the first '"' after the opening one.
func (s *Scanner) string() (token.Token, token.Value) {
	startLine := s.line
	for s.peek() != '"' && !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.isAtEnd() {
		s.errorf("unterminated string")
		return token.ILLEGAL, token.Value{Lexeme: s.lexeme(), Pos: token.Pos(startLine)}
	}

	str := string(s.src[s.start+1 : s.current])
	s.advance() // closing quote
	return token.STRING, token.Value{Lexeme: s.lexeme(), Pos: token.Pos(startLine), Str: str}
}

func isAlpha(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c >= utf8.RuneSelf && unicode.IsLetter(rune(c))
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
