package lexer

import (
	"strings"

	"github.com/funvibe/july/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	line, col := l.line, l.column
	var tok token.Token

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = newToken(token.EQ, "==", line, col)
		} else {
			tok = newToken(token.ASSIGN, "=", line, col)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = newToken(token.NOT_EQ, "!=", line, col)
		} else {
			tok = newToken(token.BANG, "!", line, col)
		}
	case '+':
		tok = newToken(token.PLUS, "+", line, col)
	case '-':
		tok = newToken(token.MINUS, "-", line, col)
	case '*':
		tok = newToken(token.ASTERISK, "*", line, col)
	case '/':
		tok = newToken(token.SLASH, "/", line, col)
	case '<':
		tok = newToken(token.LT, "<", line, col)
	case '>':
		tok = newToken(token.GT, ">", line, col)
	case ',':
		tok = newToken(token.COMMA, ",", line, col)
	case ';':
		tok = newToken(token.SEMICOLON, ";", line, col)
	case ':':
		tok = newToken(token.COLON, ":", line, col)
	case '(':
		tok = newToken(token.LPAREN, "(", line, col)
	case ')':
		tok = newToken(token.RPAREN, ")", line, col)
	case '{':
		tok = newToken(token.LBRACE, "{", line, col)
	case '}':
		tok = newToken(token.RBRACE, "}", line, col)
	case '[':
		tok = newToken(token.LBRACKET, "[", line, col)
	case ']':
		tok = newToken(token.RBRACKET, "]", line, col)
	case '"':
		str, ok := l.readString()
		if !ok {
			return newToken(token.ILLEGAL, "unterminated string", line, col)
		}
		return newToken(token.STRING, str, line, col)
	case 0:
		return newToken(token.EOF, "", line, col)
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			return newToken(token.LookupIdent(ident), ident, line, col)
		} else if isDigit(l.ch) {
			return newToken(token.INT, l.readNumber(), line, col)
		}
		tok = newToken(token.ILLEGAL, string(l.ch), line, col)
	}

	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readString consumes a double-quoted literal, including both quotes, and
// returns its unescaped contents.
func (l *Lexer) readString() (string, bool) {
	var out strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case '"':
			l.readChar()
			return out.String(), true
		case 0:
			return "", false
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			case 'r':
				out.WriteByte('\r')
			case '"':
				out.WriteByte('"')
			case '\\':
				out.WriteByte('\\')
			case 0:
				return "", false
			default:
				out.WriteByte('\\')
				out.WriteByte(l.ch)
			}
		default:
			out.WriteByte(l.ch)
		}
	}
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func newToken(tokenType token.TokenType, literal string, line, col int) token.Token {
	return token.Token{Type: tokenType, Literal: literal, Line: line, Column: col}
}
