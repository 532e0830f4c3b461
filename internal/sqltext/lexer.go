package sqltext

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType classifies a lexical token.
type TokenType int

const (
	EOF TokenType = iota
	Ident
	Keyword
	Number
	String
	Symbol
	Param
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case Ident:
		return "identifier"
	case Keyword:
		return "keyword"
	case Number:
		return "number"
	case String:
		return "string"
	case Symbol:
		return "symbol"
	case Param:
		return "parameter"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// Token is a single lexical unit of a SQL statement.
//
// Val holds the decoded value: keywords upper-cased, identifiers with quotes
// removed and case preserved, string literals unescaped. Pos and End are
// byte offsets into the original text so callers can cut the statement
// without re-rendering it.
type Token struct {
	Type TokenType
	Val  string
	Pos  int
	End  int

	// Ordinal is the zero-based index of a '?' placeholder.
	Ordinal int

	// Quoted marks identifiers written as "x", `x` or [x].
	Quoted bool
}

// Is reports whether the token is the given keyword or symbol.
func (t Token) Is(val string) bool {
	return (t.Type == Keyword || t.Type == Symbol) && t.Val == val
}

var keywords = map[string]bool{
	"ALL": true, "AND": true, "AS": true, "ASC": true, "BETWEEN": true,
	"BY": true, "CASE": true, "CROSS": true, "DESC": true, "DISTINCT": true,
	"ELSE": true, "END": true, "EXCEPT": true, "EXISTS": true, "FALSE": true,
	"FETCH": true, "FROM": true, "FULL": true, "GROUP": true, "HAVING": true,
	"IN": true, "INNER": true, "INTERSECT": true, "IS": true, "JOIN": true,
	"LEFT": true, "LIKE": true, "LIMIT": true, "NATURAL": true, "NOT": true,
	"NULL": true, "OFFSET": true, "ON": true, "OR": true, "ORDER": true,
	"OUTER": true, "RIGHT": true, "SELECT": true, "THEN": true, "TRUE": true,
	"UNION": true, "USING": true, "WHEN": true, "WHERE": true, "WINDOW": true,
	"FOR": true,
}

// Tokenize splits a SQL statement into tokens. Whitespace and comments are
// dropped. The final token is always EOF.
func Tokenize(sql string) ([]Token, error) {
	lx := &lexer{s: sql}
	var out []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Type == EOF {
			return out, nil
		}
	}
}

type lexer struct {
	s      string
	pos    int
	params int
}

func (lx *lexer) peekAt(off int) byte {
	if lx.pos+off >= len(lx.s) {
		return 0
	}
	return lx.s[lx.pos+off]
}

func (lx *lexer) skipSpaceAndComments() {
	for lx.pos < len(lx.s) {
		r, size := utf8.DecodeRuneInString(lx.s[lx.pos:])
		switch {
		case unicode.IsSpace(r):
			lx.pos += size
		case r == '-' && lx.peekAt(1) == '-':
			for lx.pos < len(lx.s) && lx.s[lx.pos] != '\n' {
				lx.pos++
			}
		case r == '/' && lx.peekAt(1) == '*':
			end := strings.Index(lx.s[lx.pos+2:], "*/")
			if end < 0 {
				lx.pos = len(lx.s)
			} else {
				lx.pos += end + 4
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (Token, error) {
	lx.skipSpaceAndComments()
	start := lx.pos
	if start >= len(lx.s) {
		return Token{Type: EOF, Pos: start, End: start}, nil
	}

	r, _ := utf8.DecodeRuneInString(lx.s[start:])
	switch {
	case r == '\'':
		return lx.quoted(start, '\'', String)
	case r == '"':
		return lx.quoted(start, '"', Ident)
	case r == '`':
		return lx.quoted(start, '`', Ident)
	case r == '[':
		return lx.quoted(start, ']', Ident)
	case r == '?':
		lx.pos++
		tok := Token{Type: Param, Val: "?", Pos: start, End: lx.pos, Ordinal: lx.params}
		lx.params++
		return tok, nil
	case (r < utf8.RuneSelf && isDigit(byte(r))) || (r == '.' && isDigit(lx.peekAt(1))):
		return lx.number(start), nil
	case unicode.IsLetter(r) || r == '_':
		return lx.word(start), nil
	default:
		return lx.symbol(start)
	}
}

// quoted reads a string literal or quoted identifier. A doubled closing
// quote inside the literal stands for one quote character.
func (lx *lexer) quoted(start int, closing byte, typ TokenType) (Token, error) {
	lx.pos++ // opening quote
	var val strings.Builder
	for lx.pos < len(lx.s) {
		ch := lx.s[lx.pos]
		if ch == closing {
			if lx.peekAt(1) == closing {
				val.WriteByte(closing)
				lx.pos += 2
				continue
			}
			lx.pos++
			return Token{Type: typ, Val: val.String(), Pos: start, End: lx.pos, Quoted: typ == Ident}, nil
		}
		val.WriteByte(ch)
		lx.pos++
	}
	return Token{}, fmt.Errorf("unterminated %s starting at offset %d", typ, start)
}

func (lx *lexer) number(start int) Token {
	seenDot, seenExp := false, false
	for lx.pos < len(lx.s) {
		ch := lx.s[lx.pos]
		switch {
		case isDigit(ch):
			lx.pos++
		case ch == '.' && !seenDot && !seenExp:
			seenDot = true
			lx.pos++
		case (ch == 'e' || ch == 'E') && !seenExp:
			next := lx.peekAt(1)
			if isDigit(next) || ((next == '+' || next == '-') && isDigit(lx.peekAt(2))) {
				seenExp = true
				lx.pos += 2
				continue
			}
			return Token{Type: Number, Val: lx.s[start:lx.pos], Pos: start, End: lx.pos}
		default:
			return Token{Type: Number, Val: lx.s[start:lx.pos], Pos: start, End: lx.pos}
		}
	}
	return Token{Type: Number, Val: lx.s[start:lx.pos], Pos: start, End: lx.pos}
}

func (lx *lexer) word(start int) Token {
	for lx.pos < len(lx.s) {
		r, size := utf8.DecodeRuneInString(lx.s[lx.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			break
		}
		lx.pos += size
	}
	word := lx.s[start:lx.pos]
	if up := strings.ToUpper(word); keywords[up] {
		return Token{Type: Keyword, Val: up, Pos: start, End: lx.pos}
	}
	return Token{Type: Ident, Val: word, Pos: start, End: lx.pos}
}

var twoCharSymbols = []string{"<=", ">=", "<>", "!=", "==", "||", "::"}

func (lx *lexer) symbol(start int) (Token, error) {
	for _, sym := range twoCharSymbols {
		if strings.HasPrefix(lx.s[start:], sym) {
			lx.pos += 2
			return Token{Type: Symbol, Val: sym, Pos: start, End: lx.pos}, nil
		}
	}
	ch := lx.s[start]
	if strings.IndexByte("(),.;*=<>+-/%", ch) < 0 {
		return Token{}, fmt.Errorf("unexpected character %q at offset %d", ch, start)
	}
	lx.pos++
	return Token{Type: Symbol, Val: string(ch), Pos: start, End: lx.pos}, nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
