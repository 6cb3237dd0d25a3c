package diff

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// ErrNormalize is returned when the input cannot be tokenized.
// Callers fall back to the raw text.
var ErrNormalize = errors.New("failed to normalize source")

// Normalize reformats JavaScript-like source into one statement per line,
// tab-indented by block depth, with canonical spacing between tokens.
// Line breaks of the source are kept as soft breaks, so already formatted
// code keeps its shape while minified code is expanded at braces and
// semicolons.
func Normalize(src []byte) (string, error) {
	l := js.NewLexer(parse.NewInputBytes(src))
	f := &formatter{}

	for {
		tt, data := l.Next()
		switch tt {
		case js.ErrorToken:
			if err := l.Err(); !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: %w", ErrNormalize, err)
			}
			return f.String(), nil
		case js.WhitespaceToken:
			continue
		case js.LineTerminatorToken:
			f.softBreak()
			continue
		case js.CommentToken, js.CommentLineTerminatorToken:
			f.comment(data)
			continue
		case js.DivToken, js.DivEqToken:
			if !f.prevValue {
				tt, data = l.RegExp()
				if tt == js.ErrorToken {
					return "", fmt.Errorf("%w: %w", ErrNormalize, l.Err())
				}
			}
		}
		f.token(tt, data)
	}
}

// formatter accumulates normalized output one token at a time.
type formatter struct {
	out strings.Builder

	// line is the current line without its indentation.
	line []byte
	// lineIndent is the depth the current line was started at.
	lineIndent int
	indent     int

	// stack holds the open brackets: '{', '(' or '['.
	stack []byte

	prev       js.TokenType
	prevValue  bool
	prevUnary  bool
	breakNext  bool
	afterBrace bool
}

func (f *formatter) String() string {
	f.flush()
	return f.out.String()
}

// flush ends the current line.
func (f *formatter) flush() {
	if len(f.line) == 0 {
		return
	}
	f.out.WriteString(strings.Repeat("\t", f.lineIndent))
	f.out.Write(f.line)
	f.out.WriteByte('\n')
	f.line = f.line[:0]
}

func (f *formatter) softBreak() {
	if len(f.line) > 0 {
		f.breakNext = true
	}
}

func (f *formatter) write(data []byte, space bool) {
	if f.breakNext {
		f.flush()
		f.breakNext = false
	}
	if len(f.line) == 0 {
		f.lineIndent = f.indent
	} else if space {
		f.line = append(f.line, ' ')
	}
	f.line = append(f.line, data...)
}

func (f *formatter) comment(data []byte) {
	f.write(data, true)
	if strings.HasPrefix(string(data), "//") || strings.ContainsAny(string(data), "\r\n") {
		f.breakNext = true
	}
}

func (f *formatter) top() byte {
	if len(f.stack) == 0 {
		return 0
	}
	return f.stack[len(f.stack)-1]
}

func (f *formatter) pop(open byte) {
	if f.top() == open {
		f.stack = f.stack[:len(f.stack)-1]
	}
}

func (f *formatter) token(tt js.TokenType, data []byte) {
	if f.afterBrace {
		f.afterBrace = false
		if joinsBrace(tt) {
			f.breakNext = false
		}
	}

	unary := false
	switch tt {
	case js.OpenBraceToken:
		f.write(data, f.space(tt))
		f.stack = append(f.stack, '{')
		f.indent++
		f.breakNext = true
	case js.CloseBraceToken:
		f.pop('{')
		if f.indent > 0 {
			f.indent--
		}
		if f.prev != js.OpenBraceToken {
			f.flush()
		}
		f.breakNext = false
		f.write(data, false)
		f.breakNext = true
		f.afterBrace = true
	case js.OpenParenToken, js.OpenBracketToken:
		f.write(data, f.space(tt))
		f.stack = append(f.stack, data[0])
	case js.CloseParenToken:
		f.pop('(')
		f.write(data, false)
	case js.CloseBracketToken:
		f.pop('[')
		f.write(data, false)
	case js.SemicolonToken:
		f.write(data, false)
		if f.top() != '(' {
			f.breakNext = true
		}
	case js.CommaToken:
		f.write(data, false)
		if f.top() == '{' {
			f.breakNext = true
		}
	case js.AddToken, js.SubToken, js.IncrToken, js.DecrToken:
		unary = !f.prevValue
		if (tt == js.IncrToken || tt == js.DecrToken) && f.prevValue {
			// postfix
			f.write(data, false)
			f.prev, f.prevValue, f.prevUnary = tt, true, false
			return
		}
		f.write(data, f.space(tt))
	case js.NotToken, js.BitNotToken:
		unary = true
		f.write(data, f.space(tt))
	default:
		f.write(data, f.space(tt))
	}

	f.prevValue = isValue(tt) || (js.IsIdentifierName(tt) && (f.prev == js.DotToken || f.prev == js.OptChainToken))
	f.prevUnary = unary
	f.prev = tt
}

// space reports whether a space separates the previous token from tt.
func (f *formatter) space(tt js.TokenType) bool {
	if f.prevUnary {
		return false
	}
	switch f.prev {
	case js.OpenParenToken, js.OpenBracketToken, js.DotToken, js.OptChainToken,
		js.EllipsisToken, js.TemplateStartToken, js.TemplateMiddleToken:
		return false
	}
	switch tt {
	case js.DotToken, js.OptChainToken, js.ColonToken,
		js.TemplateMiddleToken, js.TemplateEndToken:
		return false
	case js.OpenParenToken:
		return js.IsReservedWord(f.prev) && !isValue(f.prev) && f.prev != js.FunctionToken && f.prev != js.ImportToken
	case js.OpenBracketToken:
		return !f.prevValue
	}
	return true
}

// isValue reports whether tt can end an expression operand. A slash after
// such a token is division; anywhere else it starts a regular expression.
func isValue(tt js.TokenType) bool {
	if js.IsIdentifier(tt) || js.IsNumeric(tt) {
		return true
	}
	switch tt {
	case js.StringToken, js.RegExpToken, js.TemplateToken, js.TemplateEndToken,
		js.CloseParenToken, js.CloseBracketToken, js.CloseBraceToken,
		js.ThisToken, js.SuperToken, js.TrueToken, js.FalseToken, js.NullToken,
		js.PrivateIdentifierToken:
		return true
	}
	return false
}

// joinsBrace reports whether tt continues the line of a preceding '}'.
func joinsBrace(tt js.TokenType) bool {
	switch tt {
	case js.SemicolonToken, js.CommaToken, js.CloseParenToken, js.CloseBracketToken,
		js.DotToken, js.OptChainToken, js.ElseToken, js.CatchToken, js.FinallyToken:
		return true
	}
	return false
}
