package diff

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// markupPrefixes mark a payload as an HTML document.
var markupPrefixes = []string{"<!doctype html", "<html", "<head", "<body"}

// voidElements never have an end tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// IsMarkup reports whether b looks like an HTML document.
func IsMarkup(b []byte) bool {
	b = bytes.TrimLeft(b, "\ufeff \t\r\n")
	head := strings.ToLower(string(b[:min(len(b), 32)]))
	for _, p := range markupPrefixes {
		if strings.HasPrefix(head, p) {
			return true
		}
	}
	return false
}

// NormalizeMarkup reformats an HTML document into one tag or text run per
// line, tab-indented by element depth. Inline scripts are reformatted with
// Normalize.
func NormalizeMarkup(src []byte) (string, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var b strings.Builder
	depth := 0
	inScript := false

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: %w", ErrNormalize, err)
			}
			return b.String(), nil

		case html.StartTagToken:
			tok := z.Token()
			writeIndented(&b, depth, tok.String())
			if !voidElements[tok.Data] {
				depth++
			}
			inScript = tok.Data == "script"

		case html.EndTagToken:
			tok := z.Token()
			if depth > 0 && !voidElements[tok.Data] {
				depth--
			}
			inScript = false
			writeIndented(&b, depth, tok.String())

		case html.SelfClosingTagToken, html.DoctypeToken, html.CommentToken:
			writeIndented(&b, depth, z.Token().String())

		case html.TextToken:
			text := string(z.Text())
			if inScript {
				if js, err := Normalize([]byte(text)); err == nil {
					for line := range strings.SplitSeq(js, "\n") {
						if strings.TrimSpace(line) != "" {
							writeIndented(&b, depth, line)
						}
					}
					continue
				}
			}
			for line := range strings.SplitSeq(text, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					writeIndented(&b, depth, line)
				}
			}
		}
	}
}

func writeIndented(b *strings.Builder, depth int, s string) {
	b.WriteString(strings.Repeat("\t", depth))
	b.WriteString(s)
	b.WriteByte('\n')
}
