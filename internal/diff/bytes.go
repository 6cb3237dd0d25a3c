package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// ByteDiff is the line delta between two byte payloads.
type ByteDiff struct {
	// OldLines and NewLines are the compared lines, newline-terminated.
	OldLines []string
	NewLines []string

	// Ops are the edit operations turning OldLines into NewLines.
	Ops []difflib.OpCode

	// Added and Removed count inserted and deleted lines.
	Added   int
	Removed int

	// Normalized is false when either side was diffed as raw text
	// because it could not be reformatted.
	Normalized bool
}

// Changed reports whether any line differs.
func (d *ByteDiff) Changed() bool {
	return d.Added > 0 || d.Removed > 0
}

// Option configures Bytes.
type Option func(*options)

type options struct {
	normalize bool
}

// WithoutNormalize compares the payloads without reformatting them.
func WithoutNormalize() Option {
	return func(o *options) {
		o.normalize = false
	}
}

// Bytes computes the line diff between two payloads. Both payloads are
// normalized first; a payload that fails to normalize is compared as raw
// text instead, which never aborts the diff.
func Bytes(oldBody, newBody []byte, opts ...Option) *ByteDiff {
	o := options{normalize: true}
	for _, opt := range opts {
		opt(&o)
	}

	oldText, oldOK := prepare(oldBody, o.normalize)
	newText, newOK := prepare(newBody, o.normalize)

	d := &ByteDiff{
		OldLines:   splitLines(oldText),
		NewLines:   splitLines(newText),
		Normalized: o.normalize && oldOK && newOK,
	}
	d.Ops = difflib.NewMatcher(d.OldLines, d.NewLines).GetOpCodes()
	for _, op := range d.Ops {
		switch op.Tag {
		case 'r':
			d.Removed += op.I2 - op.I1
			d.Added += op.J2 - op.J1
		case 'd':
			d.Removed += op.I2 - op.I1
		case 'i':
			d.Added += op.J2 - op.J1
		}
	}
	return d
}

// prepare decodes and optionally normalizes a payload, as markup when it
// looks like an HTML document and as script otherwise. ok is false when
// normalization was requested but failed.
func prepare(b []byte, normalize bool) (text string, ok bool) {
	text = decodeText(b)
	if !normalize {
		return text, true
	}
	format := Normalize
	if IsMarkup([]byte(text)) {
		format = NormalizeMarkup
	}
	formatted, err := format([]byte(text))
	if err != nil {
		return text, false
	}
	return formatted, true
}

// Unified renders d as a unified diff with the given number of context lines.
func Unified(d *ByteDiff, from, to string, context int) (string, error) {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        d.OldLines,
		B:        d.NewLines,
		FromFile: from,
		ToFile:   to,
		Context:  context,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render unified diff: %w", err)
	}
	return text, nil
}
