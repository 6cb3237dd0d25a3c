package model

import "fmt"

// Kind identifies which monitor a target belongs to.
// The two monitors never share state.
type Kind string

const (
	// KindBytes monitors the raw bytes served at a URL (scripts, pages).
	KindBytes Kind = "bytes"

	// KindSet monitors the set of subdomains discovered for a domain.
	KindSet Kind = "set"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindBytes || k == KindSet
}

// ParseKind converts a user-supplied string into a Kind.
// "subs" and "subdomains" are accepted as aliases of the set kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "bytes", "js", "endpoints":
		return KindBytes, nil
	case "set", "subs", "subdomains":
		return KindSet, nil
	default:
		return "", fmt.Errorf("unknown monitor kind %q", s)
	}
}

// Target is one monitored resource identifier: a URL for the bytes kind
// or a bare domain for the set kind. Targets are validated by the targets
// package before they reach the pipeline and are immutable afterwards.
type Target string

// String returns the target identifier.
func (t Target) String() string {
	return string(t)
}
