package model

import (
	"slices"
	"time"
)

// Snapshot is the observed state of a target at one capture instant.
type Snapshot interface {
	// Kind returns the monitor kind this snapshot belongs to.
	Kind() Kind

	// Size returns the byte length (bytes kind) or member count (set kind).
	Size() int
}

// ByteSnapshot is an opaque byte sequence fetched from a URL.
type ByteSnapshot struct {
	// Body is the raw response body.
	Body []byte

	// CapturedAt is when the body was fetched.
	CapturedAt time.Time
}

// NewByteSnapshot creates a ByteSnapshot captured now.
func NewByteSnapshot(body []byte) *ByteSnapshot {
	return &ByteSnapshot{Body: body, CapturedAt: time.Now()}
}

// Kind returns KindBytes.
func (s *ByteSnapshot) Kind() Kind { return KindBytes }

// Size returns the body length in bytes.
func (s *ByteSnapshot) Size() int { return len(s.Body) }

// SetSnapshot is a set of discovered names. Members are kept sorted and
// unique so two snapshots compare by value with Equal.
type SetSnapshot struct {
	// Members is the sorted, de-duplicated member list.
	Members []string

	// CapturedAt is when the set was captured.
	CapturedAt time.Time
}

// NewSetSnapshot creates a SetSnapshot from an arbitrary name list.
// Empty names are dropped; duplicates are collapsed.
func NewSetSnapshot(members []string, capturedAt time.Time) *SetSnapshot {
	sorted := make([]string, 0, len(members))
	for _, m := range members {
		if m != "" {
			sorted = append(sorted, m)
		}
	}
	slices.Sort(sorted)
	return &SetSnapshot{
		Members:    slices.Compact(sorted),
		CapturedAt: capturedAt,
	}
}

// Kind returns KindSet.
func (s *SetSnapshot) Kind() Kind { return KindSet }

// Size returns the number of members.
func (s *SetSnapshot) Size() int { return len(s.Members) }

// Contains reports whether name is a member.
func (s *SetSnapshot) Contains(name string) bool {
	_, found := slices.BinarySearch(s.Members, name)
	return found
}

// Equal reports whether both snapshots hold exactly the same members.
// The capture time is not part of the comparison.
func (s *SetSnapshot) Equal(other *SetSnapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return slices.Equal(s.Members, other.Members)
}

// Fingerprint is a short deterministic digest identifying the content of a
// ByteSnapshot. It is an identity token, not a security boundary.
type Fingerprint string

// String returns the fingerprint text.
func (f Fingerprint) String() string {
	return string(f)
}
