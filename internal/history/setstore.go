package history

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/changemon/internal/model"
)

// SetIndexFile is the name of the set-kind state document.
const SetIndexFile = "submon.json"

// timestampFormats lists the accepted capture time layouts, newest first.
// Naive ISO timestamps without a zone are read as UTC.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// SetRecord is the stored state of one set-kind target.
type SetRecord struct {
	// Timestamp is the capture time of the set.
	Timestamp string `json:"timestamp"`

	// Subdomains is the sorted member list.
	Subdomains []string `json:"subdomains"`

	// Count is len(Subdomains), kept for readers of the raw file.
	Count int `json:"count"`
}

// CapturedAt parses Timestamp. An unparsable value yields the zero time.
func (r SetRecord) CapturedAt() time.Time {
	return parseTimestamp(r.Timestamp)
}

// Snapshot converts the record back into a SetSnapshot.
func (r SetRecord) Snapshot() *model.SetSnapshot {
	return model.NewSetSnapshot(r.Subdomains, r.CapturedAt())
}

// SetStore is the set-kind ledger. Each target holds only its most recent
// member set; Replace overwrites it wholesale.
type SetStore struct {
	mu      sync.Mutex
	path    string
	records map[string]SetRecord
}

// OpenSetStore opens the set-kind ledger rooted at dir.
// A missing file is an empty history; an unreadable one is ErrStoreCorrupt.
func OpenSetStore(dir string) (*SetStore, error) {
	s := &SetStore{
		path:    filepath.Join(dir, SetIndexFile),
		records: make(map[string]SetRecord),
	}
	if _, err := readJSON(s.path, &s.records); err != nil {
		return nil, err
	}
	if s.records == nil {
		s.records = make(map[string]SetRecord)
	}
	return s, nil
}

// Latest returns the stored set of target. ok is false on the first-ever
// observation.
func (s *SetStore) Latest(target model.Target) (snap *model.SetSnapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[target.String()]
	if !ok {
		return nil, false
	}
	return record.Snapshot(), true
}

// Record returns the raw stored record of target.
func (s *SetStore) Record(target model.Target) (SetRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[target.String()]
	return record, ok
}

// Targets returns every target with a stored set, sorted.
func (s *SetStore) Targets() []model.Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]model.Target, 0, len(s.records))
	for _, key := range slices.Sorted(maps.Keys(s.records)) {
		targets = append(targets, model.Target(key))
	}
	return targets
}

// Replace commits snap as the current set of target. The in-memory state
// changes only after the document is durably written.
func (s *SetStore) Replace(target model.Target, snap *model.SetSnapshot) error {
	if snap == nil {
		return fmt.Errorf("nil snapshot for %s", target)
	}

	capturedAt := snap.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	members := slices.Clone(snap.Members)
	if members == nil {
		members = []string{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := maps.Clone(s.records)
	next[target.String()] = SetRecord{
		Timestamp:  capturedAt.UTC().Format(time.RFC3339Nano),
		Subdomains: members,
		Count:      len(members),
	}
	if err := writeJSONAtomic(s.path, next); err != nil {
		return fmt.Errorf("failed to commit history for %s: %w", target, err)
	}
	s.records = next
	return nil
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
