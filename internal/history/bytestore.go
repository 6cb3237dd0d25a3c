package history

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/nao1215/changemon/internal/fingerprint"
	"github.com/nao1215/changemon/internal/model"
)

const (
	// ByteIndexFile is the name of the bytes-kind index document.
	ByteIndexFile = "jsmon.json"

	// PayloadDir is the directory holding one file per fingerprint.
	PayloadDir = "downloads"
)

// ByteStore is the bytes-kind ledger. It maps each target to the ordered
// list of fingerprints observed for it and keeps the raw body of every
// fingerprint in a payload file named by the fingerprint.
//
// Entries are only ever appended. When a retention limit is configured,
// the oldest entries of a target are dropped after an append and payload
// files no longer referenced by any target are removed.
type ByteStore struct {
	mu sync.Mutex

	// indexPath is the JSON document mapping target -> fingerprints.
	indexPath string

	// payloadDir holds the payload files.
	payloadDir string

	// keep is the per-target retention limit. Zero keeps everything.
	keep int

	// index is the committed in-memory copy of the document.
	index map[string][]model.Fingerprint

	logger *slog.Logger
}

// ByteStoreOption configures a ByteStore.
type ByteStoreOption func(*ByteStore)

// WithRetention keeps at most n fingerprints per target. Zero or a
// negative value keeps the full history.
func WithRetention(n int) ByteStoreOption {
	return func(s *ByteStore) {
		if n > 0 {
			s.keep = n
		}
	}
}

// WithByteStoreLogger sets a custom logger.
func WithByteStoreLogger(logger *slog.Logger) ByteStoreOption {
	return func(s *ByteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OpenByteStore opens the bytes-kind ledger rooted at dir.
// A missing index is an empty history; an unreadable one is ErrStoreCorrupt.
func OpenByteStore(dir string, opts ...ByteStoreOption) (*ByteStore, error) {
	s := &ByteStore{
		indexPath:  filepath.Join(dir, ByteIndexFile),
		payloadDir: filepath.Join(dir, PayloadDir),
		index:      make(map[string][]model.Fingerprint),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := readJSON(s.indexPath, &s.index); err != nil {
		return nil, err
	}
	if s.index == nil {
		s.index = make(map[string][]model.Fingerprint)
	}
	return s, nil
}

// Latest returns the most recent fingerprint of target.
// ok is false on the first-ever observation.
func (s *ByteStore) Latest(target model.Target) (fp model.Fingerprint, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.index[target.String()]
	if len(entries) == 0 {
		return "", false
	}
	return entries[len(entries)-1], true
}

// History returns a copy of the fingerprints of target, oldest first.
func (s *ByteStore) History(target model.Target) []model.Fingerprint {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.index[target.String()])
}

// Targets returns every target with a history, sorted.
func (s *ByteStore) Targets() []model.Target {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := make([]model.Target, 0, len(s.index))
	for _, key := range slices.Sorted(maps.Keys(s.index)) {
		targets = append(targets, model.Target(key))
	}
	return targets
}

// Append records fp as the newest fingerprint of target and stores body
// as its payload. The payload is written before the index so a committed
// index entry always has its body on disk.
func (s *ByteStore) Append(target model.Target, fp model.Fingerprint, body []byte) error {
	if !fingerprint.Valid(fp) {
		return fmt.Errorf("%w: %q", ErrInvalidFingerprint, fp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writePayload(fp, body); err != nil {
		return err
	}

	next := maps.Clone(s.index)
	entries := append(slices.Clone(next[target.String()]), fp)
	var dropped []model.Fingerprint
	if s.keep > 0 && len(entries) > s.keep {
		dropped = entries[:len(entries)-s.keep]
		entries = entries[len(entries)-s.keep:]
	}
	next[target.String()] = entries

	if err := writeJSONAtomic(s.indexPath, next); err != nil {
		return fmt.Errorf("failed to commit history for %s: %w", target, err)
	}
	s.index = next

	s.prune(dropped)
	return nil
}

// Payload returns the stored body of fp.
func (s *ByteStore) Payload(fp model.Fingerprint) ([]byte, error) {
	if !fingerprint.Valid(fp) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFingerprint, fp)
	}

	data, err := os.ReadFile(s.payloadPath(fp))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, fp)
		}
		return nil, fmt.Errorf("failed to read payload %s: %w", fp, err)
	}
	return data, nil
}

// PayloadSize returns the size of the stored body of fp, or 0 if absent.
func (s *ByteStore) PayloadSize(fp model.Fingerprint) int64 {
	if !fingerprint.Valid(fp) {
		return 0
	}
	info, err := os.Stat(s.payloadPath(fp))
	if err != nil {
		return 0
	}
	return info.Size()
}

// writePayload stores body under fp unless a payload already exists.
// Equal fingerprints mean equal content, so an existing file is kept.
func (s *ByteStore) writePayload(fp model.Fingerprint, body []byte) error {
	path := s.payloadPath(fp)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := writeFileAtomic(path, body, 0600); err != nil {
		return fmt.Errorf("failed to store payload %s: %w", fp, err)
	}
	return nil
}

// prune removes payload files of dropped fingerprints that no target
// references any more. Must be called with s.mu held.
func (s *ByteStore) prune(dropped []model.Fingerprint) {
	if len(dropped) == 0 {
		return
	}

	referenced := make(map[model.Fingerprint]bool)
	for _, entries := range s.index {
		for _, fp := range entries {
			referenced[fp] = true
		}
	}

	for _, fp := range dropped {
		if referenced[fp] {
			continue
		}
		if err := os.Remove(s.payloadPath(fp)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove expired payload", "fingerprint", fp, "error", err)
			continue
		}
		s.logger.Debug("removed expired payload", "fingerprint", fp)
	}
}

func (s *ByteStore) payloadPath(fp model.Fingerprint) string {
	return filepath.Join(s.payloadDir, fp.String())
}
