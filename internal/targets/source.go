package targets

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/changemon/internal/model"
)

// Rejected is a target line that failed validation.
type Rejected struct {
	// Raw is the trimmed line.
	Raw string
	// File is the file the line was read from.
	File string
	// Line is the 1-based line number.
	Line int
	// Err wraps ErrInvalidTarget.
	Err error
}

// List is the result of loading a target directory.
type List struct {
	// Targets are the valid targets in file order, without duplicates.
	Targets []model.Target
	// Rejected are the lines that failed validation.
	Rejected []Rejected
}

// Source loads targets of one kind from a directory.
type Source struct {
	dir    string
	kind   model.Kind
	logger *slog.Logger
}

// NewSource creates a Source reading dir.
func NewSource(dir string, kind model.Kind, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{dir: dir, kind: kind, logger: logger}
}

// Dir returns the target directory.
func (s *Source) Dir() string {
	return s.dir
}

// Load reads every visible file of the directory in name order. A missing
// directory is created and yields an empty list.
func (s *Source) Load() (*List, error) {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create target directory %s: %w", s.dir, err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read target directory %s: %w", s.dir, err)
	}

	list := &List{Targets: []model.Target{}}
	seen := make(map[model.Target]bool)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") || entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if err := s.loadFile(path, list, seen); err != nil {
			return nil, err
		}
	}

	s.logger.Debug("loaded targets", "dir", s.dir, "kind", s.kind,
		"targets", len(list.Targets), "rejected", len(list.Rejected))
	return list, nil
}

func (s *Source) loadFile(path string, list *List, seen map[model.Target]bool) error {
	f, err := os.Open(path) //nolint:gosec // path is inside the configured target directory
	if err != nil {
		return fmt.Errorf("failed to open target file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		target, err := Validate(s.kind, line)
		if err != nil {
			list.Rejected = append(list.Rejected, Rejected{Raw: line, File: path, Line: lineNo, Err: err})
			continue
		}
		if seen[target] {
			continue
		}
		seen[target] = true
		list.Targets = append(list.Targets, target)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read target file %s: %w", path, err)
	}
	return nil
}
