package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/changemon/internal/model"
)

// TestSetStore tests the set-kind ledger.
func TestSetStore(t *testing.T) {
	t.Parallel()

	domain := model.Target("example.com")

	t.Run("first observation has no record", func(t *testing.T) {
		t.Parallel()

		store, err := OpenSetStore(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := store.Latest(domain); ok {
			t.Error("expected no record")
		}
	})

	t.Run("replace survives reopen", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store, err := OpenSetStore(dir)
		if err != nil {
			t.Fatal(err)
		}

		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		snap := model.NewSetSnapshot([]string{"b.example.com", "a.example.com"}, at)
		if err := store.Replace(domain, snap); err != nil {
			t.Fatalf("Replace() error: %v", err)
		}

		reopened, err := OpenSetStore(dir)
		if err != nil {
			t.Fatal(err)
		}
		got, ok := reopened.Latest(domain)
		if !ok {
			t.Fatal("expected a record after reopen")
		}
		if !got.Equal(snap) {
			t.Errorf("Latest() members = %v, want %v", got.Members, snap.Members)
		}
		if !got.CapturedAt.Equal(at) {
			t.Errorf("CapturedAt = %v, want %v", got.CapturedAt, at)
		}

		record, _ := reopened.Record(domain)
		if record.Count != 2 {
			t.Errorf("Count = %d, want 2", record.Count)
		}
	})

	t.Run("empty set is stored as an empty list", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		store, err := OpenSetStore(dir)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Replace(domain, model.NewSetSnapshot(nil, time.Now())); err != nil {
			t.Fatal(err)
		}

		data, err := os.ReadFile(filepath.Join(dir, SetIndexFile))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"subdomains": []`) {
			t.Errorf("expected empty subdomains list, got %s", data)
		}
	})

	t.Run("reads naive ISO timestamps", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		legacy := `{"example.com": {"timestamp": "2024-03-04T05:06:07.123456", "subdomains": ["a.example.com"], "count": 1}}`
		if err := os.WriteFile(filepath.Join(dir, SetIndexFile), []byte(legacy), 0600); err != nil {
			t.Fatal(err)
		}

		store, err := OpenSetStore(dir)
		if err != nil {
			t.Fatal(err)
		}
		record, ok := store.Record(domain)
		if !ok {
			t.Fatal("expected legacy record")
		}
		want := time.Date(2024, 3, 4, 5, 6, 7, 123456000, time.UTC)
		if !record.CapturedAt().Equal(want) {
			t.Errorf("CapturedAt() = %v, want %v", record.CapturedAt(), want)
		}
	})

	t.Run("corrupt file is reported", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, SetIndexFile), []byte(`["wrong shape"]`), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := OpenSetStore(dir); !errors.Is(err, ErrStoreCorrupt) {
			t.Errorf("expected ErrStoreCorrupt, got %v", err)
		}
	})

	t.Run("targets are sorted", func(t *testing.T) {
		t.Parallel()

		store, err := OpenSetStore(t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		for _, d := range []model.Target{"zeta.org", "alpha.org"} {
			if err := store.Replace(d, model.NewSetSnapshot([]string{"www." + d.String()}, time.Now())); err != nil {
				t.Fatal(err)
			}
		}
		want := []model.Target{"alpha.org", "zeta.org"}
		if got := store.Targets(); !slices.Equal(got, want) {
			t.Errorf("Targets() = %v, want %v", got, want)
		}
	})
}

// TestSetStoreConcurrentReplace tests that concurrent replaces lose no update.
func TestSetStoreConcurrentReplace(t *testing.T) {
	t.Parallel()

	const writers = 50

	dir := t.TempDir()
	store, err := OpenSetStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			domain := model.Target(fmt.Sprintf("example%d.com", i))
			snap := model.NewSetSnapshot([]string{fmt.Sprintf("www.example%d.com", i)}, at)
			errs <- store.Replace(domain, snap)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Replace() error: %v", err)
		}
	}

	reopened, err := OpenSetStore(dir)
	if err != nil {
		t.Fatalf("failed to reopen: %v", err)
	}
	if got := len(reopened.Targets()); got != writers {
		t.Fatalf("reopened store has %d targets, want %d", got, writers)
	}
	for i := range writers {
		domain := model.Target(fmt.Sprintf("example%d.com", i))
		snap, ok := reopened.Latest(domain)
		if !ok {
			t.Errorf("no record for %s after reopen", domain)
			continue
		}
		want := []string{fmt.Sprintf("www.example%d.com", i)}
		if !slices.Equal(snap.Members, want) {
			t.Errorf("Latest(%s) members = %v, want %v", domain, snap.Members, want)
		}
	}
}

// TestParseTimestamp tests lenient timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "RFC3339", input: "2024-01-02T03:04:05Z"},
		{name: "RFC3339 with offset", input: "2024-01-02T03:04:05+09:00"},
		{name: "naive with micros", input: "2024-01-02T03:04:05.000001"},
		{name: "naive", input: "2024-01-02T03:04:05"},
		{name: "sqlite", input: "2024-01-02 03:04:05"},
		{name: "garbage", input: "yesterday", zero: true},
		{name: "empty", input: "", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v, zero want %v", tt.input, got, tt.zero)
			}
		})
	}
}
