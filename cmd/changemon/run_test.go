package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/changemon/internal/config"
	"github.com/nao1215/changemon/internal/history"
	"github.com/nao1215/changemon/internal/model"
)

// noEnv is an environment without any variable set.
func noEnv(string) (string, bool) { return "", false }

// writeConfig writes a configuration file so that tests never read the
// user's own file.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "changemon.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeTargets writes one target list file and returns its directory.
func writeTargets(t *testing.T, lines ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "targets")
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatal(err)
	}
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "list.txt"), []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir
}

// execute runs the root command with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// bodyServer serves a script whose content can be replaced.
type bodyServer struct {
	*httptest.Server
	mu   sync.Mutex
	body string
}

func newBodyServer(t *testing.T, body string) *bodyServer {
	t.Helper()
	s := &bodyServer{body: body}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, s.body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *bodyServer) set(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

func TestMonitorCommands(t *testing.T) {
	t.Parallel()

	t.Run("bytes has monitor flags", func(t *testing.T) {
		t.Parallel()
		cmd := NewBytesCmd()
		for _, name := range []string{"config", "webhook", "targets", "state-dir", "timeout",
			"concurrency", "proxy", "dry-run", "summary", "every", "watch", "no-journal",
			"retention", "max-body-size", "algorithm"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
		if cmd.Flags().Lookup("tool") != nil {
			t.Error("bytes must not have a tool flag")
		}
		if def := cmd.Flags().Lookup("targets").DefValue; def != config.DefaultByteTargetsDir {
			t.Errorf("targets default = %q, want %q", def, config.DefaultByteTargetsDir)
		}
	})

	t.Run("subs has source flags", func(t *testing.T) {
		t.Parallel()
		cmd := NewSubsCmd()
		for _, name := range []string{"tool", "no-crtsh", "crtsh-url", "reports-dir"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
		if cmd.Flags().Lookup("retention") != nil {
			t.Error("subs must not have a retention flag")
		}
		if def := cmd.Flags().Lookup("targets").DefValue; def != config.DefaultSetTargetsDir {
			t.Errorf("targets default = %q, want %q", def, config.DefaultSetTargetsDir)
		}
	})
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	file := writeConfig(t, `
concurrency: 5
user_agent: file-agent
webhook: https://hooks.example.com/shared
bytes:
  retention: 4
  timeout: 5s
subs:
  webhook: https://hooks.example.com/subs
  crtsh: false
  tools:
    - tool-a {domain}
`)

	t.Run("flags win over file and environment", func(t *testing.T) {
		t.Parallel()
		cmd := NewBytesCmd()
		if err := cmd.ParseFlags([]string{"-c", file, "--concurrency", "3", "--dry-run"}); err != nil {
			t.Fatal(err)
		}
		lookup := func(key string) (string, bool) {
			if key == config.EnvWebhook {
				return "https://hooks.example.com/env", true
			}
			return "", false
		}

		cfg, err := buildConfig(cmd, model.KindBytes, lookup)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.Concurrency != 3 {
			t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
		}
		if cfg.UserAgent != "file-agent" {
			t.Errorf("UserAgent = %q, want file-agent", cfg.UserAgent)
		}
		if cfg.Retention != 4 {
			t.Errorf("Retention = %d, want 4", cfg.Retention)
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
		}
		if cfg.WebhookURL != "https://hooks.example.com/env" {
			t.Errorf("WebhookURL = %q, want the environment value", cfg.WebhookURL)
		}
		if !cfg.DryRun {
			t.Error("expected DryRun")
		}
	})

	t.Run("subs section and source flags", func(t *testing.T) {
		t.Parallel()
		cmd := NewSubsCmd()
		args := []string{"-c", file, "--tool", "tool-b -d {domain}", "--tool", "", "--no-journal"}
		if err := cmd.ParseFlags(args); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, model.KindSet, noEnv)
		if err != nil {
			t.Fatalf("buildConfig() error = %v", err)
		}
		if cfg.WebhookURL != "https://hooks.example.com/subs" {
			t.Errorf("WebhookURL = %q, want the subs section value", cfg.WebhookURL)
		}
		if cfg.CrtSh {
			t.Error("expected crt.sh disabled by the file")
		}
		if len(cfg.Tools) != 1 || cfg.Tools[0] != "tool-b -d {domain}" {
			t.Errorf("Tools = %v, want [tool-b -d {domain}]", cfg.Tools)
		}
		if cfg.Journal {
			t.Error("expected journal disabled")
		}
		if cfg.TargetsDir != config.DefaultSetTargetsDir {
			t.Errorf("TargetsDir = %q, want %q", cfg.TargetsDir, config.DefaultSetTargetsDir)
		}
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		t.Parallel()
		cmd := NewBytesCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"-c", missing}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, model.KindBytes, noEnv); err == nil {
			t.Error("expected error for a missing explicit config file")
		}
	})
}

// The end-to-end tests below are sequential: the monitor commands install
// the process-wide default logger and signal handlers.

func TestRunBytesDryRun(t *testing.T) {
	srv := newBodyServer(t, "var version = 1;\nfunction a() { return 1; }\n")
	target := srv.URL + "/app.js"

	cfgFile := writeConfig(t, "summary: text\n")
	targetsDir := writeTargets(t, "# scripts", target, "not a url")
	stateDir := t.TempDir()
	args := []string{"bytes", "-c", cfgFile, "--dry-run", "--targets", targetsDir, "--state-dir", stateDir}

	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if !strings.Contains(out, "ENROLLED") {
		t.Errorf("first run should enroll the target, got:\n%s", out)
	}
	if !strings.Contains(out, "INVALID") {
		t.Errorf("first run should report the invalid line, got:\n%s", out)
	}
	if strings.Contains(out, "[dry-run]") {
		t.Errorf("enrollment must not notify, got:\n%s", out)
	}

	out, err = execute(t, args...)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if !strings.Contains(out, "UNCHANGED") || strings.Contains(out, "[dry-run]") {
		t.Errorf("second run should be silent and unchanged, got:\n%s", out)
	}

	srv.set("var version = 2;\nfunction a() { return 2; }\n")
	out, err = execute(t, args...)
	if err != nil {
		t.Fatalf("third run error = %v", err)
	}
	if !strings.Contains(out, "CHANGED") {
		t.Errorf("third run should detect the change, got:\n%s", out)
	}
	if !strings.Contains(out, "has been updated") {
		t.Errorf("third run should print the notification, got:\n%s", out)
	}
	if !strings.Contains(out, "diff.html") {
		t.Errorf("notification should carry the diff attachment, got:\n%s", out)
	}

	t.Run("state layout", func(t *testing.T) {
		for _, name := range []string{"jsmon.json", "downloads", "changemon.db"} {
			if _, err := os.Stat(filepath.Join(stateDir, name)); err != nil {
				t.Errorf("expected %s in the state directory: %v", name, err)
			}
		}
	})

	t.Run("status lists the latest outcome", func(t *testing.T) {
		out, err := execute(t, "status", "--state-dir", stateDir, "--kind", "bytes")
		if err != nil {
			t.Fatalf("status error = %v", err)
		}
		if !strings.Contains(out, target) || !strings.Contains(out, "CHANGED") {
			t.Errorf("status should show the change of %s, got:\n%s", target, out)
		}
		if strings.Contains(out, "UNCHANGED") {
			t.Errorf("status should only show the latest entry, got:\n%s", out)
		}
	})

	t.Run("status limit lists entries", func(t *testing.T) {
		out, err := execute(t, "status", "--state-dir", stateDir, "--target", target, "-n", "10", "--markdown")
		if err != nil {
			t.Fatalf("status error = %v", err)
		}
		for _, want := range []string{"ENROLLED", "UNCHANGED", "CHANGED", "|"} {
			if !strings.Contains(out, want) {
				t.Errorf("status --limit should contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("history lists fingerprints", func(t *testing.T) {
		out, err := execute(t, "history", target, "--state-dir", stateDir)
		if err != nil {
			t.Fatalf("history error = %v", err)
		}
		if !strings.Contains(out, "2 fingerprint(s)") {
			t.Errorf("history should list two fingerprints, got:\n%s", out)
		}
	})

	t.Run("history diff", func(t *testing.T) {
		out, err := execute(t, "history", target, "--state-dir", stateDir, "--diff=1..")
		if err != nil {
			t.Fatalf("history --diff error = %v", err)
		}
		if !strings.Contains(out, "@@") {
			t.Errorf("expected a unified diff, got:\n%s", out)
		}

		htmlPath := filepath.Join(t.TempDir(), "out", "diff.html")
		if _, err := execute(t, "history", target, "--state-dir", stateDir, "--diff=-2..-1", "--html", htmlPath); err != nil {
			t.Fatalf("history --html error = %v", err)
		}
		page, err := os.ReadFile(htmlPath)
		if err != nil {
			t.Fatalf("expected HTML diff: %v", err)
		}
		if !strings.Contains(string(page), "<table") {
			t.Error("expected a side-by-side table in the HTML diff")
		}
	})

	t.Run("history of an unknown url", func(t *testing.T) {
		_, err := execute(t, "history", "https://unknown.example.com/a.js", "--state-dir", stateDir)
		if !errors.Is(err, errNoHistory) {
			t.Errorf("expected errNoHistory, got %v", err)
		}
	})
}

func TestRunBytesWebhook(t *testing.T) {
	script := newBodyServer(t, "console.log('a');\n")

	var posts atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			posts.Add(1)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(hook.Close)

	cfgFile := writeConfig(t, "journal: false\n")
	args := []string{"bytes", "-c", cfgFile,
		"--webhook", hook.URL + "/api/webhooks/1/token",
		"--targets", writeTargets(t, script.URL+"/app.js"),
		"--state-dir", t.TempDir(),
		"--summary", "json",
	}

	for i := range 2 {
		if _, err := execute(t, args...); err != nil {
			t.Fatalf("run %d error = %v", i+1, err)
		}
	}
	if got := posts.Load(); got != 0 {
		t.Fatalf("enrollment and an unchanged run must not notify, got %d posts", got)
	}

	script.set("console.log('b');\n")
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("change run error = %v", err)
	}
	if got := posts.Load(); got != 1 {
		t.Errorf("a change must notify exactly once, got %d posts", got)
	}
	if !strings.Contains(out, `"notified": true`) {
		t.Errorf("JSON summary should report the notification, got:\n%s", out)
	}

	if _, err := execute(t, args...); err != nil {
		t.Fatalf("repeat run error = %v", err)
	}
	if got := posts.Load(); got != 1 {
		t.Errorf("a repeated run must not notify again, got %d posts", got)
	}
}

func TestRunSubsDryRun(t *testing.T) {
	var names atomic.Value
	names.Store(`[{"name_value":"www.example.com\n*.api.example.com"},{"name_value":"mail.other.org"}]`)
	crtsh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("output") != "json" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, names.Load())
	}))
	t.Cleanup(crtsh.Close)

	reportsDir := t.TempDir()
	args := []string{"subs", "-c", writeConfig(t, "summary: markdown\n"), "--dry-run",
		"--targets", writeTargets(t, "example.com"),
		"--state-dir", t.TempDir(),
		"--reports-dir", reportsDir,
		"--crtsh-url", crtsh.URL + "/",
		"--tool", "",
	}

	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("first run error = %v", err)
	}
	if !strings.Contains(out, "ENROLLED") || !strings.Contains(out, "New subdomains of `example.com`") {
		t.Errorf("first run should enroll and notify, got:\n%s", out)
	}

	out, err = execute(t, args...)
	if err != nil {
		t.Fatalf("second run error = %v", err)
	}
	if strings.Contains(out, "[dry-run]") {
		t.Errorf("unchanged set must not notify, got:\n%s", out)
	}

	names.Store(`[{"name_value":"www.example.com"},{"name_value":"dev.example.com"}]`)
	out, err = execute(t, args...)
	if err != nil {
		t.Fatalf("third run error = %v", err)
	}
	if !strings.Contains(out, "CHANGED") || !strings.Contains(out, "Removed subdomains") {
		t.Errorf("third run should report added and removed names, got:\n%s", out)
	}

	reports, err := filepath.Glob(filepath.Join(reportsDir, "example.com_*.html"))
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) == 0 {
		t.Error("expected HTML reports in the reports directory")
	}
}

func TestRunConfigErrors(t *testing.T) {
	t.Setenv(config.EnvWebhook, "")
	t.Setenv("JSMON_DISCORD_WEBHOOK", "")

	cfgFile := writeConfig(t, "summary: text\n")

	t.Run("missing webhook", func(t *testing.T) {
		_, err := execute(t, "bytes", "-c", cfgFile, "--state-dir", t.TempDir())
		if !errors.Is(err, config.ErrNoWebhook) {
			t.Errorf("expected ErrNoWebhook, got %v", err)
		}
	})

	t.Run("watch without interval", func(t *testing.T) {
		_, err := execute(t, "bytes", "-c", cfgFile, "--dry-run", "--watch", "--state-dir", t.TempDir())
		if !errors.Is(err, config.ErrWatchWithoutInterval) {
			t.Errorf("expected ErrWatchWithoutInterval, got %v", err)
		}
	})

	t.Run("corrupt state stops the run", func(t *testing.T) {
		stateDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(stateDir, "jsmon.json"), []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := execute(t, "bytes", "-c", cfgFile, "--dry-run", "--no-journal",
			"--targets", writeTargets(t, "https://example.com/app.js"),
			"--state-dir", stateDir)
		if !errors.Is(err, history.ErrStoreCorrupt) {
			t.Errorf("expected a corrupt store error, got %v", err)
		}
	})
}
