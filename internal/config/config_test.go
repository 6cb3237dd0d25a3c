package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/changemon/internal/collector"
	"github.com/nao1215/changemon/internal/model"
)

// TestNewConfig tests the default configuration of each kind.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("bytes defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(model.KindBytes)
		if cfg.TargetsDir != DefaultByteTargetsDir {
			t.Errorf("TargetsDir = %q", cfg.TargetsDir)
		}
		if cfg.Timeout != DefaultByteTimeout {
			t.Errorf("Timeout = %v", cfg.Timeout)
		}
		if cfg.Concurrency != DefaultConcurrency {
			t.Errorf("Concurrency = %d", cfg.Concurrency)
		}
		if cfg.StateDir != XDGDataDir() {
			t.Errorf("StateDir = %q", cfg.StateDir)
		}
		if len(cfg.Tools) != 0 || cfg.CrtSh {
			t.Error("bytes kind should have no enumeration sources")
		}
		if !cfg.Journal {
			t.Error("journal should be enabled by default")
		}
	})

	t.Run("set defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(model.KindSet)
		if cfg.TargetsDir != DefaultSetTargetsDir {
			t.Errorf("TargetsDir = %q", cfg.TargetsDir)
		}
		if cfg.Timeout != DefaultSetTimeout {
			t.Errorf("Timeout = %v", cfg.Timeout)
		}
		if len(cfg.Tools) != len(collector.DefaultTools) || !cfg.CrtSh {
			t.Errorf("unexpected sources: tools=%v crtsh=%v", cfg.Tools, cfg.CrtSh)
		}

		// Tools must be a copy.
		cfg.Tools[0] = "changed"
		if collector.DefaultTools[0] == "changed" {
			t.Error("NewConfig shares the default tool slice")
		}
	})
}

func validConfig() *Config {
	cfg := NewConfig(model.KindBytes)
	cfg.WebhookURL = "https://discord.com/api/webhooks/1/abc"
	return cfg
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid", modify: func(*Config) {}},
		{name: "dry run without webhook", modify: func(c *Config) { c.WebhookURL = ""; c.DryRun = true }},
		{name: "invalid kind", modify: func(c *Config) { c.Kind = "other" }, wantErr: ErrInvalidKind},
		{name: "no webhook", modify: func(c *Config) { c.WebhookURL = "" }, wantErr: ErrNoWebhook},
		{name: "non http webhook", modify: func(c *Config) { c.WebhookURL = "ftp://x/y" }, wantErr: ErrInvalidWebhook},
		{name: "placeholder webhook", modify: func(c *Config) { c.WebhookURL = "CHANGEME" }, wantErr: ErrInvalidWebhook},
		{name: "no targets dir", modify: func(c *Config) { c.TargetsDir = "" }, wantErr: ErrNoTargetsDir},
		{name: "no state dir", modify: func(c *Config) { c.StateDir = "" }, wantErr: ErrNoStateDir},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }, wantErr: ErrInvalidConcurrency},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "negative retention", modify: func(c *Config) { c.Retention = -1 }, wantErr: ErrInvalidRetention},
		{name: "negative interval", modify: func(c *Config) { c.Interval = -time.Second }, wantErr: ErrInvalidInterval},
		{name: "watch without interval", modify: func(c *Config) { c.Watch = true }, wantErr: ErrWatchWithoutInterval},
		{name: "unknown summary", modify: func(c *Config) { c.SummaryFormat = "xml" }, wantErr: ErrInvalidSummaryFormat},
		{name: "unknown algorithm", modify: func(c *Config) { c.Algorithm = "sha1" }, wantErr: ErrInvalidAlgorithm},
		{name: "set without sources", modify: func(c *Config) {
			c.Kind = model.KindSet
			c.Tools = nil
			c.CrtSh = false
		}, wantErr: ErrNoSources},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		f, err := LoadConfigFile("/nonexistent/path/.changemon")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if f != nil {
			t.Error("expected nil file")
		}
	})

	t.Run("loads sections", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `webhook: https://discord.com/api/webhooks/1/shared
concurrency: 4
interval: 1h
bytes:
  targets_dir: js-targets
  retention: 5
  timeout: 15s
subs:
  webhook: https://discord.com/api/webhooks/2/subs
  tools:
    - "subfinder -d {domain} -silent"
  crtsh: false
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.Concurrency != 4 || f.Interval != time.Hour {
			t.Errorf("unexpected top level: %+v", f)
		}
		if f.Bytes.TargetsDir != "js-targets" || f.Bytes.Retention == nil || *f.Bytes.Retention != 5 {
			t.Errorf("unexpected bytes section: %+v", f.Bytes)
		}
		if f.Bytes.Timeout != 15*time.Second {
			t.Errorf("bytes timeout = %v", f.Bytes.Timeout)
		}
		if f.Subs.CrtSh == nil || *f.Subs.CrtSh {
			t.Errorf("unexpected crtsh: %v", f.Subs.CrtSh)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(`invalid: yaml: content: [}`), 0o600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestApplyFile tests layering the file over defaults.
func TestApplyFile(t *testing.T) {
	t.Parallel()

	retention := 3
	off := false
	f := &File{
		Webhook:     "https://discord.com/api/webhooks/1/shared",
		Concurrency: 2,
		StateDir:    "/var/lib/changemon",
		Journal:     &off,
		Bytes:       KindSection{TargetsDir: "js", Retention: &retention, Algorithm: "md5"},
		Subs: KindSection{
			Webhook: "https://discord.com/api/webhooks/2/subs",
			Tools:   []string{"assetfinder --subs-only {domain}"},
		},
	}

	t.Run("bytes", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(model.KindBytes)
		cfg.ApplyFile(f)
		if cfg.WebhookURL != f.Webhook {
			t.Errorf("WebhookURL = %q", cfg.WebhookURL)
		}
		if cfg.TargetsDir != "js" || cfg.Retention != 3 || cfg.Algorithm != "md5" {
			t.Errorf("unexpected bytes config: %+v", cfg)
		}
		if cfg.Concurrency != 2 || cfg.StateDir != "/var/lib/changemon" || cfg.Journal {
			t.Errorf("unexpected shared config: %+v", cfg)
		}
	})

	t.Run("set section wins", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(model.KindSet)
		cfg.ApplyFile(f)
		if cfg.WebhookURL != f.Subs.Webhook {
			t.Errorf("WebhookURL = %q", cfg.WebhookURL)
		}
		if len(cfg.Tools) != 1 || !strings.HasPrefix(cfg.Tools[0], "assetfinder") {
			t.Errorf("Tools = %v", cfg.Tools)
		}
		if cfg.TargetsDir != DefaultSetTargetsDir {
			t.Errorf("TargetsDir = %q", cfg.TargetsDir)
		}
		if !cfg.CrtSh {
			t.Error("unset crtsh must keep the default")
		}
	})

	t.Run("nil file", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(model.KindBytes)
		cfg.ApplyFile(nil)
		if cfg.WebhookURL != "" {
			t.Error("nil file changed config")
		}
	})
}

// TestApplyEnv tests webhook lookup from the environment.
func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := func(vars map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := vars[k]
			return v, ok
		}
	}

	tests := []struct {
		name string
		kind model.Kind
		vars map[string]string
		want string
	}{
		{name: "none", kind: model.KindBytes, vars: nil, want: ""},
		{name: "legacy bytes", kind: model.KindBytes, vars: map[string]string{"JSMON_DISCORD_WEBHOOK": "https://a/api/webhooks/1/x"}, want: "https://a/api/webhooks/1/x"},
		{name: "legacy set", kind: model.KindSet, vars: map[string]string{"SUBMON_DISCORD_WEBHOOK": "https://a/api/webhooks/2/x"}, want: "https://a/api/webhooks/2/x"},
		{name: "legacy of other kind ignored", kind: model.KindSet, vars: map[string]string{"JSMON_DISCORD_WEBHOOK": "https://a/api/webhooks/1/x"}, want: ""},
		{name: "placeholder ignored", kind: model.KindBytes, vars: map[string]string{"JSMON_DISCORD_WEBHOOK": "CHANGEME"}, want: ""},
		{name: "shared wins", kind: model.KindBytes, vars: map[string]string{
			"JSMON_DISCORD_WEBHOOK": "https://a/api/webhooks/1/x",
			EnvWebhook:              "https://b/api/webhooks/3/y",
		}, want: "https://b/api/webhooks/3/y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig(tt.kind)
			cfg.ApplyEnv(env(tt.vars))
			if cfg.WebhookURL != tt.want {
				t.Errorf("WebhookURL = %q, want %q", cfg.WebhookURL, tt.want)
			}
		})
	}
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("concurrency: 1\n"), 0o600); err != nil {
			t.Fatalf("failed to write: %v", err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("returns empty for missing explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}

// TestXDGDirs tests the XDG directory helpers.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("XDGDataDir() = %q", XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("XDGConfigDir() = %q", XDGConfigDir())
	}
}
