package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/changemon/internal/model"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".changemon"

// EnvWebhook is the environment variable holding the webhook of both kinds.
const EnvWebhook = "CHANGEMON_WEBHOOK"

// legacyWebhookEnv holds the per-kind variables of the jsmon and submon scripts.
var legacyWebhookEnv = map[model.Kind]string{
	model.KindBytes: "JSMON_DISCORD_WEBHOOK",
	model.KindSet:   "SUBMON_DISCORD_WEBHOOK",
}

// unsetWebhook is the placeholder the legacy scripts shipped with.
const unsetWebhook = "CHANGEME"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// KindSection holds the options of one monitor kind in the file.
type KindSection struct {
	Webhook     string        `yaml:"webhook,omitempty"`
	TargetsDir  string        `yaml:"targets_dir,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Username    string        `yaml:"username,omitempty"`
	AvatarURL   string        `yaml:"avatar_url,omitempty"`
	Retention   *int          `yaml:"retention,omitempty"`
	MaxBodySize int64         `yaml:"max_body_size,omitempty"`
	Algorithm   string        `yaml:"algorithm,omitempty"`
	Tools       []string      `yaml:"tools,omitempty"`
	CrtSh       *bool         `yaml:"crtsh,omitempty"`
	CrtShURL    string        `yaml:"crtsh_url,omitempty"`
}

// File represents the structure of the .changemon configuration file.
// Top-level values apply to both kinds; the bytes and subs sections
// override them per kind.
type File struct {
	Webhook     string        `yaml:"webhook,omitempty"`
	StateDir    string        `yaml:"state_dir,omitempty"`
	ReportsDir  string        `yaml:"reports_dir,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	UserAgent   string        `yaml:"user_agent,omitempty"`
	Proxy       string        `yaml:"proxy,omitempty"`
	Interval    time.Duration `yaml:"interval,omitempty"`
	Summary     string        `yaml:"summary,omitempty"`
	Journal     *bool         `yaml:"journal,omitempty"`

	Bytes KindSection `yaml:"bytes,omitempty"`
	Subs  KindSection `yaml:"subs,omitempty"`
}

// Section returns the per-kind section for kind.
func (f *File) Section(kind model.Kind) KindSection {
	if kind == model.KindSet {
		return f.Subs
	}
	return f.Bytes
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .changemon in the current directory
// 3. Look for .changemon in the user's home directory
// 4. Look for config.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ApplyFile overrides c with every value set in f. Per-kind values win
// over top-level ones.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}

	setString(&c.WebhookURL, f.Webhook)
	setString(&c.StateDir, f.StateDir)
	setString(&c.ReportsDir, f.ReportsDir)
	setString(&c.UserAgent, f.UserAgent)
	setString(&c.ProxyAddress, f.Proxy)
	setString(&c.SummaryFormat, f.Summary)
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
	if f.Interval != 0 {
		c.Interval = f.Interval
	}
	if f.Journal != nil {
		c.Journal = *f.Journal
	}

	s := f.Section(c.Kind)
	setString(&c.WebhookURL, s.Webhook)
	setString(&c.TargetsDir, s.TargetsDir)
	setString(&c.Username, s.Username)
	setString(&c.AvatarURL, s.AvatarURL)
	setString(&c.Algorithm, s.Algorithm)
	setString(&c.CrtShURL, s.CrtShURL)
	if s.Timeout != 0 {
		c.Timeout = s.Timeout
	}
	if s.Retention != nil {
		c.Retention = *s.Retention
	}
	if s.MaxBodySize != 0 {
		c.MaxBodySize = s.MaxBodySize
	}
	if s.Tools != nil {
		c.Tools = append([]string(nil), s.Tools...)
	}
	if s.CrtSh != nil {
		c.CrtSh = *s.CrtSh
	}
}

// ApplyEnv reads the webhook from the environment. CHANGEMON_WEBHOOK
// wins over the legacy per-kind variable.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for _, key := range []string{legacyWebhookEnv[c.Kind], EnvWebhook} {
		if key == "" {
			continue
		}
		if v, ok := lookup(key); ok && v != "" && v != unsetWebhook {
			c.WebhookURL = v
		}
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
