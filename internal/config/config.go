package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/changemon/internal/collector"
	"github.com/nao1215/changemon/internal/fingerprint"
	"github.com/nao1215/changemon/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "changemon"

	// DefaultByteTargetsDir holds the URL lists of the bytes kind.
	DefaultByteTargetsDir = "targets"

	// DefaultSetTargetsDir holds the domain lists of the set kind.
	DefaultSetTargetsDir = "domains"

	// DefaultByteTimeout bounds one URL fetch.
	DefaultByteTimeout = 30 * time.Second

	// DefaultSetTimeout bounds one enumeration of all sources. External
	// tools routinely take minutes.
	DefaultSetTimeout = 10 * time.Minute

	// DefaultConcurrency is the number of targets processed at once.
	DefaultConcurrency = 10

	// DefaultMaxBodySize limits one fetched body.
	DefaultMaxBodySize = collector.DefaultMaxBodySize

	// DefaultUserAgent identifies changemon in HTTP requests.
	DefaultUserAgent = collector.DefaultUserAgent

	// DefaultSummaryFormat is the run summary format.
	DefaultSummaryFormat = "text"
)

// Supported summary formats.
var summaryFormats = map[string]bool{
	"text":     true,
	"markdown": true,
	"md":       true,
	"json":     true,
}

// Config holds all options of one monitor kind.
type Config struct {
	// Kind selects the monitor.
	Kind model.Kind

	// WebhookURL is the Discord-compatible webhook notified on change.
	WebhookURL string

	// DryRun prints notifications instead of delivering them.
	DryRun bool

	// TargetsDir holds the newline-delimited target lists.
	TargetsDir string

	// StateDir holds the history stores and the journal.
	StateDir string

	// ReportsDir receives the HTML reports of the set kind.
	ReportsDir string

	// Concurrency is the number of targets processed at once.
	Concurrency int

	// Timeout bounds the collection of one target.
	Timeout time.Duration

	// MaxBodySize limits one fetched body in bytes.
	MaxBodySize int64

	// UserAgent is sent with every HTTP request.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// Retention keeps the last N fingerprints per URL. Zero keeps all.
	Retention int

	// Algorithm is the fingerprint digest of the bytes kind.
	Algorithm string

	// Tools are the enumeration commands of the set kind, with
	// collector.DomainPlaceholder standing for the domain.
	Tools []string

	// CrtSh enables the native certificate-transparency source.
	CrtSh bool

	// CrtShURL is the crt.sh endpoint.
	CrtShURL string

	// Username and AvatarURL override the webhook sender identity.
	Username  string
	AvatarURL string

	// SummaryFormat is text, markdown or json.
	SummaryFormat string

	// Quiet hides unchanged targets from the text summary.
	Quiet bool

	// Interval repeats the run. Zero runs once.
	Interval time.Duration

	// Watch re-runs when the targets directory changes. Requires Interval.
	Watch bool

	// Journal records every outcome in the SQLite journal.
	Journal bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit YAML configuration file.
	ConfigFilePath string
}

// NewConfig creates a Config of kind with default values.
func NewConfig(kind model.Kind) *Config {
	c := &Config{
		Kind:          kind,
		StateDir:      XDGDataDir(),
		ReportsDir:    filepath.Join(XDGDataDir(), "reports"),
		Concurrency:   DefaultConcurrency,
		Timeout:       DefaultByteTimeout,
		MaxBodySize:   DefaultMaxBodySize,
		UserAgent:     DefaultUserAgent,
		Algorithm:     string(fingerprint.Default),
		CrtShURL:      collector.DefaultCrtShURL,
		SummaryFormat: DefaultSummaryFormat,
		Journal:       true,
		TargetsDir:    DefaultByteTargetsDir,
	}
	if kind == model.KindSet {
		c.TargetsDir = DefaultSetTargetsDir
		c.Timeout = DefaultSetTimeout
		c.Tools = append([]string(nil), collector.DefaultTools...)
		c.CrtSh = true
	}
	return c
}

// XDGDataDir returns the XDG data directory for changemon.
// On Linux: ~/.local/share/changemon
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for changemon.
// On Linux: ~/.config/changemon
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	if c.WebhookURL == "" && !c.DryRun {
		return ErrNoWebhook
	}
	if c.WebhookURL != "" {
		u, err := url.Parse(c.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidWebhook
		}
	}
	if c.TargetsDir == "" {
		return ErrNoTargetsDir
	}
	if c.StateDir == "" {
		return ErrNoStateDir
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Retention < 0 {
		return ErrInvalidRetention
	}
	if c.Interval < 0 {
		return ErrInvalidInterval
	}
	if c.Watch && c.Interval == 0 {
		return ErrWatchWithoutInterval
	}
	if !summaryFormats[c.SummaryFormat] {
		return fmt.Errorf("%w: %q", ErrInvalidSummaryFormat, c.SummaryFormat)
	}
	if _, err := fingerprint.ParseAlgorithm(c.Algorithm); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAlgorithm, err)
	}
	if c.Kind == model.KindSet && len(c.Tools) == 0 && !c.CrtSh {
		return ErrNoSources
	}
	return nil
}
