package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/proxy"

	"github.com/nao1215/changemon/internal/collector"
	"github.com/nao1215/changemon/internal/config"
	"github.com/nao1215/changemon/internal/database"
	"github.com/nao1215/changemon/internal/fingerprint"
	"github.com/nao1215/changemon/internal/history"
	"github.com/nao1215/changemon/internal/log"
	"github.com/nao1215/changemon/internal/model"
	"github.com/nao1215/changemon/internal/notify"
	"github.com/nao1215/changemon/internal/pipeline"
	"github.com/nao1215/changemon/internal/report"
	"github.com/nao1215/changemon/internal/schedule"
	"github.com/nao1215/changemon/internal/targets"
)

// NewBytesCmd creates the bytes command.
func NewBytesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bytes",
		Short: "Watch the bytes served at URLs",
		Long: `Fetch every URL listed in the targets directory, fingerprint the body and
notify when it differs from the last stored fingerprint. The first
observation of a URL is recorded without a notification.

Target files hold one http(s) URL per line. Blank lines and lines
starting with # are ignored.

Examples:
  # Run once with the webhook from CHANGEMON_WEBHOOK
  changemon bytes

  # Print notifications instead of sending them
  changemon bytes --dry-run

  # Keep running, once per hour and whenever a target file changes
  changemon bytes --every 1h --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitorCmd(cmd, model.KindBytes)
		},
	}

	defaults := config.NewConfig(model.KindBytes)
	addMonitorFlags(cmd, defaults)
	cmd.Flags().Int("retention", defaults.Retention,
		"Keep the last N fingerprints per URL (0 keeps all)")
	cmd.Flags().Int64("max-body-size", defaults.MaxBodySize,
		"Maximum accepted body size in bytes")
	cmd.Flags().String("algorithm", defaults.Algorithm,
		"Fingerprint digest (blake2b or md5)")

	return cmd
}

// NewSubsCmd creates the subs command.
func NewSubsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subs",
		Short: "Watch the subdomains of domains",
		Long: `Enumerate the subdomains of every domain listed in the targets directory
and notify when names appear or disappear. Each notification carries an
HTML report that is also kept in the reports directory.

Subdomains are collected from crt.sh and from external enumeration tools.
A tool command uses {domain} as the placeholder for the domain. A tool
that is not installed or exits with an error is skipped for that run.

Examples:
  # Run once with the default sources
  changemon subs

  # Only query crt.sh
  changemon subs --tool ""

  # Use a single custom tool and skip crt.sh
  changemon subs --no-crtsh --tool "amass enum -passive -d {domain}"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitorCmd(cmd, model.KindSet)
		},
	}

	defaults := config.NewConfig(model.KindSet)
	addMonitorFlags(cmd, defaults)
	cmd.Flags().String("reports-dir", defaults.ReportsDir,
		"Directory receiving the HTML reports")
	cmd.Flags().StringArray("tool", defaults.Tools,
		"Enumeration command, repeatable ({domain} is replaced)")
	cmd.Flags().Bool("no-crtsh", false, "Do not query crt.sh")
	cmd.Flags().String("crtsh-url", defaults.CrtShURL, "crt.sh endpoint")

	return cmd
}

// addMonitorFlags registers the flags shared by both monitors.
func addMonitorFlags(cmd *cobra.Command, defaults *config.Config) {
	flags := cmd.Flags()
	flags.StringP("config", "c", "",
		"Path to configuration file (default: .changemon in current or home directory)")
	flags.String("webhook", "",
		"Webhook URL notified on change (default: $"+config.EnvWebhook+")")
	flags.StringP("targets", "t", defaults.TargetsDir, "Directory of target list files")
	flags.String("state-dir", defaults.StateDir, "Directory holding the history stores and journal")
	flags.Int("concurrency", defaults.Concurrency, "Number of targets processed at once")
	flags.Duration("timeout", defaults.Timeout, "Collection timeout per target")
	flags.String("user-agent", defaults.UserAgent, "User-Agent sent with HTTP requests")
	flags.String("proxy", "", "SOCKS5 proxy for HTTP requests (host:port)")
	flags.String("username", "", "Override the webhook sender name")
	flags.String("avatar-url", "", "Override the webhook sender avatar")
	flags.Bool("dry-run", false, "Print notifications instead of sending them")
	flags.String("summary", defaults.SummaryFormat, "Run summary format (text, markdown, json)")
	flags.BoolP("quiet", "q", false, "Hide unchanged targets from the text summary")
	flags.Duration("every", 0, "Repeat the run at this interval (0 runs once)")
	flags.Bool("watch", false, "Also run when the targets directory changes (requires --every)")
	flags.Bool("no-journal", false, "Do not record outcomes in the journal")
}

// runMonitorCmd executes the bytes and subs commands.
func runMonitorCmd(cmd *cobra.Command, kind model.Kind) error {
	cfg, err := buildConfig(cmd, kind, os.LookupEnv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping after the current run")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runMonitor(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig creates the Config of kind from the defaults, the
// configuration file and the environment.
func loadConfig(cmd *cobra.Command, kind model.Kind, lookup func(string) (string, bool)) (*config.Config, error) {
	cfg := config.NewConfig(kind)

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; the default locations are optional.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(f)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.ApplyEnv(lookup)
	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// buildConfig creates the Config of kind. Flags set on the command line
// win over the file and the environment.
func buildConfig(cmd *cobra.Command, kind model.Kind, lookup func(string) (string, bool)) (*config.Config, error) {
	cfg, err := loadConfig(cmd, kind, lookup)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies every changed flag into cfg. Flags the command does
// not define are never reported as changed.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	strs := map[string]*string{
		"webhook":     &cfg.WebhookURL,
		"targets":     &cfg.TargetsDir,
		"state-dir":   &cfg.StateDir,
		"reports-dir": &cfg.ReportsDir,
		"user-agent":  &cfg.UserAgent,
		"proxy":       &cfg.ProxyAddress,
		"username":    &cfg.Username,
		"avatar-url":  &cfg.AvatarURL,
		"summary":     &cfg.SummaryFormat,
		"algorithm":   &cfg.Algorithm,
		"crtsh-url":   &cfg.CrtShURL,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	ints := map[string]*int{
		"concurrency": &cfg.Concurrency,
		"retention":   &cfg.Retention,
	}
	for name, dst := range ints {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		"timeout": &cfg.Timeout,
		"every":   &cfg.Interval,
	}
	for name, dst := range durations {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	bools := map[string]*bool{
		"dry-run": &cfg.DryRun,
		"quiet":   &cfg.Quiet,
		"watch":   &cfg.Watch,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	negated := map[string]*bool{
		"no-crtsh":   &cfg.CrtSh,
		"no-journal": &cfg.Journal,
	}
	for name, dst := range negated {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = !v
	}

	if flags.Changed("max-body-size") {
		v, err := flags.GetInt64("max-body-size")
		if err != nil {
			return err
		}
		cfg.MaxBodySize = v
	}

	if flags.Changed("tool") {
		tools, err := flags.GetStringArray("tool")
		if err != nil {
			return err
		}
		cfg.Tools = cfg.Tools[:0]
		for _, tool := range tools {
			if tool != "" {
				cfg.Tools = append(cfg.Tools, tool)
			}
		}
	}

	return nil
}

// runMonitor runs the monitor of cfg.Kind once, or repeatedly when an
// interval is configured.
func runMonitor(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	app, err := newApp(cfg, logger, out)
	if err != nil {
		return err
	}
	defer app.close()

	opts := []schedule.Option{schedule.WithLogger(logger)}
	if cfg.Watch {
		opts = append(opts, schedule.WithWatchDir(cfg.TargetsDir))
	}
	runner := schedule.NewRunner(cfg.Interval, app.runOnce, opts...)

	err = runner.Start(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// app holds the components shared by every run of one monitor.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	collector collector.Collector
	notifier  notify.Notifier
	summary   report.Writer
	journal   *database.Journal
	algorithm fingerprint.Algorithm
}

// newApp wires the collector, notifier, summary writer and journal of cfg.
func newApp(cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	algorithm, err := fingerprint.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	c, err := newCollector(cfg, logger)
	if err != nil {
		return nil, err
	}

	summary, err := newSummaryWriter(cfg, out)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		collector: c,
		notifier:  newNotifier(cfg, logger, out),
		summary:   summary,
		algorithm: algorithm,
	}

	if cfg.Journal {
		journal, err := database.Open(cfg.StateDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("journal disabled", "error", err)
		} else {
			a.journal = journal
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.journal == nil {
		return
	}
	if err := a.journal.Close(); err != nil {
		a.logger.Warn("failed to close journal", "error", err)
	}
}

// runOnce processes every target once. The stores are reopened on each
// run so that a corrupt state file stops the monitor.
func (a *app) runOnce(ctx context.Context) error {
	list, err := targets.NewSource(a.cfg.TargetsDir, a.cfg.Kind, a.logger).Load()
	if err != nil {
		return err
	}

	ledger, err := a.openLedger()
	if err != nil {
		return err
	}

	opts := []pipeline.MonitorOption{
		pipeline.WithMonitorConcurrency(a.cfg.Concurrency),
		pipeline.WithTimeout(a.cfg.Timeout),
		pipeline.WithAlgorithm(a.algorithm),
		pipeline.WithMonitorLogger(a.logger),
	}
	if a.journal != nil {
		opts = append(opts, pipeline.WithRecorder(a.journal))
	}

	monitor := pipeline.NewMonitor(a.cfg.Kind, a.collector, ledger, a.notifier, opts...)
	summary, err := monitor.Run(ctx, list)
	if summary != nil {
		if _, werr := a.summary.Write(summary); werr != nil {
			a.logger.Warn("failed to write run summary", "error", werr)
		}
	}
	return err
}

// openLedger opens the history store of the configured kind.
func (a *app) openLedger() (pipeline.Ledger, error) {
	if a.cfg.Kind == model.KindSet {
		store, err := history.OpenSetStore(a.cfg.StateDir)
		if err != nil {
			return nil, err
		}
		renderer := report.NewHTMLRenderer(a.cfg.ReportsDir)
		return pipeline.NewSetLedger(store, renderer, a.logger), nil
	}

	store, err := history.OpenByteStore(a.cfg.StateDir,
		history.WithRetention(a.cfg.Retention),
		history.WithByteStoreLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return pipeline.NewByteLedger(store, a.logger), nil
}

// newCollector creates the collector of cfg.Kind.
func newCollector(cfg *config.Config, logger *slog.Logger) (collector.Collector, error) {
	var dialer proxy.Dialer
	if cfg.ProxyAddress != "" {
		d, err := collector.NewSOCKS5Dialer(cfg.ProxyAddress)
		if err != nil {
			return nil, err
		}
		dialer = d
	}
	client := collector.NewHTTPClient(dialer, cfg.Timeout)

	if cfg.Kind == model.KindBytes {
		return collector.NewHTTPCollector(cfg.Timeout,
			collector.WithHTTPClient(client),
			collector.WithUserAgent(cfg.UserAgent),
			collector.WithMaxBodySize(cfg.MaxBodySize),
			collector.WithHTTPLogger(logger),
		), nil
	}

	var sources []collector.Source
	if cfg.CrtSh {
		sources = append(sources, collector.NewCrtSh(client, cfg.CrtShURL, cfg.UserAgent))
	}
	for _, tool := range cfg.Tools {
		sources = append(sources, collector.NewExternalTool(tool))
	}
	return collector.NewSetCollector(logger, sources...), nil
}

// newNotifier creates the webhook notifier, or a printer on dry runs.
func newNotifier(cfg *config.Config, logger *slog.Logger, out io.Writer) notify.Notifier {
	if cfg.DryRun {
		return notify.NewLogNotifier(out)
	}

	identity := notify.DefaultIdentity(cfg.Kind)
	if cfg.Username != "" {
		identity.Username = cfg.Username
	}
	if cfg.AvatarURL != "" {
		identity.AvatarURL = cfg.AvatarURL
	}
	return notify.NewWebhook(cfg.WebhookURL, cfg.Kind,
		notify.WithIdentity(identity),
		notify.WithLogger(logger),
	)
}

// newSummaryWriter creates the run summary writer of cfg.
func newSummaryWriter(cfg *config.Config, out io.Writer) (report.Writer, error) {
	if cfg.SummaryFormat == report.FormatText {
		return report.NewSimpleWriter(out, report.WithQuiet(cfg.Quiet)), nil
	}
	return report.NewWriter(cfg.SummaryFormat, out)
}
