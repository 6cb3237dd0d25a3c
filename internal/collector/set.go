package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/changemon/internal/model"
)

// SetCollector enumerates the subdomains of a domain target through
// several sources and unions their results.
type SetCollector struct {
	sources []Source
	logger  *slog.Logger
}

// NewSetCollector creates a SetCollector over sources.
func NewSetCollector(logger *slog.Logger, sources ...Source) *SetCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SetCollector{sources: sources, logger: logger}
}

// Name returns "set".
func (c *SetCollector) Name() string {
	return "set"
}

// Sources returns the configured sources.
func (c *SetCollector) Sources() []Source {
	return c.sources
}

// Collect queries every source concurrently. Failing sources are logged
// and skipped. The result holds the normalized union of all names equal
// to or under the domain.
func (c *SetCollector) Collect(ctx context.Context, target model.Target) (model.Snapshot, error) {
	domain := target.String()
	if len(c.sources) == 0 {
		return nil, newError(c.Name(), target, errors.New("no sources configured"))
	}

	results := make([][]string, len(c.sources))
	errs := make([]error, len(c.sources))

	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			names, err := src.Names(ctx, domain)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", src.Name(), err)
				c.logger.Warn("subdomain source failed", "source", src.Name(), "domain", domain, "error", err)
				return nil
			}
			c.logger.Debug("subdomain source finished", "source", src.Name(), "domain", domain, "names", len(names))
			results[i] = names
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // sources never return errors to the group

	var union []string
	succeeded := 0
	for i := range c.sources {
		if errs[i] != nil {
			continue
		}
		succeeded++
		union = append(union, results[i]...)
	}
	if succeeded == 0 {
		return nil, newError(c.Name(), target, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...)))
	}

	return model.NewSetSnapshot(FilterSuffix(NormalizeNames(union), domain), time.Now()), nil
}

// NormalizeNames lower-cases names and strips wildcard prefixes and
// trailing dots.
func NormalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		name = strings.TrimPrefix(name, "*.")
		name = strings.TrimSuffix(name, ".")
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// FilterSuffix keeps the names equal to domain or ending in "."+domain.
// A bare suffix match is not enough: notexample.com is not under example.com.
func FilterSuffix(names []string, domain string) []string {
	suffix := "." + domain
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == domain || strings.HasSuffix(name, suffix) {
			out = append(out, name)
		}
	}
	return out
}
