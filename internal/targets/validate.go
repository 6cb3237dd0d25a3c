package targets

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/changemon/internal/model"
)

// endpointPattern accepts http(s) URLs with a dotted host name, localhost
// or an IPv4 address, an optional port and an optional path.
var endpointPattern = regexp.MustCompile(`(?i)^https?://` +
	`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)` +
	`|localhost` +
	`|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
	`(?::\d+)?` +
	`(?:/?|[/?]\S+)$`)

// labelPattern is one LDH label of an ASCII host name.
var labelPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidateURL checks that raw is a fetchable http(s) URL.
func ValidateURL(raw string) (model.Target, error) {
	if !endpointPattern.MatchString(raw) {
		return "", fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidTarget, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidTarget, raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrInvalidTarget, raw)
	}
	return model.Target(raw), nil
}

// ValidateDomain checks that raw is a registrable domain name and returns
// its canonical form: lower-case ASCII (punycode) without a trailing dot.
// Public suffixes such as "com" or "co.uk" are rejected.
func ValidateDomain(raw string) (model.Target, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), ".")
	if name == "" {
		return "", fmt.Errorf("%w: empty domain", ErrInvalidTarget)
	}
	if strings.Contains(name, "://") || strings.ContainsAny(name, "/:@ ") {
		return "", fmt.Errorf("%w: %q is not a bare domain name", ErrInvalidTarget, raw)
	}

	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidTarget, raw, err)
	}

	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return "", fmt.Errorf("%w: %q has a single label", ErrInvalidTarget, raw)
	}
	for _, label := range labels {
		if !labelPattern.MatchString(label) {
			return "", fmt.Errorf("%w: %q has an invalid label %q", ErrInvalidTarget, raw, label)
		}
	}

	if suffix, _ := publicsuffix.PublicSuffix(ascii); suffix == ascii {
		return "", fmt.Errorf("%w: %q is a public suffix", ErrInvalidTarget, raw)
	}
	return model.Target(ascii), nil
}

// Validate checks raw for the given monitor kind.
func Validate(kind model.Kind, raw string) (model.Target, error) {
	switch kind {
	case model.KindBytes:
		return ValidateURL(raw)
	case model.KindSet:
		return ValidateDomain(raw)
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, kind)
	}
}
