package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"

	"github.com/nao1215/changemon/internal/model"
)

const (
	// DefaultMaxBodySize is the largest body accepted by default (10 MiB).
	DefaultMaxBodySize int64 = 10 << 20

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "changemon/1.0 (+https://github.com/nao1215/changemon)"

	// maxRedirects bounds redirect chains.
	maxRedirects = 10
)

// HTTPCollector fetches the bytes served at a URL target.
type HTTPCollector struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// HTTPOption configures an HTTPCollector.
type HTTPOption func(*HTTPCollector)

// WithHTTPClient replaces the HTTP client. Used by tests and by callers
// sharing one client between collectors.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPCollector) {
		if client != nil {
			c.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(c *HTTPCollector) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxBodySize limits the accepted response size in bytes.
func WithMaxBodySize(n int64) HTTPOption {
	return func(c *HTTPCollector) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithHTTPLogger sets a custom logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(c *HTTPCollector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHTTPCollector creates an HTTPCollector with a client that gives up
// after timeout.
func NewHTTPCollector(timeout time.Duration, opts ...HTTPOption) *HTTPCollector {
	c := &HTTPCollector{
		client:      NewHTTPClient(nil, timeout),
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns "http".
func (c *HTTPCollector) Name() string {
	return "http"
}

// Collect fetches target and returns its body as a ByteSnapshot.
// Non-2xx responses and bodies over the size limit are failures.
func (c *HTTPCollector) Collect(ctx context.Context, target model.Target) (model.Snapshot, error) {
	body, err := c.fetch(ctx, target.String())
	if err != nil {
		return nil, newError(c.Name(), target, err)
	}
	c.logger.Debug("fetched target", "target", target, "bytes", len(body))
	return model.NewByteSnapshot(body), nil
}

// fetch performs a GET and returns the body.
func (c *HTTPCollector) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return get(ctx, c.client, rawURL, c.userAgent, c.maxBodySize)
}

func get(ctx context.Context, client *http.Client, rawURL, userAgent string, maxBodySize int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBodySize)
	}
	return body, nil
}

// NewHTTPClient creates an HTTP client for collection. A non-nil dialer
// routes every connection through it, typically a SOCKS5 proxy.
func NewHTTPClient(dialer proxy.Dialer, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second

	if dialer != nil {
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// NewSOCKS5Dialer creates a dialer for the SOCKS5 proxy at address
// ("host:port"). The proxy is not contacted until the first request.
func NewSOCKS5Dialer(address string) (proxy.Dialer, error) {
	if !isValidProxyAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, address)
	}
	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	return dialer, nil
}

// isValidProxyAddress checks for a non-empty host and a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
