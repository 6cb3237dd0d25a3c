package collector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

// DomainPlaceholder is replaced by the queried domain in tool commands.
const DomainPlaceholder = "{domain}"

// DefaultTools are the enumeration commands run for every domain.
var DefaultTools = []string{
	"subfinder -d {domain} -silent",
	"findomain -t {domain} -q",
	"assetfinder --subs-only {domain}",
}

// Source enumerates candidate subdomain names for a domain.
// The returned names are raw; SetCollector normalizes and filters them.
type Source interface {
	Name() string
	Names(ctx context.Context, domain string) ([]string, error)
}

// ExternalTool runs an enumeration command through the shell and reads
// one name per line from its standard output.
type ExternalTool struct {
	command string
	shell   string
}

// NewExternalTool creates a source from a command line containing the
// {domain} placeholder.
func NewExternalTool(command string) *ExternalTool {
	return &ExternalTool{command: command, shell: "sh"}
}

// Name returns the program name of the command.
func (t *ExternalTool) Name() string {
	if fields := strings.Fields(t.command); len(fields) > 0 {
		return fields[0]
	}
	return "tool"
}

// Command returns the command line with the domain substituted.
func (t *ExternalTool) Command(domain string) string {
	return strings.ReplaceAll(t.command, DomainPlaceholder, shellQuote(domain))
}

// Names runs the tool. A non-zero exit is a failure only when the tool
// printed nothing; partial output of a failing tool is still used.
func (t *ExternalTool) Names(ctx context.Context, domain string) ([]string, error) {
	cmd := exec.CommandContext(ctx, t.shell, "-c", t.Command(domain)) //nolint:gosec // command comes from configuration
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	names := scanLines(stdout.Bytes())
	if runErr != nil && len(names) == 0 {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", runErr, firstLine(msg))
		}
		return nil, runErr
	}
	return names, nil
}

// shellQuote wraps s in single quotes for sh.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func scanLines(b []byte) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(b))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// DefaultCrtShURL is the certificate transparency search endpoint.
const DefaultCrtShURL = "https://crt.sh/"

// crtShMaxBody bounds the crt.sh response; popular domains return large documents.
const crtShMaxBody int64 = 64 << 20

// CrtSh queries the crt.sh certificate transparency log for names issued
// under a domain.
type CrtSh struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewCrtSh creates a crt.sh source. An empty baseURL uses DefaultCrtShURL.
func NewCrtSh(client *http.Client, baseURL, userAgent string) *CrtSh {
	if client == nil {
		client = NewHTTPClient(nil, 60*time.Second)
	}
	if baseURL == "" {
		baseURL = DefaultCrtShURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &CrtSh{client: client, baseURL: baseURL, userAgent: userAgent}
}

// Name returns "crt.sh".
func (c *CrtSh) Name() string {
	return "crt.sh"
}

// crtShEntry is one certificate of a crt.sh JSON response.
type crtShEntry struct {
	NameValue string `json:"name_value"`
}

// Names returns every name found in certificates matching %.domain.
func (c *CrtSh) Names(ctx context.Context, domain string) ([]string, error) {
	query := url.Values{}
	query.Set("q", "%."+domain)
	query.Set("output", "json")

	body, err := get(ctx, c.client, c.baseURL+"?"+query.Encode(), c.userAgent, crtShMaxBody)
	if err != nil {
		return nil, err
	}
	return parseCrtSh(body)
}

// parseCrtSh extracts names from a crt.sh JSON document. A name_value
// may hold several newline-separated names.
func parseCrtSh(body []byte) ([]string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty response from crt.sh")
	}

	var entries []crtShEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse crt.sh response: %w", err)
	}

	var names []string
	for _, e := range entries {
		for _, name := range strings.Split(e.NameValue, "\n") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return names, nil
}
