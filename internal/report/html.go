package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/changemon/internal/diff"
	"github.com/nao1215/changemon/internal/model"
)

const (
	// reportTimeLayout is the DD-MM-YYYY_HH-MM-SS stamp used in report names.
	reportTimeLayout = "02-01-2006_15-04-05"

	// ReportContentType is the content type of the attached report.
	ReportContentType = "application/octet-stream; charset=utf-8"
)

var setReportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<title>changemon - {{.Domain}}</title>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<style>
:root { --bg: #000; --text: #fff; }
body { margin: 0; padding: 20px; font-family: monospace; background: var(--bg); color: var(--text); }
.header { padding: 15px 0; border-bottom: 1px solid var(--text); text-align: center; }
.stats { display: flex; gap: 20px; margin: 20px 0; }
.stat { flex: 1; padding: 15px; border: 1px solid var(--text); text-align: center; }
.number { font-size: 2em; margin-top: 5px; }
.changes-container { display: flex; gap: 20px; }
.list { flex: 1; margin-bottom: 20px; padding: 15px; border: 1px solid var(--text); }
.subdomain { padding: 2px 0; word-break: break-all; }
.added { color: #4caf50; }
.removed { color: #f44336; }
</style>
</head>
<body>
<div class="header"><h2>{{.Domain}}</h2><div>{{.Generated}}</div></div>
<div class="stats">
<div class="stat"><div>Total</div><div class="number">{{.Total}}</div></div>
<div class="stat"><div>New</div><div class="number">{{len .Added}}</div></div>
<div class="stat"><div>Removed</div><div class="number">{{len .Removed}}</div></div>
</div>
{{- if or .Added .Removed}}
<div class="changes-container">
{{- if .Added}}
<div class="list">
<h3>New Subdomains</h3>
{{- range .Added}}
<div class="subdomain added">+ {{.}}</div>
{{- end}}
</div>
{{- end}}
{{- if .Removed}}
<div class="list">
<h3>Removed Subdomains</h3>
{{- range .Removed}}
<div class="subdomain removed">- {{.}}</div>
{{- end}}
</div>
{{- end}}
</div>
{{- end}}
<div class="list all-subdomains">
<h3>All Subdomains</h3>
{{- range .Members}}
<div class="subdomain">{{.}}</div>
{{- end}}
</div>
</body>
</html>
`))

// HTMLRenderer renders the set-kind report and writes it under a
// reports directory.
type HTMLRenderer struct {
	dir string
	now func() time.Time
}

// HTMLRendererOption configures an HTMLRenderer.
type HTMLRendererOption func(*HTMLRenderer)

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) HTMLRendererOption {
	return func(r *HTMLRenderer) {
		r.now = now
	}
}

// NewHTMLRenderer creates a renderer writing into dir.
func NewHTMLRenderer(dir string, opts ...HTMLRendererOption) *HTMLRenderer {
	r := &HTMLRenderer{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the reports directory.
func (r *HTMLRenderer) Dir() string {
	return r.dir
}

// RenderSet renders the report for domain, writes it to
// <dir>/<domain>_<timestamp>.html and returns it as an attachment.
func (r *HTMLRenderer) RenderSet(domain model.Target, snap *model.SetSnapshot, d diff.SetDiff) (*model.Artifact, error) {
	now := r.now()
	stamp := now.Format(reportTimeLayout)

	var members []string
	if snap != nil {
		members = snap.Members
	}
	data := struct {
		Domain         string
		Generated      string
		Total          int
		Added, Removed []string
		Members        []string
	}{
		Domain:    domain.String(),
		Generated: now.Format(time.RFC1123),
		Total:     len(members),
		Added:     d.Added,
		Removed:   d.Removed,
		Members:   members,
	}

	var buf bytes.Buffer
	if err := setReportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report for %s: %w", domain, err)
	}

	if err := os.MkdirAll(r.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	path := filepath.Join(r.dir, fmt.Sprintf("%s_%s.html", domain, stamp))
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	return &model.Artifact{
		Name:        fmt.Sprintf("report-%s_%s.htm", domain, stamp),
		ContentType: ReportContentType,
		Data:        buf.Bytes(),
		Path:        path,
	}, nil
}
