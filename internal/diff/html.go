package diff

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// htmlRow is one aligned line pair of the side-by-side table.
// A zero line number means the side is empty.
type htmlRow struct {
	OldNo, NewNo     int
	OldText, NewText string
	OldClass         string
	NewClass         string
}

var htmlTemplate = template.Must(template.New("diff").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.From}} vs {{.To}}</title>
<style>
body { font-family: sans-serif; margin: 1em; }
table.diff { font-family: Courier, monospace; border-collapse: collapse; width: 100%; }
table.diff td { padding: 0 4px; vertical-align: top; white-space: pre-wrap; word-break: break-all; }
table.diff td.no { color: #888; text-align: right; width: 3em; border-right: 1px solid #ccc; }
.add { background: #aaffaa; }
.del { background: #ffaaaa; }
.chg { background: #ffff77; }
.summary { margin-bottom: 1em; }
</style>
</head>
<body>
<div class="summary">
<strong>{{.From}}</strong> &rarr; <strong>{{.To}}</strong>:
+{{.Added}} / -{{.Removed}} lines{{if not .Normalized}} (raw text){{end}}
</div>
<table class="diff">
<thead><tr><th></th><th>{{.From}}</th><th></th><th>{{.To}}</th></tr></thead>
<tbody>
{{- range .Rows}}
<tr><td class="no">{{if .OldNo}}{{.OldNo}}{{end}}</td><td class="{{.OldClass}}">{{.OldText}}</td><td class="no">{{if .NewNo}}{{.NewNo}}{{end}}</td><td class="{{.NewClass}}">{{.NewText}}</td></tr>
{{- end}}
</tbody>
</table>
{{- if not .Rows}}
<p>No differences.</p>
{{- end}}
</body>
</html>
`))

// RenderHTML renders d as a standalone side-by-side HTML document with
// aligned old and new lines. Added lines, deleted lines and replaced lines
// are marked with distinct classes.
func RenderHTML(d *ByteDiff, from, to string) ([]byte, error) {
	data := struct {
		From, To       string
		Added, Removed int
		Normalized     bool
		Rows           []htmlRow
	}{
		From:       from,
		To:         to,
		Added:      d.Added,
		Removed:    d.Removed,
		Normalized: d.Normalized,
		Rows:       htmlRows(d),
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render diff: %w", err)
	}
	return buf.Bytes(), nil
}

func htmlRows(d *ByteDiff) []htmlRow {
	if !d.Changed() {
		return nil
	}

	rows := make([]htmlRow, 0, max(len(d.OldLines), len(d.NewLines)))
	for _, op := range d.Ops {
		switch op.Tag {
		case 'e':
			for k := 0; k < op.I2-op.I1; k++ {
				rows = append(rows, htmlRow{
					OldNo: op.I1 + k + 1, OldText: trimEOL(d.OldLines[op.I1+k]),
					NewNo: op.J1 + k + 1, NewText: trimEOL(d.NewLines[op.J1+k]),
				})
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				rows = append(rows, htmlRow{OldNo: i + 1, OldText: trimEOL(d.OldLines[i]), OldClass: "del"})
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				rows = append(rows, htmlRow{NewNo: j + 1, NewText: trimEOL(d.NewLines[j]), NewClass: "add"})
			}
		case 'r':
			n := max(op.I2-op.I1, op.J2-op.J1)
			for k := range n {
				var row htmlRow
				if i := op.I1 + k; i < op.I2 {
					row.OldNo, row.OldText, row.OldClass = i+1, trimEOL(d.OldLines[i]), "chg"
				}
				if j := op.J1 + k; j < op.J2 {
					row.NewNo, row.NewText, row.NewClass = j+1, trimEOL(d.NewLines[j]), "chg"
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func trimEOL(line string) string {
	return strings.TrimSuffix(line, "\n")
}
