// Package render turns LayoutTrees into standalone HTML pages that the PDF
// backend prints and the preview endpoint serves.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"resumekit/internal/layout"
	"resumekit/internal/resume"
)

var ErrNilDocument = errors.New("render: nil document")

// Output is a rendered page.
type Output struct {
	HTML     []byte
	Warnings []string
	// FontFallback is set when the requested family was replaced.
	FontFallback bool
}

// Renderer is safe for concurrent use.
type Renderer struct {
	fonts  *FontBook
	logger *slog.Logger
	tmpl   *template.Template
}

func NewRenderer(fonts *FontBook, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if fonts == nil {
		fonts = NewFontBook(nil)
	}
	tmpl := template.Must(template.New("page").Funcs(template.FuncMap{
		"css":  styleAttr,
		"href": safeHref,
	}).Parse(pageTemplate))
	return &Renderer{fonts: fonts, logger: logger, tmpl: tmpl}
}

type pageData struct {
	Title     string
	Author    string
	Lang      string
	PageSize  string
	PageWidth string
	PageMin   string
	FontStack template.CSS
	FontSize  string
	Faces     []FontFace
	Preview   bool
	Root      *layout.Node
}

// Render serializes doc. Identical documents produce identical bytes.
func (r *Renderer) Render(doc *layout.Document) (*Output, error) {
	if doc == nil || doc.Page == nil {
		return nil, ErrNilDocument
	}

	choice := r.fonts.Resolve(doc.Font)
	out := &Output{FontFallback: choice.Fallback}
	if choice.Fallback {
		out.Warnings = append(out.Warnings, choice.Warning)
		r.logger.Warn("Render: font substituted",
			slog.String("family", doc.Font.Family),
			slog.String("template", string(doc.Template)))
	}

	root := doc.Page
	if doc.Final {
		root = root.WithoutInteractive()
	}

	data := pageData{
		Title:     doc.Title,
		Author:    doc.Author,
		Lang:      "en",
		FontStack: template.CSS(choice.Stack),
		FontSize:  layout.Pt(doc.FontSizePt),
		Faces:     choice.Faces,
		Preview:   !doc.Final,
		Root:      root,
	}
	switch doc.Size.Normalize() {
	case resume.A4:
		data.PageSize, data.PageWidth, data.PageMin = "A4", "210mm", "297mm"
	default:
		data.PageSize, data.PageWidth, data.PageMin = "letter", "8.5in", "11in"
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute page template: %w", err)
	}
	out.HTML = buf.Bytes()
	return out, nil
}

// styleAttr serializes a node style, dropping characters that could end the
// declaration list or the attribute.
func styleAttr(s layout.Style) template.CSS {
	clean := make(layout.Style, len(s))
	for k, v := range s {
		clean[sanitizeCSS(k)] = sanitizeCSS(v)
	}
	return template.CSS(clean.CSS())
}

func sanitizeCSS(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '"', '\'', '\\', '\n', '\r':
			return -1
		}
		return r
	}, v)
}

var allowedSchemes = map[string]bool{"http": true, "https": true, "mailto": true, "tel": true}

// safeHref passes through links with an allowed scheme and relative links.
func safeHref(href string) template.URL {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return template.URL("#")
	}
	if u.Scheme != "" && !allowedSchemes[strings.ToLower(u.Scheme)] {
		return template.URL("#")
	}
	return template.URL(u.String())
}

const pageTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
{{- if .Author}}
<meta name="author" content="{{.Author}}">
{{- end}}
<style>
{{- range .Faces}}
@font-face { font-family: "{{.Family}}"; font-weight: {{.Weight}}; src: url("{{.URL}}"); }
{{- end}}
@page { size: {{.PageSize}}; margin: 0; }
html, body { margin: 0; padding: 0; background: white; }
* { box-sizing: border-box; -webkit-print-color-adjust: exact; print-color-adjust: exact; }
:root { --resume-font: {{.FontStack}}; }
.resume-page { width: {{.PageWidth}}; min-height: {{.PageMin}}; font-family: var(--resume-font); font-size: {{.FontSize}}; line-height: 1.3; }
a { color: inherit; text-decoration: none; }
{{- if .Preview}}
.n-hover-outline { opacity: 0; pointer-events: none; transition: opacity 120ms; }
.n-section:hover > .n-hover-outline { opacity: 1; }
{{- end}}
</style>
</head>
<body>
<div class="resume-page">{{template "node" .Root}}</div>
</body>
</html>
{{define "node" -}}
{{- if eq .Kind "link" -}}
<a class="n-{{.Role}}" style="{{css .Style}}" href="{{href .Href}}"{{if .External}} target="_blank" rel="noreferrer"{{end}}>{{.Text}}</a>
{{- else if eq .Kind "text" -}}
<span class="n-{{.Role}}" style="{{css .Style}}">{{.Text}}</span>
{{- else -}}
<div class="n-{{.Kind}} n-{{.Role}}" style="{{css .Style}}"{{if .Section.Valid}} data-section="{{.Section}}"{{end}}>
{{- range .Children}}{{template "node" .}}{{end -}}
</div>
{{- end -}}
{{- end}}`
