package worker

import (
	"context"
	"fmt"
	"log/slog"

	"resumekit/internal/pdf"
	"resumekit/internal/render"
	"resumekit/internal/resume"
	"resumekit/internal/templates"
)

// Document is one printed résumé.
type Document struct {
	PDF          []byte
	Pages        int
	Template     resume.TemplateID
	Warnings     []string
	FontFallback bool
}

// Generator runs template → HTML → print → normalize → validate.
type Generator struct {
	renderer *render.Renderer
	printer  pdf.Printer
	logger   *slog.Logger
}

func NewGenerator(renderer *render.Renderer, printer pdf.Printer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{renderer: renderer, printer: printer, logger: logger}
}

// Generate prints the final document of snap.
func (g *Generator) Generate(ctx context.Context, snap resume.Snapshot) (*Document, error) {
	doc := templates.Render(snap, true)
	page, err := g.renderer.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	raw, err := g.printer.Print(ctx, page.HTML, doc.Size)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	data := pdf.Normalize(raw)
	info, err := pdf.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("inspect pdf: %w", err)
	}

	warnings := append(snap.Validate(), page.Warnings...)
	for _, w := range warnings {
		g.logger.Debug("Worker: input warning", slog.String("warning", w))
	}
	return &Document{
		PDF:          data,
		Pages:        info.Pages,
		Template:     doc.Template,
		Warnings:     warnings,
		FontFallback: page.FontFallback,
	}, nil
}

// Preview renders the interactive HTML page of snap without printing.
func (g *Generator) Preview(snap resume.Snapshot) (*render.Output, error) {
	out, err := g.renderer.Render(templates.Render(snap, false))
	if err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return out, nil
}
