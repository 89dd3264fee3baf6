// Command render lays out a résumé file and prints it to PDF, or writes the
// preview HTML, without redis or object storage.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"resumekit/internal/delivery"
	"resumekit/internal/pdf"
	"resumekit/internal/pipeline"
	"resumekit/internal/render"
	"resumekit/internal/resume"
	"resumekit/internal/worker"
)

const (
	exitOK    = 0
	exitUsage = 2
	exitBuild = 1
)

type options struct {
	input     string
	output    string
	template  string
	size      string
	html      bool
	stub      bool
	chromeBin string
	timeout   time.Duration
	attempts  int
	fonts     []string
	verbose   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.input, "input", "i", "", "résumé file (.json, .yaml or .yml), - for JSON on stdin")
	fs.StringVarP(&o.output, "output", "o", "", "output path (default <name>-template-<id>.pdf)")
	fs.StringVarP(&o.template, "template", "t", "", "template id A-E, overrides the file")
	fs.StringVar(&o.size, "size", "", "document size LETTER or A4, overrides the file")
	fs.BoolVar(&o.html, "html", false, "write the preview HTML instead of a PDF")
	fs.BoolVar(&o.stub, "stub", false, "use the placeholder printer instead of Chromium")
	fs.StringVar(&o.chromeBin, "chrome-bin", "", "Chromium binary (default: look it up)")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall build timeout")
	fs.IntVar(&o.attempts, "attempts", 3, "print attempts before giving up")
	fs.StringSliceVar(&o.fonts, "font", []string{"Roboto", "Source Sans Pro", "Lato", "Open Sans"}, "installed font families")
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.input == "" && fs.NArg() > 0 {
		o.input = fs.Arg(0)
	}
	if o.input == "" {
		return o, errors.New("missing input file")
	}
	if o.attempts <= 0 {
		return o, errors.New("--attempts must be positive")
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	snap, err := readSnapshot(o.input, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if o.template != "" {
		snap.Settings.SelectedTemplate = resume.TemplateID(strings.ToUpper(o.template))
	}
	if o.size != "" {
		snap.Settings.DocumentSize = resume.DocumentSize(strings.ToUpper(o.size))
	}
	for _, w := range snap.Validate() {
		logger.Warn("input warning", slog.String("warning", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var printer pdf.Printer = pdf.StubPrinter{}
	if !o.stub && !o.html {
		rod := pdf.NewRodPrinter(pdf.RodOptions{ChromeBin: o.chromeBin, PageTimeout: o.timeout}, logger)
		defer rod.Close()
		printer = rod
	}
	gen := worker.NewGenerator(render.NewRenderer(render.NewFontBook(o.fonts), logger), printer, logger)

	out := o.output
	if o.html {
		preview, err := gen.Preview(snap)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitBuild
		}
		if out == "" {
			out = strings.TrimSuffix(delivery.FileName(snap.Resume.Profile.Name, snap.Template()), ".pdf") + ".html"
		}
		return write(out, preview.HTML, stdout, stderr)
	}

	art, err := build(ctx, gen, snap, o, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitBuild
	}
	if out == "" {
		out = delivery.FileName(snap.Resume.Profile.Name, art.Template)
	}
	return write(out, art.Data, stdout, stderr)
}

// build runs the snapshot through a pipeline so the CLI shares retries,
// timeout and fault classification with the service.
func build(ctx context.Context, gen *worker.Generator, snap resume.Snapshot, o options, logger *slog.Logger) (*pipeline.Artifact, error) {
	p := pipeline.New(worker.NewLocalBuilder(gen, nil, logger), pipeline.Options{
		MaxAttempts: o.attempts,
		Backoff:     []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		Timeout:     o.timeout,
	}, pipeline.WithLogger(logger), pipeline.WithSessionID("cli"))
	defer p.Close()

	p.Request(snap)
	st, err := p.Await(ctx)
	if err != nil {
		return nil, err
	}
	if st.State == pipeline.Failed {
		if st.Fault != nil {
			return nil, st.Fault
		}
		return nil, errors.New(st.ErrorMsg)
	}
	art, err := p.Artifact()
	if err != nil {
		return nil, err
	}
	logger.Info("document built",
		slog.String("template", string(art.Template)),
		slog.Int("pages", art.Pages),
		slog.Int("attempts", st.Attempts),
	)
	return art, nil
}

func write(path string, data []byte, stdout, stderr io.Writer) int {
	if path == "-" {
		if _, err := stdout.Write(data); err != nil {
			fmt.Fprintln(stderr, err)
			return exitBuild
		}
		return exitOK
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(stderr, err)
			return exitBuild
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintln(stderr, err)
		return exitBuild
	}
	fmt.Fprintln(stdout, path)
	return exitOK
}
