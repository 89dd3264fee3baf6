package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"resumekit/internal/resume"
)

// Printer turns a standalone HTML page into PDF bytes.
type Printer interface {
	Print(ctx context.Context, html []byte, size resume.DocumentSize) ([]byte, error)
}

// PaperSize returns the paper width and height in inches.
func PaperSize(size resume.DocumentSize) (width, height float64) {
	if size.Normalize() == resume.A4 {
		return 8.27, 11.69
	}
	return 8.5, 11
}

// RodOptions configures the headless browser.
type RodOptions struct {
	// ChromeBin overrides the browser binary; empty means look it up.
	ChromeBin string
	// PageTimeout bounds a single print.
	PageTimeout time.Duration
	// FontWait bounds the wait for document.fonts.ready.
	FontWait time.Duration
}

// RodPrinter prints with a lazily launched headless Chromium. One browser
// is shared, every print gets its own page.
type RodPrinter struct {
	opts   RodOptions
	logger *slog.Logger

	mu      sync.Mutex
	current *chrome

	// alive and shutdown are replaced in tests.
	alive    func(*chrome) bool
	shutdown func(*chrome)
}

// chrome is one launched browser process.
type chrome struct {
	launch  *launcher.Launcher
	browser *rod.Browser
}

func (c *chrome) responds() bool {
	_, err := proto.BrowserGetVersion{}.Call(c.browser.Timeout(2 * time.Second))
	return err == nil
}

func (c *chrome) close() {
	if c.browser != nil {
		_ = c.browser.Close()
	}
	if c.launch != nil {
		c.launch.Cleanup()
	}
}

func NewRodPrinter(opts RodOptions, logger *slog.Logger) *RodPrinter {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 30 * time.Second
	}
	if opts.FontWait <= 0 {
		opts.FontWait = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RodPrinter{
		opts:     opts,
		logger:   logger,
		alive:    (*chrome).responds,
		shutdown: (*chrome).close,
	}
}

func (p *RodPrinter) ensureBrowser() (*chrome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return p.current, nil
	}

	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	if bin := strings.TrimSpace(p.opts.ChromeBin); bin != "" {
		launch = launch.Bin(bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		launch.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	p.logger.Info("Printer: browser launched", slog.String("control_url", browserURL))
	p.current = &chrome{launch: launch, browser: browser}
	return p.current, nil
}

// reset drops c so the next print relaunches. A browser that was already
// replaced is left to its new owner.
func (p *RodPrinter) reset(c *chrome) bool {
	p.mu.Lock()
	if p.current != c {
		p.mu.Unlock()
		return false
	}
	p.current = nil
	p.mu.Unlock()

	p.shutdown(c)
	return true
}

// Print loads html into a fresh page, waits for fonts and prints it with
// the page size declared by the document CSS.
func (p *RodPrinter) Print(ctx context.Context, html []byte, size resume.DocumentSize) ([]byte, error) {
	c, err := p.ensureBrowser()
	if err != nil {
		return nil, err
	}

	data, err := p.print(ctx, c.browser, html, size)
	if err != nil && ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
		p.handleFailure(c, err)
	}
	return data, err
}

// handleFailure relaunches the browser only when it stopped answering. A
// failed page leaves the prints running beside it untouched.
func (p *RodPrinter) handleFailure(c *chrome, cause error) {
	if p.alive(c) {
		p.logger.Warn("Printer: print failed, browser still healthy", slog.Any("error", cause))
		return
	}
	if p.reset(c) {
		p.logger.Warn("Printer: browser unresponsive, will be relaunched", slog.Any("error", cause))
	}
}

func (p *RodPrinter) print(ctx context.Context, browser *rod.Browser, html []byte, size resume.DocumentSize) ([]byte, error) {
	page, err := browser.Context(ctx).Timeout(p.opts.PageTimeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		_ = page.CancelTimeout().Context(context.Background()).Close()
	}()

	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	// 等待字体加载完成，超时后继续，缺失字体由回退字体栈处理
	if _, evalErr := page.Timeout(p.opts.FontWait+time.Second).Eval(`(ms) => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(false), ms))
	    ]);
	  }
	  return true;
	}`, p.opts.FontWait.Milliseconds()); evalErr != nil {
		p.logger.Warn("Printer: document.fonts.ready wait failed, continue", slog.Any("error", evalErr))
	}

	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(page); err != nil {
		return nil, fmt.Errorf("set emulated media to print: %w", err)
	}

	width, height := PaperSize(size)
	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(width),
		PaperHeight:       float64Ptr(height),
		MarginTop:         float64Ptr(0),
		MarginBottom:      float64Ptr(0),
		MarginLeft:        float64Ptr(0),
		MarginRight:       float64Ptr(0),
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

// Close shuts the browser down.
func (p *RodPrinter) Close() error {
	p.mu.Lock()
	c := p.current
	p.current = nil
	p.mu.Unlock()
	if c != nil {
		p.shutdown(c)
	}
	return nil
}

func float64Ptr(value float64) *float64 {
	return &value
}
