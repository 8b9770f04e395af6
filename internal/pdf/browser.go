package pdf

import (
	"context"
	"fmt"
	"io"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// A3 landscape in inches
const (
	a3WidthIn  = 16.54
	a3HeightIn = 11.69
)

// browser is one running headless Chrome
type browser interface {
	Alive() bool
	NewPage() (page, error)
	Close() error
}

// page is a tab that prints HTML to PDF
type page interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
	Close() error
}

type launchFunc func(opts Options) (browser, error)

type rodBrowser struct {
	b *rod.Browser
	l *launcher.Launcher
}

func launchRod(opts Options) (browser, error) {
	l := launcher.New().Headless(true).Set(flags.Flag("no-sandbox")).Set(flags.Flag("disable-gpu"))
	if opts.BrowserBin != "" {
		l = l.Bin(opts.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	return &rodBrowser{b: b, l: l}, nil
}

func (r *rodBrowser) Alive() bool {
	_, err := r.b.Version()
	return err == nil
}

func (r *rodBrowser) NewPage() (page, error) {
	p, err := r.b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	return &rodPage{p: p}, nil
}

func (r *rodBrowser) Close() error {
	err := r.b.Close()
	r.l.Kill()
	return err
}

type rodPage struct {
	p *rod.Page
}

func (r *rodPage) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	p := r.p.Context(ctx)
	if err := p.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	width, height, zero := a3WidthIn, a3HeightIn, 0.0
	stream, err := p.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
		PaperWidth:        &width,
		PaperHeight:       &height,
		MarginTop:         &zero,
		MarginBottom:      &zero,
		MarginLeft:        &zero,
		MarginRight:       &zero,
	})
	if err != nil {
		return nil, err
	}
	return io.ReadAll(stream)
}

func (r *rodPage) Close() error {
	return r.p.Close()
}
