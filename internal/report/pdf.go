package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const (
	defaultPDFTimeout = 30 * time.Second
	defaultMargin     = 0.5

	PaperA4     = "a4"
	PaperLetter = "letter"
)

// paperSizes are width and height in inches.
var paperSizes = map[string][2]float64{
	PaperA4:     {8.27, 11.69},
	PaperLetter: {8.5, 11},
}

// ValidPaper reports whether name is a paper size the renderer knows.
func ValidPaper(name string) bool {
	_, ok := paperSizes[normalizePaper(name)]
	return ok
}

func normalizePaper(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return PaperA4
	}
	return name
}

// PDFOptions configures ChromiumPDFRenderer. Zero values select A4 paper,
// half-inch margins and a 30s timeout.
type PDFOptions struct {
	ChromePath string
	Timeout    time.Duration
	Paper      string
	Margin     float64
}

// ChromiumPDFRenderer prints report HTML with headless Chromium. Every page
// carries a footer with the document title and page count.
type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
	paper      string
	margin     float64
}

// NewChromiumPDFRenderer uses opts.ChromePath when set, otherwise the first
// Chromium binary found in the usual locations, otherwise whatever chromedp
// finds on PATH.
func NewChromiumPDFRenderer(opts PDFOptions) *ChromiumPDFRenderer {
	r := &ChromiumPDFRenderer{
		chromePath: opts.ChromePath,
		timeout:    opts.Timeout,
		paper:      normalizePaper(opts.Paper),
		margin:     opts.Margin,
	}
	if r.chromePath == "" {
		r.chromePath = detectChromePath()
	}
	if r.timeout <= 0 {
		r.timeout = defaultPDFTimeout
	}
	if _, ok := paperSizes[r.paper]; !ok {
		r.paper = PaperA4
	}
	if r.margin <= 0 {
		r.margin = defaultMargin
	}
	return r
}

// footerTemplate uses Chromium's print placeholders; "title" is the HTML
// document's <title>, which RenderHTML sets to the report title.
const footerTemplate = `<div style="width:100%;padding:0 0.4in;font-size:8px;color:#555;display:flex;justify-content:space-between;">` +
	`<span class="title"></span><span><span class="pageNumber"></span>/<span class="totalPages"></span></span></div>`

func (r *ChromiumPDFRenderer) printParams() *page.PrintToPDFParams {
	size := paperSizes[r.paper]
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<span></span>`).
		WithFooterTemplate(footerTemplate).
		WithPaperWidth(size[0]).
		WithPaperHeight(size[1]).
		WithMarginTop(r.margin).
		WithMarginBottom(r.margin + 0.25).
		WithMarginLeft(r.margin).
		WithMarginRight(r.margin)
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, htmlDoc string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var out []byte
	src := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(src),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			b, _, err := r.printParams().Do(ctx)
			out = b
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print %s pdf: %w", r.paper, err)
	}
	return out, nil
}

func detectChromePath() string {
	for _, p := range []string{"/usr/bin/chromium-browser", "/usr/bin/chromium", "/usr/bin/google-chrome"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
