package export

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const digestCSS = `
body{font-family:"Noto Sans TC","PingFang TC","Microsoft JhengHei",sans-serif;color:#1c1917;line-height:1.65;}
h1{font-size:1.6rem;border-bottom:2px solid #92400e;padding-bottom:0.3rem;}
h2{font-size:1.25rem;color:#78350f;margin-top:1.6rem;}
h3{font-size:1.05rem;margin-top:1.2rem;}
ul{margin:0.4rem 0 0.8rem;}
a{color:#1d4ed8;text-decoration:underline;}
`

// ChromiumPDFRenderer renders the markdown digest to PDF through headless
// Chromium. Markdown goes through goldmark with GFM, then PrintToPDF.
type ChromiumPDFRenderer struct {
	chromePath string
}

func NewChromiumPDFRenderer() *ChromiumPDFRenderer {
	return &ChromiumPDFRenderer{chromePath: detectChromePath()}
}

// Render converts one markdown digest into PDF bytes.
func (r *ChromiumPDFRenderer) Render(ctx context.Context, title, markdown string) ([]byte, error) {
	htmlDoc, err := buildHTML(title, markdown)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return pdf, nil
}

func buildHTML(title, markdown string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	contentHTML := applyPrintLayoutHooks(content.String())

	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + digestCSS +
		"html,body{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}" +
		`h2[data-page-break-before="true"]{break-before:page;page-break-before:always;}` +
		"@media print{ @page{size:auto;margin:12mm;} }" +
		"</style></head><body>" + contentHTML + "</body></html>", nil
}

// applyPrintLayoutHooks starts every topic section on a fresh page. Topic
// sections are the h2 headings the digest emits.
func applyPrintLayoutHooks(contentHTML string) string {
	reTopic := regexp.MustCompile(`<h2([^>]*)>`)
	first := true
	return reTopic.ReplaceAllStringFunc(contentHTML, func(m string) string {
		if first {
			first = false
			return m
		}
		sub := reTopic.FindStringSubmatch(m)
		return `<h2` + sub[1] + ` data-page-break-before="true">`
	})
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
