package report

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const reportCSS = `body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;color:#1c1917;max-width:1000px;margin:0 auto;padding:1.5rem;line-height:1.45;}
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
h1{font-size:1.6rem;border-bottom:2px solid #92400e;padding-bottom:0.3rem;}
h2{font-size:1.2rem;margin-top:1.6rem;}
blockquote{background:#fef3c7;border-left:4px solid #f59e0b;margin:0;padding:0.5rem 0.8rem;color:#78350f;}
table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.8rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;font-weight:700;}
a{color:#1d4ed8;}
@media print{@page{size:auto;margin:12mm;} body{padding:0;max-width:none;}}`

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a markdown report into a standalone HTML document.
func RenderHTML(title, markdown string) (string, error) {
	var content bytes.Buffer
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + reportCSS + "</style></head><body><main class='report-html'>" +
		content.String() +
		"</main></body></html>", nil
}
