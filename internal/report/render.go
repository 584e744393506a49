package report

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md renders GitHub-flavoured Markdown. Raw HTML in the input is dropped
// (goldmark's default without html.WithUnsafe).
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML renders model output for the page. If rendering fails the text is
// returned escaped inside a <pre>.
func HTML(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(buf.String())
}
