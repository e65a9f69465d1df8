package render

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"labsignal/domain/insight"
)

// HTML renders a dashboard report as a standalone HTML page
func HTML(d *insight.Dashboard) []byte {
	return MarkdownToHTML(Markdown(d), heading(d.Language, "title"))
}

// MarkdownToHTML converts markdown to HTML. With a title the result is a
// complete page, without one an embeddable fragment.
func MarkdownToHTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse(md)

	flags := html.CommonFlags | html.HrefTargetBlank
	if title != "" {
		flags |= html.CompletePage
	}
	renderer := html.NewRenderer(html.RendererOptions{Title: title, Flags: flags})
	return markdown.Render(doc, renderer)
}
