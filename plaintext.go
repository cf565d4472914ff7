package exporter

import (
	"strings"

	"golang.org/x/net/html"
)

// flattenHTML reduces rich-text field content to plain text for the
// structured generators. Resume summaries and descriptions may arrive as
// HTML fragments from the editing front-end; DOCX, LaTeX and JSON artifacts
// want only the text. Plain strings pass through untouched.
func flattenHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	nodes, err := html.ParseFragment(strings.NewReader(s), nil)
	if err != nil {
		return s
	}

	var sb strings.Builder
	for _, n := range nodes {
		collectText(n, &sb)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// blockElements delimit words when flattening. Inline elements like <b> and
// <a> must not split the text around them.
var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true,
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	// Script and style bodies are not content.
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
	if n.Type == html.ElementNode && blockElements[n.Data] {
		sb.WriteByte(' ')
	}
}
