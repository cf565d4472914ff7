package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"sort"
	"strings"
)

// StyleSnapshot is the presentation state extracted from a live export view:
// stylesheet references, inline style blocks, the exported element's markup,
// and the resolved CSS custom properties. It exists only long enough to
// re-render a stripped-down document and is never persisted.
type StyleSnapshot struct {
	Links  []string          `json:"links"`
	Styles []string          `json:"styles"`
	Markup string            `json:"markup"`
	Vars   map[string]string `json:"vars"`
}

// snapshotJS serializes the page's styling and the target element's markup.
// Cross-origin stylesheets hide their rules; those sheets still contribute
// through their link tags, so the custom-property walk just skips them.
const snapshotJS = `(sel) => {
	const root = document.querySelector(sel);
	const links = [...document.querySelectorAll('link[rel="stylesheet"]')].map(l => l.href);
	const styles = [...document.querySelectorAll('style')].map(s => s.textContent || '');
	const vars = {};
	for (const sheet of document.styleSheets) {
		let rules;
		try { rules = sheet.cssRules; } catch (e) { continue; }
		for (const rule of rules || []) {
			if (rule.selectorText !== ':root') continue;
			for (const name of rule.style) {
				if (name.startsWith('--')) {
					vars[name] = rule.style.getPropertyValue(name).trim();
				}
			}
		}
	}
	return { links, styles, markup: root ? root.outerHTML : '', vars };
}`

// extractSnapshot pulls a StyleSnapshot for the element matching selector.
// Returns ErrElementNotFound if the element is absent from the live page.
func extractSnapshot(ctx context.Context, surf Surface, selector string) (*StyleSnapshot, error) {
	js := fmt.Sprintf("() => (%s)(%q)", snapshotJS, selector)
	raw, err := surf.Eval(ctx, js)
	if err != nil {
		return nil, fmt.Errorf("extracting styles: %w", err)
	}

	var snap StyleSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decoding style snapshot: %w", err)
	}
	if snap.Markup == "" {
		return nil, fmt.Errorf("%w: %q", ErrElementNotFound, selector)
	}
	return &snap, nil
}

// interactiveStripCSS removes styling that only makes sense on a live page.
// Focus rings and hover affordances must never appear in a printed artifact.
const interactiveStripCSS = `
*:focus, *:focus-visible { outline: none !important; box-shadow: none !important; }
* { cursor: auto !important; caret-color: transparent !important; }
::selection { background: transparent; }
`

// buildCleanDocument reconstructs a minimal standalone document from a
// snapshot: the captured stylesheets and markup only, none of the
// application chrome around the export view.
func buildCleanDocument(snap *StyleSnapshot, lang string) string {
	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html")
	if lang != "" {
		sb.WriteString(` lang="` + html.EscapeString(lang) + `"`)
	}
	sb.WriteString(">\n<head>\n<meta charset=\"utf-8\">\n")

	for _, href := range snap.Links {
		sb.WriteString(`<link rel="stylesheet" href="` + html.EscapeString(href) + "\">\n")
	}
	for _, css := range snap.Styles {
		sb.WriteString("<style>\n" + css + "\n</style>\n")
	}

	if len(snap.Vars) > 0 {
		names := make([]string, 0, len(snap.Vars))
		for name := range snap.Vars {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("<style>\n:root {\n")
		for _, name := range names {
			sb.WriteString("\t" + name + ": " + snap.Vars[name] + ";\n")
		}
		sb.WriteString("}\n</style>\n")
	}

	sb.WriteString("<style>" + interactiveStripCSS + "</style>\n")
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString(snap.Markup)
	sb.WriteString("\n</body>\n</html>\n")

	return sb.String()
}
