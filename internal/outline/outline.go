// Package outline inspects a performance page without driving it. It
// reports what a stage would bind to (typed-text target, sections, nav
// fragments) and renders the page content as markdown for cue-sheet
// review.
//
// The static analysis keys on the conventional markup: section
// elements with ids, fragment nav links, and the typed-text and
// scroll-to-top classes. Pages with custom selectors are still fully
// inspectable live, through the stage's own DOM binding.
package outline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Section is an addressable page region the scroll spy can activate.
type Section struct {
	ID      string `json:"id"`
	Heading string `json:"heading,omitempty"`
}

// Outline is the static analysis of one page.
type Outline struct {
	Title         string    `json:"title"`
	URL           string    `json:"url,omitempty"`
	Sections      []Section `json:"sections"`
	NavTargets    []string  `json:"nav_targets"`
	Unresolved    []string  `json:"unresolved,omitempty"` // nav fragments with no matching id
	HasTypeTarget bool      `json:"has_type_target"`
	HasScrollTop  bool      `json:"has_scroll_top"`
	Markdown      string    `json:"markdown,omitempty"`
}

// Parse analyses raw HTML. It never renders markdown; see FromHTML for
// the full treatment.
func Parse(data []byte) (*Outline, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("outline: parse: %w", err)
	}

	o := &Outline{Title: findTitle(doc)}
	ids := map[string]bool{}
	seenTargets := map[string]bool{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				ids[id] = true
			}
			switch {
			case n.DataAtom == atom.Section:
				if id := attr(n, "id"); id != "" {
					o.Sections = append(o.Sections, Section{ID: id, Heading: firstHeading(n)})
				}
			case n.DataAtom == atom.A:
				href := attr(n, "href")
				if strings.HasPrefix(href, "#") && len(href) > 1 {
					frag := href[1:]
					if !seenTargets[frag] {
						seenTargets[frag] = true
						o.NavTargets = append(o.NavTargets, frag)
					}
				}
			}
			if hasClass(n, "typed-text") {
				o.HasTypeTarget = true
			}
			if hasClass(n, "scroll-to-top") {
				o.HasScrollTop = true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, frag := range o.NavTargets {
		if !ids[frag] {
			o.Unresolved = append(o.Unresolved, frag)
		}
	}
	return o, nil
}

// Converter renders page HTML as markdown, sanitizing it first so
// scripts and event handlers never reach the converter.
type Converter struct {
	conv   *converter.Converter
	policy *bluemonday.Policy
}

// NewConverter creates a markdown converter with the standard plugin set.
func NewConverter() *Converter {
	return &Converter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Markdown converts src to markdown. Returns "" when conversion yields
// nothing usable.
func (c *Converter) Markdown(src, pageURL string) string {
	clean := c.policy.Sanitize(src)

	var opts []converter.ConvertOptionFunc
	if pageURL != "" {
		opts = append(opts, converter.WithDomain(pageURL))
	}
	out, err := c.conv.ConvertString(clean, opts...)
	if err != nil || strings.TrimSpace(out) == "" {
		return ""
	}
	return strings.TrimSpace(out)
}

// FromHTML runs the full treatment on raw HTML: structure plus markdown.
func FromHTML(data []byte, pageURL string) (*Outline, error) {
	o, err := Parse(data)
	if err != nil {
		return nil, err
	}
	o.URL = pageURL
	o.Markdown = NewConverter().Markdown(string(data), pageURL)
	return o, nil
}

// findTitle extracts the <title> text.
func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// firstHeading returns the text of the first h1-h6 in a subtree.
func firstHeading(n *html.Node) string {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			return collectText(n)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if h := firstHeading(c); h != "" {
			return h
		}
	}
	return ""
}

// collectText extracts visible text from a subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(attr(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}
