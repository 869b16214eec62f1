// Package fetch retrieves a target URL and normalizes it into a Document
// the four check modules can walk without caring whether the page was
// fetched statically or rendered through a headless browser (spec §4.B).
package fetch

import (
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"compliscan/internal/domain"
)

// NetworkEvent is one observed outbound request, used by the cookie check
// to decide whether a tracking script fired before any consent
// interaction (spec §4.C.3).
type NetworkEvent struct {
	URL             string
	BeforeInteraction bool
}

// Document is the normalized result of a fetch, whatever mode produced
// it.
type Document struct {
	FinalURL       string
	StatusCode     int
	Headers        http.Header
	Cookies        []*http.Cookie
	LocalStorage   map[string]string // nil unless rendered
	Root           *html.Node
	RawHTML        string
	SizeBytes      int64
	RenderModeUsed domain.RenderMode
	NetworkLog     []NetworkEvent // nil in static mode (no interaction model)
	Warnings       []string
}

// Text returns the concatenated text content of n and its descendants.
func Text(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Attr returns the value of attribute key on n, and whether it was
// present at all.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// FindAll returns every descendant of root whose tag name matches any of
// tags (case-insensitive), in document order.
func FindAll(root *html.Node, tags ...string) []*html.Node {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = true
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && want[strings.ToLower(n.Data)] {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// OuterHTML renders n's tag as an opening-tag-only approximation, enough
// to identify an element in an issue locator without re-serializing the
// whole subtree.
func OuterHTML(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(n.Data)
	for _, a := range n.Attr {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(a.Val)
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	return sb.String()
}

// Parse parses raw HTML bytes into a DOM tree.
func Parse(raw string) (*html.Node, error) {
	return html.Parse(strings.NewReader(raw))
}
