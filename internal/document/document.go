// Package document parses a host HTML document and takes the one-time
// snapshot of its IronScript elements.
package document

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultScriptType is the type attribute value marking IronScript elements.
const DefaultScriptType = "iron"

// Element is one IronScript <script> element.
type Element struct {
	// Index is the element's position among the document's IronScript elements.
	Index int
	// Src is the trimmed src attribute; empty means inline.
	Src string
	// Async is set when the element carries the data-async attribute.
	Async bool
	// Text is the element's literal text content.
	Text string
}

// Document is a fully parsed host document.
type Document struct {
	name    string
	base    *url.URL
	baseSet bool
	scripts []Element
}

// Parse reads a whole HTML document from r. Discovery happens only after the
// parse has consumed the input, so the snapshot covers every element.
// scriptType selects the marker; empty means DefaultScriptType.
func Parse(r io.Reader, name string, base *url.URL, scriptType string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if scriptType == "" {
		scriptType = DefaultScriptType
	}

	d := &Document{name: name, base: base}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Base:
				d.applyBase(n)
			case atom.Script:
				if strings.EqualFold(strings.TrimSpace(attr(n, "type")), scriptType) {
					d.scripts = append(d.scripts, Element{
						Index: len(d.scripts),
						Src:   strings.TrimSpace(attr(n, "src")),
						Async: hasAttr(n, "data-async"),
						Text:  text(n),
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return d, nil
}

// ParseFile parses the document at path. Relative src attributes resolve
// against the file's location.
func ParseFile(path, scriptType string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, path, FileURL(abs), scriptType)
}

// FileURL converts an absolute path into a file:// URL.
func FileURL(abs string) *url.URL {
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
}

// Name identifies the document in logs.
func (d *Document) Name() string { return d.name }

// Base is the URL relative src attributes resolve against. It may be nil.
func (d *Document) Base() *url.URL { return d.base }

// Scripts returns the discovered elements in document order. The slice is a
// copy; the snapshot itself never changes.
func (d *Document) Scripts() []Element {
	return append([]Element(nil), d.scripts...)
}

// applyBase honours the first <base href> element, as browsers do.
func (d *Document) applyBase(n *html.Node) {
	href, ok := lookup(n, "href")
	if !ok || d.baseSet {
		return
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return
	}
	if d.base != nil {
		ref = d.base.ResolveReference(ref)
	}
	d.base = ref
	d.baseSet = true
}

func attr(n *html.Node, key string) string {
	v, _ := lookup(n, key)
	return v
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := lookup(n, key)
	return ok
}

func lookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func text(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
