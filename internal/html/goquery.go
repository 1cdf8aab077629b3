package html

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"cssinline/internal/css"
)

// ErrDetached is returned when a node is modified after it has been removed
// from the document or was never an element.
var ErrDetached = errors.New("node is not an attached element")

// GoQueryDocument wraps goquery.Document to implement our Document interface
type GoQueryDocument struct {
	doc *goquery.Document
	// the parser always synthesizes <body>, this records whether the
	// source had one
	hasBody bool
}

// GoQueryNode wraps goquery.Selection to implement our Node interface
type GoQueryNode struct {
	selection *goquery.Selection
}

// GoQueryParser implements our Parser interface using goquery
type GoQueryParser struct{}

// NewParser creates a new GoQuery-based HTML parser
func NewParser() *GoQueryParser {
	return &GoQueryParser{}
}

// Parse parses HTML string into a Document
func (p *GoQueryParser) Parse(htmlStr string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &GoQueryDocument{doc: doc, hasBody: hasBodyTag(htmlStr)}, nil
}

// hasBodyTag reports whether htmlStr contains a <body> start tag outside of
// comments and raw text elements.
func hasBodyTag(htmlStr string) bool {
	z := html.NewTokenizer(strings.NewReader(htmlStr))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "body" {
				return true
			}
		}
	}
}

// Document implementation

// Body returns the body element, false when the source had no <body> tag
func (d *GoQueryDocument) Body() (Node, bool) {
	if !d.hasBody {
		return nil, false
	}
	selection := d.doc.Find("body").First()
	if selection.Length() == 0 {
		return nil, false
	}
	return &GoQueryNode{selection: selection}, true
}

// Select compiles selector and returns all matching descendants of scope.
func (d *GoQueryDocument) Select(scope Node, selector string) ([]Node, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}

	root := d.doc.Selection
	if scope != nil {
		node := scope.Handle()
		if node == nil {
			return nil, nil
		}
		root = goquery.NewDocumentFromNode(node).Selection
	}

	selection := root.FindMatcher(matcher)
	nodes := make([]Node, 0, selection.Length())
	selection.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &GoQueryNode{selection: s})
	})
	return nodes, nil
}

// StyleTags returns all <style> elements
func (d *GoQueryDocument) StyleTags() []Node {
	selection := d.doc.Find("style")
	nodes := make([]Node, 0, selection.Length())
	selection.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &GoQueryNode{selection: s})
	})
	return nodes
}

// HTML returns the complete HTML document as string
func (d *GoQueryDocument) HTML() (string, error) {
	out, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize HTML: %w", err)
	}
	return out, nil
}

// Node implementation

// Handle returns the underlying node
func (n *GoQueryNode) Handle() *html.Node {
	if n.selection.Length() == 0 {
		return nil
	}
	return n.selection.Get(0)
}

// TagName returns the element's tag name
func (n *GoQueryNode) TagName() string {
	if n.selection.Length() == 0 {
		return ""
	}
	return goquery.NodeName(n.selection)
}

// Text returns the text content
func (n *GoQueryNode) Text() string {
	return n.selection.Text()
}

// GetInlineStyle parses and returns the inline style attribute
func (n *GoQueryNode) GetInlineStyle() *css.Declarations {
	styleAttr, exists := n.selection.Attr("style")
	if !exists || styleAttr == "" {
		return css.NewDeclarations()
	}
	return css.ParseInlineStyle(styleAttr)
}

// SetInlineStyle sets the complete inline style attribute
func (n *GoQueryNode) SetInlineStyle(styles *css.Declarations) error {
	if n.selection.Length() == 0 {
		return fmt.Errorf("no element to set style on: %w", ErrDetached)
	}
	n.selection.SetAttr("style", styles.String())
	return nil
}

// SetText replaces the children of the element with a single raw text node.
// Style and script content is rendered verbatim, so the text is not escaped.
func (n *GoQueryNode) SetText(content string) error {
	node := n.Handle()
	if node == nil || node.Type != html.ElementNode {
		return fmt.Errorf("no element to set text on: %w", ErrDetached)
	}
	for c := node.FirstChild; c != nil; {
		next := c.NextSibling
		node.RemoveChild(c)
		c = next
	}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: content})
	return nil
}

// Remove detaches the element from the document
func (n *GoQueryNode) Remove() error {
	if n.selection.Length() == 0 {
		return fmt.Errorf("no element to remove: %w", ErrDetached)
	}
	n.selection.Remove()
	return nil
}
