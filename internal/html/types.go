package html

import (
	"golang.org/x/net/html"

	"cssinline/internal/css"
)

// Node represents an HTML element in the DOM tree
// This interface can be implemented by any HTML parsing library
type Node interface {
	// Handle returns the underlying parsed node. It is stable for the
	// lifetime of the document and is used to key per element state.
	Handle() *html.Node

	TagName() string
	Text() string

	// Style manipulation
	GetInlineStyle() *css.Declarations
	SetInlineStyle(styles *css.Declarations) error

	// Modification
	SetText(content string) error
	Remove() error
}

// Document represents the complete HTML document
type Document interface {
	// Body returns the body element, false if the document has none.
	Body() (Node, bool)

	// Select returns elements under scope matching selector. An error is
	// returned when the selector cannot be compiled.
	Select(scope Node, selector string) ([]Node, error)

	// StyleTags returns all <style> elements in document order.
	StyleTags() []Node

	// Serialization
	HTML() (string, error)
}

// Parser handles parsing HTML documents
type Parser interface {
	Parse(html string) (Document, error)
}
