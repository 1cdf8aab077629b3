package css

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Parser extracts flattened rules and @media blocks from style block text.
type Parser struct {
	log *zap.Logger

	tokenizer     bool
	stripComments bool

	// Regular expressions for CSS parsing
	ruleRegex    *regexp.Regexp
	mediaRegex   *regexp.Regexp
	commentRegex *regexp.Regexp
}

// Option configures a Parser.
type Option func(*Parser)

// WithTokenizer switches rule extraction from pattern matching to the CSS
// tokenizer. Media blocks are still located by pattern matching so that they
// are preserved byte for byte.
func WithTokenizer(enable bool) Option {
	return func(p *Parser) {
		p.tokenizer = enable
	}
}

// WithCommentStripping controls removal of /* ... */ comments before rules
// are extracted. Enabled by default.
func WithCommentStripping(enable bool) Option {
	return func(p *Parser) {
		p.stripComments = enable
	}
}

// NewParser creates a new CSS parser with compiled regexes
func NewParser(log *zap.Logger, opts ...Option) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{
		log:           log.Named("css-parser"),
		stripComments: true,

		// selector { declarations }, no nesting
		ruleRegex: regexp.MustCompile(`([^{]+)\{([^}]+)\}`),
		// @media ... { ... } with one level of nested braces
		mediaRegex:   regexp.MustCompile(`@media[^{]+\{(?:[^{}]|\{[^{}]*\})*\}`),
		commentRegex: regexp.MustCompile(`/\*[^*]*\*+([^/*][^*]*\*+)*/`),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse flattens cssText into rules ordered by block and then by selector
// within the block's comma group. Rules inside @media blocks are never
// returned.
func (p *Parser) Parse(cssText string) []Rule {
	if p.stripComments {
		cssText = p.removeComments(cssText)
	}
	cssText = p.mediaRegex.ReplaceAllString(cssText, "")

	var rules []Rule
	if p.tokenizer {
		rules = p.parseTokens(cssText)
	} else {
		rules = p.parseBlocks(cssText)
	}

	p.log.Debug("Extracted CSS rules", zap.Int("rules", len(rules)), zap.Bool("tokenizer", p.tokenizer))
	return rules
}

// parseBlocks scans selectorGroup { declarations } blocks.
func (p *Parser) parseBlocks(cssText string) []Rule {
	var rules []Rule

	matches := p.ruleRegex.FindAllStringSubmatch(cssText, -1)
	for order, match := range matches {
		rules = appendGroup(rules, match[1], parseDeclarations(match[2]), order)
	}
	return rules
}

// appendGroup splits a selector group on commas and appends one rule per
// non-empty selector, all sharing the same declarations and source order.
func appendGroup(rules []Rule, group string, decls *Declarations, order int) []Rule {
	for selector := range strings.SplitSeq(group, ",") {
		selector = strings.TrimSpace(selector)
		if selector == "" {
			continue
		}
		rules = append(rules, Rule{
			Selector:     selector,
			Declarations: decls.Clone(),
			Specificity:  CalculateSpecificity(selector),
			SourceOrder:  order,
		})
	}
	return rules
}

// MediaBlocks returns every @media block of cssText verbatim, in order of
// appearance.
func (p *Parser) MediaBlocks(cssText string) []string {
	return p.mediaRegex.FindAllString(cssText, -1)
}

// removeComments removes CSS comments /* ... */
func (p *Parser) removeComments(css string) string {
	return p.commentRegex.ReplaceAllString(css, "")
}

// parseDeclarations splits a declaration block on ';' and every fragment on
// its first ':'. Fragments without a colon are ignored and the last
// occurrence of a property wins.
func parseDeclarations(block string) *Declarations {
	decls := NewDeclarations()
	for fragment := range strings.SplitSeq(block, ";") {
		property, value, found := strings.Cut(fragment, ":")
		property = strings.TrimSpace(property)
		if !found || property == "" {
			continue
		}
		decls.Set(property, strings.TrimSpace(value))
	}
	return decls
}

// ParseInlineStyle parses a style attribute value into declarations.
func ParseInlineStyle(styleAttr string) *Declarations {
	return parseDeclarations(styleAttr)
}
