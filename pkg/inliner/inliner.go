package inliner

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cssinline/internal/config"
	"cssinline/internal/css"
	"cssinline/internal/html"
	"cssinline/internal/resolver"
)

// Recoverable problems reported in InlineResult.Diagnostics, use errors.Is
// on the individual errors returned by multierr.Errors.
var (
	ErrSelector        = resolver.ErrSelector
	ErrApply           = resolver.ErrApply
	ErrMediaExtraction = resolver.ErrMediaExtraction
)

// Inliner moves CSS rules from <style> blocks into inline style attributes.
// It holds no per call state and may be shared.
type Inliner struct {
	config     config.Config
	parser     *css.Parser
	htmlParser html.Parser
	log        *zap.Logger
}

// New creates a new CSS inliner with the given configuration
func New(cfg config.Config, log *zap.Logger) *Inliner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inliner{
		config: cfg,
		parser: css.NewParser(log,
			css.WithTokenizer(cfg.CSS.Tokenizer),
			css.WithCommentStripping(cfg.CSS.StripComments)),
		htmlParser: html.NewParser(),
		log:        log.Named("inliner"),
	}
}

// NewWithDefaults creates a new CSS inliner with default configuration and
// no logging
func NewWithDefaults() *Inliner {
	return New(config.Default(), nil)
}

// InlineResult contains the result of CSS inlining operation
type InlineResult struct {
	HTML            string          // Final HTML with inlined styles
	ProcessingStats ProcessingStats // Processing statistics
	// Diagnostics combines recoverable problems met during conversion, nil
	// when there were none. They never prevent a result.
	Diagnostics error
}

// ProcessingStats contains metrics from the inlining process
type ProcessingStats struct {
	CSSRulesParsed       int           // Simple-selector rules extracted
	SelectorsMatched     int           // Total (rule, element) matches
	SelectorErrors       int           // Rules skipped because of selector errors
	ElementsStyled       int           // Elements that received a style attribute
	MediaBlocksPreserved int           // @media blocks kept in <style> tags
	StyleBlocksRemoved   int           // <style> tags removed
	ProcessingTime       time.Duration // Wall time of the conversion
}

// Add accumulates other into s.
func (s *ProcessingStats) Add(other ProcessingStats) {
	s.CSSRulesParsed += other.CSSRulesParsed
	s.SelectorsMatched += other.SelectorsMatched
	s.SelectorErrors += other.SelectorErrors
	s.ElementsStyled += other.ElementsStyled
	s.MediaBlocksPreserved += other.MediaBlocksPreserved
	s.StyleBlocksRemoved += other.StyleBlocksRemoved
	s.ProcessingTime += other.ProcessingTime
}

// Inline converts the <style> rules of htmlContent into inline styles. A
// document without <body> is returned unchanged. Only unrecoverable failures
// (parsing or serializing the document) are returned as error.
func (i *Inliner) Inline(htmlContent string) (*InlineResult, error) {
	start := time.Now()

	doc, err := i.htmlParser.Parse(htmlContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	rules := i.parser.Parse(i.extractCSS(doc))

	stats, diagnostics := resolver.New(i.parser, i.log).Resolve(doc, rules)

	// without <body> nothing was touched, hand back the input as is
	finalHTML := htmlContent
	if _, ok := doc.Body(); ok {
		if finalHTML, err = doc.HTML(); err != nil {
			return nil, fmt.Errorf("failed to serialize HTML: %w", err)
		}
	}

	result := &InlineResult{
		HTML: finalHTML,
		ProcessingStats: ProcessingStats{
			CSSRulesParsed:       len(rules),
			SelectorsMatched:     stats.SelectorsMatched,
			SelectorErrors:       stats.SelectorErrors,
			ElementsStyled:       stats.ElementsStyled,
			MediaBlocksPreserved: stats.MediaBlocksPreserved,
			StyleBlocksRemoved:   stats.StyleBlocksRemoved,
			ProcessingTime:       time.Since(start),
		},
		Diagnostics: diagnostics,
	}

	i.log.Debug("Inlined document",
		zap.Int("rules", result.ProcessingStats.CSSRulesParsed),
		zap.Int("elements", result.ProcessingStats.ElementsStyled),
		zap.Int("diagnostics", len(multierr.Errors(diagnostics))),
		zap.Duration("elapsed", result.ProcessingStats.ProcessingTime))
	return result, nil
}

// InlineString is a convenience method that inlines CSS in an HTML string
func (i *Inliner) InlineString(htmlContent string) (string, error) {
	result, err := i.Inline(htmlContent)
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}

// extractCSS concatenates the content of all <style> tags in document order
func (i *Inliner) extractCSS(doc html.Document) string {
	var cssContent strings.Builder

	for _, styleTag := range doc.StyleTags() {
		content := styleTag.Text()
		if content != "" {
			cssContent.WriteString(content)
			cssContent.WriteString("\n")
		}
	}
	return cssContent.String()
}

// InlineCSS is a convenience function that inlines CSS with default configuration
func InlineCSS(htmlContent string) (string, error) {
	return NewWithDefaults().InlineString(htmlContent)
}

// InlineCSSWithConfig is a convenience function that inlines CSS with custom configuration
func InlineCSSWithConfig(htmlContent string, cfg config.Config) (string, error) {
	return New(cfg, nil).InlineString(htmlContent)
}
