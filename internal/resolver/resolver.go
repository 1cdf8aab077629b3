package resolver

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	nethtml "golang.org/x/net/html"

	"cssinline/internal/css"
	"cssinline/internal/html"
)

var (
	// ErrSelector marks a rule skipped because its selector could not be evaluated.
	ErrSelector = errors.New("selector error")
	// ErrApply marks an element whose merged styles could not be written.
	ErrApply = errors.New("style application error")
	// ErrMediaExtraction marks a style block removed because its @media rules could not be extracted.
	ErrMediaExtraction = errors.New("media query extraction error")
)

// MediaExtractor returns the verbatim @media blocks of a style block.
type MediaExtractor interface {
	MediaBlocks(cssText string) []string
}

// Stats describes what a single Resolve pass did.
type Stats struct {
	RulesApplied         int // Rules whose selector compiled
	SelectorsMatched     int // Total (rule, element) matches
	SelectorErrors       int // Rules skipped because of selector errors
	ElementsStyled       int // Elements whose style attribute was written
	MediaBlocksPreserved int // @media blocks kept in <style> tags
	StyleBlocksRemoved   int // <style> tags removed from the document
}

// Resolver handles CSS cascade resolution and writes the final styles of
// every matched element back as inline style attributes.
type Resolver struct {
	media MediaExtractor
	log   *zap.Logger
}

// New creates a new style resolver
func New(media MediaExtractor, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		media: media,
		log:   log.Named("resolver"),
	}
}

// elementState accumulates cascade results for one element during a pass.
type elementState struct {
	node        html.Node
	styles      *css.Declarations
	specificity css.Specificity
}

// pass is the per call side table. It is keyed by the parsed node pointer,
// which stays valid for as long as the document is alive.
type pass struct {
	states map[*nethtml.Node]*elementState
	order  []*nethtml.Node
}

// Resolve applies rules to the elements under <body> of doc, writes the
// results as style attributes and reduces <style> tags to their @media
// blocks. Recoverable problems are returned combined, they never stop the
// pass. A document without <body> is left untouched.
func (r *Resolver) Resolve(doc html.Document, rules []css.Rule) (Stats, error) {
	var (
		stats Stats
		errs  error
	)

	body, ok := doc.Body()
	if !ok {
		r.log.Debug("Document has no body, nothing to inline")
		return stats, nil
	}

	// lower specificity first, later source order last, so that rules
	// processed later override
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b css.Rule) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	p := &pass{states: make(map[*nethtml.Node]*elementState)}
	for _, rule := range sorted {
		elements, err := doc.Select(body, rule.Selector)
		if err != nil {
			r.log.Warn("Skipping rule", zap.String("selector", rule.Selector), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: %v", ErrSelector, rule.Selector, err))
			stats.SelectorErrors++
			continue
		}
		stats.RulesApplied++
		stats.SelectorsMatched += len(elements)

		for _, element := range elements {
			state := p.state(element)
			r.merge(state, rule)
		}
	}

	for _, handle := range p.order {
		state := p.states[handle]
		written, err := r.apply(state)
		if err != nil {
			r.log.Warn("Unable to apply styles to element", zap.String("tag", state.node.TagName()), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%w: <%s>: %v", ErrApply, state.node.TagName(), err))
			continue
		}
		if written {
			stats.ElementsStyled++
		}
	}

	errs = multierr.Append(errs, r.cleanupStyleTags(doc, &stats))
	return stats, errs
}

// state returns the state of element, creating it from the element's inline
// style on first use.
func (p *pass) state(element html.Node) *elementState {
	handle := element.Handle()
	if state, ok := p.states[handle]; ok {
		return state
	}
	state := &elementState{
		node:        element,
		styles:      element.GetInlineStyle(),
		specificity: css.InlineSpecificity,
	}
	p.states[handle] = state
	p.order = append(p.order, handle)
	return state
}

// merge folds the declarations of rule into state. A property that is not
// yet present is added, otherwise it is overwritten unless the rule ranks
// below the recorded specificity. Rules arrive in ascending order, so
// recording the specificity per property would give the same result.
func (r *Resolver) merge(state *elementState, rule css.Rule) {
	for _, decl := range rule.Declarations.All() {
		if !state.styles.Has(decl.Property) || rule.Specificity.Compare(state.specificity) >= 0 {
			state.styles.Set(decl.Property, decl.Value)
		}
	}
	// recorded per element, not per property
	state.specificity = rule.Specificity
}

// apply writes accumulated styles to the element. The element's current
// inline declarations always win over stylesheet values. It reports whether
// the style attribute was written.
func (r *Resolver) apply(state *elementState) (written bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			written, err = false, fmt.Errorf("panic: %v", rec)
		}
	}()

	combined := state.styles.Clone()
	for _, decl := range state.node.GetInlineStyle().All() {
		combined.Set(decl.Property, decl.Value)
	}
	if combined.Len() == 0 {
		return false, nil
	}
	if err := state.node.SetInlineStyle(combined); err != nil {
		return false, err
	}
	return true, nil
}

// cleanupStyleTags keeps only the @media blocks of style tags that have any
// and removes all other style tags.
func (r *Resolver) cleanupStyleTags(doc html.Document, stats *Stats) error {
	var errs error

	for _, tag := range doc.StyleTags() {
		content := tag.Text()

		if strings.Contains(content, "@media") {
			kept, err := r.keepMediaBlocks(tag, content)
			if err == nil {
				stats.MediaBlocksPreserved += kept
				continue
			}
			r.log.Warn("Unable to preserve media queries, removing style block", zap.Error(err))
			errs = multierr.Append(errs, err)
		}

		if err := tag.Remove(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to remove style tag: %w", err))
			continue
		}
		stats.StyleBlocksRemoved++
	}
	return errs
}

// keepMediaBlocks replaces the content of tag with its @media blocks.
func (r *Resolver) keepMediaBlocks(tag html.Node, content string) (int, error) {
	blocks := r.media.MediaBlocks(content)
	if len(blocks) == 0 {
		return 0, fmt.Errorf("%w: no complete @media block found", ErrMediaExtraction)
	}
	if err := tag.SetText(strings.Join(blocks, "\n")); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMediaExtraction, err)
	}
	return len(blocks), nil
}
