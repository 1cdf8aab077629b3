package css

import (
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// parseTokens walks the CSS grammar produced by the tokenizer. Unlike the
// pattern based extraction it copes with braces, semicolons and colons inside
// strings. At-rule blocks are skipped, each top level ruleset is one source
// order slot.
func (p *Parser) parseTokens(cssText string) []Rule {
	var (
		rules []Rule
		order int
	)

	parser := css.NewParser(parse.NewInputString(cssText), false)
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if atEOF(parser) {
				return rules
			}
			p.log.Debug("CSS tokenizer error", zap.Error(parser.Err()))

		case css.BeginAtRuleGrammar:
			p.log.Debug("Skipping @-rule", zap.String("rule", string(data)))
			skipAtRuleBlock(parser)

		case css.BeginRulesetGrammar:
			group := tokensText(data, parser.Values())
			rules = appendGroup(rules, group, p.collectDeclarations(parser), order)
			order++
		}
	}
}

// collectDeclarations reads declarations until the end of the current ruleset.
// Malformed declarations are dropped.
func (p *Parser) collectDeclarations(parser *css.Parser) *Declarations {
	decls := NewDeclarations()
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.EndRulesetGrammar:
			return decls

		case css.ErrorGrammar:
			if atEOF(parser) {
				return decls
			}
			p.log.Debug("Dropping malformed declaration", zap.Error(parser.Err()))

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			property := strings.TrimSpace(string(data))
			if property == "" {
				continue
			}
			decls.Set(property, tokensText(nil, parser.Values()))
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if atEOF(parser) {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// atEOF reports whether the last ErrorGrammar ended the input rather than
// flagging a recoverable syntax problem.
func atEOF(parser *css.Parser) bool {
	err := parser.Err()
	return err == nil || errors.Is(err, io.EOF)
}

// tokensText rebuilds source text from grammar data and its value tokens.
func tokensText(data []byte, values []css.Token) string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	return strings.TrimSpace(sb.String())
}
