package inliner_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"

	"cssinline/internal/config"
	"cssinline/pkg/inliner"
)

func TestInlineCSS(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "ID beats type selector",
			input:    `<html><body><style>p{color:red}#x{color:blue}</style><p id="x">hi</p></body></html>`,
			contains: []string{`<p id="x" style="color:blue">hi</p>`},
			excludes: []string{"<style"},
		},
		{
			name:     "media rules are never inlined",
			input:    `<style>@media (max-width:600px){p{color:red}}</style><p>hi</p>`,
			contains: []string{`<style>@media (max-width:600px){p{color:red}}</style>`, `<p>hi</p>`},
		},
		{
			name:     "existing inline style wins",
			input:    `<html><body><style>p{color:red}</style><p style="color:green">x</p></body></html>`,
			contains: []string{`<p style="color:green">x</p>`},
			excludes: []string{"<style", "color:red"},
		},
		{
			name:     "no styles",
			input:    `<html><body><p class="a">x</p></body></html>`,
			contains: []string{`<p class="a">x</p>`},
			excludes: []string{"style="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := inliner.InlineCSS(tt.input)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestInline_WithoutBodyUnchanged(t *testing.T) {
	inputs := []string{
		`<style>p{color:red}</style><p>x</p>`,
		`<div><style>.a{margin:0} @media print{.a{margin:1em}}</style><p class="a" style="color:green">y</p></div>`,
	}

	for _, input := range inputs {
		result, err := inliner.New(config.Default(), zaptest.NewLogger(t)).Inline(input)
		require.NoError(t, err)
		assert.Equal(t, input, result.HTML)
		assert.Zero(t, result.ProcessingStats.ElementsStyled)
		assert.Zero(t, result.ProcessingStats.StyleBlocksRemoved)
		assert.NoError(t, result.Diagnostics)
	}
}

func TestInline_Idempotent(t *testing.T) {
	inputs := []string{
		`<html><body><style>p{color:red}#x{color:blue}</style><p id="x">hi</p><p>yo</p></body></html>`,
		`<style>p{margin:0} @media print{p{color:black}}</style><body><p style="color:green">x</p></body>`,
	}

	engine := inliner.New(config.Default(), zaptest.NewLogger(t))
	for _, input := range inputs {
		once, err := engine.InlineString(input)
		require.NoError(t, err)
		twice, err := engine.InlineString(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestInline_StatsAndDiagnostics(t *testing.T) {
	engine := inliner.New(config.Default(), zaptest.NewLogger(t))

	result, err := engine.Inline(`<style>
h1, h2 { margin: 0 }
p[ { color: red }
.lead { font-size: 2em }
@media (min-width: 40em) { h1 { margin: 1em } }
</style>
<body><h1 class="lead">a</h1><h2>b</h2><p>c</p></body>`)
	require.NoError(t, err)

	stats := result.ProcessingStats
	assert.Equal(t, 4, stats.CSSRulesParsed)
	assert.Equal(t, 3, stats.SelectorsMatched)
	assert.Equal(t, 1, stats.SelectorErrors)
	assert.Equal(t, 2, stats.ElementsStyled)
	assert.Equal(t, 1, stats.MediaBlocksPreserved)
	assert.Equal(t, 0, stats.StyleBlocksRemoved)
	assert.Positive(t, stats.ProcessingTime)

	errs := multierr.Errors(result.Diagnostics)
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], inliner.ErrSelector))
	assert.Contains(t, errs[0].Error(), "p[")

	assert.Contains(t, result.HTML, `<h1 class="lead" style="margin:0;font-size:2em">a</h1>`)
	assert.Contains(t, result.HTML, `<h2 style="margin:0">b</h2>`)
	assert.Contains(t, result.HTML, `<p>c</p>`)
}

func TestInline_Tokenizer(t *testing.T) {
	cfg := config.Default()
	cfg.CSS.Tokenizer = true

	out, err := inliner.InlineCSSWithConfig(`<style>a[title="x{y}"] { color: red } b { content: "a;b" }</style><body><a title="x{y}">l</a><b>b</b></body>`, cfg)
	require.NoError(t, err)

	assert.Contains(t, out, `<a title="x{y}" style="color:red">l</a>`)
	assert.Contains(t, out, `<b style="content:&#34;a;b&#34;">b</b>`)
}

func TestProcessingStats_Add(t *testing.T) {
	total := inliner.ProcessingStats{CSSRulesParsed: 1, ElementsStyled: 2}
	total.Add(inliner.ProcessingStats{CSSRulesParsed: 3, SelectorErrors: 1, ProcessingTime: 5})

	assert.Equal(t, inliner.ProcessingStats{
		CSSRulesParsed: 4,
		SelectorErrors: 1,
		ElementsStyled: 2,
		ProcessingTime: 5,
	}, total)
}
