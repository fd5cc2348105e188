// Package classify decides which listing links are card tiles worth
// annotating.
package classify

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Paintersrp/listingnotes/internal/dom"
)

const (
	DefaultMinWidth  = 140
	DefaultMinHeight = 140
)

// DefaultExcludedSurfaces match dialogs and messenger panels, which show
// listing links that are not feed cards.
var DefaultExcludedSurfaces = []string{
	`[role="dialog"]`,
	`[aria-label*="Messenger"]`,
	`[data-pagelet*="Chat"]`,
	`[data-pagelet*="MWChat"]`,
}

type Options struct {
	ExcludedSurfaces []string
	MinWidth         float64
	MinHeight        float64
	// ExtraRule is an optional boolean expression over width, height,
	// hasImage, href and text. It can only reject.
	ExtraRule string
	Layout    dom.Layout
}

type Classifier struct {
	excluded  dom.Selector
	image     dom.Selector
	minWidth  float64
	minHeight float64
	rule      *vm.Program
	layout    dom.Layout
}

func New(opts Options) (*Classifier, error) {
	surfaces := opts.ExcludedSurfaces
	if len(surfaces) == 0 {
		surfaces = DefaultExcludedSurfaces
	}
	excluded, err := dom.Compile(strings.Join(surfaces, ", "))
	if err != nil {
		return nil, fmt.Errorf("excluded surfaces: %w", err)
	}

	c := &Classifier{
		excluded:  excluded,
		image:     dom.MustCompile("img"),
		minWidth:  opts.MinWidth,
		minHeight: opts.MinHeight,
		layout:    opts.Layout,
	}
	if c.minWidth <= 0 {
		c.minWidth = DefaultMinWidth
	}
	if c.minHeight <= 0 {
		c.minHeight = DefaultMinHeight
	}
	if c.layout == nil {
		c.layout = dom.InlineLayout{}
	}

	if rule := strings.TrimSpace(opts.ExtraRule); rule != "" {
		program, err := expr.Compile(rule, expr.Env(ruleEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile extra rule: %w", err)
		}
		c.rule = program
	}

	return c, nil
}

// Default returns a classifier with the built-in criteria.
func Default() *Classifier {
	c, err := New(Options{})
	if err != nil {
		panic(err)
	}
	return c
}

type ruleEnv struct {
	Width    float64 `expr:"width"`
	Height   float64 `expr:"height"`
	HasImage bool    `expr:"hasImage"`
	Href     string  `expr:"href"`
	Text     string  `expr:"text"`
}

// IsCandidate reports whether el is an annotation target. Elements that are
// not laid out measure as zero and are rejected, as are NaN sizes.
func (c *Classifier) IsCandidate(el *dom.Element) bool {
	if el == nil {
		return false
	}
	if el.Closest(c.excluded) != nil {
		return false
	}

	rect := c.layout.Measure(el)
	if !(rect.Width >= c.minWidth && rect.Height >= c.minHeight) {
		return false
	}

	if el.QuerySelector(c.image) == nil {
		return false
	}

	if c.rule == nil {
		return true
	}

	out, err := expr.Run(c.rule, ruleEnv{
		Width:    rect.Width,
		Height:   rect.Height,
		HasImage: true,
		Href:     el.AttrOr("href", ""),
		Text:     strings.TrimSpace(el.TextContent()),
	})
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
