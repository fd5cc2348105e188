package dom

import (
	"math"
	"strconv"
	"strings"
)

// Rect is an element's rendered box size in CSS pixels.
type Rect struct {
	Width  float64
	Height float64
}

// Layout measures elements. There is no layout engine; implementations read
// geometry recorded in the markup.
type Layout interface {
	Measure(el *Element) Rect
}

// InlineLayout reads inline style width and height in px, falling back to
// data-width and data-height attributes. Missing or unparsable values
// measure as zero.
type InlineLayout struct{}

func (InlineLayout) Measure(el *Element) Rect {
	if el == nil {
		return Rect{}
	}
	return Rect{
		Width:  dimension(el, "width"),
		Height: dimension(el, "height"),
	}
}

func dimension(el *Element, prop string) float64 {
	if v, ok := parsePx(el.Style(prop)); ok {
		return v
	}
	if v, ok := parsePx(el.AttrOr("data-"+prop, "")); ok {
		return v
	}
	return 0
}

func parsePx(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSuffix(s, "px")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// ComputedPosition returns the element's inline position, or "static".
func ComputedPosition(el *Element) string {
	if p := strings.TrimSpace(el.Style("position")); p != "" {
		return strings.ToLower(p)
	}
	return "static"
}
