package dom

import (
	"fmt"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group.
type Selector struct {
	src string
	sel cascadia.Selector
}

func Compile(src string) (Selector, error) {
	sel, err := cascadia.Compile(src)
	if err != nil {
		return Selector{}, fmt.Errorf("compile selector %q: %w", src, err)
	}
	return Selector{src: src, sel: sel}, nil
}

func MustCompile(src string) Selector {
	s, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return s
}

func (s Selector) String() string { return s.src }

func (s Selector) match(n *html.Node) bool {
	if s.sel == nil || n == nil {
		return false
	}
	return s.sel.Match(n)
}

func (s Selector) query(n *html.Node) *html.Node {
	if s.sel == nil {
		return nil
	}
	return cascadia.Query(n, s.sel)
}

func (s Selector) queryAll(n *html.Node) []*html.Node {
	if s.sel == nil {
		return nil
	}
	return cascadia.QueryAll(n, s.sel)
}
