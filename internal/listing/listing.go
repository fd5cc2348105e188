package listing

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultOrigin is the base used to resolve relative listing links.
const DefaultOrigin = "https://www.facebook.com"

var (
	itemPathPattern = regexp.MustCompile(`/marketplace/item/(\d+)`)
	digitsPattern   = regexp.MustCompile(`^[0-9]+$`)
)

// QueryKeys are the query parameters consulted, in order, when the path does
// not carry an item identifier.
var QueryKeys = []string{"item_id", "listing_id", "id"}

// Extractor resolves listing links against a base origin and derives the
// numeric listing identifier from them.
type Extractor struct {
	base *url.URL
}

// NewExtractor returns an Extractor resolving relative links against origin.
// An origin that is not an absolute URL leaves the extractor without a base,
// in which case only absolute links produce identifiers.
func NewExtractor(origin string) *Extractor {
	e := &Extractor{}
	if u, err := url.Parse(strings.TrimSpace(origin)); err == nil && u.IsAbs() && u.Host != "" {
		e.base = u
	}
	return e
}

// Base returns the origin links are resolved against, or nil.
func (e *Extractor) Base() *url.URL {
	if e == nil || e.base == nil {
		return nil
	}
	u := *e.base
	return &u
}

// ID extracts the listing identifier from href. The path pattern wins over
// query parameters. ok is false when href cannot be resolved or carries no
// identifier.
func (e *Extractor) ID(href string) (id string, ok bool) {
	u, ok := e.resolve(href)
	if !ok {
		return "", false
	}

	if m := itemPathPattern.FindStringSubmatch(u.EscapedPath()); m != nil {
		return m[1], true
	}

	query := u.Query()
	for _, key := range QueryKeys {
		value := query.Get(key)
		if digitsPattern.MatchString(value) {
			return value, true
		}
	}

	return "", false
}

func (e *Extractor) resolve(href string) (*url.URL, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, false
	}

	if ref.IsAbs() {
		return ref, true
	}

	if e == nil || e.base == nil {
		return nil, false
	}

	return e.base.ResolveReference(ref), true
}

var defaultExtractor = NewExtractor(DefaultOrigin)

// IDFromHref extracts an identifier resolving relative links against
// DefaultOrigin.
func IDFromHref(href string) (string, bool) {
	return defaultExtractor.ID(href)
}

// Resolve accepts either a bare identifier or a listing link.
func (e *Extractor) Resolve(arg string) (string, bool) {
	arg = strings.TrimSpace(arg)
	if digitsPattern.MatchString(arg) {
		return arg, true
	}
	return e.ID(arg)
}
