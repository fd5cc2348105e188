// Package search finds listings by the text of their notes.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Paintersrp/listingnotes/internal/mirror"
)

// Query represents a search request against the index.
type Query struct {
	// Term is matched case insensitively against identifiers and notes.
	Term string
	// Messaged, when set, keeps only listings whose flag equals it.
	Messaged *bool
}

// Result captures a listing match from the index.
type Result struct {
	ID        string
	Snippet   string
	MatchFrom string
	Messaged  bool
}

type document struct {
	mirror.Entry
	lowered string
}

type Index struct {
	docs []document
}

// NewIndex indexes entries as they are at the time of the call.
func NewIndex(entries []mirror.Entry) *Index {
	idx := &Index{docs: make([]document, 0, len(entries))}
	for _, e := range entries {
		idx.docs = append(idx.docs, document{Entry: e, lowered: strings.ToLower(e.Note)})
	}
	return idx
}

func (idx *Index) Len() int { return len(idx.docs) }

// Search returns matches ordered like mirror.Entries: shorter identifiers
// first, then lexically.
func (idx *Index) Search(q Query) []Result {
	term := strings.ToLower(strings.TrimSpace(q.Term))

	results := make([]Result, 0)
	for _, doc := range idx.docs {
		if q.Messaged != nil && doc.Messaged != *q.Messaged {
			continue
		}

		if term == "" {
			results = append(results, Result{ID: doc.ID, Snippet: firstLine(doc.Note), MatchFrom: "filter", Messaged: doc.Messaged})
			continue
		}

		if strings.Contains(doc.ID, term) {
			results = append(results, Result{ID: doc.ID, Snippet: firstLine(doc.Note), MatchFrom: "id", Messaged: doc.Messaged})
			continue
		}

		if snippet, ok := doc.matchNote(term); ok {
			results = append(results, Result{ID: doc.ID, Snippet: snippet, MatchFrom: "note", Messaged: doc.Messaged})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].ID, results[j].ID
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return results
}

func (d document) matchNote(term string) (string, bool) {
	idx := strings.Index(d.lowered, term)
	if idx == -1 {
		return "", false
	}
	runeStart := utf8.RuneCountInString(d.lowered[:idx])
	return bodySnippet(d.Note, runeStart, utf8.RuneCountInString(term)), true
}

func firstLine(note string) string {
	line, _, _ := strings.Cut(note, "\n")
	return strings.TrimSpace(line)
}

func bodySnippet(body string, index, termLen int) string {
	if termLen <= 0 {
		termLen = 1
	}

	runes := []rune(body)
	start := index
	end := index + termLen
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}

	const window = 40
	snippetStart := max(0, start-window)
	snippetEnd := min(len(runes), end+window)

	snippet := string(runes[snippetStart:snippetEnd])
	snippet = strings.Join(strings.Fields(snippet), " ")
	if snippetStart > 0 {
		snippet = "…" + snippet
	}
	if snippetEnd < len(runes) {
		snippet = snippet + "…"
	}
	return snippet
}
