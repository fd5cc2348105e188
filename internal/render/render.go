// Package render formats annotated listings as markdown for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/Paintersrp/listingnotes/internal/mirror"
)

const defaultWidth = 100

// Markdown returns the entries as a markdown document.
func Markdown(entries []mirror.Entry, origin string) string {
	var b strings.Builder
	b.WriteString("# Listing notes\n\n")
	if len(entries) == 0 {
		b.WriteString("_No annotated listings._\n")
		return b.String()
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "## [%s](%s)", e.ID, ListingURL(origin, e.ID))
		if e.Messaged {
			b.WriteString(" · messaged")
		}
		b.WriteString("\n\n")
		if strings.TrimSpace(e.Note) != "" {
			for _, line := range strings.Split(e.Note, "\n") {
				b.WriteString("> " + line + "\n")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// ListingURL is the canonical page for id on origin.
func ListingURL(origin, id string) string {
	return strings.TrimRight(origin, "/") + "/marketplace/item/" + id + "/"
}

// Terminal renders markdown at width columns.
func Terminal(markdown string, width int) (string, error) {
	if width <= 0 {
		width = defaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.ANSI256),
	)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}

// Entry renders a single entry for previews.
func Entry(e mirror.Entry, width int) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", e.ID)
	if e.Messaged {
		b.WriteString("**Messaged**\n\n")
	}
	if strings.TrimSpace(e.Note) == "" {
		b.WriteString("_No note._\n")
	} else {
		b.WriteString(e.Note + "\n")
	}
	return Terminal(b.String(), width)
}

// Plain formats entries as tab separated lines: id, messaged, note.
func Plain(entries []mirror.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		messaged := "-"
		if e.Messaged {
			messaged = "messaged"
		}
		note := strings.ReplaceAll(e.Note, "\n", `\n`)
		fmt.Fprintf(&b, "%s\t%s\t%s\n", e.ID, messaged, note)
	}
	return b.String()
}

// Summary flattens the first block of a note to one line of plain text,
// dropping markdown emphasis, links and heading markers.
func Summary(note string) string {
	source := []byte(note)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	block := doc.FirstChild()
	if block == nil {
		return ""
	}

	var b strings.Builder
	ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if n.Type() == ast.TypeBlock && b.Len() > 0 {
			b.WriteByte(' ')
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})

	// Code blocks keep their content in lines rather than text children.
	if b.Len() == 0 && block.Lines().Len() > 0 {
		line := block.Lines().At(0)
		b.Write(line.Value(source))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
