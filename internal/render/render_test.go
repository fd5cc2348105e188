package render

import (
	"regexp"
	"strings"
	"testing"

	"github.com/Paintersrp/listingnotes/internal/mirror"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

var entries = []mirror.Entry{
	{ID: "7", Note: "Ping seller\nafter work", Messaged: true},
	{ID: "12", Messaged: true},
	{ID: "30", Note: "Too far"},
}

func TestMarkdown(t *testing.T) {
	md := Markdown(entries, "https://www.facebook.com/")

	for _, want := range []string{
		"## [7](https://www.facebook.com/marketplace/item/7/) · messaged",
		"> Ping seller\n> after work\n",
		"## [30](https://www.facebook.com/marketplace/item/30/)\n",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected markdown to contain %q, got:\n%s", want, md)
		}
	}

	if empty := Markdown(nil, ""); !strings.Contains(empty, "No annotated listings") {
		t.Fatalf("unexpected empty markdown %q", empty)
	}
}

func TestPlain(t *testing.T) {
	want := "7\tmessaged\tPing seller\\nafter work\n12\tmessaged\t\n30\t-\tToo far\n"
	if got := Plain(entries); got != want {
		t.Fatalf("unexpected plain output:\n%q\nwant\n%q", got, want)
	}
}

func TestTerminalRendersText(t *testing.T) {
	out, err := Terminal(Markdown(entries[:1], "https://example.test"), 60)
	if err != nil {
		t.Fatalf("Terminal returned error: %v", err)
	}
	plain := ansi.ReplaceAllString(out, "")
	for _, word := range []string{"7", "Ping", "seller", "after", "work"} {
		if !strings.Contains(plain, word) {
			t.Fatalf("expected rendered output to contain %q, got %q", word, plain)
		}
	}
}

func TestSummary(t *testing.T) {
	cases := map[string]string{
		"":                            "",
		"Asked about delivery":        "Asked about delivery",
		"**Urgent** call _tonight_":   "Urgent call tonight",
		"# Lamp\n\nworks fine":        "Lamp",
		"first\nsecond\n\nthird":      "first second",
		"[seller](https://x.test) ok": "seller ok",
		"```\ncode\n```":              "code",
	}
	for in, want := range cases {
		if got := Summary(in); got != want {
			t.Fatalf("Summary(%q) = %q, want %q", in, got, want)
		}
	}
}
