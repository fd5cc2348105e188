package page

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/listingnotes/internal/dom"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadAppendReplaceAndWrite(t *testing.T) {
	dir := t.TempDir()
	pagePath := filepath.Join(dir, "page.html")
	writeFile(t, pagePath, `<html><body><p id="a">one</p></body></html>`)

	doc, err := Load(pagePath, dom.Options{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	fragment := filepath.Join(dir, "card.html")
	writeFile(t, fragment, `<p id="b">two</p>`)
	if err := AppendFragment(doc, fragment); err != nil {
		t.Fatalf("AppendFragment returned error: %v", err)
	}
	if doc.GetElementByID("b") == nil {
		t.Fatalf("expected fragment to be appended")
	}

	writeFile(t, pagePath, `<html><body><p id="c">three</p></body></html>`)
	if err := ReplaceBody(doc, pagePath); err != nil {
		t.Fatalf("ReplaceBody returned error: %v", err)
	}
	if doc.GetElementByID("a") != nil || doc.GetElementByID("c") == nil {
		t.Fatalf("expected body to be replaced")
	}

	data, err := Render(doc)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	out := filepath.Join(dir, "out", "annotated.html")
	if err := WriteFile(out, data); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	written, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(written), `<p id="c">three</p>`) {
		t.Fatalf("unexpected output %s", written)
	}

	entries, _ := os.ReadDir(filepath.Dir(out))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files to remain, got %d entries", len(entries))
	}
}

func TestLoadMissingPage(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.html"), dom.Options{}); err == nil {
		t.Fatalf("expected an error for a missing page")
	}
}
