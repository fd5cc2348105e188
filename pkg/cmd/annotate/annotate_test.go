package annotate

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/listingnotes/internal/state/statetest"
	"github.com/Paintersrp/listingnotes/internal/styles"
	"github.com/Paintersrp/listingnotes/internal/widget"
)

const testPage = `<html><head></head><body><div id="feed">
<a href="/marketplace/item/100/" style="width:200px;height:260px"><img><span>Lamp</span></a>
<a href="/marketplace/item/200/" style="width:200px;height:260px"><img><span>Chair</span></a>
<a href="/marketplace/item/300/" style="width:40px;height:40px"><span>tiny</span></a>
</div></body></html>`

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(testPage), 0o644); err != nil {
		t.Fatalf("failed to write page: %v", err)
	}
	return path
}

func TestAnnotateWritesStdout(t *testing.T) {
	s := statetest.New(t, "memory://")

	var out, errOut bytes.Buffer
	cmd := NewCmdAnnotate(s)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{writePage(t)})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("annotate returned error: %v", err)
	}

	body := out.String()
	if !strings.Contains(body, styles.ID) {
		t.Fatalf("expected injected styles in output")
	}
	if got := strings.Count(body, `class="`+widget.ClassContainer+`"`); got != 2 {
		t.Fatalf("expected two widgets, got %d", got)
	}
	if got := errOut.String(); got != "attached 2 widgets\n" {
		t.Fatalf("unexpected summary %q", got)
	}
}

func TestAnnotateWritesFile(t *testing.T) {
	s := statetest.New(t, "memory://")
	out := filepath.Join(t.TempDir(), "annotated.html")

	cmd := NewCmdAnnotate(s)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{writePage(t), "-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("annotate returned error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if !strings.Contains(string(data), widget.ClassContainer) {
		t.Fatalf("expected widgets in the written page")
	}
}

func TestAnnotateMissingPage(t *testing.T) {
	s := statetest.New(t, "memory://")

	cmd := NewCmdAnnotate(s)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.html")})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected an error for a missing page")
	}
}
