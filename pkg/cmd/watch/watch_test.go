package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/listingnotes/internal/state/statetest"
	"github.com/Paintersrp/listingnotes/internal/styles"
)

const testPage = `<html><head></head><body><div id="feed">
<a href="/marketplace/item/100/" style="width:200px;height:260px"><img><span>Lamp</span></a>
</div></body></html>`

const fragment = `<a href="/marketplace/item/200/" style="width:200px;height:260px"><img><span>Chair</span></a>`

func waitFor(t *testing.T, path string, cond func(string) bool) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && cond(string(data)) {
			return string(data)
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
	return ""
}

func TestWatchWritesAndAppendsFeed(t *testing.T) {
	s := statetest.New(t, "memory://")
	dir := t.TempDir()
	pagePath := filepath.Join(dir, "page.html")
	feed := filepath.Join(dir, "feed")
	out := filepath.Join(dir, "out.html")
	if err := os.WriteFile(pagePath, []byte(testPage), 0o644); err != nil {
		t.Fatalf("failed to write page: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, s, pagePath, feed, out, &bytes.Buffer{}) }()

	first := waitFor(t, out, func(body string) bool {
		return strings.Contains(body, styles.ID) && strings.Contains(body, "/marketplace/item/100/")
	})
	if strings.Contains(first, "/marketplace/item/200/") {
		t.Fatalf("did not expect the feed card before it was dropped")
	}

	if err := os.MkdirAll(feed, 0o755); err != nil {
		t.Fatalf("failed to create feed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(feed, "next.html"), []byte(fragment), 0o644); err != nil {
		t.Fatalf("failed to write fragment: %v", err)
	}
	waitFor(t, out, func(body string) bool {
		return strings.Contains(body, "/marketplace/item/200/")
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}
