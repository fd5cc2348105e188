package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Paintersrp/listingnotes/internal/pathutil"
)

// DefaultSettle is how long a path must be quiet before its change is
// reported. Writers usually emit several events per save.
const DefaultSettle = 75 * time.Millisecond

// PageWatcher reports rewrites of a page snapshot and fragments dropped into
// a feed directory. Callbacks run on the watcher goroutine.
type PageWatcher struct {
	watcher *fsnotify.Watcher
	page    string
	feed    string
	settle  time.Duration
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	timers  map[string]*time.Timer
	onPage  func(string)
	onFeed  func(string)
	onError func(error)
	onClose func()
}

// NewPageWatcher watches page and, when feed is not empty, the feed
// directory for new .html files.
func NewPageWatcher(page, feed string) (*PageWatcher, error) {
	normalizedPage, err := pathutil.Absolute(page)
	if err != nil {
		return nil, err
	}
	if normalizedPage == "" {
		return nil, errors.New("page path cannot be empty")
	}
	normalizedFeed, err := pathutil.Absolute(feed)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watcher := &PageWatcher{
		watcher: w,
		page:    normalizedPage,
		feed:    normalizedFeed,
		settle:  DefaultSettle,
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}

	// Editors replace files by rename, so the directory is watched instead
	// of the file itself.
	if err := w.Add(filepath.Dir(normalizedPage)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	if watcher.feed != "" {
		if err := os.MkdirAll(watcher.feed, 0o755); err != nil {
			_ = watcher.Close()
			return nil, err
		}
		if err := w.Add(watcher.feed); err != nil {
			_ = watcher.Close()
			return nil, err
		}
	}

	go watcher.run()
	return watcher, nil
}

// OnPage registers a callback for settled rewrites of the page.
func (w *PageWatcher) OnPage(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onPage = fn
}

// OnFeed registers a callback for settled fragments in the feed directory.
func (w *PageWatcher) OnFeed(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onFeed = fn
}

func (w *PageWatcher) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// OnClose registers a callback that is invoked exactly once when the watcher
// shuts down.
func (w *PageWatcher) OnClose(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClose = fn
}

func (w *PageWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			path := pathutil.NormalizePath(event.Name)
			switch {
			case path == w.page:
				w.schedule(path, w.pageCallback)
			case w.isFragment(path):
				w.schedule(path, w.feedCallback)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			fn := w.onError
			w.mu.Unlock()
			if err != nil && fn != nil {
				fn(err)
			}
		}
	}
}

func (w *PageWatcher) isFragment(path string) bool {
	if !pathutil.DirectChild(w.feed, path) {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".html" || ext == ".htm"
}

func (w *PageWatcher) pageCallback() func(string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onPage
}

func (w *PageWatcher) feedCallback() func(string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.onFeed
}

// schedule reports path once it has been quiet for the settle interval.
func (w *PageWatcher) schedule(path string, callback func() func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}
		if _, err := os.Stat(path); err != nil {
			return
		}
		if fn := callback(); fn != nil {
			fn(path)
		}
	})
}

func (w *PageWatcher) Close() error {
	if w == nil {
		return nil
	}

	var closeErr error
	w.once.Do(func() {
		close(w.done)
		closeErr = w.watcher.Close()

		w.mu.Lock()
		for path, t := range w.timers {
			t.Stop()
			delete(w.timers, path)
		}
		fn := w.onClose
		w.mu.Unlock()

		if fn != nil {
			fn()
		}
	})

	return closeErr
}
