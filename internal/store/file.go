package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type fileDocument struct {
	Origin string                     `json:"origin,omitempty"`
	Area   string                     `json:"area"`
	Values map[string]json.RawMessage `json:"values"`
}

// File keeps the store in one JSON document. Writes replace the file
// atomically; writes by other processes are picked up through fsnotify.
type File struct {
	path   string
	logger *slog.Logger

	write  sync.Mutex
	mu     sync.Mutex
	values map[string]json.RawMessage
	closed bool
	hub    hub

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func OpenFile(path string, opts Options) (*File, error) {
	path = filepath.Clean(path)
	if path == "" || path == "." {
		return nil, fmt.Errorf("%w: empty file path", ErrInvalidDSN)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	f := &File{
		path:   path,
		logger: discardLogger(opts.Logger),
		values: make(map[string]json.RawMessage),
		done:   make(chan struct{}),
	}

	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	f.values = doc.Values

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create store watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	f.watcher = w

	f.wg.Add(1)
	go f.watch()

	return f, nil
}

func (f *File) Path() string { return f.path }

func (f *File) read() (fileDocument, error) {
	doc := fileDocument{Area: AreaLocal, Values: make(map[string]json.RawMessage)}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("failed to read store: %w", err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to decode store %s: %w", f.path, err)
	}
	if doc.Values == nil {
		doc.Values = make(map[string]json.RawMessage)
	}
	for k, v := range doc.Values {
		var b bytes.Buffer
		if err := json.Compact(&b, v); err == nil {
			doc.Values[k] = b.Bytes()
		}
	}
	return doc, nil
}

func (f *File) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	return pick(f.values, keys), nil
}

func (f *File) Set(ctx context.Context, origin string, values map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.write.Lock()
	defer f.write.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	next := cloneValues(f.values)
	deltas := apply(next, values)
	if len(deltas) > 0 {
		if err := f.persist(fileDocument{Origin: origin, Area: AreaLocal, Values: next}); err != nil {
			f.mu.Unlock()
			return err
		}
		f.values = next
	}
	f.mu.Unlock()

	f.hub.publish(Change{Area: AreaLocal, Origin: origin, Keys: deltas})
	return nil
}

func (f *File) persist(doc fileDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".listingnotes-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close store: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace store: %w", err)
	}
	return nil
}

func (f *File) watch() {
	defer f.wg.Done()
	for {
		select {
		case <-f.done:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			f.reload()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				f.logger.Warn("store watcher error", "path", f.path, "err", err)
			}
		}
	}
}

func (f *File) reload() {
	f.write.Lock()
	defer f.write.Unlock()

	doc, err := f.read()
	if err != nil {
		f.logger.Debug("skipping unreadable store", "path", f.path, "err", err)
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	deltas := diff(f.values, doc.Values)
	f.values = doc.Values
	f.mu.Unlock()

	if len(deltas) > 0 {
		f.logger.Info("store reloaded", "path", f.path, "keys", len(deltas), "origin", doc.Origin)
	}
	f.hub.publish(Change{Area: AreaLocal, Origin: doc.Origin, Keys: deltas})
}

func (f *File) Subscribe(fn func(Change)) func() {
	return f.hub.subscribe(fn)
}

func (f *File) Close() error {
	var closeErr error
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.done)
		closeErr = f.watcher.Close()
		f.wg.Wait()
		f.hub.reset()
	})
	return closeErr
}
