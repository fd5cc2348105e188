// Package page loads page snapshots into documents and writes them back.
package page

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Paintersrp/listingnotes/internal/dom"
)

// Load parses the page at path.
func Load(path string, opts dom.Options) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()

	doc, err := dom.Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page %s: %w", path, err)
	}
	return doc, nil
}

// ReplaceBody swaps doc's body for the body of the page at path.
func ReplaceBody(doc *dom.Document, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()
	return doc.ReplaceBody(f)
}

// AppendFragment appends the HTML fragment at path to doc's body.
func AppendFragment(doc *dom.Document, path string) error {
	body := doc.Body()
	if body == nil {
		return fmt.Errorf("page has no body")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open fragment: %w", err)
	}
	defer f.Close()
	return doc.AppendHTML(body, f)
}

func Render(doc *dom.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders doc to w.
func Write(doc *dom.Document, w io.Writer) error {
	data, err := Render(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteFile replaces path with data atomically.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
