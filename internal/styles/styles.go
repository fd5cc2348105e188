// Package styles injects the widget stylesheet into a document.
package styles

import "github.com/Paintersrp/listingnotes/internal/dom"

// ID is the id of the injected style element.
const ID = "fm-notes-style"

// Ensure appends the stylesheet to the document element unless an element
// with ID already exists. It reports whether it injected anything.
func Ensure(doc *dom.Document) bool {
	if doc.GetElementByID(ID) != nil {
		return false
	}
	root := doc.DocumentElement()
	if root == nil {
		return false
	}

	el := doc.CreateElement("style")
	el.SetAttr("id", ID)
	el.SetTextContent(CSS)
	root.AppendChild(el)
	return true
}

const CSS = `
.fm-notes-container {
  position: absolute;
  top: 8px;
  right: 8px;
  z-index: 12;
  display: flex;
  flex-direction: column;
  align-items: flex-end;
  font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
}

.fm-notes-chip {
  align-self: flex-end;
  border: none;
  border-radius: 999px;
  padding: 6px 10px;
  background: rgba(28, 43, 51, 0.9);
  color: #e4e6eb;
  font-size: 14px;
  line-height: 1.2;
  cursor: pointer;
  max-width: 180px;
  overflow: hidden;
  text-overflow: ellipsis;
  white-space: nowrap;
}

.fm-notes-chip.has-note {
  background: rgba(24, 119, 242, 0.9);
}

.fm-notes-preview {
  display: none;
  margin-top: 6px;
  width: 220px;
  text-align: left;
  border-radius: 10px;
  padding: 8px 10px;
  background: rgba(17, 17, 17, 0.95);
  color: #e4e6eb;
  font-size: 13px;
  line-height: 1.35;
  white-space: pre-wrap;
  word-break: break-word;
  box-shadow: 0 4px 14px rgba(0, 0, 0, 0.3);
}

.fm-notes-preview.has-note {
  display: block;
}

.fm-messaged-listing {
  box-shadow: inset 0 0 0 2px rgba(225, 68, 68, 0.35) !important;
  border-radius: 12px;
}

.fm-messaged-overlay {
  position: absolute;
  inset: 0;
  display: none;
  border: 3px solid #e14444;
  border-radius: 12px;
  pointer-events: none;
  z-index: 11;
  box-sizing: border-box;
}

.fm-messaged-overlay.is-active {
  display: block;
}

.fm-notes-panel {
  display: none;
  width: 220px;
  margin-top: 6px;
  text-align: left;
  border-radius: 10px;
  padding: 8px;
  background: rgba(17, 17, 17, 0.95);
  box-shadow: 0 4px 14px rgba(0, 0, 0, 0.35);
}

.fm-notes-panel.is-open {
  display: block;
}

.fm-notes-input {
  width: 100%;
  min-height: 68px;
  resize: vertical;
  border: 1px solid #3a3b3c;
  border-radius: 8px;
  padding: 6px;
  box-sizing: border-box;
  background: #242526;
  color: #e4e6eb;
  font-size: 13px;
}

.fm-notes-actions {
  margin-top: 6px;
  display: flex;
  gap: 6px;
  align-items: center;
  flex-wrap: wrap;
}

.fm-notes-save,
.fm-notes-clear,
.fm-notes-messaged {
  border: none;
  border-radius: 7px;
  padding: 6px 11px;
  font-size: 13px;
  cursor: pointer;
}

.fm-notes-messaged {
  margin-right: auto;
  background: #4b2020;
  color: #ffd8d8;
}

.fm-notes-messaged.is-active {
  background: #d83b3b;
  color: #fff;
}

.fm-notes-save {
  background: #1877f2;
  color: #fff;
}

.fm-notes-clear {
  background: #3a3b3c;
  color: #e4e6eb;
}
`
