// Package templater renders note exports from embedded and user templates.
package templater

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/Paintersrp/listingnotes/internal/constants"
	"github.com/Paintersrp/listingnotes/internal/mirror"
	"github.com/Paintersrp/listingnotes/internal/render"
)

//go:embed templates
var embeddedTemplates embed.FS

var ErrTemplateNotFound = errors.New("template not found")

type SingleTemplate struct {
	FilePath string
	Content  string
}

type TemplateMap map[string]SingleTemplate

// Templater manages a collection of export templates.
type Templater struct {
	templates TemplateMap
	now       func() time.Time
}

type ExportEntry struct {
	ID       string
	URL      string
	Note     string
	Messaged bool
}

// TemplateData is passed to every export template.
type TemplateData struct {
	Origin    string
	Generated string
	Entries   []ExportEntry
}

var funcs = template.FuncMap{
	"quote": func(s string) string {
		lines := strings.Split(s, "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		return strings.Join(lines, "\n")
	},
	"csv": func(s string) string {
		if !strings.ContainsAny(s, ",\"\n\r") {
			return s
		}
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	},
}

// UserTemplateDir is where templates under home override the embedded ones.
func UserTemplateDir(home string) string {
	return filepath.Join(home, constants.ConfigDir, "templates")
}

// NewTemplater loads templates from the user directory under home, then the
// embedded defaults for any name not already taken.
func NewTemplater(home string) (*Templater, error) {
	tmplMap := make(TemplateMap)

	if home != "" {
		dir := UserTemplateDir(home)
		if _, err := os.Stat(dir); err == nil {
			if err := tmplMap.loadTemplates(dir); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := tmplMap.loadEmbeddedTemplates(embeddedTemplates); err != nil {
		return nil, err
	}

	return &Templater{templates: tmplMap, now: time.Now}, nil
}

// Names lists the available templates in sorted order.
func (t *Templater) Names() []string {
	names := make([]string, 0, len(t.templates))
	for name := range t.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute renders the named template over entries.
func (t *Templater) Execute(templateName, origin string, entries []mirror.Entry) (string, error) {
	tmplData, ok := t.templates[templateName]
	if !ok {
		return "", fmt.Errorf("%w: %q (available: %s)", ErrTemplateNotFound, templateName, strings.Join(t.Names(), ", "))
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(tmplData.Content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", tmplData.FilePath, err)
	}

	data := TemplateData{
		Origin:    origin,
		Generated: t.now().UTC().Format(time.RFC3339),
		Entries:   make([]ExportEntry, 0, len(entries)),
	}
	for _, e := range entries {
		data.Entries = append(data.Entries, ExportEntry{
			ID:       e.ID,
			URL:      render.ListingURL(origin, e.ID),
			Note:     e.Note,
			Messaged: e.Messaged,
		})
	}

	var renderedTemplate bytes.Buffer
	if err := tmpl.Execute(&renderedTemplate, data); err != nil {
		return "", err
	}

	return renderedTemplate.String(), nil
}

func (m TemplateMap) loadEmbeddedTemplates(embeddedFS embed.FS) error {
	return fs.WalkDir(
		embeddedFS,
		"templates",
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() {
				name := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
				if _, exists := m[name]; !exists {
					data, err := fs.ReadFile(embeddedFS, path)
					if err != nil {
						return err
					}

					m[name] = SingleTemplate{
						FilePath: path,
						Content:  string(data),
					}
				}
			}

			return nil
		},
	)
}

func (m TemplateMap) loadTemplates(dirPath string) error {
	return filepath.Walk(
		dirPath,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if !info.IsDir() && filepath.Ext(path) == ".tmpl" {
				name := strings.TrimSuffix(info.Name(), filepath.Ext(info.Name()))

				if _, exists := m[name]; !exists {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					m[name] = SingleTemplate{
						FilePath: path,
						Content:  string(data),
					}
				}
			}
			return nil
		},
	)
}
