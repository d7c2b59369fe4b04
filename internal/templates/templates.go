// Package templates provides starter documents for new messages.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/types"
)

//go:embed starters/*.mjml.tmpl
var starters embed.FS

// Template describes a starter document.
type Template struct {
	Name        string `json:"name"        yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category"    yaml:"category"`
}

// Context holds the values substituted into a starter.
type Context struct {
	Title          string
	Preheader      string
	Company        string
	Heading        string
	ActionURL      string
	ActionLabel    string
	UnsubscribeURL string
	Year           int
}

// DefaultContext returns placeholder values for every field.
func DefaultContext() Context {
	return Context{
		Title:          "Untitled",
		Preheader:      "",
		Company:        "Company",
		Heading:        "Hello",
		ActionURL:      "https://example.com",
		ActionLabel:    "Learn more",
		UnsubscribeURL: "https://example.com/unsubscribe",
		Year:           time.Now().Year(),
	}
}

var builtin = map[string]Template{
	"blank": {
		Name:        "blank",
		Description: "Single section with one text block",
		Category:    "basic",
	},
	"newsletter": {
		Name:        "newsletter",
		Description: "Header, two-column story section and footer with unsubscribe link",
		Category:    "marketing",
	},
	"opt-in": {
		Name:        "opt-in",
		Description: "Double opt-in confirmation request",
		Category:    "transactional",
	},
	"unsubscribe": {
		Name:        "unsubscribe",
		Description: "Unsubscribe confirmation",
		Category:    "transactional",
	},
}

var funcs = template.FuncMap{
	"text": markup.EscapeText,
	"attr": func(v string) string { return markup.EscapeAttribute("", v) },
}

// List returns the built-in starters sorted by name.
func List() []Template {
	out := make([]Template, 0, len(builtin))
	for _, t := range builtin {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the starter names sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named starter.
func Get(name string) (Template, error) {
	t, ok := builtin[name]
	if !ok {
		return Template{}, mailerrors.NewValidationError(mailerrors.ErrCodeFileNotFound,
			fmt.Sprintf("unknown template %q", name)).
			WithContext("available", strings.Join(Names(), ", "))
	}
	return t, nil
}

// Render returns the markup of the named starter with ctx substituted.
func Render(name string, ctx Context) (string, error) {
	if _, err := Get(name); err != nil {
		return "", err
	}

	source, err := starters.ReadFile("starters/" + name + ".mjml.tmpl")
	if err != nil {
		return "", mailerrors.NewInternalError(mailerrors.ErrCodeInternalError, "reading starter", err)
	}
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(source))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// Document renders the named starter and decodes it.
func Document(name string, ctx Context, opts ...markup.Option) (*types.Block, error) {
	text, err := Render(name, ctx)
	if err != nil {
		return nil, err
	}
	return markup.NewDecoder(opts...).Decode(text)
}

// WriteFile renders the named starter to path. An existing file is only
// replaced when force is set.
func WriteFile(path, name string, ctx Context, force bool) error {
	text, err := Render(name, ctx)
	if err != nil {
		return err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return mailerrors.NewIOError(mailerrors.ErrCodeIO,
				fmt.Sprintf("%s already exists", path), os.ErrExist).
				WithLocation(path, 0, 0)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return mailerrors.NewIOError(mailerrors.ErrCodeIO, "failed to create output directory", err)
		}
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return mailerrors.NewIOError(mailerrors.ErrCodeIO, "failed to write template", err).
			WithLocation(path, 0, 0)
	}
	return nil
}
