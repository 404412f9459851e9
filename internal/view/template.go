package view

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/keithlinneman/ipview/internal/xerrors"
)

const (
	tmplLayout = "layout"
	tmplHeader = "header"
	tmplFooter = "footer"
	tmplHome   = "home"

	// DefaultTitle is the document title.
	DefaultTitle = "Title"
)

// HookFunc runs before or after the page handler and fills one slot.
type HookFunc func(r *http.Request, frags *Fragments) error

// Template renders the static fragments and the document shell.
type Template struct {
	set   *template.Template
	title string
}

// ParseTemplates parses every *.html in fsys and checks the required
// templates are defined.
func ParseTemplates(fsys fs.FS) (*Template, error) {
	set, err := template.ParseFS(fsys, "*.html")
	if err != nil {
		return nil, xerrors.Wrap(err, "parse templates")
	}
	for _, name := range []string{tmplLayout, tmplHeader, tmplFooter, tmplHome} {
		if set.Lookup(name) == nil {
			return nil, xerrors.Newf("template %q not defined", name)
		}
	}
	return &Template{set: set, title: DefaultTitle}, nil
}

func (t *Template) render(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", xerrors.Wrapf(err, "render %s", name)
	}
	// output of html/template is already escaped
	return template.HTML(buf.String()), nil
}

// Before is the pre-handler hook. It fills the header slot.
func (t *Template) Before(_ *http.Request, frags *Fragments) error {
	h, err := t.render(tmplHeader, nil)
	if err != nil {
		return err
	}
	return frags.Set(SlotHeader, h)
}

// After is the post-handler hook. It fills the footer slot and sees
// whatever the handler wrote; the current footer is static.
func (t *Template) After(_ *http.Request, frags *Fragments) error {
	h, err := t.render(tmplFooter, nil)
	if err != nil {
		return err
	}
	return frags.Set(SlotFooter, h)
}

// Assembler returns the document assembler backed by the layout template.
func (t *Template) Assembler() *Assembler {
	return &Assembler{tmpl: t}
}
