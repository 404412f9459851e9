package view

import (
	"bytes"
	"html/template"

	"github.com/keithlinneman/ipview/internal/xerrors"
)

// AssembleFunc combines a complete fragment store into a document.
type AssembleFunc func(frags *Fragments) ([]byte, error)

type Assembler struct {
	tmpl *Template
}

type document struct {
	Title  string
	Header template.HTML
	Body   template.HTML
	Footer template.HTML
}

// Assemble renders the document shell around the three fragments. A missing
// fragment returns *MissingFragmentError and no document.
func (a *Assembler) Assemble(frags *Fragments) ([]byte, error) {
	if frags == nil {
		return nil, &MissingFragmentError{Slots: []Slot{SlotHeader, SlotBody, SlotFooter}}
	}
	if err := frags.Complete(); err != nil {
		return nil, err
	}
	doc := document{Title: a.tmpl.title}
	doc.Header, _ = frags.Get(SlotHeader)
	doc.Body, _ = frags.Get(SlotBody)
	doc.Footer, _ = frags.Get(SlotFooter)

	var buf bytes.Buffer
	if err := a.tmpl.set.ExecuteTemplate(&buf, tmplLayout, doc); err != nil {
		return nil, xerrors.Wrap(err, "render layout")
	}
	return buf.Bytes(), nil
}
