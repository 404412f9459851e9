package view

import (
	"context"
	"errors"
	"html/template"
	"strings"

	"github.com/keithlinneman/ipview/internal/xerrors"
)

// Slot identifies one fragment of the page.
type Slot int

const (
	SlotHeader Slot = iota
	SlotBody
	SlotFooter

	numSlots
)

var slotNames = [numSlots]string{"header", "body", "footer"}

func (s Slot) String() string {
	if !s.valid() {
		return "unknown"
	}
	return slotNames[s]
}

func (s Slot) valid() bool { return s >= 0 && s < numSlots }

var (
	ErrFragmentSet     = errors.New("view: fragment already set")
	ErrUnknownSlot     = errors.New("view: unknown fragment slot")
	ErrMissingFragment = errors.New("view: missing fragment")
)

// MissingFragmentError lists the slots that were never written.
type MissingFragmentError struct {
	Slots []Slot
}

func (e *MissingFragmentError) Error() string {
	names := make([]string, len(e.Slots))
	for i, s := range e.Slots {
		names[i] = s.String()
	}
	return ErrMissingFragment.Error() + ": " + strings.Join(names, ", ")
}

func (e *MissingFragmentError) Is(target error) bool { return target == ErrMissingFragment }

// Fragments is the per-request fragment store. It is owned by one request
// and is not safe for concurrent use.
type Fragments struct {
	html [numSlots]template.HTML
	set  [numSlots]bool
}

// Set writes the fragment for slot. Each slot is written once.
func (f *Fragments) Set(slot Slot, html template.HTML) error {
	if !slot.valid() {
		return xerrors.Wrapf(ErrUnknownSlot, "slot %d", int(slot))
	}
	if f.set[slot] {
		return xerrors.Wrapf(ErrFragmentSet, "slot %s", slot)
	}
	f.html[slot] = html
	f.set[slot] = true
	return nil
}

func (f *Fragments) Get(slot Slot) (template.HTML, bool) {
	if !slot.valid() || !f.set[slot] {
		return "", false
	}
	return f.html[slot], true
}

// Complete returns nil when every slot is set, otherwise a
// *MissingFragmentError naming the empty ones.
func (f *Fragments) Complete() error {
	var missing []Slot
	for s := Slot(0); s < numSlots; s++ {
		if !f.set[s] {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingFragmentError{Slots: missing}
}

type fragmentsKey struct{}

func WithFragments(ctx context.Context, f *Fragments) context.Context {
	return context.WithValue(ctx, fragmentsKey{}, f)
}

// FragmentsFromContext returns the request's store, or nil outside a pipeline.
func FragmentsFromContext(ctx context.Context) *Fragments {
	f, _ := ctx.Value(fragmentsKey{}).(*Fragments)
	return f
}
