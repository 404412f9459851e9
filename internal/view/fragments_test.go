package view

import (
	"context"
	"errors"
	"html/template"
	"testing"
)

func TestSlot_String(t *testing.T) {
	tests := []struct {
		slot Slot
		want string
	}{
		{SlotHeader, "header"},
		{SlotBody, "body"},
		{SlotFooter, "footer"},
		{Slot(-1), "unknown"},
		{numSlots, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.slot.String(); got != tt.want {
			t.Errorf("Slot(%d).String() = %q, want %q", int(tt.slot), got, tt.want)
		}
	}
}

func TestFragments_SetGet(t *testing.T) {
	var f Fragments
	if _, ok := f.Get(SlotBody); ok {
		t.Fatal("empty store reported a body")
	}
	if err := f.Set(SlotBody, "<p>b</p>"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := f.Get(SlotBody)
	if !ok || got != template.HTML("<p>b</p>") {
		t.Fatalf("Get = %q, %v", got, ok)
	}
}

func TestFragments_SetTwice(t *testing.T) {
	var f Fragments
	_ = f.Set(SlotHeader, "<p>one</p>")
	err := f.Set(SlotHeader, "<p>two</p>")
	if !errors.Is(err, ErrFragmentSet) {
		t.Fatalf("second Set err = %v, want ErrFragmentSet", err)
	}
	if got, _ := f.Get(SlotHeader); got != "<p>one</p>" {
		t.Fatalf("first write overwritten: %q", got)
	}
}

func TestFragments_UnknownSlot(t *testing.T) {
	var f Fragments
	if err := f.Set(Slot(7), "x"); !errors.Is(err, ErrUnknownSlot) {
		t.Fatalf("err = %v, want ErrUnknownSlot", err)
	}
	if _, ok := f.Get(Slot(7)); ok {
		t.Fatal("Get on unknown slot reported a value")
	}
}

func TestFragments_Complete(t *testing.T) {
	var f Fragments
	_ = f.Set(SlotBody, "b")

	err := f.Complete()
	if !errors.Is(err, ErrMissingFragment) {
		t.Fatalf("err = %v, want ErrMissingFragment", err)
	}
	var mf *MissingFragmentError
	if !errors.As(err, &mf) {
		t.Fatalf("err %T is not *MissingFragmentError", err)
	}
	if len(mf.Slots) != 2 || mf.Slots[0] != SlotHeader || mf.Slots[1] != SlotFooter {
		t.Fatalf("missing = %v, want [header footer]", mf.Slots)
	}
	if want := "view: missing fragment: header, footer"; err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	_ = f.Set(SlotHeader, "h")
	_ = f.Set(SlotFooter, "f")
	if err := f.Complete(); err != nil {
		t.Fatalf("complete store: %v", err)
	}
}

func TestFragmentsContext(t *testing.T) {
	if FragmentsFromContext(context.Background()) != nil {
		t.Fatal("empty ctx returned a store")
	}
	f := &Fragments{}
	ctx := WithFragments(context.Background(), f)
	if FragmentsFromContext(ctx) != f {
		t.Fatal("store not carried by ctx")
	}
}
