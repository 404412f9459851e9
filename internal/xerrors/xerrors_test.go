package xerrors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"
)

var errSentinel = errors.New("sentinel")

func stackContains(pcs []uintptr, substr string) bool {
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if strings.Contains(fr.Function, substr) {
			return true
		}
		if !more {
			return false
		}
	}
}

func TestNew_MessageAndStack(t *testing.T) {
	err := New("something broke")
	if err.Error() != "something broke" {
		t.Fatalf("Error() = %q", err.Error())
	}

	var hs interface{ StackPCs() []uintptr }
	if !errors.As(err, &hs) {
		t.Fatal("New error should expose StackPCs")
	}
	if !stackContains(hs.StackPCs(), "TestNew_MessageAndStack") {
		t.Fatal("stack should contain the calling test")
	}
}

func TestNewf_WrapsVerb(t *testing.T) {
	err := Newf("loading %s: %w", "layout", errSentinel)
	if !errors.Is(err, errSentinel) {
		t.Fatal("Newf with %w should match the wrapped sentinel")
	}
	if err.Error() != "loading layout: sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Fatal("Wrapf(nil) should be nil")
	}
	if WithStack(nil) != nil {
		t.Fatal("WithStack(nil) should be nil")
	}
	if EnsureTrace(nil) != nil {
		t.Fatal("EnsureTrace(nil) should be nil")
	}
}

func TestWrap_MessageAndPC(t *testing.T) {
	err := Wrap(errSentinel, "render header")
	if err.Error() != "render header: sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, errSentinel) {
		t.Fatal("Wrap should preserve errors.Is")
	}

	var hp interface{ PC() uintptr }
	if !errors.As(err, &hp) {
		t.Fatal("Wrap should expose PC")
	}
	fn := runtime.FuncForPC(hp.PC())
	if fn == nil || !strings.Contains(fn.Name(), "TestWrap_MessageAndPC") {
		t.Fatalf("PC should point at the caller, got %v", fn)
	}
}

func TestWrapf_Formats(t *testing.T) {
	err := Wrapf(errSentinel, "stage %s", "footer")
	if err.Error() != "stage footer: sentinel" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestEnsureTrace_DoesNotDoubleWrap(t *testing.T) {
	first := New("boom")
	if EnsureTrace(first) != first {
		t.Fatal("EnsureTrace should return an already stacked error unchanged")
	}

	plain := fmt.Errorf("plain")
	got := EnsureTrace(plain)
	if got == plain {
		t.Fatal("EnsureTrace should add a stack to a plain error")
	}
	if !errors.Is(got, plain) {
		t.Fatal("EnsureTrace should preserve the original error")
	}
}

func TestEnsureTrace_SeesStackThroughWrap(t *testing.T) {
	inner := WithStack(errSentinel)
	outer := Wrap(inner, "outer")
	if EnsureTrace(outer) != outer {
		t.Fatal("EnsureTrace should find the stack below a Wrap")
	}
}
