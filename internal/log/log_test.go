package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/keithlinneman/ipview/internal/xerrors"
)

func newTestLogger(t *testing.T, lvl slog.Level) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Options{App: "ipview", Level: lvl, JSONFormat: true, Writer: &buf, IncludeErrorLinks: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"Error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if err != nil {
			t.Errorf("ParseLevel(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseLevel_Invalid(t *testing.T) {
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLogger_InfoIncludesBaseAndKV(t *testing.T) {
	l, buf := newTestLogger(t, slog.LevelInfo)
	l.With("component", "server").Info(context.Background(), "hello", "k", "v")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	m := lines[0]
	if m["msg"] != "hello" || m["app"] != "ipview" || m["component"] != "server" || m["k"] != "v" {
		t.Fatalf("unexpected record: %v", m)
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	l, buf := newTestLogger(t, slog.LevelWarn)
	l.Debug(context.Background(), "debug")
	l.Info(context.Background(), "info")
	l.Warn(context.Background(), "warn")

	lines := decodeLines(t, buf)
	if len(lines) != 1 || lines[0]["msg"] != "warn" {
		t.Fatalf("expected only warn, got %v", lines)
	}
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	l, buf := newTestLogger(t, slog.LevelInfo)
	_ = l.With("child", true)
	l.Info(context.Background(), "parent")

	m := decodeLines(t, buf)[0]
	if _, ok := m["child"]; ok {
		t.Fatal("parent logger picked up child attrs")
	}
}

func TestLogger_ErrorAddsChainAndStack(t *testing.T) {
	l, buf := newTestLogger(t, slog.LevelInfo)
	err := xerrors.Wrap(fmt.Errorf("root cause"), "assemble")
	l.Error(context.Background(), err, "pipeline failed")

	m := decodeLines(t, buf)[0]
	if m["err"] != "assemble: root cause" {
		t.Fatalf("err = %v", m["err"])
	}
	if m["cause_type"] != "*errors.errorString" {
		t.Fatalf("cause_type = %v", m["cause_type"])
	}
	chain, ok := m["error_chain"].([]any)
	if !ok || len(chain) != 2 {
		t.Fatalf("error_chain = %v", m["error_chain"])
	}
	if s, _ := m["stack"].(string); s == "" {
		t.Fatal("error record should carry a stack")
	}
	if _, ok := m["error_links"]; !ok {
		t.Fatal("error_links missing")
	}
}

func TestLogger_OddKVIgnored(t *testing.T) {
	l, buf := newTestLogger(t, slog.LevelInfo)
	l.Info(context.Background(), "odd", "orphan")
	m := decodeLines(t, buf)[0]
	if _, ok := m["orphan"]; ok {
		t.Fatal("orphan key should be dropped")
	}
}

func TestNop_Safe(t *testing.T) {
	l := Nop().With("a", 1)
	ctx := context.Background()
	l.Debug(ctx, "x")
	l.Info(ctx, "x")
	l.Warn(ctx, "x")
	l.Error(ctx, nil, "x")
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext on empty ctx should return Nop")
	}
	l, _ := newTestLogger(t, slog.LevelInfo)
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("FromContext returned a different logger")
	}
}

func TestFromContextOr(t *testing.T) {
	fallback, _ := newTestLogger(t, slog.LevelInfo)
	if FromContextOr(context.Background(), fallback) != fallback {
		t.Fatal("empty ctx should return fallback")
	}
	if _, ok := FromContextOr(context.Background(), nil).(nopLogger); !ok {
		t.Fatal("nil fallback should return Nop")
	}
	scoped, _ := newTestLogger(t, slog.LevelDebug)
	ctx := WithContext(context.Background(), scoped)
	if FromContextOr(ctx, fallback) != scoped {
		t.Fatal("ctx logger should win over fallback")
	}
}
