package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestTraceResponseHeaders_WithSpan(t *testing.T) {
	ctx, _, end := newRecordingSpan(t, "req")
	defer end()
	sc := trace.SpanContextFromContext(ctx)

	h := TraceResponseHeaders("", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	if rec.Header().Get("X-Trace-Id") != sc.TraceID().String() {
		t.Fatalf("X-Trace-Id = %q", rec.Header().Get("X-Trace-Id"))
	}
	if rec.Header().Get("X-Span-Id") != sc.SpanID().String() {
		t.Fatalf("X-Span-Id = %q", rec.Header().Get("X-Span-Id"))
	}
}

func TestTraceResponseHeaders_WithoutSpan(t *testing.T) {
	h := TraceResponseHeaders("", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("no trace header expected without a span")
	}
}
