package static

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"script/app.js":     {Data: []byte("console.log('hi');\n")},
		"script/index.html": {Data: []byte("<p>raw</p>")},
		"script/sub/x.js":   {Data: []byte("x")},
		"style/site.css":    {Data: []byte("body{margin:0}")},
		"style/notes.txt":   {Data: []byte("notes")},
		"secret.txt":        {Data: []byte("top level")},
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := New(Options{Root: testFS(), Dirs: []string{"script", "style"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNew_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"nil root", Options{}},
		{"empty dir", Options{Root: testFS(), Dirs: []string{""}}},
		{"nested dir", Options{Root: testFS(), Dirs: []string{"script/sub"}}},
		{"dot dir", Options{Root: testFS(), Dirs: []string{".."}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); !errors.Is(err, ErrInvalidOptions) {
				t.Fatalf("err = %v, want ErrInvalidOptions", err)
			}
		})
	}
}

func TestServe_ExistingFiles(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		path  string
		body  string
		ctype string
		cache string
	}{
		{"/script/app.js", "console.log('hi');\n", "text/javascript; charset=utf-8", "public, max-age=3600"},
		{"/style/site.css", "body{margin:0}", "text/css; charset=utf-8", "public, max-age=3600"},
		{"/script/sub/x.js", "x", "text/javascript; charset=utf-8", "public, max-age=3600"},
		{"/style/notes.txt", "notes", "text/plain; charset=utf-8", "no-cache"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(h, http.MethodGet, tt.path)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if rec.Body.String() != tt.body {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.body)
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.ctype {
				t.Errorf("Content-Type = %q, want %q", ct, tt.ctype)
			}
			if cc := rec.Header().Get("Cache-Control"); cc != tt.cache {
				t.Errorf("Cache-Control = %q, want %q", cc, tt.cache)
			}
		})
	}
}

func TestServe_IndexHTMLNotRedirected(t *testing.T) {
	rec := do(newTestHandler(t), http.MethodGet, "/script/index.html")
	if rec.Code != http.StatusOK || rec.Body.String() != "<p>raw</p>" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
}

func TestServe_NotFound(t *testing.T) {
	h := newTestHandler(t)
	for _, p := range []string{
		"/script/missing.js",
		"/script/",
		"/script",
		"/script/sub",
		"/style/../secret.txt",
		"/script/%5c..%5csecret.txt",
		"/secret.txt",
		"/",
	} {
		rec := do(h, http.MethodGet, p)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", p, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Errorf("%s: body = %q, want empty", p, rec.Body.String())
		}
		if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
			t.Errorf("%s: Cache-Control = %q", p, cc)
		}
	}
}

func TestServe_Head(t *testing.T) {
	rec := do(newTestHandler(t), http.MethodHead, "/style/site.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("HEAD wrote body %q", rec.Body.String())
	}
	if cl := rec.Header().Get("Content-Length"); cl != "14" {
		t.Fatalf("Content-Length = %q", cl)
	}
}

func TestServe_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec := do(h, m, "/script/app.js")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", m, rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != "GET, HEAD" {
			t.Errorf("%s: Allow = %q", m, allow)
		}
	}
}

func TestServe_NoDirsServesWholeRoot(t *testing.T) {
	h, err := New(Options{Root: testFS()})
	if err != nil {
		t.Fatal(err)
	}
	if rec := do(h, http.MethodGet, "/secret.txt"); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without Dirs", rec.Code)
	}
}

func TestServe_DirFS(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "style"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := []byte("h1{color:red}\n")
	if err := os.WriteFile(filepath.Join(root, "style", "main.css"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	h, err := New(Options{Root: os.DirFS(root), Dirs: []string{"script", "style"}})
	if err != nil {
		t.Fatal(err)
	}
	rec := do(h, http.MethodGet, "/style/main.css")
	if rec.Code != http.StatusOK || rec.Body.String() != string(content) {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
	if rec := do(h, http.MethodGet, "/script/app.js"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing dir: status = %d", rec.Code)
	}
}

func TestServe_ConditionalGet(t *testing.T) {
	h := newTestHandler(t)
	first := do(h, http.MethodGet, "/script/app.js")
	lm := first.Header().Get("Last-Modified")
	if lm == "" {
		t.Skip("map fs entries have zero mod time")
	}
	req := httptest.NewRequest(http.MethodGet, "/script/app.js", nil)
	req.Header.Set("If-Modified-Since", lm)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
}
