// Package sitehttp is the site routing table.
package sitehttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/ipview/internal/httpmw"
)

// StaticDirs are the top-level static directories served under their own
// path prefix.
var StaticDirs = []string{"script", "style"}

// Routes is built once at startup and never changes.
type Routes struct {
	// Page serves GET /.
	Page http.Handler
	// Static serves GET and HEAD under each of StaticDirs. Nil disables them.
	Static http.Handler
}

func New(page, static http.Handler) *Routes {
	return &Routes{Page: page, Static: static}
}

// RegisterRoutes installs the page, the /api mount, the static prefixes and
// an empty 404 for everything else, wrong methods included.
func (rt *Routes) RegisterRoutes(r chi.Router) {
	if rt.Page != nil {
		r.With(httpmw.Scope("page")).Get("/", rt.Page.ServeHTTP)
	}

	// every method, every path under /api
	r.Mount("/api", http.HandlerFunc(NotFound))

	if rt.Static != nil {
		sr := r.With(httpmw.Scope("static"))
		for _, d := range StaticDirs {
			sr.Get("/"+d+"/*", rt.Static.ServeHTTP)
			sr.Head("/"+d+"/*", rt.Static.ServeHTTP)
		}
	}

	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)
}

// NotFound writes a 404 with no body.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNotFound)
}
