package static

import (
	"bytes"
	"io"
	"net/http"

	"github.com/keithlinneman/ipview/internal/xerrors"
)

type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name, ok := resolvePath(r.URL.Path, h.opts.Root, h.opts.Dirs)
	if !ok {
		notFound(w)
		return
	}

	if err := h.serveFile(w, r, name); err != nil {
		h.opts.Logger.Warn(r.Context(), "static file open failed", "file", name, "err", err)
		notFound(w)
	}
}

// serveFile uses ServeContent rather than ServeFileFS so a file named
// index.html is served as-is instead of redirected to its directory.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, name string) error {
	f, err := h.opts.Root.Open(name)
	if err != nil {
		return xerrors.Wrapf(err, "open %s", name)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return xerrors.Wrapf(err, "stat %s", name)
	}

	rs, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			return xerrors.Wrapf(err, "read %s", name)
		}
		rs = bytes.NewReader(data)
	}

	if cc := cacheControlForFile(name, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), rs)
	return nil
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNotFound)
}
