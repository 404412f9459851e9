package static

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/keithlinneman/ipview/internal/log"
)

var ErrInvalidOptions = errors.New("static: invalid options")

type Options struct {
	Logger log.Logger

	// Root is the static root; request paths are resolved relative to it.
	Root fs.FS

	// Dirs limits serving to these top-level directories of Root.
	// Empty serves all of Root.
	Dirs []string

	// Cache policies applied by file extension.
	AssetCacheControl string // default: "public, max-age=3600"
	OtherCacheControl string // default: "no-cache"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=3600"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "no-cache"
	}
}

func (o *Options) validate() error {
	if o.Root == nil {
		return fmt.Errorf("%w: Root is nil", ErrInvalidOptions)
	}
	for _, d := range o.Dirs {
		if d == "" || strings.Contains(d, "/") || !fs.ValidPath(d) {
			return fmt.Errorf("%w: bad dir %q", ErrInvalidOptions, d)
		}
	}
	return nil
}
