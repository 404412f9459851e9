// Package webassets embeds the HTML templates the view pipeline renders.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates/*.html
var embedded embed.FS

// Templates returns the template directory with templates/ stripped.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Errorf("webassets: templates subfs: %w", err))
	}
	return sub
}
