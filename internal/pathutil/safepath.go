// Package pathutil holds URL path checks shared by file-serving handlers.
package pathutil

import (
	"io/fs"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// Unsafe reports whether p contains a NUL, a backslash or a dot segment.
func Unsafe(p string) bool {
	return strings.ContainsAny(p, "\x00\\") || HasDotSegments(p)
}

// FSName turns a URL path into an fs.FS name. ok is false for unsafe paths,
// the root and paths ending in a slash.
func FSName(urlPath string) (name string, ok bool) {
	if Unsafe(urlPath) || strings.HasSuffix(urlPath, "/") {
		return "", false
	}
	name = strings.TrimPrefix(urlPath, "/")
	if name == "" || !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}
