package static

import (
	"io/fs"
	"strings"

	"github.com/keithlinneman/ipview/internal/pathutil"
)

// resolvePath maps a URL path to a regular file in fsys. Directories,
// unsafe paths and paths outside dirs do not resolve.
func resolvePath(urlPath string, fsys fs.FS, dirs []string) (string, bool) {
	name, ok := pathutil.FSName(urlPath)
	if !ok {
		return "", false
	}
	if len(dirs) > 0 && !inDirs(name, dirs) {
		return "", false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return name, true
}

func inDirs(name string, dirs []string) bool {
	top, _, found := strings.Cut(name, "/")
	if !found {
		return false
	}
	for _, d := range dirs {
		if top == d {
			return true
		}
	}
	return false
}
