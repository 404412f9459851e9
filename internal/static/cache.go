package static

import (
	"path"
	"strings"
)

func cacheControlForFile(name string, o *Options) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".css", ".js", ".mjs", ".map",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf":
		return o.AssetCacheControl
	default:
		return o.OtherCacheControl
	}
}
