package service

import (
	"path"
	"strings"
)

// Cache-control policies. HTML entry points get a short window so content
// updates propagate quickly; every other asset is treated as immutable per
// package version, since asset filenames are stable within a version.
const (
	cacheControlHTML      = "public, max-age=3600"
	cacheControlImmutable = "public, max-age=31536000, immutable"
)

// contentTypes maps lowercase file extensions to MIME types.
var contentTypes = map[string]string{
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".json":  "application/json",
	".xml":   "application/xml",
	".txt":   "text/plain",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".webp":  "image/webp",
	".mp3":   "audio/mpeg",
	".ogg":   "audio/ogg",
	".wav":   "audio/wav",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".zip":   "application/zip",
}

// contentTypeFor returns the MIME type for a file name, matching the
// extension case-insensitively. Unknown extensions map to
// application/octet-stream.
func contentTypeFor(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// cacheControlFor returns the cache-control directive for a file name.
func cacheControlFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return cacheControlHTML
	default:
		return cacheControlImmutable
	}
}
