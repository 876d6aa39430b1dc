package storage

import (
	"path"
	"strings"
)

// SanitizeKey normalizes a storage key so it can never escape the storage
// root. It converts backslashes to forward slashes, removes every ".."
// occurrence, collapses duplicate separators, and strips leading slashes.
//
// Sanitization is idempotent: SanitizeKey(SanitizeKey(k)) == SanitizeKey(k).
// The result never begins with "/" and never contains "..". Every write and
// delete path must run keys through this before touching the backend.
func SanitizeKey(key string) string {
	k := strings.ReplaceAll(key, "\\", "/")

	// Removal can join surrounding dots into a new "..", so repeat until
	// no occurrence remains.
	for strings.Contains(k, "..") {
		k = strings.ReplaceAll(k, "..", "")
	}

	// path.Clean collapses "//" and resolves "." segments. The artificial
	// leading slash keeps Clean from prefixing "./", and is trimmed after.
	k = path.Clean("/" + k)
	return strings.TrimPrefix(k, "/")
}
