package storage

import (
	"strings"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain key", "courses/abc/package.zip", "courses/abc/package.zip"},
		{"leading slash", "/courses/abc/package.zip", "courses/abc/package.zip"},
		{"multiple leading slashes", "///courses/abc", "courses/abc"},
		{"parent traversal", "../../etc/passwd", "etc/passwd"},
		{"embedded traversal", "courses/../../../secret", "courses/secret"},
		{"backslashes", "courses\\abc\\index.html", "courses/abc/index.html"},
		{"duplicate separators", "courses//abc///x", "courses/abc/x"},
		{"dot segment", "courses/./abc", "courses/abc"},
		{"many dots", "....", ""},
		{"empty", "", ""},
		{"root only", "/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeKey(tt.in)
			if got != tt.want {
				t.Errorf("SanitizeKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeKeyIdempotent(t *testing.T) {
	inputs := []string{
		"/courses/abc/package.zip",
		"../../x/../y",
		"a//b/../c",
		"..\\..\\windows",
		"courses/abc/assets/index.html",
		"...../deep/....",
	}

	for _, in := range inputs {
		once := SanitizeKey(in)
		twice := SanitizeKey(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
		if strings.HasPrefix(once, "/") {
			t.Errorf("sanitized key %q starts with /", once)
		}
		if strings.Contains(once, "..") {
			t.Errorf("sanitized key %q contains ..", once)
		}
	}
}
