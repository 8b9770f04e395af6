// Package util provides utility functions for the application.
package util

import (
	"net/mail"
	"os"
	"strings"

	"github.com/gosimple/slug"
)

// Slugify turns an organization or document title into a URL-safe slug
func Slugify(name string) string {
	return slug.Make(strings.TrimSpace(name))
}

// CleanName trims a display name and collapses internal whitespace
// Use this function whenever accepting names from external sources
func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// IsValidEmail reports whether s is a bare address like user@example.com
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " <>") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// FileExists reports whether a regular file exists at path
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
