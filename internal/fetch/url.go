// Package fetch detects URLs, derives attachment names from them, and talks
// to the URL-to-markdown scrape service.
package fetch

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/promptcraft/internal/apperr"
)

// URLPattern matches an http(s) URL with a host and optional path or query.
var URLPattern = regexp.MustCompile(`https?://(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&//=]*)`)

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// FindURL returns the first URL in text.
func FindURL(text string) (string, bool) {
	u := URLPattern.FindString(text)
	return u, u != ""
}

// FilenameFromURL derives the attachment name for a URL: host without a
// leading "www.", then the path with "/" turned into "-", then ".md", with
// every other unsafe character replaced by "-" and the result lower-cased.
//
//	https://www.example.com/path/to/page -> example.com-path-to-page.md
func FilenameFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("fetch: parse url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("fetch: url %q has no host: %w", raw, apperr.ErrInvalidInput)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	base := strings.TrimPrefix(u.Hostname(), "www.") + strings.ReplaceAll(path, "/", "-")
	name := unsafeNameRe.ReplaceAllString(base+".md", "-")
	return strings.ToLower(name), nil
}
