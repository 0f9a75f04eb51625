package parser

import (
	"net/url"
	"strings"
)

// ResolveURL turns a link found in markup into an absolute URL relative to
// base. It is best effort: dot segments, queries and fragments of base are
// not normalized.
func ResolveURL(base, candidate string) string {
	switch {
	case strings.HasPrefix(candidate, "http"):
		return candidate
	case strings.HasPrefix(candidate, "//"):
		return "https:" + candidate
	case strings.HasPrefix(candidate, "/"):
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return candidate
		}
		return parsed.Scheme + "://" + parsed.Host + candidate
	default:
		return strings.TrimRight(base, "/") + "/" + candidate
	}
}
