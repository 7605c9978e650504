package gate

import (
	"path"
	"strings"
)

// DefaultPublicPaths are reachable without a credential.
var DefaultPublicPaths = []string{
	"/v1/auth/login",
	"/v1/auth/register",
	"/v1/auth/refresh",
	"/livez",
	"/readyz",
	"/swagger/*",
	"/static/*",
}

// Policy is the public allow-list. Entries are exact paths, or prefixes when
// they end in "/*".
type Policy struct {
	exact    map[string]struct{}
	prefixes []string
}

// NewPolicy compiles entries. Blank entries are ignored.
func NewPolicy(entries []string) Policy {
	p := Policy{exact: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(e, "/*"); ok {
			p.prefixes = append(p.prefixes, prefix)
			continue
		}
		p.exact[e] = struct{}{}
	}
	return p
}

// IsPublic reports whether urlPath needs no credential. The path is cleaned
// first so dot segments can't walk out of a public prefix.
func (p Policy) IsPublic(urlPath string) bool {
	if urlPath == "" {
		urlPath = "/"
	}
	clean := path.Clean(urlPath)

	if _, ok := p.exact[clean]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if clean == prefix || strings.HasPrefix(clean, prefix+"/") {
			return true
		}
	}
	return false
}
