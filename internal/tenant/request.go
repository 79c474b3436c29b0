package tenant

import "strings"

// IDFromRequest returns the tenant id carried by a page request: the id
// query parameter, else the path segment following prefix ("contact/").
func IDFromRequest(path, queryID, prefix string) string {
	if id := strings.TrimSpace(queryID); id != "" {
		return id
	}
	if prefix == "" {
		return ""
	}

	path = strings.TrimPrefix(path, "/")
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok {
		return ""
	}
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}
