package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// sanitizeInput trims whitespace and drops control characters other than
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// pathVar returns a sanitized route variable.
func pathVar(r *http.Request, name string) string {
	return sanitizeInput(mux.Vars(r)[name])
}

func household(r *http.Request) string {
	return pathVar(r, "household")
}

func cacheKey(household string, parts ...string) string {
	return household + "|" + strings.Join(parts, "|")
}
