package middleware

import (
	"mime"
	"net/http"
	"strings"
)

const methodOverrideField = "_method"

// MethodOverride lets HTML forms, which can only POST, reach PUT and DELETE
// routes. It runs before routing, so it wraps the engine instead of being gin
// middleware. The override comes from the _method query parameter, the
// _method form field, or the X-HTTP-Method-Override header.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if method, ok := overrideMethod(r); ok {
				r.Method = method
			}
		}
		next.ServeHTTP(w, r)
	})
}

func overrideMethod(r *http.Request) (string, bool) {
	candidate := r.URL.Query().Get(methodOverrideField)
	if candidate == "" {
		candidate = r.Header.Get("X-HTTP-Method-Override")
	}
	if candidate == "" && isFormEncoded(r) {
		if err := r.ParseForm(); err == nil {
			candidate = r.PostForm.Get(methodOverrideField)
		}
	}

	switch method := strings.ToUpper(strings.TrimSpace(candidate)); method {
	case http.MethodPut, http.MethodPatch, http.MethodDelete:
		return method, true
	default:
		return "", false
	}
}

func isFormEncoded(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}
