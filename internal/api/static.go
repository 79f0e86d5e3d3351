package api

import (
	"net/http"
	"strings"
)

// staticHandler serves stored image files under /uploads/. Directory
// listings and dot-prefixed paths (staging, trash) are not exposed.
func staticHandler(root string) http.Handler {
	files := http.StripPrefix("/uploads/", http.FileServer(http.Dir(root)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(r.URL.Path, "/uploads/")
		if p == "" || strings.HasSuffix(p, "/") {
			http.NotFound(w, r)
			return
		}
		for _, seg := range strings.Split(p, "/") {
			if strings.HasPrefix(seg, ".") {
				http.NotFound(w, r)
				return
			}
		}

		// Files are rewritten in place when their order changes.
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
