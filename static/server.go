// Package static serves a prebuilt front-end bundle from disk.
package static

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// Handler serves files from dir. Card and avatar images, scripts and styles are
// served as-is; any other path falls back to index.html so client-side routes
// such as /game/ABC234 load the app.
func Handler(dir string) http.Handler {
	return handler(os.DirFS(dir))
}

func handler(root fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAsset(r.URL.Path) {
			fileServer.ServeHTTP(w, r)
			return
		}
		b, err := fs.ReadFile(root, "index.html")
		if err != nil {
			http.Error(w, "index not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(b)
	})
}

func isAsset(p string) bool {
	if strings.HasPrefix(p, "/assets/") || strings.HasPrefix(p, "/cards/") || strings.HasPrefix(p, "/avatars/") {
		return true
	}
	switch path.Ext(p) {
	case ".js", ".css", ".svg", ".ico", ".png", ".jpg", ".txt", ".map":
		return true
	}
	return false
}
