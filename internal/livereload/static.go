package livereload

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// clientSnippet is injected into every served HTML page.
const clientSnippet = `<script src="` + ClientPath + `"></script>
<script>io().on("` + ReloadEvent + `", function () { window.location.reload(); });</script>
`

// injectSnippet inserts the reload client before the last </body>, or
// appends it when the page has none.
func injectSnippet(page []byte) []byte {
	idx := bytes.LastIndex(bytes.ToLower(page), []byte("</body>"))
	if idx < 0 {
		return append(page, clientSnippet...)
	}
	out := make([]byte, 0, len(page)+len(clientSnippet))
	out = append(out, page[:idx]...)
	out = append(out, clientSnippet...)
	return append(out, page[idx:]...)
}

func (s *Server) staticHandler() http.Handler {
	files := http.FileServer(http.Dir(s.cfg.Root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && s.startPath() != "/" {
			http.Redirect(w, r, s.startPath(), http.StatusFound)
			return
		}

		name, ok := s.htmlFile(r.URL.Path)
		if !ok {
			files.ServeHTTP(w, r)
			return
		}
		page, err := os.ReadFile(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		info, err := os.Stat(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, "", info.ModTime(), bytes.NewReader(injectSnippet(page)))
	})
}

// htmlFile maps a request path to an HTML file under the root. Directory
// requests resolve to their index.html when there is one.
func (s *Server) htmlFile(urlPath string) (string, bool) {
	clean := path.Clean("/" + urlPath)
	name := filepath.Join(s.cfg.Root, filepath.FromSlash(clean))
	if info, err := os.Stat(name); err == nil && info.IsDir() {
		if !strings.HasSuffix(urlPath, "/") {
			return "", false
		}
		name = filepath.Join(name, "index.html")
		if _, err := os.Stat(name); err != nil {
			return "", false
		}
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".html" && ext != ".htm" {
		return "", false
	}
	return name, true
}
