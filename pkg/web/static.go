package web

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed static/*
var staticFiles embed.FS

type asset struct {
	body        []byte
	contentType string
}

// staticHandler serves the embedded client from memory
type staticHandler struct {
	assets  map[string]asset
	modTime time.Time
}

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/javascript", js.Minify)
	return m
}

// newStaticHandler minifies every embedded asset up front
func newStaticHandler() (*staticHandler, error) {
	m := newMinifier()
	h := &staticHandler{assets: make(map[string]asset), modTime: time.Now()}

	err := fs.WalkDir(staticFiles, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := staticFiles.ReadFile(p)
		if err != nil {
			return err
		}

		contentType := mime.TypeByExtension(path.Ext(p))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		mediaType, _, _ := strings.Cut(contentType, ";")

		body := raw
		if minified, err := m.Bytes(mediaType, raw); err == nil {
			body = minified
		} else if err != minify.ErrNotExist {
			return fmt.Errorf("minify %s: %w", p, err)
		}

		h.assets["/"+strings.TrimPrefix(p, "static/")] = asset{body: body, contentType: contentType}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path
	if name == "/" {
		name = "/index.html"
	}
	a, ok := h.assets[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	http.ServeContent(w, r, name, h.modTime, bytes.NewReader(a.body))
}
